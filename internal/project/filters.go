package project

import (
	"sort"
	"strings"
)

// ByTag returns the records whose tag set contains tag, compared
// case-insensitively and exactly (no substring matching).
func ByTag(records []Project, tag string) []Project {
	var out []Project
	for _, p := range records {
		for _, t := range p.Tags {
			if strings.EqualFold(t, tag) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

// ByPerson returns the records crediting the named person,
// case-insensitive exact match.
func ByPerson(records []Project, name string) []Project {
	var out []Project
	for _, p := range records {
		for _, c := range p.Credits {
			if strings.EqualFold(c.Name, name) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

// BySpace returns the records assigned to the named space,
// case-insensitive exact match.
func BySpace(records []Project, space string) []Project {
	var out []Project
	for _, p := range records {
		if strings.EqualFold(p.Space, space) {
			out = append(out, p)
		}
	}
	return out
}

// SortByDate returns a new slice sorted descending by date. Records with
// no date sort after all dated records; ties and dateless records keep
// their relative input order.
func SortByDate(records []Project) []Project {
	out := append([]Project(nil), records...)
	sort.SliceStable(out, func(i, j int) bool {
		di, dj := out[i].Date, out[j].Date
		if di == "" {
			return false
		}
		if dj == "" {
			return true
		}
		return di > dj
	})
	return out
}

// AllTags returns the sorted unique set of tags across all records.
func AllTags(records []Project) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, p := range records {
		for _, t := range p.Tags {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}
