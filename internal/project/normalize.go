package project

import (
	"sort"
	"time"
)

// dateLayouts are tried in order when normalizing a manifest date. The set
// is deliberately loose: manifests come from designers, not machines.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006/01/02",
	"02-01-2006",
	"02.01.2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"January 2006",
	"2006",
}

// NormalizeDate reformats a manifest date to YYYY-MM-DD when it parses
// under any known layout. Unparseable input is returned unchanged;
// normalization never fails a record.
func NormalizeDate(raw string) string {
	if raw == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return raw
}

// Normalize builds the canonical record for one project folder. It is pure:
// the id is the folder name verbatim, manifest fields pass through, media
// is re-sorted by case-sensitive filename, and the primary image is the
// lexicographically first image item.
func Normalize(folderName string, m Manifest, media []MediaItem) Project {
	items := append([]MediaItem(nil), media...)
	sort.Slice(items, func(i, j int) bool { return items[i].Filename < items[j].Filename })

	title := m.Title
	if title == "" {
		title = m.Name
	}

	p := Project{
		ID:          folderName,
		Title:       title,
		Description: m.Description,
		Date:        NormalizeDate(m.Date),
		Tags:        m.Tags,
		Credits:     m.Credits,
		Space:       m.Space,
		Media:       items,
	}
	p.PrimaryImage = primaryImage(items)
	return p
}

func primaryImage(sorted []MediaItem) *ImageRef {
	for _, item := range sorted {
		if item.Type != MediaImage {
			continue
		}
		return &ImageRef{
			Filename:   item.Filename,
			URL:        item.URL,
			Dimensions: item.Dimensions,
		}
	}
	return nil
}
