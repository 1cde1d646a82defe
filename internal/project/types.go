// Package project defines the canonical project record and the pure
// operations over collections of records.
package project

import "time"

// MediaType classifies a media entry by what kind of file it points at.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
	MediaNotes MediaType = "notes"
)

// Dimensions holds pixel dimensions resolved for an image or video.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// MediaItem is one classified entry from a project's media folder.
// Dimensions is nil when resolution failed or does not apply; Content is
// only populated for notes.
type MediaItem struct {
	URL        string      `json:"url"`
	Type       MediaType   `json:"type"`
	Filename   string      `json:"filename"`
	Dimensions *Dimensions `json:"dimensions,omitempty"`
	Content    string      `json:"content,omitempty"`
}

// ImageRef points at a project's primary image: the lexicographically
// first image in its media set.
type ImageRef struct {
	Filename   string      `json:"filename"`
	URL        string      `json:"url"`
	Dimensions *Dimensions `json:"dimensions,omitempty"`
}

// Credit names a person credited on a project.
type Credit struct {
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
}

// Manifest mirrors the manifest.json a project folder publishes. Fields are
// passed through to the record unchanged; Title wins over Name when both
// are present.
type Manifest struct {
	Title       string   `json:"title"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Date        string   `json:"date"`
	Tags        []string `json:"tags"`
	Credits     []Credit `json:"credits"`
	Space       string   `json:"space"`
}

// Project is the canonical normalized record served by the API. ID is the
// remote folder name, verbatim. Date is YYYY-MM-DD when the manifest date
// parsed, the original manifest string when it did not, empty when absent.
type Project struct {
	ID           string      `json:"id"`
	Title        string      `json:"title,omitempty"`
	Description  string      `json:"description,omitempty"`
	Date         string      `json:"date,omitempty"`
	Tags         []string    `json:"tags,omitempty"`
	Credits      []Credit    `json:"credits,omitempty"`
	Space        string      `json:"space,omitempty"`
	Media        []MediaItem `json:"media"`
	PrimaryImage *ImageRef   `json:"primaryImage,omitempty"`
}

// Snapshot is one complete, internally consistent set of records plus the
// time the set was produced.
type Snapshot struct {
	LastUpdate time.Time `json:"last_update"`
	Projects   []Project `json:"projects"`
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock with the real time.
type SystemClock struct{}

// Now returns time.Now.
func (SystemClock) Now() time.Time { return time.Now() }
