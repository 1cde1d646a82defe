// Package scraper turns the origin's directory-listing HTML into
// normalized project records.
package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"path"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/atelierlabs/folio/internal/metrics"
	"github.com/atelierlabs/folio/internal/project"
)

// ErrOriginUnavailable reports that the origin root listing could not be
// fetched. It is the only fatal scrape error; everything below the root
// degrades per project or per item.
var ErrOriginUnavailable = errors.New("origin unavailable")

// templateFolder is a reserved folder on the origin that never becomes a
// project.
const templateFolder = "_template"

// Origin is the subset of the origin client the scraper needs.
type Origin interface {
	Get(ctx context.Context, url string) ([]byte, error)
	ListDir(ctx context.Context, url string) ([]string, error)
	URL(segments ...string) string
	BaseURL() string
}

// VideoDimensioner resolves a video's dimensions, typically via ffprobe.
type VideoDimensioner interface {
	Probe(ctx context.Context, url string) (*project.Dimensions, error)
}

// Config controls scrape behavior.
type Config struct {
	// MediaDir is the subfolder inside each project holding media files.
	MediaDir string
	// MediaConcurrency bounds concurrent dimension/content resolution
	// within one project. Output order is unaffected; items are sorted
	// before resolution starts.
	MediaConcurrency int
}

// Scraper fetches and classifies everything under the origin root.
type Scraper struct {
	origin Origin
	video  VideoDimensioner
	cfg    Config
	logger *zap.Logger
}

// New builds a Scraper.
func New(origin Origin, video VideoDimensioner, cfg Config, logger *zap.Logger) *Scraper {
	if cfg.MediaDir == "" {
		cfg.MediaDir = "media"
	}
	if cfg.MediaConcurrency <= 0 {
		cfg.MediaConcurrency = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scraper{origin: origin, video: video, cfg: cfg, logger: logger}
}

// Scrape fetches the origin root listing and resolves every candidate
// project folder. Per-project and per-item failures degrade gracefully;
// only a root listing failure is returned as an error.
func (s *Scraper) Scrape(ctx context.Context) ([]project.Project, error) {
	hrefs, err := s.origin.ListDir(ctx, s.origin.BaseURL()+"/")
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrOriginUnavailable, err)
	}

	folders := CandidateFolders(hrefs)
	records := make([]project.Project, 0, len(folders))
	for _, folder := range folders {
		rec, ok := s.scrapeProject(ctx, folder)
		if !ok {
			metrics.ObserveProject("skipped")
			continue
		}
		metrics.ObserveProject("ok")
		records = append(records, rec)
	}
	return records, nil
}

// CandidateFolders filters directory-listing hrefs down to project folder
// names: anchors ending in "/", excluding navigation links, query links
// (Apache column sorting), and the reserved template folder.
func CandidateFolders(hrefs []string) []string {
	var out []string
	for _, href := range hrefs {
		if !strings.HasSuffix(href, "/") {
			continue
		}
		if strings.HasPrefix(href, "?") || strings.HasPrefix(href, "/") || strings.Contains(href, "://") {
			continue
		}
		name := decodeName(strings.TrimSuffix(href, "/"))
		if name == "" || name == "." || name == ".." || name == templateFolder {
			continue
		}
		if strings.Contains(name, "/") {
			continue
		}
		out = append(out, name)
	}
	return out
}

func decodeName(raw string) string {
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}

func (s *Scraper) scrapeProject(ctx context.Context, folder string) (project.Project, bool) {
	manifestURL := s.origin.URL(folder, "manifest.json")
	body, err := s.origin.Get(ctx, manifestURL)
	if err != nil {
		s.logger.Warn("skipping project: manifest fetch failed",
			zap.String("project", folder), zap.Error(err))
		return project.Project{}, false
	}
	var manifest project.Manifest
	if err := json.Unmarshal(body, &manifest); err != nil {
		s.logger.Warn("skipping project: manifest unreadable",
			zap.String("project", folder), zap.Error(err))
		return project.Project{}, false
	}

	media := s.scrapeMedia(ctx, folder)
	return project.Normalize(folder, manifest, media), true
}

func (s *Scraper) scrapeMedia(ctx context.Context, folder string) []project.MediaItem {
	mediaURL := s.origin.URL(folder, s.cfg.MediaDir) + "/"
	hrefs, err := s.origin.ListDir(ctx, mediaURL)
	if err != nil {
		// Media listing failure is isolated from manifest success: the
		// project survives with empty media.
		s.logger.Warn("media listing failed, keeping project without media",
			zap.String("project", folder), zap.Error(err))
		return nil
	}

	items := classifyMedia(hrefs, func(href string) string {
		return s.origin.URL(folder, s.cfg.MediaDir, href)
	})
	s.resolveMedia(ctx, folder, items)
	return items
}

// classifyMedia classifies listing hrefs by extension and returns items
// sorted by case-sensitive filename. Unrecognized extensions are dropped.
func classifyMedia(hrefs []string, itemURL func(href string) string) []project.MediaItem {
	var items []project.MediaItem
	for _, href := range hrefs {
		if strings.HasSuffix(href, "/") || strings.HasPrefix(href, "?") ||
			strings.HasPrefix(href, "/") || strings.Contains(href, "://") {
			continue
		}
		name := decodeName(href)
		kind, ok := classifyExtension(name)
		if !ok {
			continue
		}
		items = append(items, project.MediaItem{
			URL:      itemURL(href),
			Type:     kind,
			Filename: name,
		})
	}
	sortMedia(items)
	return items
}

func sortMedia(items []project.MediaItem) {
	sort.Slice(items, func(i, j int) bool { return items[i].Filename < items[j].Filename })
}

func classifyExtension(name string) (project.MediaType, bool) {
	switch strings.ToLower(path.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".gif":
		return project.MediaImage, true
	case ".mp4", ".mov", ".avi", ".webm":
		return project.MediaVideo, true
	case ".md":
		return project.MediaNotes, true
	default:
		return "", false
	}
}

// resolveMedia fills dimensions and notes content in place. Resolution is
// bounded-concurrent; ordering is untouched because each goroutine writes
// only its own index.
func (s *Scraper) resolveMedia(ctx context.Context, folder string, items []project.MediaItem) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MediaConcurrency)
	for i := range items {
		g.Go(func() error {
			s.resolveItem(gctx, folder, &items[i])
			return nil
		})
	}
	g.Wait() //nolint:errcheck // item failures are absorbed, never returned
}

func (s *Scraper) resolveItem(ctx context.Context, folder string, item *project.MediaItem) {
	switch item.Type {
	case project.MediaImage:
		body, err := s.origin.Get(ctx, item.URL)
		if err == nil {
			item.Dimensions, err = ImageDimensions(body)
		}
		if err != nil {
			metrics.ObserveProbeFailure("image")
			s.logger.Debug("image probe failed",
				zap.String("project", folder), zap.String("file", item.Filename), zap.Error(err))
		}
	case project.MediaVideo:
		dims, err := s.video.Probe(ctx, item.URL)
		if err != nil {
			metrics.ObserveProbeFailure("video")
			s.logger.Debug("video probe failed",
				zap.String("project", folder), zap.String("file", item.Filename), zap.Error(err))
			return
		}
		item.Dimensions = dims
	case project.MediaNotes:
		body, err := s.origin.Get(ctx, item.URL)
		if err != nil {
			metrics.ObserveProbeFailure("notes")
			s.logger.Debug("notes fetch failed",
				zap.String("project", folder), zap.String("file", item.Filename), zap.Error(err))
			return
		}
		item.Content = string(body)
	}
}
