package share

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"github.com/atelierlabs/folio/internal/digest"
	"github.com/atelierlabs/folio/internal/metrics"
	"github.com/atelierlabs/folio/internal/project"
	"github.com/atelierlabs/folio/internal/storage"
)

// ErrNoSources signals that the requested scope has no primary images to
// composite. Surfaced as a client error, never retried.
var ErrNoSources = errors.New("no share card source images")

// ErrUnknownScope signals an unsupported scope name.
var ErrUnknownScope = errors.New("unknown share card scope")

// Share card scopes.
const (
	ScopeHomepage = "homepage"
	ScopeProject  = "project"
	ScopeTag      = "tag"
	ScopePerson   = "person"
	ScopeSpace    = "space"
)

// Snapshots is the controller surface the service reads from.
type Snapshots interface {
	Snapshot(ctx context.Context) (project.Snapshot, error)
	ByID(ctx context.Context, id string) (project.Project, error)
}

// Fetcher downloads source image bytes from the origin.
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Service composes share cards on demand and caches the JPEG bytes in a
// blob store keyed by scope and a digest of the identifier.
type Service struct {
	snapshots Snapshots
	fetch     Fetcher
	store     storage.Provider
	logger    *zap.Logger
}

// NewService builds a Service.
func NewService(snapshots Snapshots, fetch Fetcher, store storage.Provider, logger *zap.Logger) *Service {
	if store == nil {
		store = storage.NoOpProvider{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{snapshots: snapshots, fetch: fetch, store: store, logger: logger}
}

// Card returns the JPEG share card for scope+key, composing and caching
// it on a miss.
func (s *Service) Card(ctx context.Context, scope, key string) ([]byte, error) {
	cacheKey, err := objectKey(scope, key)
	if err != nil {
		return nil, err
	}
	if data, ok, getErr := s.store.Get(ctx, cacheKey); getErr == nil && ok {
		metrics.ObserveShareCard(scope, true)
		return data, nil
	}
	metrics.ObserveShareCard(scope, false)

	records, err := s.scopeRecords(ctx, scope, key)
	if err != nil {
		return nil, err
	}
	sources := s.fetchSources(ctx, records)
	if len(sources) == 0 {
		return nil, ErrNoSources
	}

	data, err := EncodeJPEG(Compose(sources))
	if err != nil {
		return nil, err
	}
	if err := s.store.Put(ctx, cacheKey, "image/jpeg", data); err != nil {
		// Serving beats caching; the next request recomposes.
		s.logger.Warn("share card cache write failed",
			zap.String("scope", scope), zap.Error(err))
	}
	return data, nil
}

// Invalidate drops every cached card. Wired as a refresh hook: cards are
// derived from the snapshot and die with it.
func (s *Service) Invalidate(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear share card cache: %w", err)
	}
	return nil
}

func objectKey(scope, key string) (string, error) {
	switch scope {
	case ScopeHomepage:
		return scope + ".jpg", nil
	case ScopeProject, ScopeTag, ScopePerson, ScopeSpace:
		if key == "" {
			return "", fmt.Errorf("%w: %s requires an identifier", ErrUnknownScope, scope)
		}
		return scope + "-" + digest.Key(scope, key) + ".jpg", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownScope, scope)
	}
}

func (s *Service) scopeRecords(ctx context.Context, scope, key string) ([]project.Project, error) {
	if scope == ScopeProject {
		p, err := s.snapshots.ByID(ctx, key)
		if err != nil {
			return nil, err
		}
		return []project.Project{p}, nil
	}

	snap, err := s.snapshots.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	sorted := project.SortByDate(snap.Projects)
	switch scope {
	case ScopeHomepage:
		return sorted, nil
	case ScopeTag:
		return project.ByTag(sorted, key), nil
	case ScopePerson:
		return project.ByPerson(sorted, key), nil
	case ScopeSpace:
		return project.BySpace(sorted, key), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownScope, scope)
	}
}

// fetchSources downloads and decodes up to MaxSources primary images.
// Individual fetch or decode failures are skipped, not fatal.
func (s *Service) fetchSources(ctx context.Context, records []project.Project) []image.Image {
	var sources []image.Image
	for _, p := range records {
		if len(sources) == MaxSources {
			break
		}
		if p.PrimaryImage == nil {
			continue
		}
		body, err := s.fetch.Get(ctx, p.PrimaryImage.URL)
		if err != nil {
			s.logger.Debug("share source fetch failed",
				zap.String("project", p.ID), zap.Error(err))
			continue
		}
		img, err := imaging.Decode(bytes.NewReader(body))
		if err != nil {
			s.logger.Debug("share source decode failed",
				zap.String("project", p.ID), zap.Error(err))
			continue
		}
		sources = append(sources, img)
	}
	return sources
}
