package share

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelierlabs/folio/internal/cache"
	"github.com/atelierlabs/folio/internal/project"
	"github.com/atelierlabs/folio/internal/storage/local"
)

type stubSnapshots struct {
	snap project.Snapshot
	err  error
}

func (s *stubSnapshots) Snapshot(context.Context) (project.Snapshot, error) {
	return s.snap, s.err
}

func (s *stubSnapshots) ByID(_ context.Context, id string) (project.Project, error) {
	for _, p := range s.snap.Projects {
		if p.ID == id {
			return p, nil
		}
	}
	return project.Project{}, cache.ErrNotFound
}

type stubFetcher struct {
	images map[string][]byte
	calls  int
}

func (f *stubFetcher) Get(_ context.Context, url string) ([]byte, error) {
	f.calls++
	if data, ok := f.images[url]; ok {
		return data, nil
	}
	return nil, errors.New("not found")
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 10, 10))))
	return buf.Bytes()
}

func testSnapshot() project.Snapshot {
	return project.Snapshot{
		LastUpdate: time.Now(),
		Projects: []project.Project{
			{
				ID:   "aurora",
				Tags: []string{"light"},
				PrimaryImage: &project.ImageRef{
					Filename: "a.jpg", URL: "http://o/aurora/media/a.jpg",
				},
			},
			{ID: "basalt"}, // no primary image
		},
	}
}

func newTestService(t *testing.T) (*Service, *stubFetcher) {
	t.Helper()
	store, err := local.New(afero.NewMemMapFs(), local.Config{BaseDir: "share"})
	require.NoError(t, err)
	fetcher := &stubFetcher{images: map[string][]byte{
		"http://o/aurora/media/a.jpg": testPNG(t),
	}}
	return NewService(&stubSnapshots{snap: testSnapshot()}, fetcher, store, nil), fetcher
}

func TestCardComposesAndCaches(t *testing.T) {
	t.Parallel()

	svc, fetcher := newTestService(t)
	ctx := context.Background()

	first, err := svc.Card(ctx, ScopeHomepage, "")
	require.NoError(t, err)
	assert.NotEmpty(t, first)
	require.Equal(t, 1, fetcher.calls)

	// Second request is served from the blob store, no origin traffic.
	second, err := svc.Card(ctx, ScopeHomepage, "")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, fetcher.calls)
}

func TestCardScopes(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, tc := range []struct{ scope, key string }{
		{ScopeProject, "aurora"},
		{ScopeTag, "LIGHT"},
	} {
		data, err := svc.Card(ctx, tc.scope, tc.key)
		require.NoError(t, err, tc.scope)
		assert.NotEmpty(t, data)
	}
}

func TestCardNoSources(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	// basalt exists but has no primary image.
	_, err := svc.Card(ctx, ScopeProject, "basalt")
	assert.ErrorIs(t, err, ErrNoSources)

	// Tag matches nothing.
	_, err = svc.Card(ctx, ScopeTag, "ceramics")
	assert.ErrorIs(t, err, ErrNoSources)
}

func TestCardUnknownScope(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	_, err := svc.Card(context.Background(), "banner", "x")
	assert.ErrorIs(t, err, ErrUnknownScope)

	_, err = svc.Card(context.Background(), ScopeTag, "")
	assert.ErrorIs(t, err, ErrUnknownScope)
}

func TestInvalidateDropsCachedCards(t *testing.T) {
	t.Parallel()

	svc, fetcher := newTestService(t)
	ctx := context.Background()

	_, err := svc.Card(ctx, ScopeHomepage, "")
	require.NoError(t, err)
	require.NoError(t, svc.Invalidate(ctx))

	_, err = svc.Card(ctx, ScopeHomepage, "")
	require.NoError(t, err)
	assert.Equal(t, 2, fetcher.calls, "cache cleared, card recomposed")
}
