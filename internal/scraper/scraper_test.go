package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/atelierlabs/folio/internal/origin"
	"github.com/atelierlabs/folio/internal/project"
)

func TestCandidateFolders(t *testing.T) {
	t.Parallel()

	hrefs := []string{"a/", "b/", "_template/", "../", "./", "?C=M;O=A", "file.txt", "/abs/"}
	assert.Equal(t, []string{"a", "b"}, CandidateFolders(hrefs))
}

func TestCandidateFoldersDecodesNames(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"neon nights"}, CandidateFolders([]string{"neon%20nights/"}))
}

// stubProber returns fixed dimensions, or an error when width is zero.
type stubProber struct {
	width, height int
	calls         int
}

func (p *stubProber) Probe(_ context.Context, _ string) (*project.Dimensions, error) {
	p.calls++
	if p.width == 0 {
		return nil, errors.New("probe timed out")
	}
	return &project.Dimensions{Width: p.width, Height: p.height}, nil
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func listing(entries ...string) string {
	var b bytes.Buffer
	b.WriteString("<html><body><pre><a href=\"../\">../</a>")
	for _, e := range entries {
		fmt.Fprintf(&b, "<a href=%q>%s</a>", e, e)
	}
	b.WriteString("</pre></body></html>")
	return b.String()
}

// testOrigin serves a fake static file host with two projects: "glasshouse"
// with full media, and "broken" whose manifest is missing.
func testOrigin(t *testing.T) *httptest.Server {
	t.Helper()
	img := pngBytes(t, 640, 480)
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, listing("glasshouse/", "broken/", "_template/"))
	})
	mux.HandleFunc("/glasshouse/manifest.json", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"title":"Glasshouse","date":"June 1, 2022","tags":["glass"],"credits":[{"name":"Mara Voss"}]}`)
	})
	mux.HandleFunc("/glasshouse/media/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, listing("b.jpg", "a.mp4", "notes.md", "raw.tiff"))
	})
	mux.HandleFunc("/glasshouse/media/b.jpg", func(w http.ResponseWriter, _ *http.Request) {
		w.Write(img) //nolint:errcheck
	})
	mux.HandleFunc("/glasshouse/media/notes.md", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "# install notes")
	})
	// /broken/manifest.json intentionally 404s.
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newScraper(t *testing.T, baseURL string, prober VideoDimensioner) *Scraper {
	t.Helper()
	client := origin.New(origin.Config{BaseURL: baseURL, Timeout: 5 * time.Second})
	return New(client, prober, Config{}, zap.NewNop())
}

func TestScrapeEndToEnd(t *testing.T) {
	t.Parallel()

	srv := testOrigin(t)
	prober := &stubProber{width: 1920, height: 1080}
	s := newScraper(t, srv.URL, prober)

	records, err := s.Scrape(context.Background())
	require.NoError(t, err)

	// "broken" dropped (manifest 404), "_template" excluded.
	require.Len(t, records, 1)
	p := records[0]
	assert.Equal(t, "glasshouse", p.ID)
	assert.Equal(t, "Glasshouse", p.Title)
	assert.Equal(t, "2022-06-01", p.Date)

	// Unrecognized .tiff dropped; remaining media sorted by filename.
	require.Len(t, p.Media, 3)
	assert.Equal(t, "a.mp4", p.Media[0].Filename)
	assert.Equal(t, project.MediaVideo, p.Media[0].Type)
	require.NotNil(t, p.Media[0].Dimensions)
	assert.Equal(t, 1920, p.Media[0].Dimensions.Width)

	assert.Equal(t, "b.jpg", p.Media[1].Filename)
	require.NotNil(t, p.Media[1].Dimensions)
	assert.Equal(t, 640, p.Media[1].Dimensions.Width)
	assert.Equal(t, 480, p.Media[1].Dimensions.Height)

	assert.Equal(t, "notes.md", p.Media[2].Filename)
	assert.Equal(t, "# install notes", p.Media[2].Content)

	require.NotNil(t, p.PrimaryImage)
	assert.Equal(t, "b.jpg", p.PrimaryImage.Filename)
	assert.Equal(t, 1, prober.calls)
}

func TestScrapeVideoProbeFailureIsNonFatal(t *testing.T) {
	t.Parallel()

	srv := testOrigin(t)
	s := newScraper(t, srv.URL, &stubProber{})

	records, err := s.Scrape(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Nil(t, records[0].Media[0].Dimensions)
}

func TestScrapeMediaListingFailureKeepsProject(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, listing("solo/"))
	})
	mux.HandleFunc("/solo/manifest.json", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"name":"Solo"}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	s := newScraper(t, srv.URL, &stubProber{})
	records, err := s.Scrape(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Solo", records[0].Title)
	assert.Empty(t, records[0].Media)
	assert.Nil(t, records[0].PrimaryImage)
}

func TestScrapeOriginDown(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	s := newScraper(t, srv.URL, &stubProber{})
	_, err := s.Scrape(context.Background())
	require.ErrorIs(t, err, ErrOriginUnavailable)
}

func TestImageDimensions(t *testing.T) {
	t.Parallel()

	dims, err := ImageDimensions(pngBytes(t, 12, 34))
	require.NoError(t, err)
	assert.Equal(t, &project.Dimensions{Width: 12, Height: 34}, dims)

	_, err = ImageDimensions([]byte("not an image"))
	require.Error(t, err)
}
