package origin

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string) *Client {
	return New(Config{BaseURL: baseURL, UserAgent: "folio-test", Timeout: 5 * time.Second})
}

func TestGet(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ok.json" {
			w.Write([]byte(`{"ok":true}`)) //nolint:errcheck
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)
	c := newTestClient(srv.URL)

	body, err := c.Get(context.Background(), srv.URL+"/ok.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))

	_, err = c.Get(context.Background(), srv.URL+"/missing.json")
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.Code)
}

func TestListDir(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body><pre>` + //nolint:errcheck
			`<a href="../">../</a>` +
			`<a href="alpha/">alpha/</a>` +
			`<a href="beta/">beta/</a>` +
			`<a href="readme.txt">readme.txt</a>` +
			`</pre></body></html>`))
	}))
	t.Cleanup(srv.Close)
	c := newTestClient(srv.URL)

	hrefs, err := c.ListDir(context.Background(), srv.URL+"/")
	require.NoError(t, err)
	assert.Equal(t, []string{"../", "alpha/", "beta/", "readme.txt"}, hrefs)
}

func TestGetCanceledContext(t *testing.T) {
	t.Parallel()

	blocked := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-blocked
	}))
	t.Cleanup(func() {
		close(blocked)
		srv.Close()
	})
	c := newTestClient(srv.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Get(ctx, srv.URL+"/slow")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestURLJoins(t *testing.T) {
	t.Parallel()

	c := newTestClient("http://origin.example/")
	assert.Equal(t, "http://origin.example/p1/media/a.jpg", c.URL("p1/", "media", "a.jpg"))
	assert.Equal(t, "http://origin.example", c.BaseURL())
}
