// Package origin implements the HTTP client for the remote static file
// host using gocolly.
package origin

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
)

// Config controls collector behavior.
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// StatusError reports a non-2xx response from the origin.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("origin returned status %d for %s", e.Code, e.URL)
}

// Client fetches origin resources using the Colly collector. A base
// collector holds the shared transport; every request runs on a clone.
type Client struct {
	cfg       Config
	transport http.RoundTripper
	base      *colly.Collector
}

// New builds a Client.
func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	c := colly.NewCollector(colly.Async(false))
	transport := newHTTPTransport()
	c.WithTransport(transport)
	c.IgnoreRobotsTxt = true

	return &Client{
		cfg:       cfg,
		transport: transport,
		base:      c,
	}
}

// BaseURL returns the configured origin root, without a trailing slash.
func (c *Client) BaseURL() string {
	return strings.TrimSuffix(c.cfg.BaseURL, "/")
}

// URL joins path segments onto the origin root. Segments are used as
// given; callers pass hrefs exactly as the origin listed them.
func (c *Client) URL(segments ...string) string {
	parts := append([]string{c.BaseURL()}, segments...)
	for i, p := range parts {
		parts[i] = strings.Trim(p, "/")
	}
	return strings.Join(parts, "/")
}

// Get executes a single HTTP GET and returns the body. A non-2xx response
// is returned as a *StatusError.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	var (
		body     []byte
		fetchErr error
	)
	collector := c.buildCollector()
	collector.OnResponse(func(r *colly.Response) {
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			fetchErr = &StatusError{Code: r.StatusCode, URL: url}
			return
		}
		fetchErr = err
	})

	if err := c.runCollector(ctx, collector, url, &fetchErr); err != nil {
		return nil, err
	}
	return body, nil
}

// ListDir fetches a directory-listing page and returns the href target of
// every anchor, in document order.
func (c *Client) ListDir(ctx context.Context, url string) ([]string, error) {
	var (
		hrefs    []string
		fetchErr error
	)
	collector := c.buildCollector()
	collector.OnHTML("a[href]", func(e *colly.HTMLElement) {
		hrefs = append(hrefs, e.Attr("href"))
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			fetchErr = &StatusError{Code: r.StatusCode, URL: url}
			return
		}
		fetchErr = err
	})

	if err := c.runCollector(ctx, collector, url, &fetchErr); err != nil {
		return nil, err
	}
	return hrefs, nil
}

func (c *Client) buildCollector() *colly.Collector {
	collector := c.base.Clone()
	if c.cfg.UserAgent != "" {
		collector.UserAgent = c.cfg.UserAgent
	}
	collector.IgnoreRobotsTxt = true
	collector.SetRequestTimeout(c.cfg.Timeout)
	collector.WithTransport(c.transport)
	return collector
}

func (c *Client) runCollector(ctx context.Context, collector *colly.Collector, url string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("origin fetch canceled: %w", ctx.Err())
	case err := <-done:
		if *fetchErr != nil {
			return *fetchErr
		}
		if err != nil {
			return fmt.Errorf("origin visit failed: %w", err)
		}
		return nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
