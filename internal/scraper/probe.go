package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"os/exec"
	"time"

	// Registered for image.DecodeConfig; listings only ever classify
	// these three image formats.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/atelierlabs/folio/internal/project"
)

// ImageDimensions decodes just enough of an image header to learn its
// pixel dimensions, without a full decode.
func ImageDimensions(data []byte) (*project.Dimensions, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image config: %w", err)
	}
	return &project.Dimensions{Width: cfg.Width, Height: cfg.Height}, nil
}

// VideoProber resolves video dimensions by shelling out to ffprobe.
type VideoProber struct {
	Path    string
	Timeout time.Duration
}

// NewVideoProber returns a prober; path defaults to "ffprobe" on PATH and
// the timeout to 30 seconds.
func NewVideoProber(path string, timeout time.Duration) *VideoProber {
	if path == "" {
		path = "ffprobe"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &VideoProber{Path: path, Timeout: timeout}
}

type ffprobeOutput struct {
	Streams []struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"streams"`
}

// Probe runs ffprobe against url and returns the first video stream's
// dimensions. The subprocess is killed after the configured timeout.
func (p *VideoProber) Probe(ctx context.Context, url string) (*project.Dimensions, error) {
	probeCtx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	cmd := exec.CommandContext(probeCtx, p.Path,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "json",
		url,
	)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w", url, err)
	}

	var parsed ffprobeOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}
	if len(parsed.Streams) == 0 || parsed.Streams[0].Width == 0 {
		return nil, fmt.Errorf("ffprobe %s: no video stream", url)
	}
	return &project.Dimensions{
		Width:  parsed.Streams[0].Width,
		Height: parsed.Streams[0].Height,
	}, nil
}
