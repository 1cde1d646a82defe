// Package notify publishes refresh events to downstream consumers.
package notify

import (
	"context"
	"time"
)

// RefreshEvent describes one completed snapshot refresh.
type RefreshEvent struct {
	Projects   int       `json:"projects"`
	LastUpdate time.Time `json:"last_update"`
}

// Publisher delivers refresh events. Implementations must be safe for
// concurrent use.
type Publisher interface {
	Publish(ctx context.Context, event RefreshEvent) error
	Close() error
}
