package notify

import "context"

// NoOpPublisher discards every event. Used when no broker is configured.
type NoOpPublisher struct{}

// Publish discards the event.
func (NoOpPublisher) Publish(context.Context, RefreshEvent) error { return nil }

// Close is a no-op.
func (NoOpPublisher) Close() error { return nil }
