package notify

import (
	"context"
	"sync"
)

// MemoryPublisher records events for inspection in tests.
type MemoryPublisher struct {
	mu     sync.RWMutex
	events []RefreshEvent
}

// NewMemoryPublisher returns an empty MemoryPublisher.
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

// Publish records the event.
func (p *MemoryPublisher) Publish(_ context.Context, event RefreshEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

// Events returns a copy of the recorded events.
func (p *MemoryPublisher) Events() []RefreshEvent {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]RefreshEvent, len(p.events))
	copy(out, p.events)
	return out
}

// Close is a no-op.
func (p *MemoryPublisher) Close() error { return nil }
