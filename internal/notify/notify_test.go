package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryPublisherRecordsEvents(t *testing.T) {
	t.Parallel()

	p := NewMemoryPublisher()
	event := RefreshEvent{Projects: 4, LastUpdate: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, p.Publish(context.Background(), event))

	events := p.Events()
	require.Len(t, events, 1)
	assert.Equal(t, event, events[0])
	require.NoError(t, p.Close())
}

func TestMemoryPublisherConcurrent(t *testing.T) {
	t.Parallel()

	p := NewMemoryPublisher()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = p.Publish(context.Background(), RefreshEvent{Projects: n})
		}(i)
	}
	wg.Wait()
	assert.Len(t, p.Events(), 16)
}

func TestNoOpPublisher(t *testing.T) {
	t.Parallel()

	var p NoOpPublisher
	require.NoError(t, p.Publish(context.Background(), RefreshEvent{Projects: 1}))
	require.NoError(t, p.Close())
}
