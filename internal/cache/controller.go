package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/atelierlabs/folio/internal/metrics"
	"github.com/atelierlabs/folio/internal/project"
)

// RefreshFunc produces a fresh set of records, typically scrape+normalize.
type RefreshFunc func(ctx context.Context) ([]project.Project, error)

// Config controls Controller behavior.
type Config struct {
	// TTL is the snapshot freshness window. Zero or negative selects the
	// always-refresh policy: every read of an existing snapshot triggers
	// a background refresh.
	TTL time.Duration
	// RefreshTimeout bounds a background refresh pass.
	RefreshTimeout time.Duration
}

// Controller decides, per read, whether to serve the cached snapshot,
// schedule a background refresh, or fetch synchronously. Cold reads are
// deduplicated through a singleflight group; background refreshes are
// limited to one in flight via an atomic flag.
type Controller struct {
	store   *Store
	refresh RefreshFunc
	cfg     Config
	clock   project.Clock
	logger  *zap.Logger

	group      singleflight.Group
	refreshing atomic.Bool
	bg         sync.WaitGroup

	// onRefresh hooks run after each successful snapshot replacement
	// (share-card invalidation, refresh notifications).
	onRefresh []func(ctx context.Context, snap project.Snapshot)
}

// NewController builds a Controller.
func NewController(store *Store, refresh RefreshFunc, cfg Config, clock project.Clock, logger *zap.Logger) *Controller {
	if cfg.RefreshTimeout <= 0 {
		cfg.RefreshTimeout = 5 * time.Minute
	}
	if clock == nil {
		clock = project.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		store:   store,
		refresh: refresh,
		cfg:     cfg,
		clock:   clock,
		logger:  logger,
	}
}

// OnRefresh registers a hook invoked after every successful refresh.
// Not safe to call once reads have started.
func (c *Controller) OnRefresh(hook func(ctx context.Context, snap project.Snapshot)) {
	c.onRefresh = append(c.onRefresh, hook)
}

// Snapshot serves the project collection. Cold state fetches
// synchronously (deduplicated across concurrent callers); Warm serves
// immediately; Stale serves immediately and schedules one background
// refresh.
func (c *Controller) Snapshot(ctx context.Context) (project.Snapshot, error) {
	snap, ok := c.store.Snapshot()
	if !ok {
		return c.coldFetch(ctx)
	}
	age := c.clock.Now().Sub(snap.LastUpdate)
	metrics.SetSnapshot(len(snap.Projects), age)
	if c.stale(snap.LastUpdate) {
		c.triggerBackground()
	}
	return snap, nil
}

// ByID serves one record. A total cache miss populates synchronously
// first; an id absent from a populated snapshot is ErrNotFound.
func (c *Controller) ByID(ctx context.Context, id string) (project.Project, error) {
	if _, ok := c.store.Snapshot(); !ok {
		if _, err := c.coldFetch(ctx); err != nil {
			return project.Project{}, err
		}
	} else if c.stale(c.store.LastUpdate()) {
		c.triggerBackground()
	}
	return c.store.ByID(id)
}

// ForceRefresh scrapes and replaces the snapshot synchronously,
// deduplicated with any in-flight cold fetch.
func (c *Controller) ForceRefresh(ctx context.Context) (project.Snapshot, error) {
	v, err, _ := c.group.Do("refresh", func() (any, error) {
		return c.refreshNow(ctx, "forced")
	})
	if err != nil {
		return project.Snapshot{}, err
	}
	return v.(project.Snapshot), nil
}

// Status describes the controller state for the admin endpoint.
type Status struct {
	Projects   int       `json:"projects"`
	LastUpdate time.Time `json:"last_update,omitempty"`
	Stale      bool      `json:"stale"`
	Refreshing bool      `json:"refreshing"`
	TTLSeconds float64   `json:"ttl_seconds"`
}

// Status reports the current cache state.
func (c *Controller) Status() Status {
	st := Status{
		Refreshing: c.refreshing.Load(),
		TTLSeconds: c.cfg.TTL.Seconds(),
	}
	snap, ok := c.store.Snapshot()
	if ok {
		st.Projects = len(snap.Projects)
		st.LastUpdate = snap.LastUpdate
		st.Stale = c.stale(snap.LastUpdate)
	} else {
		st.Stale = true
	}
	return st
}

// Wait blocks until any in-flight background refresh finishes.
func (c *Controller) Wait() {
	c.bg.Wait()
}

func (c *Controller) stale(lastUpdate time.Time) bool {
	if c.cfg.TTL <= 0 {
		return true
	}
	return c.clock.Now().Sub(lastUpdate) > c.cfg.TTL
}

func (c *Controller) coldFetch(ctx context.Context) (project.Snapshot, error) {
	v, err, _ := c.group.Do("refresh", func() (any, error) {
		// Re-check under the flight: a refresh that completed while we
		// queued already populated the store.
		if snap, ok := c.store.Snapshot(); ok {
			return snap, nil
		}
		return c.refreshNow(ctx, "cold")
	})
	if err != nil {
		return project.Snapshot{}, err
	}
	return v.(project.Snapshot), nil
}

// triggerBackground starts one background refresh unless one is already
// in flight; concurrent triggers collapse to a no-op. The refresh body
// runs inside the shared singleflight group so a concurrent ForceRefresh
// coalesces with it instead of writing the store in parallel.
func (c *Controller) triggerBackground() {
	if !c.refreshing.CompareAndSwap(false, true) {
		return
	}
	c.bg.Add(1)
	go func() {
		defer c.bg.Done()
		defer c.refreshing.Store(false)
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.RefreshTimeout)
		defer cancel()
		_, err, _ := c.group.Do("refresh", func() (any, error) {
			return c.refreshNow(ctx, "background")
		})
		if err != nil {
			// The existing snapshot stays untouched; the next stale read
			// or TTL window retries.
			c.logger.Warn("background refresh failed", zap.Error(err))
		}
	}()
}

func (c *Controller) refreshNow(ctx context.Context, mode string) (project.Snapshot, error) {
	records, err := c.refresh(ctx)
	if err != nil {
		metrics.ObserveRefresh(mode, "error")
		return project.Snapshot{}, fmt.Errorf("refresh projects: %w", err)
	}
	now := c.clock.Now()
	if err := c.store.Write(records, now); err != nil {
		metrics.ObserveRefresh(mode, "error")
		return project.Snapshot{}, fmt.Errorf("persist snapshot: %w", err)
	}
	metrics.ObserveRefresh(mode, "ok")
	snap := project.Snapshot{LastUpdate: now, Projects: records}
	for _, hook := range c.onRefresh {
		hook(ctx, snap)
	}
	c.logger.Info("snapshot refreshed",
		zap.String("mode", mode), zap.Int("projects", len(records)))
	return snap, nil
}
