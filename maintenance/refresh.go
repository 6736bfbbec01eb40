// Package maintenance provides background services for the panels.
//
// This package includes:
//   - Refresher: a single periodic trigger that can be restarted without
//     stacking timers
package maintenance

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultRefreshInterval is the monitor's auto refresh period.
const DefaultRefreshInterval = 5 * time.Second

// RefreshConfig holds configuration for the refresher.
type RefreshConfig struct {
	// Interval is how often to run the refresh function.
	// Default: 5 seconds
	Interval time.Duration

	// OnTick is called after every refresh run. Useful for tests and logging.
	OnTick func(n int64)
}

// DefaultRefreshConfig returns the default refresh configuration.
func DefaultRefreshConfig() *RefreshConfig {
	return &RefreshConfig{
		Interval: DefaultRefreshInterval,
	}
}

// Refresher runs a function periodically. At most one timer is active at
// any time: Start on a running refresher replaces its timer.
type Refresher struct {
	fn     func(ctx context.Context)
	config *RefreshConfig

	mu      sync.Mutex
	started atomic.Bool
	done    chan struct{}
	cancel  context.CancelFunc

	active atomic.Int32
	ticks  atomic.Int64
}

// NewRefresher creates a new refresher for fn.
func NewRefresher(fn func(ctx context.Context), config *RefreshConfig) *Refresher {
	if config == nil {
		config = DefaultRefreshConfig()
	}
	if config.Interval <= 0 {
		config.Interval = DefaultRefreshInterval
	}

	return &Refresher{
		fn:     fn,
		config: config,
	}
}

// Start begins the periodic refresh. The first run happens after one
// interval. A running timer is stopped first and replaced.
func (r *Refresher) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopLocked()

	r.done = make(chan struct{})
	ctx, r.cancel = context.WithCancel(ctx)
	r.started.Store(true)
	r.active.Add(1)
	go r.run(ctx, r.done)

	return nil
}

// Stop stops the periodic refresh and waits for an in-flight run.
func (r *Refresher) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started.Load() {
		return ErrNotStarted
	}
	r.stopLocked()
	return nil
}

func (r *Refresher) stopLocked() {
	if !r.started.Load() {
		return
	}
	r.cancel()
	<-r.done
	r.started.Store(false)
}

// IsRunning returns true if the refresher is running.
func (r *Refresher) IsRunning() bool {
	return r.started.Load()
}

// Active returns the number of live timers. It is never more than one.
func (r *Refresher) Active() int {
	return int(r.active.Load())
}

// Ticks returns how many refresh runs have completed.
func (r *Refresher) Ticks() int64 {
	return r.ticks.Load()
}

// Interval returns the refresh period.
func (r *Refresher) Interval() time.Duration {
	return r.config.Interval
}

// run is the main refresh loop.
func (r *Refresher) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer r.active.Add(-1)

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.fn(ctx)
			n := r.ticks.Add(1)
			if r.config.OnTick != nil {
				r.config.OnTick(n)
			}
		}
	}
}
