package sync

import (
	"context"
	"log/slog"
	gosync "sync"
	"time"

	"github.com/nhle/studytrack/internal/store"
)

// State represents the current state of the background refresher.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateError
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateError:
		return "error"
	default:
		return "idle"
	}
}

// Status holds the refresher state.
type Status struct {
	State      State
	LastSync   time.Time
	Generation uint64
	Error      error
}

// Feed delivers committed gateway writes.
type Feed interface {
	Subscribe(fn func(store.Change)) func()
}

// fetchTimeout is the maximum time allowed for a single aggregation.
const fetchTimeout = 30 * time.Second

// defaultInterval applies when the configured interval is not positive.
const defaultInterval = 120 * time.Second

// Refresher keeps a Cache current by re-aggregating on every change
// notification and on a fixed interval.
type Refresher struct {
	cache    *Cache
	loader   Loader
	interval time.Duration
	logger   *slog.Logger

	status      Status
	triggerCh   chan struct{}
	stopCh      chan struct{}
	doneCh      chan struct{}
	unsubscribe func()
	mu          gosync.Mutex
	running     bool
}

// NewRefresher creates a refresher that loads into cache.
func NewRefresher(cache *Cache, loader Loader, interval time.Duration, logger *slog.Logger) *Refresher {
	if interval <= 0 {
		interval = defaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Refresher{
		cache:     cache,
		loader:    loader,
		interval:  interval,
		logger:    logger.With("component", "sync"),
		triggerCh: make(chan struct{}, 1),
	}
}

// Watch subscribes to feed and triggers a refresh for every change made by
// userID. An empty userID accepts every change.
func (r *Refresher) Watch(feed Feed, userID string) {
	unsubscribe := feed.Subscribe(func(c store.Change) {
		if userID != "" && c.UserID != userID {
			return
		}
		r.Trigger()
	})

	r.mu.Lock()
	if r.unsubscribe != nil {
		r.unsubscribe()
	}
	r.unsubscribe = unsubscribe
	r.mu.Unlock()
}

// Start launches the refresh loop. It does an initial load immediately.
// Calling Start on a running refresher is a no-op.
func (r *Refresher) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	go r.loop(r.stopCh, r.doneCh)
}

// Stop halts the refresh loop, unsubscribes from the feed, and waits for
// an in-flight load to finish.
func (r *Refresher) Stop() {
	r.mu.Lock()
	if r.unsubscribe != nil {
		r.unsubscribe()
		r.unsubscribe = nil
	}
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	close(r.stopCh)
	done := r.doneCh
	r.mu.Unlock()

	<-done
}

// Trigger requests a refresh without blocking. Triggers arriving while one
// is already pending are coalesced.
func (r *Refresher) Trigger() {
	select {
	case r.triggerCh <- struct{}{}:
	default:
	}
}

// Status returns the current refresher status.
func (r *Refresher) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.status
	s.Generation = r.cache.Generation()
	return s
}

func (r *Refresher) loop(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.refresh()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			r.refresh()
		case <-r.triggerCh:
			r.refresh()
		}
	}
}

// refresh performs a single fenced load into the cache.
func (r *Refresher) refresh() {
	r.setStatus(StateRunning, nil)

	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	committed, err := r.cache.Load(ctx, r.loader)
	if err != nil {
		r.logger.Warn("refresh failed", "error", err)
		r.setStatus(StateError, err)
		return
	}
	if !committed {
		r.logger.Debug("refresh superseded by a newer request")
	}
	r.setStatus(StateIdle, nil)
}

func (r *Refresher) setStatus(state State, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.status.State = state
	r.status.Error = err
	if state == StateIdle && err == nil {
		r.status.LastSync = time.Now()
	}
}
