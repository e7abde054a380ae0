// Package janitor periodically deletes session records whose window has
// passed. It only reads and deletes through session.Store and never touches
// tokens or cookies.
package janitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Arunava9732/Arunava45-sub000/session"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// DefaultInterval is the sweep period when none is configured.
const DefaultInterval = time.Hour

var ErrAlreadyRunning = errors.New("janitor already running")

// SweepHook observes every pass: the records removed and the joined error
// of the failures, if any.
type SweepHook func(removed []session.Record, err error)

type Option func(*Janitor)

func WithClock(clock clockwork.Clock) Option {
	return func(j *Janitor) {
		if clock != nil {
			j.clock = clock
		}
	}
}

func WithInterval(d time.Duration) Option {
	return func(j *Janitor) {
		if d > 0 {
			j.interval = d
		}
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(j *Janitor) {
		if log != nil {
			j.log = log.Named("janitor")
		}
	}
}

func WithSweepHook(hook SweepHook) Option {
	return func(j *Janitor) {
		j.hook = hook
	}
}

// Janitor owns one background sweep loop.
type Janitor struct {
	store    session.Store
	clock    clockwork.Clock
	interval time.Duration
	log      *zap.Logger
	hook     SweepHook

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

func New(store session.Store, opts ...Option) *Janitor {
	j := &Janitor{
		store:    store,
		clock:    clockwork.NewRealClock(),
		interval: DefaultInterval,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

func (j *Janitor) Interval() time.Duration { return j.interval }

// RunOnce deletes every record that expired before now and returns how many
// were removed. A failed delete does not stop the pass.
func (j *Janitor) RunOnce(ctx context.Context) (int, error) {
	recs, err := j.store.FindAll(ctx)
	if err != nil {
		err = fmt.Errorf("list sessions: %w", err)
		j.log.Warn("session sweep failed", zap.Error(err))
		j.notify(nil, err)
		return 0, err
	}

	now := j.clock.Now()
	var (
		removed []session.Record
		errs    []error
	)
	for i := range recs {
		if !recs[i].Expired(now) {
			continue
		}
		if err := j.store.Delete(ctx, recs[i].ID); err != nil {
			errs = append(errs, fmt.Errorf("delete session %s: %w", recs[i].ID, err))
			continue
		}
		removed = append(removed, recs[i])
	}

	err = errors.Join(errs...)
	if err != nil {
		j.log.Warn("session sweep incomplete", zap.Int("deleted", len(removed)), zap.Int("failed", len(errs)), zap.Error(err))
	} else {
		j.log.Info("session sweep completed", zap.Int("deleted", len(removed)), zap.Int("scanned", len(recs)))
	}
	j.notify(removed, err)
	return len(removed), err
}

func (j *Janitor) notify(removed []session.Record, err error) {
	if j.hook != nil {
		j.hook(removed, err)
	}
}

// Start runs RunOnce every interval until Stop or until ctx ends. The first
// pass happens one interval after Start.
func (j *Janitor) Start(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.running {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	j.cancel = cancel
	j.done = make(chan struct{})
	j.running = true

	ticker := j.clock.NewTicker(j.interval)
	go j.loop(ctx, ticker, j.done)

	j.log.Info("session janitor started", zap.Duration("interval", j.interval))
	return nil
}

func (j *Janitor) loop(ctx context.Context, ticker clockwork.Ticker, done chan struct{}) {
	defer close(done)
	defer j.exited(done)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			// failures are logged inside RunOnce
			_, _ = j.RunOnce(ctx)
		}
	}
}

// exited clears the running state when the loop ends on its own, so a
// cancelled parent ctx does not block a later Start.
func (j *Janitor) exited(done chan struct{}) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.done == done {
		j.running = false
	}
}

// Stop cancels the loop and waits for an in-flight pass to finish. It is
// safe to call when the janitor is not running.
func (j *Janitor) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	cancel, done := j.cancel, j.done
	j.running = false
	j.mu.Unlock()

	cancel()
	<-done
	j.log.Info("session janitor stopped")
}

func (j *Janitor) Running() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}
