package lock

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Defaults used when Options leaves a field unset.
const (
	DefaultMaxAttempts   = 5
	DefaultRetryInterval = 100 * time.Millisecond
)

// Resource is a lockable handle shared between cooperating callers.
type Resource interface {
	// TryLock takes the lock without blocking. It must return
	// ErrWouldBlock (possibly wrapped) when the lock is held elsewhere.
	TryLock() error

	// Unlock releases the lock.
	Unlock() error

	// Name identifies the resource in logs and telemetry.
	Name() string
}

// Logger defines the logging interface used by the Manager.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Observer is notified once per Acquire call with its outcome.
type Observer interface {
	LockAttempted(name string, attempts int, acquired bool, waited time.Duration)
}

type noopObserver struct{}

func (noopObserver) LockAttempted(string, int, bool, time.Duration) {}

// Options controls the polling strategy.
type Options struct {
	// MaxAttempts is used when Acquire is called with maxAttempts <= 0.
	MaxAttempts int

	// RetryInterval is the pause between two attempts.
	RetryInterval time.Duration
}

// Manager acquires advisory locks by bounded polling.
//
// The lock only excludes callers that go through the same primitive on
// the same resource; nothing stops code that ignores it.
type Manager struct {
	opts     Options
	logger   Logger
	observer Observer
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewManager creates a Manager. Zero or negative option values fall back
// to DefaultMaxAttempts and DefaultRetryInterval.
func NewManager(opts Options) *Manager {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = DefaultRetryInterval
	}
	return &Manager{
		opts:     opts,
		logger:   noopLogger{},
		observer: noopObserver{},
		sleep:    sleepContext,
	}
}

// SetLogger sets the logger for the manager.
func (m *Manager) SetLogger(logger Logger) {
	m.logger = logger
}

// SetObserver sets the observer notified after each Acquire.
func (m *Manager) SetObserver(observer Observer) {
	m.observer = observer
}

// Acquire tries to take res, at most maxAttempts times, sleeping the
// retry interval between attempts but not after the last one.
//
// It returns true on the first successful attempt and false once every
// attempt found the lock held. False is not an error: the resource is
// busy and the caller decides whether to try again later. A TryLock
// failure other than ErrWouldBlock, or ctx ending while waiting, is
// returned as an error.
func (m *Manager) Acquire(ctx context.Context, res Resource, maxAttempts int) (bool, error) {
	if maxAttempts <= 0 {
		maxAttempts = m.opts.MaxAttempts
	}

	start := time.Now()
	for attempt := 1; ; attempt++ {
		err := res.TryLock()
		if err == nil {
			m.finish(res, attempt, true, start)
			return true, nil
		}
		if !errors.Is(err, ErrWouldBlock) {
			m.finish(res, attempt, false, start)
			return false, fmt.Errorf("locking %s: %w", res.Name(), err)
		}
		if attempt >= maxAttempts {
			m.finish(res, attempt, false, start)
			return false, nil
		}
		if err := m.sleep(ctx, m.opts.RetryInterval); err != nil {
			m.finish(res, attempt, false, start)
			return false, err
		}
	}
}

// Release unlocks res. There is no ownership check: only call it after a
// successful Acquire on the same resource.
func (m *Manager) Release(res Resource) error {
	if err := res.Unlock(); err != nil {
		return fmt.Errorf("unlocking %s: %w", res.Name(), err)
	}
	m.logger.Debug("lock released", "resource", res.Name())
	return nil
}

// WithLock runs fn while holding res. It returns false without calling fn
// if the lock could not be acquired within maxAttempts.
func (m *Manager) WithLock(ctx context.Context, res Resource, maxAttempts int, fn func() error) (bool, error) {
	ok, err := m.Acquire(ctx, res, maxAttempts)
	if err != nil || !ok {
		return false, err
	}

	fnErr := fn()
	if err := m.Release(res); err != nil {
		return true, errors.Join(fnErr, err)
	}
	return true, fnErr
}

func (m *Manager) finish(res Resource, attempts int, acquired bool, start time.Time) {
	waited := time.Since(start)
	if acquired {
		m.logger.Debug("lock acquired", "resource", res.Name(), "attempts", attempts)
	} else {
		m.logger.Warn("lock not acquired", "resource", res.Name(), "attempts", attempts, "waited", waited)
	}
	m.observer.LockAttempted(res.Name(), attempts, acquired, waited)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
