package gps

import (
	"context"
	"sync"
	"time"

	"github.com/Jtaz8681/boat-app/pkg/geo"
)

// Options controls a single-shot fetch or a continuous watch.
type Options struct {
	HighAccuracy bool          `json:"high_accuracy"` // Prefer the highest-accuracy fix the provider can deliver
	Timeout      time.Duration `json:"timeout"`       // Deadline for obtaining a fix; enforced by the adapter
	MaxAge       time.Duration `json:"max_age"`       // A cached fix up to this age may be reused
}

// DefaultOptions returns the fetch options used when none are configured.
func DefaultOptions() Options {
	return Options{
		HighAccuracy: true,
		Timeout:      10 * time.Second,
		MaxAge:       60 * time.Second,
	}
}

// Provider is the contract over a positioning backend. Implementations
// classify every failure into the ErrorCode taxonomy before returning it.
type Provider interface {
	// Name identifies the provider in logs, metrics and health reports.
	Name() string

	// Supported reports whether the backend exists on this platform.
	Supported() bool

	// CurrentPosition obtains a single fix. The call respects both ctx
	// and Options.Timeout; a provider that never calls back must not
	// hang the caller past the deadline.
	CurrentPosition(ctx context.Context, opts Options) (*geo.Position, error)

	// WatchPosition starts continuous delivery. onUpdate may fire an
	// unbounded number of times at irregular intervals; onError reports
	// classified failures without terminating the watch. The returned
	// Watch stops delivery when canceled.
	WatchPosition(ctx context.Context, opts Options, onUpdate func(*geo.Position), onError func(error)) (*Watch, error)
}

// PermissionQuerier is implemented by providers that can answer "may we
// read location" without side effects. Providers without it are probed.
type PermissionQuerier interface {
	PermissionStatus(ctx context.Context) (PermissionState, error)
}

// Watch is a handle to a continuous position subscription. Cancel is
// idempotent and safe to call after the provider already stopped itself;
// it does not return until delivery has stopped.
type Watch struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// NewWatch builds a watch handle around a delivery goroutine. The
// goroutine must close done when it exits.
func NewWatch(cancel context.CancelFunc, done chan struct{}) *Watch {
	return &Watch{cancel: cancel, done: done}
}

// Cancel stops delivery and blocks until no further callbacks can fire.
func (w *Watch) Cancel() {
	w.once.Do(func() {
		w.cancel()
		<-w.done
	})
}

// Done reports delivery termination, whether by Cancel or provider stop.
func (w *Watch) Done() <-chan struct{} { return w.done }

// newPollingWatch emulates a continuous watch for providers that only
// support single-shot fetches, by polling at the given interval. The
// first fetch happens immediately.
func newPollingWatch(ctx context.Context, p Provider, opts Options, interval time.Duration, onUpdate func(*geo.Position), onError func(error)) *Watch {
	watchCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			pos, err := p.CurrentPosition(watchCtx, opts)
			if watchCtx.Err() != nil {
				return
			}
			if err != nil {
				onError(Classify(err))
			} else {
				onUpdate(pos)
			}

			select {
			case <-watchCtx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	return NewWatch(cancel, done)
}

// sourceHealth tracks per-provider delivery health, mirrored into status
// reports. Counters are monotonic for the lifetime of the provider.
type sourceHealth struct {
	mu           sync.Mutex
	available    bool
	lastSuccess  time.Time
	lastError    string
	errorCount   int
	successCount int
	avgLatencyMs float64
}

// SourceHealth is a snapshot of a provider's delivery health.
type SourceHealth struct {
	Available    bool      `json:"available"`
	LastSuccess  time.Time `json:"last_success"`
	LastError    string    `json:"last_error"`
	SuccessRate  float64   `json:"success_rate"`
	AvgLatency   float64   `json:"avg_latency_ms"`
	ErrorCount   int       `json:"error_count"`
	SuccessCount int       `json:"success_count"`
}

func (h *sourceHealth) recordSuccess(latency time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.successCount++
	h.lastSuccess = time.Now()
	h.avgLatencyMs = (h.avgLatencyMs*float64(h.successCount-1) + float64(latency.Milliseconds())) / float64(h.successCount)
}

func (h *sourceHealth) recordError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errorCount++
	h.lastError = err.Error()
}

func (h *sourceHealth) setAvailable(available bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.available = available
}

func (h *sourceHealth) snapshot() SourceHealth {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := SourceHealth{
		Available:    h.available,
		LastSuccess:  h.lastSuccess,
		LastError:    h.lastError,
		AvgLatency:   h.avgLatencyMs,
		ErrorCount:   h.errorCount,
		SuccessCount: h.successCount,
	}
	if total := h.errorCount + h.successCount; total > 0 {
		s.SuccessRate = float64(h.successCount) / float64(total)
	}
	return s
}

// HealthReporter is implemented by providers that track delivery health.
type HealthReporter interface {
	HealthStatus() SourceHealth
}
