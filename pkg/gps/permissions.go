package gps

import (
	"context"
	"sync"
	"time"

	"github.com/Jtaz8681/boat-app/pkg/logx"
)

// PermissionState describes whether location access is currently allowed.
// Its lifecycle is independent of any tracking session: access can be
// revoked while a session is nominally active.
type PermissionState string

const (
	PermissionUnknown PermissionState = "unknown"
	PermissionPrompt  PermissionState = "prompt"
	PermissionGranted PermissionState = "granted"
	PermissionDenied  PermissionState = "denied"
)

// PermissionTracker determines and observes location permission for one
// provider. When the provider implements PermissionQuerier the state is
// read without side effects; otherwise the tracker falls back to a
// best-effort probe fetch.
type PermissionTracker struct {
	provider     Provider
	logger       *logx.Logger
	probeTimeout time.Duration

	mu        sync.Mutex
	state     PermissionState
	observers map[int]func(PermissionState)
	nextID    int
}

// NewPermissionTracker creates a tracker in the Unknown state.
func NewPermissionTracker(provider Provider, logger *logx.Logger) *PermissionTracker {
	return &PermissionTracker{
		provider:     provider,
		logger:       logger,
		probeTimeout: 3 * time.Second,
		state:        PermissionUnknown,
		observers:    make(map[int]func(PermissionState)),
	}
}

// State returns the last tracked permission state without touching the
// platform.
func (pt *PermissionTracker) State() PermissionState {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	return pt.state
}

// Query refreshes and returns the permission state. Providers with a
// query primitive are asked directly; others are probed with a
// short-timeout fetch. The probe cannot distinguish "not yet asked" from
// a transient failure, so timeouts and unavailability map to Prompt.
func (pt *PermissionTracker) Query(ctx context.Context) PermissionState {
	if !pt.provider.Supported() {
		pt.setState(PermissionDenied, "provider_not_supported")
		return PermissionDenied
	}

	if querier, ok := pt.provider.(PermissionQuerier); ok {
		state, err := querier.PermissionStatus(ctx)
		if err == nil {
			pt.setState(state, "platform_query")
			return state
		}
		if CodeOf(err) != CodeNotSupported {
			pt.logger.Debug("permission_query_failed", "provider", pt.provider.Name(), "error", err)
			return pt.State()
		}
		// No query primitive behind this provider; fall through to probe.
	}

	probeCtx, cancel := context.WithTimeout(ctx, pt.probeTimeout)
	defer cancel()

	_, err := pt.provider.CurrentPosition(probeCtx, Options{
		HighAccuracy: false,
		Timeout:      pt.probeTimeout,
		MaxAge:       time.Hour, // any cached fix proves access
	})
	state := stateFromProbe(err)
	pt.setState(state, "probe")
	return state
}

// Request actively requests access by attempting a full fetch, returning
// true only when a fix was obtained. The tracked state is updated from
// the outcome. Safe to call concurrently; the last writer wins.
func (pt *PermissionTracker) Request(ctx context.Context, opts Options) bool {
	if !pt.provider.Supported() {
		pt.setState(PermissionDenied, "provider_not_supported")
		return false
	}

	fetchCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	_, err := pt.provider.CurrentPosition(fetchCtx, opts)
	state := stateFromProbe(err)
	pt.setState(state, "request")
	return state == PermissionGranted
}

// Observe registers a callback for asynchronous permission changes and
// returns an unsubscribe function. Observers are independent: removing
// one does not affect the others. Providers without change notifications
// only trigger observers on the next Query or Request.
func (pt *PermissionTracker) Observe(fn func(PermissionState)) func() {
	pt.mu.Lock()
	id := pt.nextID
	pt.nextID++
	pt.observers[id] = fn
	pt.mu.Unlock()

	return func() {
		pt.mu.Lock()
		delete(pt.observers, id)
		pt.mu.Unlock()
	}
}

// MarkDenied records an externally observed denial (e.g. a watch error
// classified as permission_denied) and notifies observers.
func (pt *PermissionTracker) MarkDenied(reason string) {
	pt.setState(PermissionDenied, reason)
}

func (pt *PermissionTracker) setState(state PermissionState, reason string) {
	pt.mu.Lock()
	changed := pt.state != state
	old := pt.state
	pt.state = state
	var observers []func(PermissionState)
	if changed {
		for _, fn := range pt.observers {
			observers = append(observers, fn)
		}
	}
	pt.mu.Unlock()

	if !changed {
		return
	}

	pt.logger.LogStateChange("permission", string(old), string(state), reason, map[string]interface{}{
		"provider": pt.provider.Name(),
	})
	for _, fn := range observers {
		fn(state)
	}
}

// stateFromProbe maps a probe/request outcome to a permission state. A
// timeout is ambiguous: the platform cannot tell "not yet asked" from a
// transient failure, so it maps to Prompt rather than Denied.
func stateFromProbe(err error) PermissionState {
	if err == nil {
		return PermissionGranted
	}
	switch CodeOf(err) {
	case CodePermissionDenied:
		return PermissionDenied
	case CodeTimeout, CodePositionUnavailable, CodeNotSupported:
		return PermissionPrompt
	default:
		return PermissionPrompt
	}
}
