package gps

import (
	"context"
	"sync"
	"time"

	"github.com/Jtaz8681/boat-app/pkg/geo"
	"github.com/Jtaz8681/boat-app/pkg/logx"
	"github.com/Jtaz8681/boat-app/pkg/metrics"
	"github.com/Jtaz8681/boat-app/pkg/telem"
)

// SessionState is the tracking session lifecycle state. It is owned
// exclusively by one SessionManager and never shared between instances.
type SessionState string

const (
	StateIdle                 SessionState = "idle"
	StateRequestingPermission SessionState = "requesting_permission"
	StateActive               SessionState = "active"
	StateError                SessionState = "error"
)

// SessionConfig holds the construction-time tracking configuration.
type SessionConfig struct {
	WatchInterval            time.Duration `json:"watch_interval" yaml:"watch_interval"`                         // Fallback poll interval
	HighAccuracy             bool          `json:"high_accuracy" yaml:"high_accuracy"`                           // Prefer high-accuracy fixes
	Timeout                  time.Duration `json:"timeout" yaml:"timeout"`                                       // Single-shot fetch deadline
	MaxAge                   time.Duration `json:"max_age" yaml:"max_age"`                                       // Acceptable cached fix age
	EnableBackgroundTracking bool          `json:"enable_background_tracking" yaml:"enable_background_tracking"` // Redundant interval polling alongside the watch
}

// DefaultSessionConfig returns the default tracking configuration.
func DefaultSessionConfig() *SessionConfig {
	return &SessionConfig{
		WatchInterval:            30 * time.Second,
		HighAccuracy:             true,
		Timeout:                  10 * time.Second,
		MaxAge:                   60 * time.Second,
		EnableBackgroundTracking: false,
	}
}

// SessionManager orchestrates continuous tracking over one provider. It
// owns the watch subscription, an optional interval-polling fallback for
// platforms that throttle background watches, the latest-position slot
// and the current error. Multiple independent instances may coexist,
// each with its own subscription; that duplication is intentional since
// each instance represents one logical consumer.
type SessionManager struct {
	config   *SessionConfig
	provider Provider
	perms    *PermissionTracker
	store    *telem.Store
	logger   *logx.Logger

	mu             sync.Mutex
	state          SessionState
	position       *geo.Position
	lastErr        *Error
	epoch          uint64 // subscription epoch; stale callbacks are dropped
	watch          *Watch
	fallbackCancel context.CancelFunc
	fallbackDone   chan struct{}
	updateFns      map[int]func(*geo.Position)
	nextSub        int
	closed         bool

	permUnsub func()
}

// NewSessionManager creates a session in the Idle state. store may be
// nil when no event stream is needed.
func NewSessionManager(config *SessionConfig, provider Provider, store *telem.Store, logger *logx.Logger) *SessionManager {
	if config == nil {
		config = DefaultSessionConfig()
	}

	sm := &SessionManager{
		config:    config,
		provider:  provider,
		perms:     NewPermissionTracker(provider, logger),
		store:     store,
		logger:    logger,
		state:     StateIdle,
		updateFns: make(map[int]func(*geo.Position)),
	}

	// Permission can be revoked asynchronously while a session is
	// nominally active; the session must observe this and fail.
	sm.permUnsub = sm.perms.Observe(func(state PermissionState) {
		if state != PermissionDenied {
			return
		}
		sm.mu.Lock()
		if sm.state == StateActive || sm.state == StateRequestingPermission {
			sm.lastErr = NewError(CodePermissionDenied, "location permission revoked")
			sm.setStateLocked(StateError, "permission_revoked")
		}
		sm.mu.Unlock()
	})

	logger.Info("gps_session_created",
		"provider", provider.Name(),
		"watch_interval", config.WatchInterval,
		"high_accuracy", config.HighAccuracy,
		"timeout", config.Timeout,
		"background_tracking", config.EnableBackgroundTracking,
	)

	return sm
}

func (sm *SessionManager) options() Options {
	return Options{
		HighAccuracy: sm.config.HighAccuracy,
		Timeout:      sm.config.Timeout,
		MaxAge:       sm.config.MaxAge,
	}
}

// StartTracking requests permission and, on success, begins continuous
// tracking. A no-op when already active; a retry is allowed from the
// error state.
func (sm *SessionManager) StartTracking(ctx context.Context) error {
	sm.mu.Lock()
	if sm.closed {
		sm.mu.Unlock()
		return NewError(CodeUnknown, "session closed")
	}
	if sm.state == StateActive {
		sm.mu.Unlock()
		sm.logger.Debug("gps_start_ignored", "reason", "already_active")
		return nil
	}
	if !sm.provider.Supported() {
		err := NewError(CodeNotSupported, "no location provider on this platform")
		sm.lastErr = err
		sm.setStateLocked(StateError, "not_supported")
		sm.mu.Unlock()
		return err
	}
	sm.setStateLocked(StateRequestingPermission, "start_tracking")
	opts := sm.options()
	sm.mu.Unlock()

	granted := sm.perms.Request(ctx, opts)

	sm.mu.Lock()
	if sm.closed {
		sm.mu.Unlock()
		return nil
	}
	if !granted {
		err := NewError(CodePermissionDenied, "location permission not granted")
		sm.lastErr = err
		sm.setStateLocked(StateError, "permission_denied")
		sm.mu.Unlock()
		sm.publishError(err)
		return err
	}
	if sm.state != StateRequestingPermission {
		// Stopped while the request was in flight.
		sm.mu.Unlock()
		return nil
	}
	sm.epoch++
	epoch := sm.epoch
	sm.mu.Unlock()

	// The watch outlives the StartTracking call; its lifetime is owned by
	// the session, not by the caller's ctx.
	watch, err := sm.provider.WatchPosition(context.Background(), opts,
		func(pos *geo.Position) { sm.handleUpdate(epoch, pos) },
		func(werr error) { sm.handleError(epoch, werr) },
	)
	if err != nil {
		classified := Classify(err)
		sm.mu.Lock()
		if sm.epoch == epoch {
			sm.lastErr = classified
			sm.setStateLocked(StateError, string(classified.Code))
		}
		sm.mu.Unlock()
		sm.publishError(classified)
		return classified
	}

	sm.mu.Lock()
	if sm.closed || sm.epoch != epoch {
		sm.mu.Unlock()
		watch.Cancel()
		return nil
	}
	sm.watch = watch
	sm.setStateLocked(StateActive, "watch_started")
	if sm.config.EnableBackgroundTracking && sm.config.WatchInterval > 0 {
		sm.startFallbackLocked(epoch, opts)
	}
	sm.mu.Unlock()

	return nil
}

// startFallbackLocked launches the redundant interval-polling producer.
// Both it and the watch write the same latest-position slot; the last
// delivered value wins and no deduplication is applied.
func (sm *SessionManager) startFallbackLocked(epoch uint64, opts Options) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	sm.fallbackCancel = cancel
	sm.fallbackDone = done

	interval := sm.config.WatchInterval
	go func() {
		defer close(done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			fetchCtx, fetchCancel := context.WithTimeout(ctx, opts.Timeout)
			pos, err := sm.provider.CurrentPosition(fetchCtx, opts)
			fetchCancel()
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				sm.handleError(epoch, err)
				continue
			}
			sm.handleUpdate(epoch, pos)
		}
	}()

	sm.logger.Debug("gps_fallback_started", "interval", interval)
}

// StopTracking cancels the watch and fallback deterministically,
// transitions to Idle and clears the in-session error. The last known
// position is retained. Idempotent from any state, including Idle.
func (sm *SessionManager) StopTracking() {
	sm.mu.Lock()
	sm.epoch++ // stale callbacks from canceled producers are dropped
	watch := sm.watch
	sm.watch = nil
	fallbackCancel := sm.fallbackCancel
	fallbackDone := sm.fallbackDone
	sm.fallbackCancel = nil
	sm.fallbackDone = nil
	sm.lastErr = nil
	if sm.state != StateIdle {
		sm.setStateLocked(StateIdle, "stop_tracking")
	}
	sm.mu.Unlock()

	// Cancellation blocks until the producers have stopped; no lingering
	// callback fires after StopTracking returns.
	if watch != nil {
		watch.Cancel()
	}
	if fallbackCancel != nil {
		fallbackCancel()
		<-fallbackDone
	}
}

// RestartWatch tears down and re-establishes the watch subscription
// while staying Active. Used by the fix watchdog when the stream goes
// stale. A no-op unless the session is actively watching.
func (sm *SessionManager) RestartWatch() error {
	sm.mu.Lock()
	if sm.closed || sm.watch == nil || (sm.state != StateActive && sm.state != StateError) {
		sm.mu.Unlock()
		return nil
	}
	old := sm.watch
	sm.watch = nil
	sm.epoch++
	epoch := sm.epoch
	opts := sm.options()
	sm.mu.Unlock()

	old.Cancel()

	watch, err := sm.provider.WatchPosition(context.Background(), opts,
		func(pos *geo.Position) { sm.handleUpdate(epoch, pos) },
		func(werr error) { sm.handleError(epoch, werr) },
	)
	if err != nil {
		classified := Classify(err)
		sm.mu.Lock()
		if sm.epoch == epoch {
			sm.lastErr = classified
			sm.setStateLocked(StateError, string(classified.Code))
		}
		sm.mu.Unlock()
		return classified
	}

	sm.mu.Lock()
	if sm.closed || sm.epoch != epoch {
		sm.mu.Unlock()
		watch.Cancel()
		return nil
	}
	sm.watch = watch
	sm.mu.Unlock()

	metrics.WatchRestartsTotal.Inc()
	sm.logger.Info("gps_watch_restarted", "provider", sm.provider.Name())
	return nil
}

// CurrentPosition performs a one-shot permission check and fetch. It is
// independent of the session state and safe to call while a continuous
// watch is running.
func (sm *SessionManager) CurrentPosition(ctx context.Context) (*geo.Position, error) {
	if !sm.provider.Supported() {
		err := NewError(CodeNotSupported, "no location provider on this platform")
		sm.recordError(err)
		return nil, err
	}

	if sm.perms.Query(ctx) == PermissionDenied {
		err := NewError(CodePermissionDenied, "location permission denied")
		sm.recordError(err)
		return nil, err
	}

	opts := sm.options()
	fetchCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	start := time.Now()
	pos, err := sm.provider.CurrentPosition(fetchCtx, opts)
	metrics.FetchDuration.WithLabelValues(sm.provider.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		classified := Classify(err)
		sm.recordError(classified)
		return nil, classified
	}

	sm.storePosition(pos)
	return pos, nil
}

// OnUpdate registers a callback invoked for every accepted position,
// whether it arrived from the watch, the fallback poller or a one-shot
// fetch. Returns an unsubscribe function.
func (sm *SessionManager) OnUpdate(fn func(*geo.Position)) func() {
	sm.mu.Lock()
	id := sm.nextSub
	sm.nextSub++
	sm.updateFns[id] = fn
	sm.mu.Unlock()

	return func() {
		sm.mu.Lock()
		delete(sm.updateFns, id)
		sm.mu.Unlock()
	}
}

// handleUpdate accepts a position from a continuous producer. Writes
// carrying a stale epoch (canceled subscription) are dropped.
func (sm *SessionManager) handleUpdate(epoch uint64, pos *geo.Position) {
	if err := pos.Validate(); err != nil {
		sm.handleError(epoch, WrapError(CodePositionUnavailable, "invalid fix from provider", err))
		return
	}

	sm.mu.Lock()
	if sm.closed || epoch != sm.epoch {
		sm.mu.Unlock()
		return
	}
	sm.position = pos
	sm.lastErr = nil
	if sm.state == StateError {
		// A successful update clears the current error.
		sm.setStateLocked(StateActive, "fix_recovered")
	}
	fns := sm.callbacksLocked()
	sm.mu.Unlock()

	sm.acceptPosition(pos, fns)
}

func (sm *SessionManager) handleError(epoch uint64, err error) {
	classified := Classify(err)

	sm.mu.Lock()
	if sm.closed || epoch != sm.epoch {
		sm.mu.Unlock()
		return
	}
	sm.lastErr = classified
	if sm.state == StateActive {
		sm.setStateLocked(StateError, string(classified.Code))
	}
	sm.mu.Unlock()

	if classified.Code == CodePermissionDenied {
		sm.perms.MarkDenied("watch_error")
	}
	sm.publishError(classified)
}

// storePosition records a one-shot fix without touching the session
// state machine.
func (sm *SessionManager) storePosition(pos *geo.Position) {
	sm.mu.Lock()
	sm.position = pos
	sm.lastErr = nil
	fns := sm.callbacksLocked()
	sm.mu.Unlock()

	sm.acceptPosition(pos, fns)
}

// recordError stores a one-shot failure as the current error without a
// state transition.
func (sm *SessionManager) recordError(err *Error) {
	sm.mu.Lock()
	sm.lastErr = err
	sm.mu.Unlock()
	sm.publishError(err)
}

func (sm *SessionManager) callbacksLocked() []func(*geo.Position) {
	fns := make([]func(*geo.Position), 0, len(sm.updateFns))
	for _, fn := range sm.updateFns {
		fns = append(fns, fn)
	}
	return fns
}

func (sm *SessionManager) acceptPosition(pos *geo.Position, fns []func(*geo.Position)) {
	metrics.FixesTotal.WithLabelValues(sm.provider.Name(), string(AccuracyTier(pos.Accuracy))).Inc()

	if sm.store != nil {
		sm.store.Publish(telem.Event{
			Type:      telem.EventPosition,
			Timestamp: pos.Timestamp,
			Source:    sm.provider.Name(),
			Position:  pos,
		})
	}
	for _, fn := range fns {
		fn(pos)
	}
}

func (sm *SessionManager) publishError(err *Error) {
	metrics.ErrorsTotal.WithLabelValues(sm.provider.Name(), string(err.Code)).Inc()

	if sm.store != nil {
		sm.store.Publish(telem.Event{
			Type:    telem.EventError,
			Source:  sm.provider.Name(),
			Code:    string(err.Code),
			Message: err.Message,
		})
	}
}

// setStateLocked transitions the state machine. Callers hold sm.mu.
func (sm *SessionManager) setStateLocked(to SessionState, reason string) {
	from := sm.state
	if from == to {
		return
	}
	sm.state = to

	if to == StateActive {
		metrics.SessionsActive.Inc()
	} else if from == StateActive {
		metrics.SessionsActive.Dec()
	}

	sm.logger.LogStateChange("gps_session", string(from), string(to), reason, map[string]interface{}{
		"provider": sm.provider.Name(),
	})
	if sm.store != nil {
		sm.store.Publish(telem.Event{
			Type:      telem.EventState,
			Source:    sm.provider.Name(),
			FromState: string(from),
			ToState:   string(to),
			Message:   reason,
		})
	}
}

// Position returns the latest accepted position, or nil before the first
// fix. Retained across StopTracking so callers can show "last known".
func (sm *SessionManager) Position() *geo.Position {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.position
}

// Err returns the current classified error, or nil.
func (sm *SessionManager) Err() *Error {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.lastErr
}

// State returns the current session state.
func (sm *SessionManager) State() SessionState {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.state
}

// PermissionState returns the tracked permission state.
func (sm *SessionManager) PermissionState() PermissionState {
	return sm.perms.State()
}

// Permissions exposes the tracker for observers and explicit requests.
func (sm *SessionManager) Permissions() *PermissionTracker {
	return sm.perms
}

// AccuracyTier classifies the latest position; poor when no fix yet.
func (sm *SessionManager) AccuracyTier() Tier {
	return AccuracyTierFor(sm.Position())
}

// SignalTier classifies the latest position's signal strength.
func (sm *SessionManager) SignalTier() Tier {
	return SignalTierFor(sm.Position())
}

// Close tears the session down: tracking stops, the permission observer
// is released and further operations fail. The only terminal transition.
func (sm *SessionManager) Close() {
	sm.StopTracking()

	sm.mu.Lock()
	alreadyClosed := sm.closed
	sm.closed = true
	sm.updateFns = map[int]func(*geo.Position){}
	sm.mu.Unlock()

	if !alreadyClosed && sm.permUnsub != nil {
		sm.permUnsub()
	}
	sm.logger.Info("gps_session_closed", "provider", sm.provider.Name())
}
