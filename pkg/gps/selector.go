package gps

import (
	"context"
	"sync"

	"github.com/Jtaz8681/boat-app/pkg/geo"
	"github.com/Jtaz8681/boat-app/pkg/logx"
)

// Selector multiplexes an ordered list of providers behind the Provider
// contract. The first supported provider in priority order serves every
// call, so the session manager stays single-provider while the daemon
// can offer gpsd, the Starlink dish and a network fallback at once.
type Selector struct {
	logger *logx.Logger

	mu        sync.RWMutex
	providers []Provider
}

// NewSelector builds a selector over providers in priority order.
// Unsupported providers are kept: availability is re-checked per call,
// so hardware that appears later (dish boots, gpsd starts) is picked up
// without reconstruction.
func NewSelector(logger *logx.Logger, providers ...Provider) *Selector {
	s := &Selector{logger: logger, providers: providers}

	for i, p := range providers {
		if p.Supported() {
			logger.Info("gps_provider_registered", "provider", p.Name(), "priority", i, "status", "available")
		} else {
			logger.Warn("gps_provider_registered", "provider", p.Name(), "priority", i, "status", "unavailable")
		}
	}
	return s
}

// Name identifies the selector in logs; the chosen provider's own name
// is reported on each fix.
func (s *Selector) Name() string { return "auto" }

// Supported reports whether any underlying provider is supported.
func (s *Selector) Supported() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.providers {
		if p.Supported() {
			return true
		}
	}
	return false
}

// active returns the highest-priority supported provider.
func (s *Selector) active() Provider {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.providers {
		if p.Supported() {
			return p
		}
	}
	return nil
}

// CurrentPosition fetches from the highest-priority supported provider,
// falling through to lower-priority providers on failure.
func (s *Selector) CurrentPosition(ctx context.Context, opts Options) (*geo.Position, error) {
	s.mu.RLock()
	providers := make([]Provider, len(s.providers))
	copy(providers, s.providers)
	s.mu.RUnlock()

	var lastErr error
	for _, p := range providers {
		if !p.Supported() {
			continue
		}
		pos, err := p.CurrentPosition(ctx, opts)
		if err == nil {
			return pos, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		s.logger.Debug("gps_provider_fetch_failed", "provider", p.Name(), "error", err)
	}

	if lastErr != nil {
		return nil, Classify(lastErr)
	}
	return nil, NewError(CodeNotSupported, "no supported location provider")
}

// WatchPosition delegates the watch to the current best provider.
func (s *Selector) WatchPosition(ctx context.Context, opts Options, onUpdate func(*geo.Position), onError func(error)) (*Watch, error) {
	p := s.active()
	if p == nil {
		return nil, NewError(CodeNotSupported, "no supported location provider")
	}
	s.logger.Info("gps_watch_provider_selected", "provider", p.Name())
	return p.WatchPosition(ctx, opts, onUpdate, onError)
}

// PermissionStatus reports the best provider's permission state when it
// exposes a query primitive; otherwise the caller falls back to probing.
func (s *Selector) PermissionStatus(ctx context.Context) (PermissionState, error) {
	p := s.active()
	if p == nil {
		return PermissionDenied, nil
	}
	if querier, ok := p.(PermissionQuerier); ok {
		return querier.PermissionStatus(ctx)
	}
	return PermissionUnknown, NewError(CodeNotSupported, "provider has no permission query primitive")
}

// HealthStatus aggregates delivery health from providers that track it.
func (s *Selector) HealthStatus() map[string]SourceHealth {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]SourceHealth, len(s.providers))
	for _, p := range s.providers {
		if hr, ok := p.(HealthReporter); ok {
			out[p.Name()] = hr.HealthStatus()
		}
	}
	return out
}
