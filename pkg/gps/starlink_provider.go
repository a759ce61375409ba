package gps

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Jtaz8681/boat-app/pkg/geo"
	"github.com/Jtaz8681/boat-app/pkg/logx"
	"github.com/Jtaz8681/boat-app/pkg/starlink"
)

// StarlinkProvider reads position from a Starlink dish's fused GPS. The
// dish cannot stream, so watches are emulated by polling.
type StarlinkProvider struct {
	client       *starlink.Client
	logger       *logx.Logger
	pollInterval time.Duration
	health       sourceHealth

	mu            sync.Mutex
	lastFix       *geo.Position
	lastAvailable bool
	lastProbe     time.Time
}

// availabilityTTL bounds how often the dish port is probed for Supported.
const availabilityTTL = 30 * time.Second

// NewStarlinkProvider creates a provider over the given dish client.
func NewStarlinkProvider(client *starlink.Client, pollInterval time.Duration, logger *logx.Logger) *StarlinkProvider {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	return &StarlinkProvider{
		client:       client,
		logger:       logger,
		pollInterval: pollInterval,
	}
}

func (sp *StarlinkProvider) Name() string { return "starlink" }

// Supported probes the dish gRPC port, caching the result briefly so the
// selector can call it on every fetch.
func (sp *StarlinkProvider) Supported() bool {
	sp.mu.Lock()
	if time.Since(sp.lastProbe) < availabilityTTL {
		available := sp.lastAvailable
		sp.mu.Unlock()
		return available
	}
	sp.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	available := sp.client.IsAvailable(ctx)

	sp.mu.Lock()
	sp.lastAvailable = available
	sp.lastProbe = time.Now()
	sp.mu.Unlock()

	sp.health.setAvailable(available)
	return available
}

// CurrentPosition obtains a fix from the dish, reusing a cached fix no
// older than opts.MaxAge.
func (sp *StarlinkProvider) CurrentPosition(ctx context.Context, opts Options) (*geo.Position, error) {
	sp.mu.Lock()
	if sp.lastFix != nil && opts.MaxAge > 0 && sp.lastFix.Age() <= opts.MaxAge {
		cached := sp.lastFix
		sp.mu.Unlock()
		return cached, nil
	}
	sp.mu.Unlock()

	fetchCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	start := time.Now()
	pos, err := sp.client.Location(fetchCtx)
	if err != nil {
		sp.health.recordError(err)
		return nil, sp.classify(err)
	}
	sp.health.recordSuccess(time.Since(start))

	sp.mu.Lock()
	sp.lastFix = pos
	sp.mu.Unlock()
	return pos, nil
}

// WatchPosition emulates a continuous watch by polling the dish.
func (sp *StarlinkProvider) WatchPosition(ctx context.Context, opts Options, onUpdate func(*geo.Position), onError func(error)) (*Watch, error) {
	if !sp.Supported() {
		return nil, NewError(CodeNotSupported, "starlink dish not reachable")
	}
	return newPollingWatch(ctx, sp, opts, sp.pollInterval, onUpdate, onError), nil
}

// HealthStatus reports delivery health for status surfaces.
func (sp *StarlinkProvider) HealthStatus() SourceHealth {
	return sp.health.snapshot()
}

func (sp *StarlinkProvider) classify(err error) *Error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return WrapError(CodeTimeout, "dish did not answer in time", err)
	default:
		return WrapError(CodePositionUnavailable, "dish could not provide a position", err)
	}
}
