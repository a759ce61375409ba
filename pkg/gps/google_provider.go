package gps

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"googlemaps.github.io/maps"

	"github.com/Jtaz8681/boat-app/pkg/geo"
	"github.com/Jtaz8681/boat-app/pkg/logx"
)

// GoogleProvider resolves a coarse position through the Google
// Geolocation API. It is a last-resort fallback for vessels in harbor
// with shore connectivity and no satellite fix; accuracy is typically
// hundreds of meters, so every fix it produces classifies as poor.
type GoogleProvider struct {
	client *maps.Client
	apiKey string
	logger *logx.Logger
	health sourceHealth

	mu      sync.Mutex
	lastFix *geo.Position
}

// NewGoogleProvider builds the provider. An empty API key produces a
// provider that reports permission denied rather than failing requests.
func NewGoogleProvider(apiKey string, logger *logx.Logger) (*GoogleProvider, error) {
	gp := &GoogleProvider{apiKey: strings.TrimSpace(apiKey), logger: logger}
	if gp.apiKey != "" {
		client, err := maps.NewClient(maps.WithAPIKey(gp.apiKey))
		if err != nil {
			return nil, WrapError(CodeUnknown, "google maps client init failed", err)
		}
		gp.client = client
	}
	return gp, nil
}

func (gp *GoogleProvider) Name() string { return "google" }

// Supported is true whenever a client exists; reachability of the API
// is discovered per request.
func (gp *GoogleProvider) Supported() bool {
	return gp.client != nil
}

// PermissionStatus maps API-key configuration onto permission state: a
// missing key is an operator decision not to use the service.
func (gp *GoogleProvider) PermissionStatus(ctx context.Context) (PermissionState, error) {
	if gp.client == nil {
		return PermissionDenied, nil
	}
	return PermissionGranted, nil
}

// CurrentPosition geolocates from the request's source IP. The result
// carries no altitude, heading or speed.
func (gp *GoogleProvider) CurrentPosition(ctx context.Context, opts Options) (*geo.Position, error) {
	if gp.client == nil {
		return nil, NewError(CodePermissionDenied, "google geolocation not configured")
	}

	gp.mu.Lock()
	if gp.lastFix != nil && opts.MaxAge > 0 && gp.lastFix.Age() <= opts.MaxAge {
		cached := gp.lastFix
		gp.mu.Unlock()
		return cached, nil
	}
	gp.mu.Unlock()

	reqCtx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := gp.client.Geolocate(reqCtx, &maps.GeolocationRequest{ConsiderIP: true})
	if err != nil {
		gp.health.recordError(err)
		return nil, gp.classify(err)
	}

	pos := &geo.Position{
		Latitude:  result.Location.Lat,
		Longitude: result.Location.Lng,
		Accuracy:  result.Accuracy,
		Timestamp: time.Now(),
	}
	if err := pos.Validate(); err != nil {
		gp.health.recordError(err)
		return nil, WrapError(CodePositionUnavailable, "google returned invalid position", err)
	}

	gp.health.recordSuccess(time.Since(start))
	gp.health.setAvailable(true)
	gp.mu.Lock()
	gp.lastFix = pos
	gp.mu.Unlock()

	gp.logger.Debug("google_geolocate_success", "accuracy_m", pos.Accuracy)
	return pos, nil
}

// WatchPosition polls the API. IP geolocation barely moves between
// calls, so the interval is deliberately long.
func (gp *GoogleProvider) WatchPosition(ctx context.Context, opts Options, onUpdate func(*geo.Position), onError func(error)) (*Watch, error) {
	if gp.client == nil {
		return nil, NewError(CodePermissionDenied, "google geolocation not configured")
	}
	return newPollingWatch(ctx, gp, opts, 2*time.Minute, onUpdate, onError), nil
}

// HealthStatus reports delivery health for status surfaces.
func (gp *GoogleProvider) HealthStatus() SourceHealth {
	return gp.health.snapshot()
}

func (gp *GoogleProvider) classify(err error) error {
	msg := err.Error()
	switch {
	case errors.Is(err, context.DeadlineExceeded) || strings.Contains(msg, "deadline exceeded"):
		return WrapError(CodeTimeout, "google geolocation timed out", err)
	case strings.Contains(msg, "keyInvalid") || strings.Contains(msg, "REQUEST_DENIED"):
		return WrapError(CodePermissionDenied, "google rejected the API key", err)
	case strings.Contains(msg, "notFound"):
		// The API answers 404 when it cannot resolve the caller at all.
		return WrapError(CodePositionUnavailable, "google could not geolocate this host", err)
	default:
		return WrapError(CodeUnknown, "google geolocation failed", err)
	}
}
