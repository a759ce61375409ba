package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Jtaz8681/boat-app/pkg/gps"
	"github.com/Jtaz8681/boat-app/pkg/logx"
	"github.com/Jtaz8681/boat-app/pkg/trip"
)

// Config holds API server configuration.
type Config struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	AuthKey  string `json:"auth_key" yaml:"auth_key"`
	CertFile string `json:"cert_file" yaml:"cert_file"`
	KeyFile  string `json:"key_file" yaml:"key_file"`
}

// DefaultConfig returns the server defaults; disabled and loopback-only
// until the operator opts in.
func DefaultConfig() *Config {
	return &Config{
		Enabled: false,
		Host:    "localhost",
		Port:    8081,
	}
}

// Server exposes the GPS session, trip and health state over HTTP. It
// is a read surface plus a single trip-reset command; all tracking
// control stays with the daemon.
type Server struct {
	session  *gps.SessionManager
	watchdog *gps.FixWatchdog
	trip     *trip.Accumulator
	pace     *trip.PaceEstimator
	health   func() map[string]gps.SourceHealth
	config   *Config
	logger   *logx.Logger
	srv      *http.Server
}

// NewServer wires the API over the running subsystems. watchdog, pace
// and health may be nil; their fields are then omitted from responses.
func NewServer(session *gps.SessionManager, watchdog *gps.FixWatchdog, tripAcc *trip.Accumulator, pace *trip.PaceEstimator, health func() map[string]gps.SourceHealth, config *Config, logger *logx.Logger) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	return &Server{
		session:  session,
		watchdog: watchdog,
		trip:     tripAcc,
		pace:     pace,
		health:   health,
		config:   config,
		logger:   logger,
	}
}

// authMiddleware enforces the optional API key. With no key configured
// the API is open; the default bind is loopback.
func (s *Server) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.config.AuthKey == "" {
			next.ServeHTTP(w, r)
			return
		}

		authKey := r.URL.Query().Get("auth")
		if authKey == "" {
			authKey = r.Header.Get("X-API-Key")
		}
		if authKey != s.config.AuthKey {
			s.logger.Warn("api_auth_rejected", "remote_addr", r.RemoteAddr)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	}
}

// Start launches the listener. A disabled server is a no-op.
func (s *Server) Start() error {
	if !s.config.Enabled {
		s.logger.Info("api_disabled")
		return nil
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/gps", s.authMiddleware(s.handleGPS))
	mux.HandleFunc("/api/status", s.authMiddleware(s.handleStatus))
	mux.HandleFunc("/api/trip", s.authMiddleware(s.handleTrip))
	mux.HandleFunc("/api/trip/reset", s.authMiddleware(s.handleTripReset))
	mux.HandleFunc("/api/health", s.authMiddleware(s.handleHealth))
	mux.Handle("/metrics", promhttp.Handler())

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.srv = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	s.logger.Info("api_starting", "address", addr)

	go func() {
		var err error
		if s.config.CertFile != "" && s.config.KeyFile != "" {
			err = s.srv.ListenAndServeTLS(s.config.CertFile, s.config.KeyFile)
		} else {
			err = s.srv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			s.logger.Error("api_server_failed", "error", err)
		}
	}()

	return nil
}

// Stop drains in-flight requests and shuts the listener down.
func (s *Server) Stop(ctx context.Context) {
	if s.srv == nil {
		return
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		s.logger.Warn("api_shutdown_error", "error", err)
	}
	s.logger.Info("api_stopped")
}

// positionPayload is the wire shape of a fix plus its quality tiers.
type positionPayload struct {
	Latitude         float64  `json:"latitude"`
	Longitude        float64  `json:"longitude"`
	Accuracy         float64  `json:"accuracy"`
	Timestamp        string   `json:"timestamp"`
	AgeSeconds       float64  `json:"age_seconds"`
	Altitude         *float64 `json:"altitude,omitempty"`
	AltitudeAccuracy *float64 `json:"altitude_accuracy,omitempty"`
	Heading          *float64 `json:"heading,omitempty"`
	Speed            *float64 `json:"speed,omitempty"`
	AccuracyTier     string   `json:"accuracy_tier"`
	SignalTier       string   `json:"signal_tier"`
	Compass          string   `json:"compass,omitempty"`
}

func (s *Server) handleGPS(w http.ResponseWriter, r *http.Request) {
	pos := s.session.Position()
	if pos == nil {
		writeJSON(w, s.logger, http.StatusOK, map[string]interface{}{"position": nil})
		return
	}

	payload := positionPayload{
		Latitude:         pos.Latitude,
		Longitude:        pos.Longitude,
		Accuracy:         pos.Accuracy,
		Timestamp:        pos.Timestamp.UTC().Format(time.RFC3339),
		AgeSeconds:       pos.Age().Seconds(),
		Altitude:         pos.Altitude,
		AltitudeAccuracy: pos.AltitudeAccuracy,
		Heading:          pos.Heading,
		Speed:            pos.Speed,
		AccuracyTier:     string(gps.AccuracyTierFor(pos)),
		SignalTier:       string(gps.SignalTierFor(pos)),
	}
	writeJSON(w, s.logger, http.StatusOK, map[string]interface{}{"position": payload})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"state":      string(s.session.State()),
		"permission": string(s.session.PermissionState()),
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.session.Err(); err != nil {
		status["error"] = map[string]interface{}{
			"code":    string(gps.CodeOf(err)),
			"message": err.Error(),
		}
	}
	if s.watchdog != nil {
		status["watchdog"] = s.watchdog.Status()
	}
	writeJSON(w, s.logger, http.StatusOK, status)
}

func (s *Server) handleTrip(w http.ResponseWriter, r *http.Request) {
	stats := s.trip.Snapshot()
	payload := map[string]interface{}{
		"distance_meters": stats.DistanceMeters,
		"points":          stats.Points,
		"max_speed_ms":    stats.MaxSpeedMS,
		"elapsed_seconds": stats.Elapsed.Seconds(),
	}
	if !stats.Started.IsZero() {
		payload["started"] = stats.Started.UTC().Format(time.RFC3339)
	}
	if s.pace != nil {
		if pace, ok := s.pace.Pace(); ok {
			payload["pace_ms"] = pace
		}
	}
	writeJSON(w, s.logger, http.StatusOK, payload)
}

func (s *Server) handleTripReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.trip.Reset()
	if s.pace != nil {
		s.pace.Reset()
	}
	s.logger.Info("trip_reset", "remote_addr", r.RemoteAddr)
	writeJSON(w, s.logger, http.StatusOK, map[string]interface{}{"reset": true})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	payload := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "boattrackd",
	}
	if s.health != nil {
		payload["sources"] = s.health()
	}
	writeJSON(w, s.logger, http.StatusOK, payload)
}

func writeJSON(w http.ResponseWriter, logger *logx.Logger, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("api_encode_failed", "error", err)
	}
}
