package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Jtaz8681/boat-app/pkg/api"
	"github.com/Jtaz8681/boat-app/pkg/config"
	"github.com/Jtaz8681/boat-app/pkg/geo"
	"github.com/Jtaz8681/boat-app/pkg/gps"
	"github.com/Jtaz8681/boat-app/pkg/logx"
	"github.com/Jtaz8681/boat-app/pkg/metrics"
	"github.com/Jtaz8681/boat-app/pkg/mqtt"
	"github.com/Jtaz8681/boat-app/pkg/pidfile"
	"github.com/Jtaz8681/boat-app/pkg/starlink"
	"github.com/Jtaz8681/boat-app/pkg/telem"
	"github.com/Jtaz8681/boat-app/pkg/trip"
)

var (
	configPath = flag.String("config", "/etc/boattrackd/config.yaml", "Path to configuration file")
	pidPath    = flag.String("pid-file", "", "Override PID file path")
	logLevel   = flag.String("log-level", "", "Override log level (trace|debug|info|warn|error)")
	version    = flag.Bool("version", false, "Show version information")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging (equivalent to trace level)")
	locateOnce = flag.Bool("locate", false, "Fetch a single fix, print it and exit")
)

const (
	AppName    = "boattrackd"
	AppVersion = "1.0.0"
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("%s version %s\n", AppName, AppVersion)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	effectiveLogLevel := cfg.LogLevel
	if *logLevel != "" {
		effectiveLogLevel = *logLevel
	}
	if *verbose {
		effectiveLogLevel = "trace"
	}

	logger := logx.NewLogger(effectiveLogLevel, AppName)
	logger.Info("daemon_starting", "version", AppVersion, "config", *configPath)

	provider := buildProvider(cfg, logger)

	if *locateOnce {
		os.Exit(locate(provider, cfg, logger))
	}

	pidFilePath := cfg.PIDFile
	if *pidPath != "" {
		pidFilePath = *pidPath
	}
	pidFile := pidfile.New(pidFilePath)

	running, existingPID, err := pidFile.CheckRunning()
	if err != nil {
		logger.Error("pidfile_check_failed", "error", err)
		os.Exit(1)
	}
	if running {
		logger.Error("already_running", "existing_pid", existingPID, "pid_file", pidFilePath)
		fmt.Fprintf(os.Stderr, "Error: %s is already running with PID %d\n", AppName, existingPID)
		os.Exit(1)
	}
	if err := pidFile.Create(); err != nil {
		logger.Error("pidfile_create_failed", "error", err, "path", pidFilePath)
		os.Exit(1)
	}
	defer func() {
		if err := pidFile.Remove(); err != nil {
			logger.Warn("pidfile_remove_failed", "error", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := telem.NewStore(1000, time.Hour)
	session := gps.NewSessionManager(cfg.SessionConfig(), provider, store, logger)
	defer session.Close()

	tripAcc := trip.NewAccumulator()
	pace := trip.NewPaceEstimator(20)
	unsubTrip := session.OnUpdate(func(pos *geo.Position) {
		delta := tripAcc.AddPoint(pos)
		if delta > 0 {
			metrics.TripDistanceMeters.Add(delta)
		}
		pace.Observe(tripAcc.Total(), time.Now())
	})
	defer unsubTrip()

	var watchdog *gps.FixWatchdog
	if cfg.Watchdog.Enabled {
		watchdog = gps.NewFixWatchdog(cfg.WatchdogConfig(), session, logger)
		if err := watchdog.Start(ctx); err != nil {
			logger.Error("watchdog_start_failed", "error", err)
			os.Exit(1)
		}
		defer watchdog.Stop()
	}

	publisher := mqtt.NewPublisher(cfg.MQTT, logger)
	if err := publisher.Connect(); err != nil {
		// MQTT is a mirror, not a dependency; run without it.
		logger.Warn("mqtt_connect_failed", "error", err)
	} else {
		store.SetCallback(func(ev telem.Event) {
			if err := publisher.PublishEvent(ev); err != nil {
				logger.Debug("mqtt_publish_failed", "error", err)
			}
		})
		defer publisher.Disconnect()
	}

	var healthFn func() map[string]gps.SourceHealth
	if selector, ok := provider.(*gps.Selector); ok {
		healthFn = selector.HealthStatus
	}
	server := api.NewServer(session, watchdog, tripAcc, pace, healthFn, cfg.API, logger)
	if err := server.Start(); err != nil {
		logger.Error("api_start_failed", "error", err)
		os.Exit(1)
	}

	if err := session.StartTracking(ctx); err != nil {
		// Tracking can recover later (permission granted, hardware
		// appearing); the watchdog and API stay up either way.
		logger.Warn("tracking_start_failed", "error", err, "code", gps.CodeOf(err))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("daemon_stopping", "signal", sig.String())

	session.StopTracking()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	server.Stop(shutdownCtx)
	cancel()

	logger.Info("daemon_stopped", "trip_distance_m", tripAcc.Total())
}

// buildProvider assembles the configured provider chain. A single
// provider is used directly; more than one goes behind the selector.
func buildProvider(cfg *config.Config, logger *logx.Logger) gps.Provider {
	var providers []gps.Provider
	for _, name := range cfg.Providers.Order {
		switch name {
		case "gpsd":
			providers = append(providers, gps.NewGpsdProvider(cfg.Providers.Gpsd.Host, cfg.Providers.Gpsd.Port, logger))
		case "starlink":
			client := starlink.NewClient(cfg.Providers.Starlink.Host, cfg.Providers.Starlink.Port, 10*time.Second, logger)
			providers = append(providers, gps.NewStarlinkProvider(client, 5*time.Second, logger))
		case "google":
			gp, err := gps.NewGoogleProvider(cfg.Providers.Google.APIKey, logger)
			if err != nil {
				logger.Warn("google_provider_init_failed", "error", err)
				continue
			}
			providers = append(providers, gp)
		}
	}

	if len(providers) == 1 {
		return providers[0]
	}
	return gps.NewSelector(logger, providers...)
}

// locate performs a one-shot fix for diagnostics from the shell.
func locate(provider gps.Provider, cfg *config.Config, logger *logx.Logger) int {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store := telem.NewStore(10, time.Minute)
	session := gps.NewSessionManager(cfg.SessionConfig(), provider, store, logger)
	defer session.Close()

	pos, err := session.CurrentPosition(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v (code %s)\n", err, gps.CodeOf(err))
		return 1
	}

	fmt.Printf("lat=%.6f lon=%.6f accuracy=%.1fm tier=%s signal=%s\n",
		pos.Latitude, pos.Longitude, pos.Accuracy,
		gps.AccuracyTierFor(pos), gps.SignalTierFor(pos))
	return 0
}
