package gps

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Jtaz8681/boat-app/pkg/logx"
)

// WatchdogConfig holds fix watchdog tuning.
type WatchdogConfig struct {
	CheckInterval          time.Duration `json:"check_interval" yaml:"check_interval"`                       // How often to examine the session
	StaleThreshold         time.Duration `json:"stale_threshold" yaml:"stale_threshold"`                     // Fix age considered stale while active
	MaxAccuracy            float64       `json:"max_accuracy" yaml:"max_accuracy"`                           // Accuracy above this counts as degraded
	MaxConsecutiveFailures int           `json:"max_consecutive_failures" yaml:"max_consecutive_failures"`   // Failures before a watch restart
	RestartCooldown        time.Duration `json:"restart_cooldown" yaml:"restart_cooldown"`                   // Minimum time between restarts
	EnableAutoRestart      bool          `json:"enable_auto_restart" yaml:"enable_auto_restart"`
}

// DefaultWatchdogConfig returns defaults suitable for a vessel underway.
func DefaultWatchdogConfig() *WatchdogConfig {
	return &WatchdogConfig{
		CheckInterval:          30 * time.Second,
		StaleThreshold:         2 * time.Minute,
		MaxAccuracy:            50.0,
		MaxConsecutiveFailures: 3,
		RestartCooldown:        5 * time.Minute,
		EnableAutoRestart:      true,
	}
}

// WatchdogStatus is a snapshot of the watchdog's view of fix health.
type WatchdogStatus struct {
	Healthy             bool      `json:"healthy"`
	LastFixAt           time.Time `json:"last_fix_at"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	TotalRestarts       int       `json:"total_restarts"`
	LastRestartAt       time.Time `json:"last_restart_at"`
	LastRestartReason   string    `json:"last_restart_reason"`
	LastCheckAt         time.Time `json:"last_check_at"`
	Issues              []string  `json:"issues"`
}

// FixWatchdog monitors an active session for stale or degraded fixes and
// restarts the watch subscription when the stream appears wedged.
type FixWatchdog struct {
	config  *WatchdogConfig
	session *SessionManager
	logger  *logx.Logger

	mu       sync.Mutex
	status   WatchdogStatus
	stopChan chan struct{}
	running  bool
}

// NewFixWatchdog creates a watchdog for the given session.
func NewFixWatchdog(config *WatchdogConfig, session *SessionManager, logger *logx.Logger) *FixWatchdog {
	if config == nil {
		config = DefaultWatchdogConfig()
	}
	return &FixWatchdog{
		config:  config,
		session: session,
		logger:  logger,
		status:  WatchdogStatus{Healthy: true, Issues: []string{}},
	}
}

// Start begins periodic checks until Stop or ctx cancellation.
func (fw *FixWatchdog) Start(ctx context.Context) error {
	fw.mu.Lock()
	if fw.running {
		fw.mu.Unlock()
		return fmt.Errorf("fix watchdog already running")
	}
	fw.running = true
	fw.stopChan = make(chan struct{})
	stop := fw.stopChan
	fw.mu.Unlock()

	go func() {
		ticker := time.NewTicker(fw.config.CheckInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case <-ticker.C:
				fw.check()
			}
		}
	}()

	fw.logger.Info("fix_watchdog_started",
		"check_interval", fw.config.CheckInterval,
		"stale_threshold", fw.config.StaleThreshold,
		"auto_restart", fw.config.EnableAutoRestart,
	)
	return nil
}

// Stop halts monitoring. Safe to call when not running.
func (fw *FixWatchdog) Stop() {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if !fw.running {
		return
	}
	fw.running = false
	close(fw.stopChan)
}

// Status returns the current health snapshot.
func (fw *FixWatchdog) Status() WatchdogStatus {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	out := fw.status
	out.Issues = append([]string{}, fw.status.Issues...)
	return out
}

func (fw *FixWatchdog) check() {
	state := fw.session.State()
	pos := fw.session.Position()

	var issues []string
	if state == StateActive || state == StateError {
		switch {
		case pos == nil:
			issues = append(issues, "no fix since tracking started")
		case pos.Age() > fw.config.StaleThreshold:
			issues = append(issues, fmt.Sprintf("fix is stale: %v old", pos.Age().Round(time.Second)))
		case fw.config.MaxAccuracy > 0 && pos.Accuracy > fw.config.MaxAccuracy:
			issues = append(issues, fmt.Sprintf("accuracy degraded: %.1fm", pos.Accuracy))
		}
		if sessionErr := fw.session.Err(); sessionErr != nil {
			issues = append(issues, sessionErr.Error())
		}
	}

	fw.mu.Lock()
	fw.status.LastCheckAt = time.Now()
	fw.status.Issues = issues
	if pos != nil {
		fw.status.LastFixAt = pos.Timestamp
	}
	if len(issues) == 0 {
		fw.status.Healthy = true
		fw.status.ConsecutiveFailures = 0
		fw.mu.Unlock()
		return
	}
	fw.status.Healthy = false
	fw.status.ConsecutiveFailures++
	failures := fw.status.ConsecutiveFailures
	cooldownOver := time.Since(fw.status.LastRestartAt) > fw.config.RestartCooldown
	fw.mu.Unlock()

	fw.logger.Warn("fix_watchdog_unhealthy",
		"failures", failures,
		"issues", issues,
		"session_state", string(state),
	)

	if !fw.config.EnableAutoRestart || failures < fw.config.MaxConsecutiveFailures || !cooldownOver {
		return
	}

	reason := issues[0]
	if err := fw.session.RestartWatch(); err != nil {
		fw.logger.Error("fix_watchdog_restart_failed", "error", err)
		return
	}

	fw.mu.Lock()
	fw.status.TotalRestarts++
	fw.status.LastRestartAt = time.Now()
	fw.status.LastRestartReason = reason
	fw.status.ConsecutiveFailures = 0
	fw.mu.Unlock()

	fw.logger.Info("fix_watchdog_restarted_watch", "reason", reason)
}
