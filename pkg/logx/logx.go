package logx

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// Logger provides structured key/value logging for all boat-app components.
// Fields are passed as alternating key/value pairs:
//
//	logger.Info("gps_fix_received", "source", "gpsd", "accuracy", 3.2)
type Logger struct {
	entry *logrus.Entry
}

// NewLogger creates a logger for the given component at the given level
// (trace|debug|info|warn|error). Unknown levels fall back to info.
func NewLogger(level, component string) *Logger {
	base := logrus.New()
	base.SetOutput(os.Stdout)
	base.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
	})

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	base.SetLevel(parsed)

	return &Logger{entry: base.WithField("component", component)}
}

// WithComponent returns a logger that reports a different component name
// but shares the underlying output and level.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{entry: l.entry.Logger.WithField("component", component)}
}

func (l *Logger) Trace(msg string, kv ...interface{}) { l.entry.WithFields(fields(kv)).Trace(msg) }
func (l *Logger) Debug(msg string, kv ...interface{}) { l.entry.WithFields(fields(kv)).Debug(msg) }
func (l *Logger) Info(msg string, kv ...interface{})  { l.entry.WithFields(fields(kv)).Info(msg) }
func (l *Logger) Warn(msg string, kv ...interface{})  { l.entry.WithFields(fields(kv)).Warn(msg) }
func (l *Logger) Error(msg string, kv ...interface{}) { l.entry.WithFields(fields(kv)).Error(msg) }

// LogVerbose logs an event with a pre-built field map at info level.
func (l *Logger) LogVerbose(event string, data map[string]interface{}) {
	l.entry.WithFields(logrus.Fields(data)).Info(event)
}

// LogDebugVerbose logs an event with a pre-built field map at debug level.
func (l *Logger) LogDebugVerbose(event string, data map[string]interface{}) {
	l.entry.WithFields(logrus.Fields(data)).Debug(event)
}

// LogStateChange records a state machine transition in a uniform shape so
// transitions can be grepped across components.
func (l *Logger) LogStateChange(component, from, to, reason string, data map[string]interface{}) {
	f := logrus.Fields{
		"state_component": component,
		"from":            from,
		"to":              to,
		"reason":          reason,
	}
	for k, v := range data {
		f[k] = v
	}
	l.entry.WithFields(f).Info("state_change")
}

// fields converts alternating key/value pairs into logrus fields. A trailing
// key without a value is recorded as-is so the call site bug stays visible.
func fields(kv []interface{}) logrus.Fields {
	f := make(logrus.Fields, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = "field"
		}
		f[key] = kv[i+1]
	}
	if len(kv)%2 == 1 {
		f["dangling"] = kv[len(kv)-1]
	}
	return f
}
