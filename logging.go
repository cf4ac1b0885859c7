package querykeys

import (
	"time"

	"github.com/rs/zerolog"
)

// Log operations.
const (
	OpCompile  = "compile"
	OpMerge    = "merge"
	OpOverride = "override"
	OpFactory  = "factory"
	OpActivity = "activity"
)

// LogEvent describes one compile, merge or factory step for logging.
type LogEvent struct {
	Operation string
	Path      string
	Kind      NodeKind
	Key       Key
	Fragment  int
	Duration  time.Duration
	Err       error
}

// Logger records engine events.
type Logger interface {
	Log(LogEvent)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(LogEvent)

// Log implements Logger.
func (f LoggerFunc) Log(event LogEvent) {
	if f != nil {
		f(event)
	}
}

type noopLogger struct{}

func (noopLogger) Log(LogEvent) {}

// WithLogger attaches a logger to compilation and merging.
func WithLogger(logger Logger) Option {
	return func(cfg *config) {
		if logger == nil {
			cfg.logger = noopLogger{}
			return
		}
		cfg.logger = logger
	}
}

type zerologLogger struct {
	logger zerolog.Logger
}

// ZerologLogger forwards events to a zerolog logger. Failures log at error
// level, merge overrides at warn, everything else at debug.
func ZerologLogger(logger zerolog.Logger) Logger {
	return zerologLogger{logger: logger}
}

func (l zerologLogger) Log(event LogEvent) {
	var entry *zerolog.Event
	switch {
	case event.Err != nil:
		entry = l.logger.Error().Err(event.Err)
	case event.Operation == OpOverride:
		entry = l.logger.Warn().Int("fragment", event.Fragment)
	default:
		entry = l.logger.Debug()
	}
	entry = entry.Str("op", event.Operation)
	if event.Path != "" {
		entry = entry.Str("path", event.Path)
	}
	if event.Kind != KindInvalid {
		entry = entry.Stringer("kind", event.Kind)
	}
	if len(event.Key) > 0 {
		entry = entry.Stringer("query_key", event.Key)
	}
	if event.Duration > 0 {
		entry = entry.Dur("duration", event.Duration)
	}
	entry.Msg("querykeys " + event.Operation)
}
