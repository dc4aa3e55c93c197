package loader

import (
	"io"
	"log/slog"
	"time"
)

// LoadEvent describes one source compilation for logging.
type LoadEvent struct {
	Source   string
	Name     string
	Duration time.Duration
	Err      error
}

// LoadLogger records per-source compilation events.
type LoadLogger interface {
	LogLoad(LoadEvent)
}

// LoadLoggerFunc adapts a function to LoadLogger.
type LoadLoggerFunc func(LoadEvent)

// LogLoad implements LoadLogger.
func (f LoadLoggerFunc) LogLoad(event LoadEvent) {
	if f != nil {
		f(event)
	}
}

type noopLoadLogger struct{}

func (noopLoadLogger) LogLoad(LoadEvent) {}

type multiLoadLogger []LoadLogger

func (m multiLoadLogger) LogLoad(event LoadEvent) {
	for _, logger := range m {
		logger.LogLoad(event)
	}
}

// SlogLoadLogger writes load events to logger at debug level, or error level
// when the load failed.
func SlogLoadLogger(logger *slog.Logger) LoadLogger {
	if logger == nil {
		return noopLoadLogger{}
	}
	return LoadLoggerFunc(func(event LoadEvent) {
		if event.Err != nil {
			logger.Error("failed to load script source", "source", event.Source, "duration", event.Duration, "err", event.Err)
			return
		}
		logger.Debug("loaded script source", "source", event.Source, "name", event.Name, "duration", event.Duration)
	})
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
