package remote

import (
	"log/slog"
)

// CallEvent records metadata about a single share-server call.
type CallEvent struct {
	Op        string
	Attempts  int
	LatencyMs int64
	Success   bool
	ErrorCode string
}

// Observer receives events about share-server calls.
type Observer interface {
	OnCallComplete(event CallEvent)
}

// LogObserver writes call events through slog.
type LogObserver struct {
	logger *slog.Logger
}

// NewLogObserver creates an Observer that logs to logger.
func NewLogObserver(logger *slog.Logger) *LogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogObserver{logger: logger}
}

func (o *LogObserver) OnCallComplete(event CallEvent) {
	attrs := []any{
		"op", event.Op,
		"attempts", event.Attempts,
		"latency_ms", event.LatencyMs,
	}
	if !event.Success {
		o.logger.Warn("remote_call", append(attrs, "error_code", event.ErrorCode)...)
		return
	}
	o.logger.Debug("remote_call", attrs...)
}

// NoopObserver discards all events.
type NoopObserver struct{}

func (NoopObserver) OnCallComplete(CallEvent) {}
