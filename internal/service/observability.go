package service

import (
	"context"
	"log/slog"
	"sort"
	"time"
)

// UseCaseEvent describes one completed routine operation.
type UseCaseEvent struct {
	Name     string
	Started  time.Time
	Duration time.Duration
	Err      error
	Fields   map[string]any
}

func (e UseCaseEvent) Failed() bool { return e.Err != nil }

// UseCaseObserver receives an event after every observed routine operation.
type UseCaseObserver interface {
	ObserveUseCase(ctx context.Context, event UseCaseEvent)
}

// ObserverFunc adapts a plain function to UseCaseObserver.
type ObserverFunc func(ctx context.Context, event UseCaseEvent)

func (f ObserverFunc) ObserveUseCase(ctx context.Context, event UseCaseEvent) { f(ctx, event) }

type NoopUseCaseObserver struct{}

func (NoopUseCaseObserver) ObserveUseCase(context.Context, UseCaseEvent) {}

// NewLogUseCaseObserver logs successful operations at debug level and
// failures at warn level. Field keys are sorted so output is stable.
func NewLogUseCaseObserver(logger *slog.Logger) UseCaseObserver {
	if logger == nil {
		return NoopUseCaseObserver{}
	}
	return ObserverFunc(func(ctx context.Context, event UseCaseEvent) {
		keys := make([]string, 0, len(event.Fields))
		for k := range event.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		attrs := make([]slog.Attr, 0, len(keys)+3)
		attrs = append(attrs,
			slog.String("use_case", event.Name),
			slog.Int64("duration_ms", event.Duration.Milliseconds()),
		)
		for _, k := range keys {
			attrs = append(attrs, slog.Any(k, event.Fields[k]))
		}
		level := slog.LevelDebug
		if event.Failed() {
			level = slog.LevelWarn
			attrs = append(attrs, slog.String("error", event.Err.Error()))
		}
		logger.LogAttrs(ctx, level, "routine_use_case", attrs...)
	})
}

type multiObserver []UseCaseObserver

func (m multiObserver) ObserveUseCase(ctx context.Context, event UseCaseEvent) {
	for _, obs := range m {
		obs.ObserveUseCase(ctx, event)
	}
}

// combineObservers drops nil entries and fans out to the rest.
func combineObservers(observers []UseCaseObserver) UseCaseObserver {
	var live multiObserver
	for _, obs := range observers {
		if obs != nil {
			live = append(live, obs)
		}
	}
	switch len(live) {
	case 0:
		return NoopUseCaseObserver{}
	case 1:
		return live[0]
	}
	return live
}

func (s *routineService) observe(ctx context.Context, name string, started time.Time, err error, fields map[string]any) {
	s.observer.ObserveUseCase(ctx, UseCaseEvent{
		Name:     name,
		Started:  started,
		Duration: time.Since(started),
		Err:      err,
		Fields:   fields,
	})
}
