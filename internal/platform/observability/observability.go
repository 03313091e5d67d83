package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Config toggles span and metric emission.
type Config struct {
	Enabled bool
}

// ShutdownFunc tears down whatever Setup installed.
type ShutdownFunc func(context.Context) error

var (
	mu     sync.RWMutex
	logger *slog.Logger
	state  Config
)

func current() (*slog.Logger, Config) {
	mu.RLock()
	defer mu.RUnlock()
	return logger, state
}

// Setup routes spans and metrics to l as debug records.
func Setup(ctx context.Context, cfg Config, l *slog.Logger) (ShutdownFunc, error) {
	mu.Lock()
	logger = l
	state = cfg
	mu.Unlock()

	if l != nil {
		l.InfoContext(ctx, "[OBSERVABILITY] setup", slog.Bool("enabled", cfg.Enabled))
	}
	return func(context.Context) error {
		mu.Lock()
		logger = nil
		state = Config{}
		mu.Unlock()
		return nil
	}, nil
}

// Enabled reports whether observability has been toggled on.
func Enabled() bool {
	_, cfg := current()
	return cfg.Enabled
}

// StartSpan times an operation; call the returned func with its outcome.
func StartSpan(ctx context.Context, component, operation string) (context.Context, func(error)) {
	l, cfg := current()
	if l == nil || !cfg.Enabled {
		return ctx, func(error) {}
	}

	start := time.Now()
	return ctx, func(err error) {
		level := slog.LevelDebug
		attrs := []slog.Attr{
			slog.String("component", component),
			slog.String("operation", operation),
			slog.Duration("duration", time.Since(start)),
		}
		if err != nil {
			level = slog.LevelWarn
			attrs = append(attrs, slog.Any("error", err))
		}
		l.LogAttrs(ctx, level, "obs span", attrs...)
	}
}

// RecordMetric emits a best-effort datapoint.
func RecordMetric(ctx context.Context, name string, value float64, labels map[string]string) {
	l, cfg := current()
	if l == nil || !cfg.Enabled {
		return
	}

	attrs := []slog.Attr{
		slog.String("metric", name),
		slog.Float64("value", value),
	}
	for k, v := range labels {
		attrs = append(attrs, slog.String(k, v))
	}
	l.LogAttrs(ctx, slog.LevelDebug, "obs metric", attrs...)
}
