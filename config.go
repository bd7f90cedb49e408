package central

import (
	"github.com/ygrebnov/errorc"
	"go.uber.org/zap"

	"github.com/ygrebnov/central/metrics"
)

// config holds Executor configuration.
type config struct {
	// Logger receives enqueue/dequeue traces at debug level and task failures at error level.
	// Default: zap.NewNop()
	Logger *zap.Logger

	// Metrics builds the executor instruments.
	// Default: metrics.NoopProvider
	Metrics metrics.Provider

	// ErrorHandler, if set, is called with every task failure after it is logged.
	// It runs on the worker that executed the task and must not block for long.
	// Default: nil
	ErrorHandler func(error)
}

// defaultConfig centralizes default values for config.
func defaultConfig() config {
	return config{
		Logger:  zap.NewNop(),
		Metrics: metrics.NewNoopProvider(),
	}
}

// validateConfig checks invariants options alone cannot guarantee.
func validateConfig(cfg *config) error {
	if cfg.Logger == nil {
		return errorc.With(ErrInvalidConfiguration, errorc.String("logger", "nil"))
	}
	if cfg.Metrics == nil {
		return errorc.With(ErrInvalidConfiguration, errorc.String("metrics", "nil"))
	}
	return nil
}

// Option configures an Executor. Use New(size, policy, opts...) to apply options.
type Option func(*config) error

// WithLogger sets the logger (must be non-nil).
func WithLogger(l *zap.Logger) Option {
	return func(cfg *config) error {
		if l == nil {
			return errorc.With(ErrInvalidConfiguration, errorc.String("", "WithLogger requires a non-nil logger"))
		}
		cfg.Logger = l
		return nil
	}
}

// WithMetricsProvider sets the metrics provider (must be non-nil).
func WithMetricsProvider(p metrics.Provider) Option {
	return func(cfg *config) error {
		if p == nil {
			return errorc.With(ErrInvalidConfiguration, errorc.String("", "WithMetricsProvider requires a non-nil provider"))
		}
		cfg.Metrics = p
		return nil
	}
}

// WithErrorHandler sets a callback for task failures. Errors passed to it implement CategoryError.
func WithErrorHandler(fn func(error)) Option {
	return func(cfg *config) error { cfg.ErrorHandler = fn; return nil }
}
