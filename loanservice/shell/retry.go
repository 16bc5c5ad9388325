package shell

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/juju/clock"
)

const (
	defaultMaxAttempts = 3
	defaultRetryDelay  = 1 * time.Second
)

var (
	// ErrInvalidMaxAttempts is returned when max attempts are not positive.
	ErrInvalidMaxAttempts = errors.New("max attempts must be positive")

	// ErrNegativeRetryDelay is returned when the retry delay is negative.
	ErrNegativeRetryDelay = errors.New("retry delay must not be negative")

	// ErrNilClock is returned when a nil clock is provided to WithRetryClock.
	ErrNilClock = errors.New("clock must not be nil")

	// ErrNilMetricsCollector is returned when a nil metrics collector is provided to WithRetryMetrics.
	ErrNilMetricsCollector = errors.New("metrics collector must not be nil")

	// ErrEmptyOperationName is returned when an empty operation name is provided to WithRetryMetrics.
	ErrEmptyOperationName = errors.New("operation name must not be empty")
)

// RetryableFunc represents a single remote attempt that can be retried.
type RetryableFunc func(ctx context.Context) error

// retryConfig holds configuration for the fixed-delay retry policy.
type retryConfig struct {
	maxAttempts      int
	delay            time.Duration
	clk              clock.Clock
	metricsCollector MetricsCollector
	operation        string
}

// Retry executes fn up to maxAttempts times total, waiting a fixed delay
// between attempts.
//
// Retry Schedule (default): 3 attempts with a 1 s wait between them.
//
// Only transport failures (errors wrapping ErrTransport) are retried -
// well-formed remote error responses (404, 400) fail fast so the caller can
// translate them exactly once. Context cancellation during a wait aborts
// the remaining attempts immediately.
func Retry(ctx context.Context, fn RetryableFunc, options ...RetryOption) error {
	config := &retryConfig{
		maxAttempts: defaultMaxAttempts,
		delay:       defaultRetryDelay,
		clk:         clock.WallClock,
	}

	for _, option := range options {
		if err := option(config); err != nil {
			return err
		}
	}

	var lastErr error

	for attempt := 0; attempt < config.maxAttempts; attempt++ {
		if attempt > 0 {
			recordRetryDelayMetric(ctx, config, attempt)

			select {
			case <-config.clk.After(config.delay):
				// continue with the next attempt
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		if !IsTransportFailure(lastErr) {
			return lastErr // permanent failure, translate immediately
		}

		recordRetryAttemptMetric(ctx, config, attempt, lastErr)
	}

	recordMaxRetriesReachedMetric(ctx, config, lastErr)

	return lastErr
}

// IsTransportFailure reports whether err is a connection-level failure that
// the retry policy may absorb. Per-attempt timeouts are wrapped into
// ErrTransport by the remote caller and therefore count as transport
// failures too.
func IsTransportFailure(err error) bool {
	return errors.Is(err, ErrTransport)
}

func recordRetryDelayMetric(ctx context.Context, config *retryConfig, attempt int) {
	if config.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		LabelOperation:     config.operation,
		LabelAttemptNumber: fmt.Sprintf("%d", attempt),
	}

	if contextualCollector, ok := config.metricsCollector.(ContextualMetricsCollector); ok {
		contextualCollector.RecordDurationContext(ctx, RemoteCallRetryDelayMetric, config.delay, labels)
	} else {
		config.metricsCollector.RecordDuration(RemoteCallRetryDelayMetric, config.delay, labels)
	}
}

func recordRetryAttemptMetric(ctx context.Context, config *retryConfig, attempt int, lastErr error) {
	if attempt >= config.maxAttempts-1 || config.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		LabelOperation:     config.operation,
		LabelAttemptNumber: fmt.Sprintf("%d", attempt+1),
		LabelErrorType:     ErrorTypeOf(lastErr),
	}

	if contextualCollector, ok := config.metricsCollector.(ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, RemoteCallRetriesMetric, labels)
	} else {
		config.metricsCollector.IncrementCounter(RemoteCallRetriesMetric, labels)
	}
}

func recordMaxRetriesReachedMetric(ctx context.Context, config *retryConfig, lastErr error) {
	if config.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		LabelOperation:      config.operation,
		LabelFinalErrorType: ErrorTypeOf(lastErr),
	}

	if contextualCollector, ok := config.metricsCollector.(ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, RemoteCallMaxRetriesReachedMetric, labels)
	} else {
		config.metricsCollector.IncrementCounter(RemoteCallMaxRetriesReachedMetric, labels)
	}
}

// ErrorTypeOf extracts a string representation of the error type for metrics
// and span labeling.
func ErrorTypeOf(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrTransport):
		return "transport_failure"
	case errors.Is(err, context.Canceled):
		return "context_canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "context_deadline_exceeded"
	default:
		return "other"
	}
}

// RetryOption configures retry behavior using the functional options pattern.
type RetryOption func(*retryConfig) error

// WithMaxAttempts sets the total number of attempts, including the first.
func WithMaxAttempts(attempts int) RetryOption {
	return func(config *retryConfig) error {
		if attempts <= 0 {
			return ErrInvalidMaxAttempts
		}

		config.maxAttempts = attempts

		return nil
	}
}

// WithRetryDelay sets the fixed delay between attempts.
func WithRetryDelay(delay time.Duration) RetryOption {
	return func(config *retryConfig) error {
		if delay < 0 {
			return ErrNegativeRetryDelay
		}

		config.delay = delay

		return nil
	}
}

// WithRetryClock sets the clock used for delay waits, enabling
// deterministic tests.
func WithRetryClock(clk clock.Clock) RetryOption {
	return func(config *retryConfig) error {
		if clk == nil {
			return ErrNilClock
		}

		config.clk = clk

		return nil
	}
}

// WithRetryMetrics sets the metrics collector for retry instrumentation.
// Requires an operation name to properly label metrics.
func WithRetryMetrics(collector MetricsCollector, operation string) RetryOption {
	return func(config *retryConfig) error {
		if collector == nil {
			return ErrNilMetricsCollector
		}

		if operation == "" {
			return ErrEmptyOperationName
		}

		config.metricsCollector = collector
		config.operation = operation

		return nil
	}
}
