package shell

import (
	"github.com/booklend/library-services-go/observability"
)

// The observability interfaces are shared by all services and live in the
// neutral observability package; the aliases keep the orchestrator's shell
// as the single import for its feature slices.
type (
	// ContextualLogger is re-exported from the observability package.
	ContextualLogger = observability.ContextualLogger

	// MetricsCollector is re-exported from the observability package.
	MetricsCollector = observability.MetricsCollector

	// ContextualMetricsCollector is re-exported from the observability package.
	ContextualMetricsCollector = observability.ContextualMetricsCollector

	// SpanContext is re-exported from the observability package.
	SpanContext = observability.SpanContext

	// TracingCollector is re-exported from the observability package.
	TracingCollector = observability.TracingCollector
)

// Metric names recorded by the retry policy and the remote clients.
const (
	RemoteCallRetriesMetric           = "remote_call_retries_total"
	RemoteCallRetryDelayMetric        = "remote_call_retry_delay_duration"
	RemoteCallMaxRetriesReachedMetric = "remote_call_max_retries_reached_total"
	RemoteCallDurationMetric          = "remote_call_duration"
)

// Shared label keys for metrics, span attributes, and structured logs.
const (
	LabelOperation      = "operation"
	LabelAttemptNumber  = "attempt_number"
	LabelFinalErrorType = "final_error_type"
	LabelErrorType      = "error_type"
	LabelStatus         = "status"
)

// Status label values shared by metrics and spans.
const (
	StatusOK    = "ok"
	StatusError = "error"
)
