package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/booklend/library-services-go/loanservice/shell"
)

// DefaultRequestTimeout bounds every single HTTP attempt, independent of
// the retry policy's own waits. A timed-out attempt counts as a transport
// failure for retry purposes.
const DefaultRequestTimeout = 5 * time.Second

var json = jsoniter.ConfigFastest

// Doer abstracts *http.Client so callers can be tested with scripted
// transports instead of a live dependency.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Caller performs JSON request/response calls against one remote service,
// absorbing transient transport failures with the shell retry policy.
// It is pure protocol glue: no business state, no caching. Every call is
// wrapped in one span covering all attempts, with the total duration
// recorded on the remote-call histogram.
type Caller struct {
	baseURL        string
	httpClient     Doer
	requestTimeout time.Duration
	retryOptions   []shell.RetryOption
	tracing        shell.TracingCollector
	metrics        shell.MetricsCollector
}

// CallerOption configures a Caller.
type CallerOption func(*Caller)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(client Doer) CallerOption {
	return func(c *Caller) {
		c.httpClient = client
	}
}

// WithRequestTimeout overrides the per-attempt timeout.
func WithRequestTimeout(timeout time.Duration) CallerOption {
	return func(c *Caller) {
		c.requestTimeout = timeout
	}
}

// WithRetryOptions sets a custom retry configuration for all calls made
// through this Caller.
func WithRetryOptions(opts ...shell.RetryOption) CallerOption {
	return func(c *Caller) {
		c.retryOptions = opts
	}
}

// WithTracingCollector enables a span around every call made through this
// Caller.
func WithTracingCollector(tracing shell.TracingCollector) CallerOption {
	return func(c *Caller) {
		c.tracing = tracing
	}
}

// WithMetricsCollector enables the remote-call duration histogram for every
// call made through this Caller.
func WithMetricsCollector(metrics shell.MetricsCollector) CallerOption {
	return func(c *Caller) {
		c.metrics = metrics
	}
}

// NewCaller creates a Caller for the service at baseURL.
func NewCaller(baseURL string, opts ...CallerOption) *Caller {
	caller := &Caller{
		baseURL:        baseURL,
		httpClient:     &http.Client{},
		requestTimeout: DefaultRequestTimeout,
	}

	for _, opt := range opts {
		opt(caller)
	}

	return caller
}

// remoteStatusError carries a well-formed non-2xx response. It is never
// retried; the entity-specific clients translate it.
type remoteStatusError struct {
	statusCode int
}

func (e remoteStatusError) Error() string {
	return fmt.Sprintf("remote returned status %d", e.statusCode)
}

// StatusCodeOf extracts the remote status code from err, or 0 when the
// failure was transport-level.
func StatusCodeOf(err error) int {
	var statusErr remoteStatusError
	if errors.As(err, &statusErr) {
		return statusErr.statusCode
	}

	return 0
}

// Get performs a GET call and decodes the 2xx response body into out. The
// operation names the call on spans and metrics.
func (c *Caller) Get(ctx context.Context, operation string, path string, out any) error {
	return c.call(ctx, operation, http.MethodGet, path, nil, out)
}

// Patch performs a PATCH call with a JSON body and decodes the 2xx
// response body into out. The operation names the call on spans and metrics.
func (c *Caller) Patch(ctx context.Context, operation string, path string, body any, out any) error {
	return c.call(ctx, operation, http.MethodPatch, path, body, out)
}

func (c *Caller) call(ctx context.Context, operation string, method string, path string, body any, out any) error {
	var payload []byte

	if body != nil {
		marshaled, marshalErr := json.Marshal(body)
		if marshalErr != nil {
			return fmt.Errorf("marshal request body: %w", marshalErr)
		}

		payload = marshaled
	}

	callCtx := ctx

	var span shell.SpanContext
	if c.tracing != nil {
		callCtx, span = c.tracing.StartSpan(ctx, "remote_call."+operation, map[string]string{
			shell.LabelOperation: operation,
			"http.method":        method,
			"http.path":          path,
		})
	}

	start := time.Now()

	err := shell.Retry(callCtx, func(attemptCtx context.Context) error {
		return c.attempt(attemptCtx, method, path, payload, out)
	}, c.retryOptions...)

	duration := time.Since(start)

	status := shell.StatusOK
	if err != nil {
		status = shell.StatusError
	}

	if c.tracing != nil {
		c.tracing.FinishSpan(span, status, finishAttributes(err))
	}

	c.recordCallDuration(callCtx, operation, status, duration)

	return err
}

// finishAttributes labels a failed span with either the remote status code
// or the transport-level error class.
func finishAttributes(err error) map[string]string {
	if err == nil {
		return nil
	}

	if code := StatusCodeOf(err); code != 0 {
		return map[string]string{"http.status_code": strconv.Itoa(code)}
	}

	return map[string]string{shell.LabelErrorType: shell.ErrorTypeOf(err)}
}

func (c *Caller) recordCallDuration(ctx context.Context, operation string, status string, duration time.Duration) {
	if c.metrics == nil {
		return
	}

	labels := map[string]string{
		shell.LabelOperation: operation,
		shell.LabelStatus:    status,
	}

	if contextual, ok := c.metrics.(shell.ContextualMetricsCollector); ok {
		contextual.RecordDurationContext(ctx, shell.RemoteCallDurationMetric, duration, labels)
	} else {
		c.metrics.RecordDuration(shell.RemoteCallDurationMetric, duration, labels)
	}
}

func (c *Caller) attempt(ctx context.Context, method string, path string, payload []byte, out any) error {
	attemptCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(attemptCtx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shell.ErrTransport, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, resp.Body) // drain for connection reuse
		return remoteStatusError{statusCode: resp.StatusCode}
	}

	if out == nil {
		return nil
	}

	if decodeErr := json.NewDecoder(resp.Body).Decode(out); decodeErr != nil {
		return fmt.Errorf("decode response: %w", decodeErr)
	}

	return nil
}
