package remote_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/booklend/library-services-go/loanservice/shell"
	"github.com/booklend/library-services-go/loanservice/shell/remote"
	"github.com/booklend/library-services-go/testutil/fakes"
)

// scriptedDoer plays back one canned outcome per request, in order.
type scriptedDoer struct {
	outcomes []outcome
	requests []*http.Request
}

type outcome struct {
	status int
	body   string
	err    error
}

func (d *scriptedDoer) Do(req *http.Request) (*http.Response, error) {
	d.requests = append(d.requests, req)

	index := len(d.requests) - 1
	if index >= len(d.outcomes) {
		index = len(d.outcomes) - 1
	}

	scripted := d.outcomes[index]
	if scripted.err != nil {
		return nil, scripted.err
	}

	return &http.Response{
		StatusCode: scripted.status,
		Body:       io.NopCloser(bytes.NewBufferString(scripted.body)),
	}, nil
}

func fastRetry() remote.CallerOption {
	return remote.WithRetryOptions(shell.WithRetryDelay(time.Millisecond))
}

func Test_FetchBorrower_DecodesSnapshot(t *testing.T) {
	// arrange
	userID := uuid.New()
	doer := &scriptedDoer{outcomes: []outcome{
		{status: http.StatusOK, body: `{"id":"` + userID.String() + `","name":"Ada Lovelace","email":"ada@example.com"}`},
	}}

	directory := remote.NewBorrowerDirectory("http://users.local", remote.WithHTTPClient(doer), fastRetry())

	// act
	snapshot, err := directory.FetchBorrower(context.Background(), userID)

	// assert
	require.NoError(t, err)
	assert.Equal(t, userID, snapshot.ID)
	assert.Equal(t, "Ada Lovelace", snapshot.Name)
	assert.Equal(t, "ada@example.com", snapshot.Email)

	require.Len(t, doer.requests, 1)
	assert.Equal(t, "http://users.local/api/users/"+userID.String(), doer.requests[0].URL.String())
}

func Test_FetchBorrower_RemoteNotFound_IsNeverRetried(t *testing.T) {
	// arrange
	doer := &scriptedDoer{outcomes: []outcome{
		{status: http.StatusNotFound, body: `{"detail":"User not found"}`},
	}}

	directory := remote.NewBorrowerDirectory("http://users.local", remote.WithHTTPClient(doer), fastRetry())

	// act
	_, err := directory.FetchBorrower(context.Background(), uuid.New())

	// assert
	assert.Equal(t, shell.KindNotFound, shell.KindOf(err))
	assert.Equal(t, shell.DetailUserNotFound, shell.DetailOf(err))
	assert.Len(t, doer.requests, 1)
}

func Test_FetchBorrower_TransportFailureAfterRetries_IsDependencyUnavailable(t *testing.T) {
	// arrange
	doer := &scriptedDoer{outcomes: []outcome{
		{err: errors.New("connection refused")},
	}}

	directory := remote.NewBorrowerDirectory("http://users.local", remote.WithHTTPClient(doer), fastRetry())

	// act
	_, err := directory.FetchBorrower(context.Background(), uuid.New())

	// assert
	assert.Equal(t, shell.KindDependencyUnavailable, shell.KindOf(err))
	assert.Equal(t, shell.DetailUserServiceUnavailable, shell.DetailOf(err))
	assert.Len(t, doer.requests, 3)
}

func Test_FetchBorrower_TransientFailureThenSuccess_IsTransparent(t *testing.T) {
	// arrange
	userID := uuid.New()
	doer := &scriptedDoer{outcomes: []outcome{
		{err: errors.New("connection refused")},
		{err: errors.New("connection reset")},
		{status: http.StatusOK, body: `{"id":"` + userID.String() + `","name":"Ada Lovelace","email":"ada@example.com"}`},
	}}

	directory := remote.NewBorrowerDirectory("http://users.local", remote.WithHTTPClient(doer), fastRetry())

	// act
	snapshot, err := directory.FetchBorrower(context.Background(), userID)

	// assert
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", snapshot.Name)
	assert.Len(t, doer.requests, 3)
}

func Test_DecrementAvailability_SendsSignedDeltaBody(t *testing.T) {
	// arrange
	bookID := uuid.New()
	doer := &scriptedDoer{outcomes: []outcome{
		{status: http.StatusOK, body: `{"id":"` + bookID.String() + `","title":"Clean Architecture","author":"Martin","available_copies":2}`},
	}}

	catalog := remote.NewCatalog("http://books.local", remote.WithHTTPClient(doer), fastRetry())

	// act
	snapshot, err := catalog.DecrementAvailability(context.Background(), bookID)

	// assert
	require.NoError(t, err)
	assert.Equal(t, 2, snapshot.AvailableCopies)

	require.Len(t, doer.requests, 1)
	request := doer.requests[0]
	assert.Equal(t, http.MethodPatch, request.Method)
	assert.Equal(t, "http://books.local/api/books/"+bookID.String()+"/availability", request.URL.String())

	body, readErr := io.ReadAll(request.Body)
	require.NoError(t, readErr)
	assert.JSONEq(t, `{"available_copies":1,"operation":"decrement"}`, string(body))
}

func Test_DecrementAvailability_RemoteRejection_IsInvalidOperation(t *testing.T) {
	// arrange
	doer := &scriptedDoer{outcomes: []outcome{
		{status: http.StatusBadRequest, body: `{"detail":"Not enough available copies"}`},
	}}

	catalog := remote.NewCatalog("http://books.local", remote.WithHTTPClient(doer), fastRetry())

	// act
	_, err := catalog.DecrementAvailability(context.Background(), uuid.New())

	// assert
	assert.Equal(t, shell.KindInvalidOperation, shell.KindOf(err))
	assert.Equal(t, shell.DetailInsufficientCopies, shell.DetailOf(err))
	assert.Len(t, doer.requests, 1)
}

func Test_FetchBook_RemoteNotFound_TranslatesToBookNotFound(t *testing.T) {
	// arrange
	doer := &scriptedDoer{outcomes: []outcome{
		{status: http.StatusNotFound, body: `{"detail":"Book not found"}`},
	}}

	catalog := remote.NewCatalog("http://books.local", remote.WithHTTPClient(doer), fastRetry())

	// act
	_, err := catalog.FetchBook(context.Background(), uuid.New())

	// assert
	assert.Equal(t, shell.KindNotFound, shell.KindOf(err))
	assert.Equal(t, shell.DetailBookNotFound, shell.DetailOf(err))
}

func Test_IncrementAvailability_TransportFailure_IsDependencyUnavailable(t *testing.T) {
	// arrange
	doer := &scriptedDoer{outcomes: []outcome{
		{err: errors.New("connection refused")},
	}}

	catalog := remote.NewCatalog("http://books.local", remote.WithHTTPClient(doer), fastRetry())

	// act
	_, err := catalog.IncrementAvailability(context.Background(), uuid.New())

	// assert
	assert.Equal(t, shell.KindDependencyUnavailable, shell.KindOf(err))
	assert.Equal(t, shell.DetailBookServiceUnavailable, shell.DetailOf(err))
	assert.Len(t, doer.requests, 3)
}

func Test_SuccessfulCall_RecordsOneSpanAndDuration(t *testing.T) {
	// arrange
	userID := uuid.New()
	doer := &scriptedDoer{outcomes: []outcome{
		{status: http.StatusOK, body: `{"id":"` + userID.String() + `","name":"Ada Lovelace","email":"ada@example.com"}`},
	}}

	tracing, metrics := fakes.NewTracingSpy(), fakes.NewMetricsSpy()
	directory := remote.NewBorrowerDirectory("http://users.local",
		remote.WithHTTPClient(doer), fastRetry(),
		remote.WithTracingCollector(tracing), remote.WithMetricsCollector(metrics))

	// act
	_, err := directory.FetchBorrower(context.Background(), userID)

	// assert
	require.NoError(t, err)

	spans := tracing.Spans()
	require.Len(t, spans, 1)
	assert.Equal(t, "remote_call.fetch_borrower", spans[0].Name)
	assert.True(t, spans[0].Finished)
	assert.Equal(t, shell.StatusOK, spans[0].Status)
	assert.Equal(t, "fetch_borrower", spans[0].StartAttrs[shell.LabelOperation])
	assert.Equal(t, http.MethodGet, spans[0].StartAttrs["http.method"])

	durations := metrics.Durations(shell.RemoteCallDurationMetric)
	require.Len(t, durations, 1)
	assert.Equal(t, "fetch_borrower", durations[0].Labels[shell.LabelOperation])
	assert.Equal(t, shell.StatusOK, durations[0].Labels[shell.LabelStatus])
}

func Test_ExhaustedRetries_StayInsideOneSpan_MarkedAsTransportFailure(t *testing.T) {
	// arrange
	doer := &scriptedDoer{outcomes: []outcome{
		{err: errors.New("connection refused")},
	}}

	tracing, metrics := fakes.NewTracingSpy(), fakes.NewMetricsSpy()
	catalog := remote.NewCatalog("http://books.local",
		remote.WithHTTPClient(doer), fastRetry(),
		remote.WithTracingCollector(tracing), remote.WithMetricsCollector(metrics))

	// act
	_, err := catalog.FetchBook(context.Background(), uuid.New())

	// assert: three attempts, one span covering them all
	require.Error(t, err)
	assert.Len(t, doer.requests, 3)

	spans := tracing.Spans()
	require.Len(t, spans, 1)
	assert.Equal(t, "remote_call.fetch_book", spans[0].Name)
	assert.Equal(t, shell.StatusError, spans[0].Status)
	assert.Equal(t, "transport_failure", spans[0].FinishAttrs[shell.LabelErrorType])

	durations := metrics.Durations(shell.RemoteCallDurationMetric)
	require.Len(t, durations, 1)
	assert.Equal(t, shell.StatusError, durations[0].Labels[shell.LabelStatus])
}

func Test_RemoteRejection_LabelsSpanWithStatusCode(t *testing.T) {
	// arrange
	doer := &scriptedDoer{outcomes: []outcome{
		{status: http.StatusNotFound, body: `{"detail":"Book not found"}`},
	}}

	tracing := fakes.NewTracingSpy()
	catalog := remote.NewCatalog("http://books.local",
		remote.WithHTTPClient(doer), fastRetry(),
		remote.WithTracingCollector(tracing))

	// act
	_, err := catalog.FetchBook(context.Background(), uuid.New())

	// assert
	require.Error(t, err)

	spans := tracing.Spans()
	require.Len(t, spans, 1)
	assert.Equal(t, shell.StatusError, spans[0].Status)
	assert.Equal(t, "404", spans[0].FinishAttrs["http.status_code"])
}
