package remote

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/booklend/library-services-go/loanservice/core"
	"github.com/booklend/library-services-go/loanservice/shell"
)

// Signed-delta operations accepted by the Catalog's availability endpoint.
const (
	OperationIncrement = "increment"
	OperationDecrement = "decrement"
)

// Operation names used on spans and metrics.
const (
	operationFetchBook          = "fetch_book"
	operationAdjustAvailability = "adjust_availability"
)

// availabilityAdjustment is the wire body of the signed-delta operation.
type availabilityAdjustment struct {
	AvailableCopies int    `json:"available_copies"`
	Operation       string `json:"operation"`
}

// Catalog is the orchestrator's client for the Catalog leaf service. The
// available-copy counter is a remote resource adjusted only through the
// atomic signed-delta endpoint, never written directly.
type Catalog struct {
	caller *Caller
}

// NewCatalog creates a client for the Catalog at baseURL.
func NewCatalog(baseURL string, opts ...CallerOption) *Catalog {
	return &Catalog{caller: NewCaller(baseURL, opts...)}
}

// FetchBook looks up a book by identifier and returns a live snapshot
// including the current available-copy count. Remote outcomes translate as:
// 404 -> NotFound(book), transport failure after retries ->
// DependencyUnavailable(catalog).
func (c *Catalog) FetchBook(ctx context.Context, bookID uuid.UUID) (core.BookSnapshot, error) {
	var snapshot core.BookSnapshot

	err := c.caller.Get(ctx, operationFetchBook, "/api/books/"+bookID.String(), &snapshot)

	return snapshot, c.translate(err)
}

// DecrementAvailability atomically takes one copy out of the available
// counter. A 400 from the Catalog means the decrement would go below zero
// (a concurrent issue won the race) and surfaces as InvalidOperation.
func (c *Catalog) DecrementAvailability(ctx context.Context, bookID uuid.UUID) (core.BookSnapshot, error) {
	return c.adjustAvailability(ctx, bookID, OperationDecrement)
}

// IncrementAvailability atomically puts one copy back into the available
// counter.
func (c *Catalog) IncrementAvailability(ctx context.Context, bookID uuid.UUID) (core.BookSnapshot, error) {
	return c.adjustAvailability(ctx, bookID, OperationIncrement)
}

func (c *Catalog) adjustAvailability(ctx context.Context, bookID uuid.UUID, operation string) (core.BookSnapshot, error) {
	body := availabilityAdjustment{AvailableCopies: 1, Operation: operation}

	var snapshot core.BookSnapshot

	err := c.caller.Patch(ctx, operationAdjustAvailability, "/api/books/"+bookID.String()+"/availability", body, &snapshot)

	return snapshot, c.translate(err)
}

func (c *Catalog) translate(err error) error {
	switch {
	case err == nil:
		return nil
	case StatusCodeOf(err) == http.StatusNotFound:
		return shell.NotFound(shell.DetailBookNotFound)
	case StatusCodeOf(err) == http.StatusBadRequest:
		return shell.InvalidOperation(shell.DetailInsufficientCopies)
	default:
		return shell.DependencyUnavailable(shell.DetailBookServiceUnavailable, err)
	}
}
