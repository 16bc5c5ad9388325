package overdueloans

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/juju/clock"

	"github.com/booklend/library-services-go/loanservice/core"
	"github.com/booklend/library-services-go/loanservice/shell"
)

// LoanStore defines the persistence needed by the QueryHandler.
type LoanStore interface {
	ListOverdue(ctx context.Context, now time.Time) ([]core.Loan, error)
}

// BorrowerDirectory defines the remote lookup needed from the User Directory.
type BorrowerDirectory interface {
	FetchBorrower(ctx context.Context, userID uuid.UUID) (core.BorrowerSnapshot, error)
}

// Catalog defines the remote lookup needed from the Catalog service.
type Catalog interface {
	FetchBook(ctx context.Context, bookID uuid.UUID) (core.BookSnapshot, error)
}

// QueryHandler assembles the overdue view: every ACTIVE loan past its due
// date, decorated with live borrower and book snapshots and the floored
// days-overdue count. Any snapshot failure fails the whole view.
type QueryHandler struct {
	loans     LoanStore
	directory BorrowerDirectory
	catalog   Catalog
	clk       clock.Clock
}

// Option configures a QueryHandler.
type Option func(*QueryHandler)

// WithClock replaces the wall clock, enabling deterministic tests.
func WithClock(clk clock.Clock) Option {
	return func(h *QueryHandler) {
		h.clk = clk
	}
}

// NewQueryHandler creates a new QueryHandler with optional configuration.
func NewQueryHandler(loans LoanStore, directory BorrowerDirectory, catalog Catalog, opts ...Option) QueryHandler {
	handler := QueryHandler{
		loans:     loans,
		directory: directory,
		catalog:   catalog,
		clk:       clock.WallClock,
	}

	for _, opt := range opts {
		opt(&handler)
	}

	return handler
}

// Handle lists overdue loans and computes days overdue against one shared
// "now" so the whole view is consistent.
func (h QueryHandler) Handle(ctx context.Context, _ Query) (QueryResult, error) {
	now := h.clk.Now().UTC()

	loans, err := h.loans.ListOverdue(ctx, now)
	if err != nil {
		return QueryResult{}, shell.Internal(err)
	}

	entries := make([]OverdueEntry, 0, len(loans))

	for _, loan := range loans {
		borrower, fetchErr := h.directory.FetchBorrower(ctx, loan.UserID)
		if fetchErr != nil {
			return QueryResult{}, shell.AsWorkflowError(fetchErr)
		}

		book, fetchErr := h.catalog.FetchBook(ctx, loan.BookID)
		if fetchErr != nil {
			return QueryResult{}, shell.AsWorkflowError(fetchErr)
		}

		entries = append(entries, OverdueEntry{
			ID: loan.ID,
			User: UserInfo{
				ID:    borrower.ID,
				Name:  borrower.Name,
				Email: borrower.Email,
			},
			Book: BookInfo{
				ID:     book.ID,
				Title:  book.Title,
				Author: book.Author,
			},
			IssueDate:   loan.IssueDate,
			DueDate:     loan.DueDate,
			DaysOverdue: loan.DaysOverdue(now),
		})
	}

	return QueryResult{
		Loans: entries,
		Total: len(entries),
	}, nil
}
