package loanhistory

import (
	"context"

	"github.com/google/uuid"

	"github.com/booklend/library-services-go/loanservice/core"
	"github.com/booklend/library-services-go/loanservice/shell"
)

// LoanStore defines the persistence needed by the QueryHandler.
type LoanStore interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]core.Loan, error)
}

// Catalog defines the remote lookup needed from the Catalog service.
type Catalog interface {
	FetchBook(ctx context.Context, bookID uuid.UUID) (core.BookSnapshot, error)
}

// QueryHandler assembles a borrower's loan history with live book
// snapshots, fetched sequentially in loan order. Any snapshot failure
// fails the whole view.
type QueryHandler struct {
	loans   LoanStore
	catalog Catalog
}

// NewQueryHandler creates a new QueryHandler.
func NewQueryHandler(loans LoanStore, catalog Catalog) QueryHandler {
	return QueryHandler{
		loans:   loans,
		catalog: catalog,
	}
}

// Handle lists the borrower's loans and decorates each with the current
// book snapshot. An unknown borrower simply yields an empty history.
func (h QueryHandler) Handle(ctx context.Context, query Query) (QueryResult, error) {
	loans, err := h.loans.ListByUser(ctx, query.UserID)
	if err != nil {
		return QueryResult{}, shell.Internal(err)
	}

	entries := make([]HistoryEntry, 0, len(loans))

	for _, loan := range loans {
		book, fetchErr := h.catalog.FetchBook(ctx, loan.BookID)
		if fetchErr != nil {
			return QueryResult{}, shell.AsWorkflowError(fetchErr)
		}

		entries = append(entries, HistoryEntry{
			ID: loan.ID,
			Book: BookInfo{
				ID:     book.ID,
				Title:  book.Title,
				Author: book.Author,
			},
			IssueDate:  loan.IssueDate,
			DueDate:    loan.DueDate,
			ReturnDate: loan.ReturnDate,
			Status:     string(loan.Status),
		})
	}

	return QueryResult{
		Loans: entries,
		Total: len(entries),
	}, nil
}
