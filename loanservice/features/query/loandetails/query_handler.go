package loandetails

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/booklend/library-services-go/loanservice/core"
	"github.com/booklend/library-services-go/loanservice/shell"
)

// LoanStore defines the persistence needed by the QueryHandler.
type LoanStore interface {
	GetByID(ctx context.Context, loanID uuid.UUID) (core.Loan, error)
}

// BorrowerDirectory defines the remote lookup needed from the User Directory.
type BorrowerDirectory interface {
	FetchBorrower(ctx context.Context, userID uuid.UUID) (core.BorrowerSnapshot, error)
}

// Catalog defines the remote lookup needed from the Catalog service.
type Catalog interface {
	FetchBook(ctx context.Context, bookID uuid.UUID) (core.BookSnapshot, error)
}

// QueryHandler assembles the single-loan detail view. The two snapshot
// fetches run concurrently; a failure of either fails the whole view so
// callers never see partial results.
type QueryHandler struct {
	loans     LoanStore
	directory BorrowerDirectory
	catalog   Catalog
}

// NewQueryHandler creates a new QueryHandler.
func NewQueryHandler(loans LoanStore, directory BorrowerDirectory, catalog Catalog) QueryHandler {
	return QueryHandler{
		loans:     loans,
		directory: directory,
		catalog:   catalog,
	}
}

// Handle fetches the loan and its live borrower and book snapshots.
func (h QueryHandler) Handle(ctx context.Context, query Query) (QueryResult, error) {
	loan, err := h.loans.GetByID(ctx, query.LoanID)
	if err != nil {
		if errors.Is(err, core.ErrLoanNotFound) {
			return QueryResult{}, shell.NotFound(shell.DetailLoanNotFound)
		}

		return QueryResult{}, shell.Internal(err)
	}

	var (
		borrower core.BorrowerSnapshot
		book     core.BookSnapshot
	)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		fetched, fetchErr := h.directory.FetchBorrower(groupCtx, loan.UserID)
		borrower = fetched

		return fetchErr
	})

	group.Go(func() error {
		fetched, fetchErr := h.catalog.FetchBook(groupCtx, loan.BookID)
		book = fetched

		return fetchErr
	})

	if err = group.Wait(); err != nil {
		return QueryResult{}, shell.AsWorkflowError(err)
	}

	return QueryResult{
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
		IssueDate:  loan.IssueDate,
		DueDate:    loan.DueDate,
		ReturnDate: loan.ReturnDate,
		Status:     string(loan.Status),
	}, nil
}
