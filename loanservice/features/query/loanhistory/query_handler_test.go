package loanhistory_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/booklend/library-services-go/loanservice/core"
	"github.com/booklend/library-services-go/loanservice/features/query/loanhistory"
	"github.com/booklend/library-services-go/loanservice/shell"
	"github.com/booklend/library-services-go/testutil/fakes"
)

func Test_LoanHistory_ListsAllLoansOfBorrower_OldestFirst(t *testing.T) {
	// arrange
	catalog, store := fakes.NewCatalog(), fakes.NewLoanStore()
	userID := uuid.New()

	book := core.BookSnapshot{ID: uuid.New(), Title: "Clean Architecture", Author: "Martin"}
	catalog.Seed(book)

	issuedAt := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)

	older := core.BuildLoan(userID, book.ID, issuedAt, issuedAt.AddDate(0, 0, 14))
	newer := core.BuildLoan(userID, book.ID, issuedAt.AddDate(0, 1, 0), issuedAt.AddDate(0, 1, 14))
	otherBorrowers := core.BuildLoan(uuid.New(), book.ID, issuedAt, issuedAt.AddDate(0, 0, 14))

	store.Seed(newer)
	store.Seed(older)
	store.Seed(otherBorrowers)

	handler := loanhistory.NewQueryHandler(store, catalog)

	// act
	result, err := handler.Handle(context.Background(), loanhistory.BuildQuery(userID))

	// assert
	require.NoError(t, err)
	assert.Equal(t, 2, result.Total)
	require.Len(t, result.Loans, 2)
	assert.Equal(t, older.ID, result.Loans[0].ID)
	assert.Equal(t, newer.ID, result.Loans[1].ID)
	assert.Equal(t, "Clean Architecture", result.Loans[0].Book.Title)
}

func Test_LoanHistory_UnknownBorrower_YieldsEmptyHistory(t *testing.T) {
	// arrange
	handler := loanhistory.NewQueryHandler(fakes.NewLoanStore(), fakes.NewCatalog())

	// act
	result, err := handler.Handle(context.Background(), loanhistory.BuildQuery(uuid.New()))

	// assert
	require.NoError(t, err)
	assert.Zero(t, result.Total)
	assert.Empty(t, result.Loans)
}

func Test_LoanHistory_BookSnapshotFailure_FailsWholeView(t *testing.T) {
	// arrange
	catalog, store := fakes.NewCatalog(), fakes.NewLoanStore()
	userID := uuid.New()

	issuedAt := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	store.Seed(core.BuildLoan(userID, uuid.New(), issuedAt, issuedAt.AddDate(0, 0, 14)))
	catalog.FetchErr = shell.DependencyUnavailable(shell.DetailBookServiceUnavailable, nil)

	handler := loanhistory.NewQueryHandler(store, catalog)

	// act
	_, err := handler.Handle(context.Background(), loanhistory.BuildQuery(userID))

	// assert
	assert.Equal(t, shell.KindDependencyUnavailable, shell.KindOf(err))
}
