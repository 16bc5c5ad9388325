package fakes

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/booklend/library-services-go/loanservice/core"
	"github.com/booklend/library-services-go/loanservice/postgres"
)

// LoanStore is an in-memory stand-in for the PostgreSQL loan store. It
// mirrors the production conditional-update semantics: CompleteReturn only
// matches ACTIVE loans and RecordExtension is keyed on the observed
// extension counter.
type LoanStore struct {
	mu    sync.Mutex
	loans map[uuid.UUID]core.Loan

	// Error injection per method; nil means the call succeeds.
	InsertErr          error
	GetErr             error
	CompleteReturnErr  error
	RecordExtensionErr error
	ListErr            error

	InsertCalls int
}

// NewLoanStore creates an empty in-memory loan store.
func NewLoanStore() *LoanStore {
	return &LoanStore{loans: make(map[uuid.UUID]core.Loan)}
}

// Seed stores a loan directly, bypassing error injection.
func (s *LoanStore) Seed(loan core.Loan) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loans[loan.ID] = loan
}

// Get returns the stored loan and whether it exists, bypassing error injection.
func (s *LoanStore) Get(loanID uuid.UUID) (core.Loan, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	loan, ok := s.loans[loanID]

	return loan, ok
}

// Insert implements the issue-loan store dependency.
func (s *LoanStore) Insert(_ context.Context, loan core.Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.InsertCalls++

	if s.InsertErr != nil {
		return s.InsertErr
	}

	s.loans[loan.ID] = loan

	return nil
}

// GetByID implements the lookup store dependency.
func (s *LoanStore) GetByID(_ context.Context, loanID uuid.UUID) (core.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.GetErr != nil {
		return core.Loan{}, s.GetErr
	}

	loan, ok := s.loans[loanID]
	if !ok {
		return core.Loan{}, core.ErrLoanNotFound
	}

	return loan, nil
}

// CompleteReturn implements the return-loan store dependency.
func (s *LoanStore) CompleteReturn(_ context.Context, loan core.Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.CompleteReturnErr != nil {
		return s.CompleteReturnErr
	}

	current, ok := s.loans[loan.ID]
	if !ok || !current.IsActive() {
		return core.ErrLoanNotFound
	}

	s.loans[loan.ID] = loan

	return nil
}

// RecordExtension implements the extend-loan store dependency.
func (s *LoanStore) RecordExtension(_ context.Context, loan core.Loan, observedCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.RecordExtensionErr != nil {
		return s.RecordExtensionErr
	}

	current, ok := s.loans[loan.ID]
	if !ok || !current.IsActive() || current.ExtensionsCount != observedCount {
		return core.ErrConcurrentUpdate
	}

	s.loans[loan.ID] = loan

	return nil
}

// ListByUser implements the loan-history store dependency, oldest first.
func (s *LoanStore) ListByUser(_ context.Context, userID uuid.UUID) ([]core.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ListErr != nil {
		return nil, s.ListErr
	}

	var loans []core.Loan

	for _, loan := range s.loans {
		if loan.UserID == userID {
			loans = append(loans, loan)
		}
	}

	sortByIssueDate(loans)

	return loans, nil
}

// ListOverdue implements the overdue-view store dependency, most overdue first.
func (s *LoanStore) ListOverdue(_ context.Context, now time.Time) ([]core.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ListErr != nil {
		return nil, s.ListErr
	}

	var loans []core.Loan

	for _, loan := range s.loans {
		if loan.IsActive() && loan.DueDate.Before(now) {
			loans = append(loans, loan)
		}
	}

	sort.Slice(loans, func(i, j int) bool {
		return loans[i].DueDate.Before(loans[j].DueDate)
	})

	return loans, nil
}

// Overview implements the stats store dependency.
func (s *LoanStore) Overview(_ context.Context, now time.Time) (postgres.OverviewCounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ListErr != nil {
		return postgres.OverviewCounts{}, s.ListErr
	}

	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var counts postgres.OverviewCounts

	for _, loan := range s.loans {
		if loan.IsActive() {
			counts.ActiveLoans++

			if loan.DueDate.Before(now) {
				counts.OverdueLoans++
			}
		}

		if !loan.IssueDate.Before(startOfDay) {
			counts.LoansToday++
		}

		if loan.ReturnDate != nil && !loan.ReturnDate.Before(startOfDay) {
			counts.ReturnsToday++
		}
	}

	return counts, nil
}

func sortByIssueDate(loans []core.Loan) {
	sort.Slice(loans, func(i, j int) bool {
		return loans[i].IssueDate.Before(loans[j].IssueDate)
	})
}
