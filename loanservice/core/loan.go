package core

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// LoanStatus is the lifecycle state of a loan record.
type LoanStatus string

const (
	// StatusActive marks a loan whose book copy is still out with the borrower.
	StatusActive LoanStatus = "ACTIVE"

	// StatusReturned marks a loan whose book copy has come back. Terminal.
	StatusReturned LoanStatus = "RETURNED"
)

// MaxExtensions is the lifetime cap on due-date extensions per loan.
const MaxExtensions = 2

const hoursPerDay = 24

// ErrLoanNotFound is returned by loan stores when no record exists for the
// requested identifier (or, for conditional updates, when the record is no
// longer in the expected state).
var ErrLoanNotFound = errors.New("loan not found")

// ErrConcurrentUpdate is returned by loan stores when a conditional update
// matched no row because another workflow changed the loan first.
var ErrConcurrentUpdate = errors.New("loan was modified concurrently")

// Loan is the single entity owned by the orchestrator. The borrower and book
// references are foreign identifiers owned by the leaf services and are
// immutable after creation.
type Loan struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	BookID          uuid.UUID
	IssueDate       time.Time
	DueDate         time.Time
	ReturnDate      *time.Time
	Status          LoanStatus
	ExtensionsCount int
}

// BuildLoan creates a new ACTIVE loan with a fresh identifier and a zero
// extension counter.
func BuildLoan(userID uuid.UUID, bookID uuid.UUID, issuedAt time.Time, dueAt time.Time) Loan {
	return Loan{
		ID:              uuid.New(),
		UserID:          userID,
		BookID:          bookID,
		IssueDate:       issuedAt,
		DueDate:         dueAt,
		Status:          StatusActive,
		ExtensionsCount: 0,
	}
}

// IsActive reports whether the loan is still open.
func (l Loan) IsActive() bool {
	return l.Status == StatusActive
}

// IsOverdue reports whether the loan is active with a due date in the past.
func (l Loan) IsOverdue(now time.Time) bool {
	return l.Status == StatusActive && l.DueDate.Before(now)
}

// DaysOverdue returns the whole days elapsed since the due date, zero for
// loans that are not overdue. Partial days are floored: 5.5 days late is 5.
func (l Loan) DaysOverdue(now time.Time) int {
	if !l.IsOverdue(now) {
		return 0
	}

	return int(now.Sub(l.DueDate).Hours() / hoursPerDay)
}
