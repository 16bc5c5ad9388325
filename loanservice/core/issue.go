package core

import (
	"time"

	"github.com/google/uuid"
)

// DecideIssue validates that a new loan may be issued against the fetched
// book snapshot and produces the loan record to persist.
//
// Business Rules:
//
//	GIVEN: A borrower that exists and a book snapshot fetched from the Catalog
//	WHEN: An issue-loan request arrives
//	THEN: A new ACTIVE loan with extension counter 0 is produced
//	ERROR: "Book not available" if the snapshot shows no available copies
//
// The caller owns the remote existence checks and the authoritative stock
// decrement; this function only applies the local availability rule, so no
// remote mutation happens when it rejects.
func DecideIssue(userID uuid.UUID, book BookSnapshot, issuedAt time.Time, dueAt time.Time) (Loan, error) {
	if book.AvailableCopies < 1 {
		return Loan{}, RuleViolation{Reason: FailureReasonBookNotAvailable}
	}

	return BuildLoan(userID, book.ID, issuedAt, dueAt), nil
}
