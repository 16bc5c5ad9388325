package core

import "time"

// DecideReturn marks an active loan as returned.
//
// Business Rules:
//
//	GIVEN: An existing loan
//	WHEN: A return request arrives
//	THEN: Status becomes RETURNED and the return timestamp is set, exactly once
//	ERROR: "Loan already returned" if the loan is not ACTIVE
//
// The status/timestamp invariant holds by construction: RETURNED is set
// together with the return timestamp and never without it.
func DecideReturn(loan Loan, returnedAt time.Time) (Loan, error) {
	if !loan.IsActive() {
		return Loan{}, RuleViolation{Reason: FailureReasonLoanAlreadyReturned}
	}

	ts := returnedAt
	loan.Status = StatusReturned
	loan.ReturnDate = &ts

	return loan, nil
}
