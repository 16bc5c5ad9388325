package core

import "time"

// Extension is the outcome of extending a loan's due date, keeping both
// timestamps for audit display.
type Extension struct {
	Loan            Loan
	OriginalDueDate time.Time
	ExtendedDueDate time.Time
}

// DecideExtend applies the extension rules to an existing loan.
//
// Business Rules:
//
//	GIVEN: An existing loan
//	WHEN: An extend request for a number of days arrives
//	THEN: The due date advances by that many days and the counter increments
//	ERROR: "Cannot extend a returned loan" if the loan is not ACTIVE
//	ERROR: "Maximum extensions reached" if the counter is already at the cap
//	ERROR: "Extension days must be positive" for zero or negative days
//
// The due date only ever moves forward; the counter never exceeds
// MaxExtensions.
func DecideExtend(loan Loan, days int) (Extension, error) {
	if !loan.IsActive() {
		return Extension{}, RuleViolation{Reason: FailureReasonCannotExtendReturned}
	}

	if loan.ExtensionsCount >= MaxExtensions {
		return Extension{}, RuleViolation{Reason: FailureReasonMaxExtensionsReached}
	}

	if days < 1 {
		return Extension{}, RuleViolation{Reason: FailureReasonExtensionDaysNotPositive}
	}

	original := loan.DueDate
	loan.DueDate = original.AddDate(0, 0, days)
	loan.ExtensionsCount++

	return Extension{
		Loan:            loan,
		OriginalDueDate: original,
		ExtendedDueDate: loan.DueDate,
	}, nil
}
