package core

// Failure reasons produced by the decision functions. These are part of the
// wire contract and must stay stable.
const (
	FailureReasonBookNotAvailable         = "Book not available"
	FailureReasonCannotExtendReturned     = "Cannot extend a returned loan"
	FailureReasonMaxExtensionsReached     = "Maximum extensions reached"
	FailureReasonExtensionDaysNotPositive = "Extension days must be positive"
	FailureReasonLoanAlreadyReturned      = "Loan already returned"
)

// RuleViolation is returned by decision functions when a business rule
// forbids the requested transition. The reason is machine-stable.
type RuleViolation struct {
	Reason string
}

func (v RuleViolation) Error() string {
	return v.Reason
}
