// Package core contains the pure domain logic of the loan orchestrator:
// the Loan entity, the decision functions for issuing, returning and
// extending loans, and the overdue computation.
//
// Everything in this package is free of side effects - no I/O, no clock
// reads, no logging. The shell and the feature handlers own all remote
// calls and persistence; core only decides.
package core
