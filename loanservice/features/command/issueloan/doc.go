// Package issueloan implements the issue-loan workflow: verify the
// borrower, verify the book and its stock, atomically decrement the
// Catalog's available-copy counter, then persist the new loan. The
// decrement is the authoritative consistency boundary - the check-then-act
// race between steps is resolved by the Catalog, not by cross-service
// locking.
package issueloan
