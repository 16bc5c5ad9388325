// Package postgres implements the loan store on PostgreSQL. SQL is built
// with goqu and executed through the shared storage adapters, so the store
// runs unchanged on pgxpool, sqlx or database/sql connections.
//
// State transitions (return, extension) are conditional single-row UPDATEs
// keyed on the expected current state, so concurrent workflows can never
// double-apply a transition.
package postgres
