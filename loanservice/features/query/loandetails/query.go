package loandetails

import "github.com/google/uuid"

const queryType = "LoanDetails"

// Query requests the full cross-service view of a single loan.
type Query struct {
	LoanID uuid.UUID
}

// QueryType returns the type identifier for this query, used for
// observability and routing.
func (q Query) QueryType() string {
	return queryType
}

// BuildQuery creates a new Query with the provided parameters.
func BuildQuery(loanID uuid.UUID) Query {
	return Query{LoanID: loanID}
}
