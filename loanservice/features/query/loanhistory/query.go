package loanhistory

import "github.com/google/uuid"

const queryType = "LoanHistory"

// Query requests the full loan history of one borrower.
type Query struct {
	UserID uuid.UUID
}

// QueryType returns the type identifier for this query, used for
// observability and routing.
func (q Query) QueryType() string {
	return queryType
}

// BuildQuery creates a new Query with the provided parameters.
func BuildQuery(userID uuid.UUID) Query {
	return Query{UserID: userID}
}
