package loanhistory

import (
	"time"

	"github.com/google/uuid"
)

// BookInfo is the book snapshot embedded in each history entry.
type BookInfo struct {
	ID     uuid.UUID `json:"id"`
	Title  string    `json:"title"`
	Author string    `json:"author"`
}

// HistoryEntry is one loan of the borrower with its live book snapshot.
type HistoryEntry struct {
	ID         uuid.UUID  `json:"id"`
	Book       BookInfo   `json:"book"`
	IssueDate  time.Time  `json:"issue_date"`
	DueDate    time.Time  `json:"due_date"`
	ReturnDate *time.Time `json:"return_date"`
	Status     string     `json:"status"`
}

// QueryResult is the borrower's complete loan history, oldest first.
type QueryResult struct {
	Loans []HistoryEntry `json:"loans"`
	Total int            `json:"total"`
}
