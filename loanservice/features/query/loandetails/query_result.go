package loandetails

import (
	"time"

	"github.com/google/uuid"
)

// UserInfo is the borrower snapshot embedded in the detail view.
type UserInfo struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// BookInfo is the book snapshot embedded in the detail view.
type BookInfo struct {
	ID     uuid.UUID `json:"id"`
	Title  string    `json:"title"`
	Author string    `json:"author"`
}

// QueryResult is the single-loan detail view with live borrower and book
// snapshots fetched per request, never cached.
type QueryResult struct {
	ID         uuid.UUID  `json:"id"`
	User       UserInfo   `json:"user"`
	Book       BookInfo   `json:"book"`
	IssueDate  time.Time  `json:"issue_date"`
	DueDate    time.Time  `json:"due_date"`
	ReturnDate *time.Time `json:"return_date"`
	Status     string     `json:"status"`
}
