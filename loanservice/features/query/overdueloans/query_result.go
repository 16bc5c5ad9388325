package overdueloans

import (
	"time"

	"github.com/google/uuid"
)

// UserInfo is the borrower snapshot embedded in each overdue entry.
type UserInfo struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// BookInfo is the book snapshot embedded in each overdue entry.
type BookInfo struct {
	ID     uuid.UUID `json:"id"`
	Title  string    `json:"title"`
	Author string    `json:"author"`
}

// OverdueEntry is one overdue active loan with the elapsed days, floored
// to whole days.
type OverdueEntry struct {
	ID          uuid.UUID `json:"id"`
	User        UserInfo  `json:"user"`
	Book        BookInfo  `json:"book"`
	IssueDate   time.Time `json:"issue_date"`
	DueDate     time.Time `json:"due_date"`
	DaysOverdue int       `json:"days_overdue"`
}

// QueryResult lists all overdue active loans, most overdue first.
type QueryResult struct {
	Loans []OverdueEntry `json:"loans"`
	Total int            `json:"total"`
}
