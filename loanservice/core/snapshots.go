package core

import "github.com/google/uuid"

// BorrowerSnapshot is the live view of a borrower fetched from the User
// Directory for a single request. Snapshots are never cached or persisted.
type BorrowerSnapshot struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// BookSnapshot is the live view of a book fetched from the Catalog for a
// single request, including the current available-copy counter.
type BookSnapshot struct {
	ID              uuid.UUID `json:"id"`
	Title           string    `json:"title"`
	Author          string    `json:"author"`
	AvailableCopies int       `json:"available_copies"`
}
