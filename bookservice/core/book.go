// Package core holds the Catalog's book entity and its invariants.
package core

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrBookNotFound is returned when no book exists for the given identifier.
	ErrBookNotFound = errors.New("book not found")

	// ErrInsufficientCopies is returned when a decrement would push the
	// available-copy counter below zero.
	ErrInsufficientCopies = errors.New("not enough available copies")

	// ErrDuplicateISBN is returned when a book with the same ISBN already exists.
	ErrDuplicateISBN = errors.New("isbn already exists")
)

// Book is a catalog entry. AvailableCopies is the authoritative lending
// counter the loan orchestrator adjusts through signed deltas; it never
// drops below zero.
type Book struct {
	ID              uuid.UUID
	Title           string
	Author          string
	ISBN            string
	Copies          int
	AvailableCopies int
	CreatedAt       time.Time
	UpdatedAt       *time.Time
}

// BuildBook creates a new catalog entry with every copy available.
func BuildBook(title string, author string, isbn string, copies int, createdAt time.Time) Book {
	return Book{
		ID:              uuid.New(),
		Title:           title,
		Author:          author,
		ISBN:            isbn,
		Copies:          copies,
		AvailableCopies: copies,
		CreatedAt:       createdAt,
	}
}
