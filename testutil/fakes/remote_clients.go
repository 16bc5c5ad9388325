package fakes

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/booklend/library-services-go/loanservice/core"
	"github.com/booklend/library-services-go/loanservice/shell"
)

// BorrowerDirectory is a scripted stand-in for the User Directory client.
type BorrowerDirectory struct {
	mu        sync.Mutex
	borrowers map[uuid.UUID]core.BorrowerSnapshot

	// FetchErr, when set, is returned by every FetchBorrower call.
	FetchErr error

	FetchCalls int
}

// NewBorrowerDirectory creates an empty scripted directory.
func NewBorrowerDirectory() *BorrowerDirectory {
	return &BorrowerDirectory{borrowers: make(map[uuid.UUID]core.BorrowerSnapshot)}
}

// Seed registers a borrower snapshot.
func (d *BorrowerDirectory) Seed(borrower core.BorrowerSnapshot) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.borrowers[borrower.ID] = borrower
}

// FetchBorrower returns the scripted snapshot, the injected error, or the
// NotFound the production client reports for an unknown borrower.
func (d *BorrowerDirectory) FetchBorrower(_ context.Context, userID uuid.UUID) (core.BorrowerSnapshot, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.FetchCalls++

	if d.FetchErr != nil {
		return core.BorrowerSnapshot{}, d.FetchErr
	}

	borrower, ok := d.borrowers[userID]
	if !ok {
		return core.BorrowerSnapshot{}, shell.NotFound(shell.DetailUserNotFound)
	}

	return borrower, nil
}

// Catalog is a scripted stand-in for the Catalog client. It keeps live
// available-copy counters so workflow tests can assert increments and
// decrements the way an integration test would observe them.
type Catalog struct {
	mu    sync.Mutex
	books map[uuid.UUID]core.BookSnapshot

	// Error injection per operation; nil means the scripted behavior runs.
	FetchErr     error
	DecrementErr error
	IncrementErr error

	FetchCalls     int
	DecrementCalls int
	IncrementCalls int
}

// NewCatalog creates an empty scripted catalog.
func NewCatalog() *Catalog {
	return &Catalog{books: make(map[uuid.UUID]core.BookSnapshot)}
}

// Seed registers a book snapshot.
func (c *Catalog) Seed(book core.BookSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.books[book.ID] = book
}

// AvailableCopies returns the current counter for assertions.
func (c *Catalog) AvailableCopies(bookID uuid.UUID) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.books[bookID].AvailableCopies
}

// FetchBook returns the scripted snapshot, the injected error, or NotFound.
func (c *Catalog) FetchBook(_ context.Context, bookID uuid.UUID) (core.BookSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.FetchCalls++

	if c.FetchErr != nil {
		return core.BookSnapshot{}, c.FetchErr
	}

	return c.lookup(bookID)
}

// DecrementAvailability mimics the catalog's signed-delta endpoint: a
// decrement below zero is rejected with the production InvalidOperation.
func (c *Catalog) DecrementAvailability(_ context.Context, bookID uuid.UUID) (core.BookSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.DecrementCalls++

	if c.DecrementErr != nil {
		return core.BookSnapshot{}, c.DecrementErr
	}

	book, err := c.lookup(bookID)
	if err != nil {
		return core.BookSnapshot{}, err
	}

	if book.AvailableCopies < 1 {
		return core.BookSnapshot{}, shell.InvalidOperation(shell.DetailInsufficientCopies)
	}

	book.AvailableCopies--
	c.books[bookID] = book

	return book, nil
}

// IncrementAvailability mimics the catalog's signed-delta endpoint.
func (c *Catalog) IncrementAvailability(_ context.Context, bookID uuid.UUID) (core.BookSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.IncrementCalls++

	if c.IncrementErr != nil {
		return core.BookSnapshot{}, c.IncrementErr
	}

	book, err := c.lookup(bookID)
	if err != nil {
		return core.BookSnapshot{}, err
	}

	book.AvailableCopies++
	c.books[bookID] = book

	return book, nil
}

func (c *Catalog) lookup(bookID uuid.UUID) (core.BookSnapshot, error) {
	book, ok := c.books[bookID]
	if !ok {
		return core.BookSnapshot{}, shell.NotFound(shell.DetailBookNotFound)
	}

	return book, nil
}
