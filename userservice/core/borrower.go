// Package core holds the User Directory's borrower entity.
package core

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrBorrowerNotFound is returned when no borrower exists for the given identifier.
	ErrBorrowerNotFound = errors.New("borrower not found")

	// ErrDuplicateEmail is returned when a borrower with the same email already exists.
	ErrDuplicateEmail = errors.New("email already registered")
)

// Role classifies a borrower for lending policy purposes.
type Role string

const (
	RoleStudent Role = "student"
	RoleFaculty Role = "faculty"
)

// IsValid reports whether the role is one of the known values.
func (r Role) IsValid() bool {
	return r == RoleStudent || r == RoleFaculty
}

// Borrower is a registered library member.
type Borrower struct {
	ID        uuid.UUID
	Name      string
	Email     string
	Role      Role
	CreatedAt time.Time
	UpdatedAt *time.Time
}

// BuildBorrower creates a new borrower record.
func BuildBorrower(name string, email string, role Role, createdAt time.Time) Borrower {
	return Borrower{
		ID:        uuid.New(),
		Name:      name,
		Email:     email,
		Role:      role,
		CreatedAt: createdAt,
	}
}
