// Package postgres persists borrowers via goqu-built SQL executed through
// the pluggable DB adapters.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect import
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/booklend/library-services-go/observability"
	"github.com/booklend/library-services-go/storage/adapters"
	"github.com/booklend/library-services-go/userservice/core"
)

const (
	dialectPostgres       = "postgres"
	defaultUsersTableName = "users"

	colID        = "id"
	colName      = "name"
	colEmail     = "email"
	colRole      = "role"
	colCreatedAt = "created_at"
	colUpdatedAt = "updated_at"
)

// ErrEmptyUsersTableName is returned when an empty table name is provided to WithTableName.
var ErrEmptyUsersTableName = errors.New("users table name must not be empty")

// BorrowerStore persists borrower records.
type BorrowerStore struct {
	db               adapters.DBAdapter
	tableName        string
	contextualLogger observability.ContextualLogger
}

// Option defines a functional option for configuring a BorrowerStore.
type Option func(*BorrowerStore) error

// WithTableName sets the users table name.
func WithTableName(tableName string) Option {
	return func(s *BorrowerStore) error {
		if tableName == "" {
			return ErrEmptyUsersTableName
		}

		s.tableName = tableName

		return nil
	}
}

// WithContextualLogger sets the logger used for debug-level SQL logging.
func WithContextualLogger(logger observability.ContextualLogger) Option {
	return func(s *BorrowerStore) error {
		s.contextualLogger = logger
		return nil
	}
}

// NewBorrowerStoreFromPGXPool creates a BorrowerStore backed by a pgx connection pool.
func NewBorrowerStoreFromPGXPool(pool *pgxpool.Pool, opts ...Option) (*BorrowerStore, error) {
	return newBorrowerStore(adapters.NewPGXAdapter(pool), opts...)
}

// NewBorrowerStoreFromSQLX creates a BorrowerStore backed by an sqlx database handle.
func NewBorrowerStoreFromSQLX(db *sqlx.DB, opts ...Option) (*BorrowerStore, error) {
	return newBorrowerStore(adapters.NewSQLXAdapter(db), opts...)
}

// NewBorrowerStoreFromSQLDB creates a BorrowerStore backed by a database/sql handle.
func NewBorrowerStoreFromSQLDB(db *sql.DB, opts ...Option) (*BorrowerStore, error) {
	return newBorrowerStore(adapters.NewSQLAdapter(db), opts...)
}

func newBorrowerStore(db adapters.DBAdapter, opts ...Option) (*BorrowerStore, error) {
	store := &BorrowerStore{
		db:        db,
		tableName: defaultUsersTableName,
	}

	for _, opt := range opts {
		if err := opt(store); err != nil {
			return nil, err
		}
	}

	return store, nil
}

// Insert persists a new borrower, rejecting a duplicate email.
func (s *BorrowerStore) Insert(ctx context.Context, borrower core.Borrower) error {
	if _, err := s.GetByEmail(ctx, borrower.Email); err == nil {
		return core.ErrDuplicateEmail
	} else if !errors.Is(err, core.ErrBorrowerNotFound) {
		return err
	}

	query, _, err := goqu.Dialect(dialectPostgres).
		Insert(s.tableName).
		Rows(goqu.Record{
			colID:        borrower.ID.String(),
			colName:      borrower.Name,
			colEmail:     borrower.Email,
			colRole:      string(borrower.Role),
			colCreatedAt: formatTime(borrower.CreatedAt),
		}).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build insert borrower statement: %w", err)
	}

	s.logQuery(ctx, query)

	if _, execErr := s.db.Exec(ctx, query); execErr != nil {
		// A concurrent insert can slip past the pre-check; the UNIQUE
		// constraint still reports it as a duplicate, not a failure.
		if adapters.IsUniqueViolation(execErr) {
			return core.ErrDuplicateEmail
		}

		return fmt.Errorf("insert borrower: %w", execErr)
	}

	return nil
}

// GetByID returns the borrower with the given identifier, or core.ErrBorrowerNotFound.
func (s *BorrowerStore) GetByID(ctx context.Context, borrowerID uuid.UUID) (core.Borrower, error) {
	return s.getOne(ctx, goqu.C(colID).Eq(borrowerID.String()))
}

// GetByEmail returns the borrower with the given email, or core.ErrBorrowerNotFound.
func (s *BorrowerStore) GetByEmail(ctx context.Context, email string) (core.Borrower, error) {
	return s.getOne(ctx, goqu.C(colEmail).Eq(email))
}

// List returns all borrowers, oldest first.
func (s *BorrowerStore) List(ctx context.Context) ([]core.Borrower, error) {
	query, _, err := goqu.Dialect(dialectPostgres).
		From(s.tableName).
		Select(borrowerColumns()...).
		Order(goqu.I(colCreatedAt).Asc()).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list borrowers statement: %w", err)
	}

	return s.queryBorrowers(ctx, query)
}

// Update persists changed borrower fields, or core.ErrBorrowerNotFound.
func (s *BorrowerStore) Update(ctx context.Context, borrower core.Borrower, updatedAt time.Time) error {
	query, _, err := goqu.Dialect(dialectPostgres).
		Update(s.tableName).
		Set(goqu.Record{
			colName:      borrower.Name,
			colEmail:     borrower.Email,
			colRole:      string(borrower.Role),
			colUpdatedAt: formatTime(updatedAt),
		}).
		Where(goqu.C(colID).Eq(borrower.ID.String())).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update borrower statement: %w", err)
	}

	affected, err := s.exec(ctx, query, "update borrower")
	if err != nil {
		return err
	}

	if affected == 0 {
		return core.ErrBorrowerNotFound
	}

	return nil
}

// Delete removes the borrower, or core.ErrBorrowerNotFound.
func (s *BorrowerStore) Delete(ctx context.Context, borrowerID uuid.UUID) error {
	query, _, err := goqu.Dialect(dialectPostgres).
		Delete(s.tableName).
		Where(goqu.C(colID).Eq(borrowerID.String())).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build delete borrower statement: %w", err)
	}

	affected, err := s.exec(ctx, query, "delete borrower")
	if err != nil {
		return err
	}

	if affected == 0 {
		return core.ErrBorrowerNotFound
	}

	return nil
}

func (s *BorrowerStore) getOne(ctx context.Context, condition goqu.Expression) (core.Borrower, error) {
	query, _, err := goqu.Dialect(dialectPostgres).
		From(s.tableName).
		Select(borrowerColumns()...).
		Where(condition).
		ToSQL()
	if err != nil {
		return core.Borrower{}, fmt.Errorf("build select borrower statement: %w", err)
	}

	borrowers, err := s.queryBorrowers(ctx, query)
	if err != nil {
		return core.Borrower{}, err
	}

	if len(borrowers) == 0 {
		return core.Borrower{}, core.ErrBorrowerNotFound
	}

	return borrowers[0], nil
}

func (s *BorrowerStore) exec(ctx context.Context, query string, action string) (int64, error) {
	s.logQuery(ctx, query)

	result, err := s.db.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", action, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s rows affected: %w", action, err)
	}

	return affected, nil
}

func (s *BorrowerStore) queryBorrowers(ctx context.Context, query string) ([]core.Borrower, error) {
	s.logQuery(ctx, query)

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query borrowers: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var borrowers []core.Borrower

	for rows.Next() {
		borrower, scanErr := scanBorrower(rows)
		if scanErr != nil {
			return nil, scanErr
		}

		borrowers = append(borrowers, borrower)
	}

	return borrowers, nil
}

func scanBorrower(rows adapters.DBRows) (core.Borrower, error) {
	var (
		id, name, email, role string
		createdAt             time.Time
		updatedAt             sql.NullTime
	)

	if err := rows.Scan(&id, &name, &email, &role, &createdAt, &updatedAt); err != nil {
		return core.Borrower{}, fmt.Errorf("scan borrower row: %w", err)
	}

	borrowerID, err := uuid.Parse(id)
	if err != nil {
		return core.Borrower{}, fmt.Errorf("parse borrower id: %w", err)
	}

	borrower := core.Borrower{
		ID:        borrowerID,
		Name:      name,
		Email:     email,
		Role:      core.Role(role),
		CreatedAt: createdAt,
	}

	if updatedAt.Valid {
		ts := updatedAt.Time
		borrower.UpdatedAt = &ts
	}

	return borrower, nil
}

func borrowerColumns() []any {
	return []any{colID, colName, colEmail, colRole, colCreatedAt, colUpdatedAt}
}

func (s *BorrowerStore) logQuery(ctx context.Context, query string) {
	if s.contextualLogger != nil {
		s.contextualLogger.DebugContext(ctx, "executing sql", "query", query)
	}
}

func formatTime(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339Nano)
}
