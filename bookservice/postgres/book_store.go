// Package postgres persists catalog books via goqu-built SQL executed
// through the pluggable DB adapters.
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

	"github.com/booklend/library-services-go/bookservice/core"
	"github.com/booklend/library-services-go/observability"
	"github.com/booklend/library-services-go/storage/adapters"
)

const (
	dialectPostgres       = "postgres"
	defaultBooksTableName = "books"

	colID              = "id"
	colTitle           = "title"
	colAuthor          = "author"
	colISBN            = "isbn"
	colCopies          = "copies"
	colAvailableCopies = "available_copies"
	colCreatedAt       = "created_at"
	colUpdatedAt       = "updated_at"
)

// ErrEmptyBooksTableName is returned when an empty table name is provided to WithTableName.
var ErrEmptyBooksTableName = errors.New("books table name must not be empty")

// BookStore persists catalog entries. The availability adjustment is a
// single conditional statement so concurrent loan workflows serialize at
// the database row, never in this process.
type BookStore struct {
	db               adapters.DBAdapter
	tableName        string
	contextualLogger observability.ContextualLogger
}

// Option defines a functional option for configuring a BookStore.
type Option func(*BookStore) error

// WithTableName sets the books table name.
func WithTableName(tableName string) Option {
	return func(s *BookStore) error {
		if tableName == "" {
			return ErrEmptyBooksTableName
		}

		s.tableName = tableName

		return nil
	}
}

// WithContextualLogger sets the logger used for debug-level SQL logging.
func WithContextualLogger(logger observability.ContextualLogger) Option {
	return func(s *BookStore) error {
		s.contextualLogger = logger
		return nil
	}
}

// NewBookStoreFromPGXPool creates a BookStore backed by a pgx connection pool.
func NewBookStoreFromPGXPool(pool *pgxpool.Pool, opts ...Option) (*BookStore, error) {
	return newBookStore(adapters.NewPGXAdapter(pool), opts...)
}

// NewBookStoreFromSQLX creates a BookStore backed by an sqlx database handle.
func NewBookStoreFromSQLX(db *sqlx.DB, opts ...Option) (*BookStore, error) {
	return newBookStore(adapters.NewSQLXAdapter(db), opts...)
}

// NewBookStoreFromSQLDB creates a BookStore backed by a database/sql handle.
func NewBookStoreFromSQLDB(db *sql.DB, opts ...Option) (*BookStore, error) {
	return newBookStore(adapters.NewSQLAdapter(db), opts...)
}

func newBookStore(db adapters.DBAdapter, opts ...Option) (*BookStore, error) {
	store := &BookStore{
		db:        db,
		tableName: defaultBooksTableName,
	}

	for _, opt := range opts {
		if err := opt(store); err != nil {
			return nil, err
		}
	}

	return store, nil
}

// Insert persists a new book, rejecting a duplicate ISBN.
func (s *BookStore) Insert(ctx context.Context, book core.Book) error {
	if _, err := s.GetByISBN(ctx, book.ISBN); err == nil {
		return core.ErrDuplicateISBN
	} else if !errors.Is(err, core.ErrBookNotFound) {
		return err
	}

	query, _, err := goqu.Dialect(dialectPostgres).
		Insert(s.tableName).
		Rows(goqu.Record{
			colID:              book.ID.String(),
			colTitle:           book.Title,
			colAuthor:          book.Author,
			colISBN:            book.ISBN,
			colCopies:          book.Copies,
			colAvailableCopies: book.AvailableCopies,
			colCreatedAt:       formatTime(book.CreatedAt),
		}).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build insert book statement: %w", err)
	}

	s.logQuery(ctx, query)

	if _, execErr := s.db.Exec(ctx, query); execErr != nil {
		// A concurrent insert can slip past the pre-check; the UNIQUE
		// constraint still reports it as a duplicate, not a failure.
		if adapters.IsUniqueViolation(execErr) {
			return core.ErrDuplicateISBN
		}

		return fmt.Errorf("insert book: %w", execErr)
	}

	return nil
}

// GetByID returns the book with the given identifier, or core.ErrBookNotFound.
func (s *BookStore) GetByID(ctx context.Context, bookID uuid.UUID) (core.Book, error) {
	return s.getOne(ctx, goqu.C(colID).Eq(bookID.String()))
}

// GetByISBN returns the book with the given ISBN, or core.ErrBookNotFound.
func (s *BookStore) GetByISBN(ctx context.Context, isbn string) (core.Book, error) {
	return s.getOne(ctx, goqu.C(colISBN).Eq(isbn))
}

// SearchResult is one page of a catalog search.
type SearchResult struct {
	Books   []core.Book
	Total   int
	Page    int
	PerPage int
}

// Search returns a page of books whose title, author, or ISBN contains the
// search term (case-insensitive). An empty term lists everything.
func (s *BookStore) Search(ctx context.Context, term string, page int, perPage int) (SearchResult, error) {
	if page < 1 {
		page = 1
	}

	if perPage < 1 {
		perPage = 10
	}

	dataset := goqu.Dialect(dialectPostgres).From(s.tableName)

	if term != "" {
		pattern := "%" + term + "%"
		dataset = dataset.Where(goqu.Or(
			goqu.C(colTitle).ILike(pattern),
			goqu.C(colAuthor).ILike(pattern),
			goqu.C(colISBN).ILike(pattern),
		))
	}

	countQuery, _, err := dataset.Select(goqu.COUNT(goqu.Star())).ToSQL()
	if err != nil {
		return SearchResult{}, fmt.Errorf("build count books statement: %w", err)
	}

	total, err := s.queryCount(ctx, countQuery)
	if err != nil {
		return SearchResult{}, err
	}

	query, _, err := dataset.
		Select(bookColumns()...).
		Order(goqu.I(colCreatedAt).Asc()).
		Offset(uint((page - 1) * perPage)).
		Limit(uint(perPage)).
		ToSQL()
	if err != nil {
		return SearchResult{}, fmt.Errorf("build search books statement: %w", err)
	}

	books, err := s.queryBooks(ctx, query)
	if err != nil {
		return SearchResult{}, err
	}

	return SearchResult{
		Books:   books,
		Total:   total,
		Page:    page,
		PerPage: perPage,
	}, nil
}

// Update persists changed book fields, or core.ErrBookNotFound.
func (s *BookStore) Update(ctx context.Context, book core.Book, updatedAt time.Time) error {
	query, _, err := goqu.Dialect(dialectPostgres).
		Update(s.tableName).
		Set(goqu.Record{
			colTitle:           book.Title,
			colAuthor:          book.Author,
			colISBN:            book.ISBN,
			colCopies:          book.Copies,
			colAvailableCopies: book.AvailableCopies,
			colUpdatedAt:       formatTime(updatedAt),
		}).
		Where(goqu.C(colID).Eq(book.ID.String())).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update book statement: %w", err)
	}

	affected, err := s.exec(ctx, query, "update book")
	if err != nil {
		return err
	}

	if affected == 0 {
		return core.ErrBookNotFound
	}

	return nil
}

// Delete removes the book, or core.ErrBookNotFound.
func (s *BookStore) Delete(ctx context.Context, bookID uuid.UUID) error {
	query, _, err := goqu.Dialect(dialectPostgres).
		Delete(s.tableName).
		Where(goqu.C(colID).Eq(bookID.String())).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build delete book statement: %w", err)
	}

	affected, err := s.exec(ctx, query, "delete book")
	if err != nil {
		return err
	}

	if affected == 0 {
		return core.ErrBookNotFound
	}

	return nil
}

// AdjustAvailability applies a signed delta to the available-copy counter in
// one conditional UPDATE. A negative delta that would undershoot zero
// matches no row and yields core.ErrInsufficientCopies; an unknown book
// yields core.ErrBookNotFound. Returns the updated book on success.
func (s *BookStore) AdjustAvailability(ctx context.Context, bookID uuid.UUID, delta int, updatedAt time.Time) (core.Book, error) {
	query, _, err := goqu.Dialect(dialectPostgres).
		Update(s.tableName).
		Set(goqu.Record{
			colAvailableCopies: goqu.L(fmt.Sprintf("%s + (%d)", colAvailableCopies, delta)),
			colUpdatedAt:       formatTime(updatedAt),
		}).
		Where(
			goqu.C(colID).Eq(bookID.String()),
			goqu.L(fmt.Sprintf("%s + (%d) >= 0", colAvailableCopies, delta)),
		).
		ToSQL()
	if err != nil {
		return core.Book{}, fmt.Errorf("build adjust availability statement: %w", err)
	}

	affected, err := s.exec(ctx, query, "adjust availability")
	if err != nil {
		return core.Book{}, err
	}

	if affected == 0 {
		// Distinguish a missing book from an undershoot.
		if _, getErr := s.GetByID(ctx, bookID); getErr != nil {
			return core.Book{}, getErr
		}

		return core.Book{}, core.ErrInsufficientCopies
	}

	return s.GetByID(ctx, bookID)
}

func (s *BookStore) getOne(ctx context.Context, condition goqu.Expression) (core.Book, error) {
	query, _, err := goqu.Dialect(dialectPostgres).
		From(s.tableName).
		Select(bookColumns()...).
		Where(condition).
		ToSQL()
	if err != nil {
		return core.Book{}, fmt.Errorf("build select book statement: %w", err)
	}

	books, err := s.queryBooks(ctx, query)
	if err != nil {
		return core.Book{}, err
	}

	if len(books) == 0 {
		return core.Book{}, core.ErrBookNotFound
	}

	return books[0], nil
}

func (s *BookStore) exec(ctx context.Context, query string, action string) (int64, error) {
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

func (s *BookStore) queryCount(ctx context.Context, query string) (int, error) {
	s.logQuery(ctx, query)

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("count books: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var count int
	if rows.Next() {
		if scanErr := rows.Scan(&count); scanErr != nil {
			return 0, fmt.Errorf("scan book count: %w", scanErr)
		}
	}

	return count, nil
}

func (s *BookStore) queryBooks(ctx context.Context, query string) ([]core.Book, error) {
	s.logQuery(ctx, query)

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query books: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var books []core.Book

	for rows.Next() {
		book, scanErr := scanBook(rows)
		if scanErr != nil {
			return nil, scanErr
		}

		books = append(books, book)
	}

	return books, nil
}

func scanBook(rows adapters.DBRows) (core.Book, error) {
	var (
		id, title, author, isbn string
		copies, available       int
		createdAt               time.Time
		updatedAt               sql.NullTime
	)

	if err := rows.Scan(&id, &title, &author, &isbn, &copies, &available, &createdAt, &updatedAt); err != nil {
		return core.Book{}, fmt.Errorf("scan book row: %w", err)
	}

	bookID, err := uuid.Parse(id)
	if err != nil {
		return core.Book{}, fmt.Errorf("parse book id: %w", err)
	}

	book := core.Book{
		ID:              bookID,
		Title:           title,
		Author:          author,
		ISBN:            isbn,
		Copies:          copies,
		AvailableCopies: available,
		CreatedAt:       createdAt,
	}

	if updatedAt.Valid {
		ts := updatedAt.Time
		book.UpdatedAt = &ts
	}

	return book, nil
}

func bookColumns() []any {
	return []any{colID, colTitle, colAuthor, colISBN, colCopies, colAvailableCopies, colCreatedAt, colUpdatedAt}
}

func (s *BookStore) logQuery(ctx context.Context, query string) {
	if s.contextualLogger != nil {
		s.contextualLogger.DebugContext(ctx, "executing sql", "query", query)
	}
}

func formatTime(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339Nano)
}
