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

	"github.com/booklend/library-services-go/loanservice/core"
	"github.com/booklend/library-services-go/loanservice/shell"
	"github.com/booklend/library-services-go/storage/adapters"
)

const (
	dialectPostgres       = "postgres"
	defaultLoansTableName = "loans"

	colID              = "id"
	colUserID          = "user_id"
	colBookID          = "book_id"
	colIssueDate       = "issue_date"
	colDueDate         = "due_date"
	colReturnDate      = "return_date"
	colStatus          = "status"
	colExtensionsCount = "extensions_count"
)

// ErrEmptyLoansTableName is returned when an empty table name is provided to WithTableName.
var ErrEmptyLoansTableName = errors.New("loans table name must not be empty")

// LoanStore persists loan records. Each method is a single statement, so
// per-row atomicity comes from the database, not from store-side locking.
type LoanStore struct {
	db               adapters.DBAdapter
	tableName        string
	contextualLogger shell.ContextualLogger
}

// Option defines a functional option for configuring a LoanStore.
type Option func(*LoanStore) error

// WithTableName sets the loans table name.
func WithTableName(tableName string) Option {
	return func(s *LoanStore) error {
		if tableName == "" {
			return ErrEmptyLoansTableName
		}

		s.tableName = tableName

		return nil
	}
}

// WithContextualLogger sets the logger used for debug-level SQL logging.
func WithContextualLogger(logger shell.ContextualLogger) Option {
	return func(s *LoanStore) error {
		s.contextualLogger = logger
		return nil
	}
}

// NewLoanStoreFromPGXPool creates a LoanStore backed by a pgx connection pool.
func NewLoanStoreFromPGXPool(pool *pgxpool.Pool, opts ...Option) (*LoanStore, error) {
	return newLoanStore(adapters.NewPGXAdapter(pool), opts...)
}

// NewLoanStoreFromSQLX creates a LoanStore backed by an sqlx database handle.
func NewLoanStoreFromSQLX(db *sqlx.DB, opts ...Option) (*LoanStore, error) {
	return newLoanStore(adapters.NewSQLXAdapter(db), opts...)
}

// NewLoanStoreFromSQLDB creates a LoanStore backed by a database/sql handle.
func NewLoanStoreFromSQLDB(db *sql.DB, opts ...Option) (*LoanStore, error) {
	return newLoanStore(adapters.NewSQLAdapter(db), opts...)
}

func newLoanStore(db adapters.DBAdapter, opts ...Option) (*LoanStore, error) {
	store := &LoanStore{
		db:        db,
		tableName: defaultLoansTableName,
	}

	for _, opt := range opts {
		if err := opt(store); err != nil {
			return nil, err
		}
	}

	return store, nil
}

// Insert persists a freshly issued loan.
func (s *LoanStore) Insert(ctx context.Context, loan core.Loan) error {
	record := goqu.Record{
		colID:              loan.ID.String(),
		colUserID:          loan.UserID.String(),
		colBookID:          loan.BookID.String(),
		colIssueDate:       formatTime(loan.IssueDate),
		colDueDate:         formatTime(loan.DueDate),
		colStatus:          string(loan.Status),
		colExtensionsCount: loan.ExtensionsCount,
	}

	query, _, err := goqu.Dialect(dialectPostgres).
		Insert(s.tableName).
		Rows(record).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build insert loan statement: %w", err)
	}

	s.logQuery(ctx, query)

	if _, execErr := s.db.Exec(ctx, query); execErr != nil {
		return fmt.Errorf("insert loan: %w", execErr)
	}

	return nil
}

// GetByID returns the loan with the given identifier, or core.ErrLoanNotFound.
func (s *LoanStore) GetByID(ctx context.Context, loanID uuid.UUID) (core.Loan, error) {
	query, _, err := s.selectLoans().
		Where(goqu.C(colID).Eq(loanID.String())).
		ToSQL()
	if err != nil {
		return core.Loan{}, fmt.Errorf("build select loan statement: %w", err)
	}

	loans, err := s.queryLoans(ctx, query)
	if err != nil {
		return core.Loan{}, err
	}

	if len(loans) == 0 {
		return core.Loan{}, core.ErrLoanNotFound
	}

	return loans[0], nil
}

// CompleteReturn flips an ACTIVE loan to RETURNED with its return timestamp.
// The status condition makes the transition single-shot: when another
// workflow already returned the loan (or it never existed), the update
// matches nothing and core.ErrLoanNotFound is returned.
func (s *LoanStore) CompleteReturn(ctx context.Context, loan core.Loan) error {
	if loan.ReturnDate == nil {
		return fmt.Errorf("loan %s has no return timestamp", loan.ID)
	}

	query, _, err := goqu.Dialect(dialectPostgres).
		Update(s.tableName).
		Set(goqu.Record{
			colStatus:     string(core.StatusReturned),
			colReturnDate: formatTime(*loan.ReturnDate),
		}).
		Where(
			goqu.C(colID).Eq(loan.ID.String()),
			goqu.C(colStatus).Eq(string(core.StatusActive)),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build return loan statement: %w", err)
	}

	s.logQuery(ctx, query)

	result, execErr := s.db.Exec(ctx, query)
	if execErr != nil {
		return fmt.Errorf("complete return: %w", execErr)
	}

	affected, affectedErr := result.RowsAffected()
	if affectedErr != nil {
		return fmt.Errorf("complete return rows affected: %w", affectedErr)
	}

	if affected == 0 {
		return core.ErrLoanNotFound
	}

	return nil
}

// RecordExtension persists an extended due date and counter. The update is
// keyed on the extension counter the workflow observed, so two concurrent
// extends cannot both bump past the cap; the loser gets
// core.ErrConcurrentUpdate.
func (s *LoanStore) RecordExtension(ctx context.Context, loan core.Loan, observedCount int) error {
	query, _, err := goqu.Dialect(dialectPostgres).
		Update(s.tableName).
		Set(goqu.Record{
			colDueDate:         formatTime(loan.DueDate),
			colExtensionsCount: loan.ExtensionsCount,
		}).
		Where(
			goqu.C(colID).Eq(loan.ID.String()),
			goqu.C(colStatus).Eq(string(core.StatusActive)),
			goqu.C(colExtensionsCount).Eq(observedCount),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build extend loan statement: %w", err)
	}

	s.logQuery(ctx, query)

	result, execErr := s.db.Exec(ctx, query)
	if execErr != nil {
		return fmt.Errorf("record extension: %w", execErr)
	}

	affected, affectedErr := result.RowsAffected()
	if affectedErr != nil {
		return fmt.Errorf("record extension rows affected: %w", affectedErr)
	}

	if affected == 0 {
		return core.ErrConcurrentUpdate
	}

	return nil
}

// ListByUser returns all loans of a borrower, oldest first.
func (s *LoanStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]core.Loan, error) {
	query, _, err := s.selectLoans().
		Where(goqu.C(colUserID).Eq(userID.String())).
		Order(goqu.I(colIssueDate).Asc()).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build loan history statement: %w", err)
	}

	return s.queryLoans(ctx, query)
}

// ListOverdue returns all ACTIVE loans whose due date lies before now,
// most overdue first.
func (s *LoanStore) ListOverdue(ctx context.Context, now time.Time) ([]core.Loan, error) {
	query, _, err := s.selectLoans().
		Where(
			goqu.C(colStatus).Eq(string(core.StatusActive)),
			goqu.C(colDueDate).Lt(formatTime(now)),
		).
		Order(goqu.I(colDueDate).Asc()).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build overdue loans statement: %w", err)
	}

	return s.queryLoans(ctx, query)
}

// OverviewCounts aggregates the loan counters exposed by the stats endpoint.
type OverviewCounts struct {
	ActiveLoans  int
	OverdueLoans int
	LoansToday   int
	ReturnsToday int
}

// Overview computes the stats counters relative to now.
func (s *LoanStore) Overview(ctx context.Context, now time.Time) (OverviewCounts, error) {
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var counts OverviewCounts

	countQueries := []struct {
		dest       *int
		conditions []goqu.Expression
	}{
		{&counts.ActiveLoans, []goqu.Expression{
			goqu.C(colStatus).Eq(string(core.StatusActive)),
		}},
		{&counts.OverdueLoans, []goqu.Expression{
			goqu.C(colStatus).Eq(string(core.StatusActive)),
			goqu.C(colDueDate).Lt(formatTime(now)),
		}},
		{&counts.LoansToday, []goqu.Expression{
			goqu.C(colIssueDate).Gte(formatTime(startOfDay)),
		}},
		{&counts.ReturnsToday, []goqu.Expression{
			goqu.C(colReturnDate).Gte(formatTime(startOfDay)),
		}},
	}

	for _, countQuery := range countQueries {
		count, err := s.countLoans(ctx, countQuery.conditions...)
		if err != nil {
			return OverviewCounts{}, err
		}

		*countQuery.dest = count
	}

	return counts, nil
}

func (s *LoanStore) countLoans(ctx context.Context, conditions ...goqu.Expression) (int, error) {
	query, _, err := goqu.Dialect(dialectPostgres).
		From(s.tableName).
		Select(goqu.COUNT(goqu.Star())).
		Where(conditions...).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build count loans statement: %w", err)
	}

	s.logQuery(ctx, query)

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("count loans: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var count int
	if rows.Next() {
		if scanErr := rows.Scan(&count); scanErr != nil {
			return 0, fmt.Errorf("scan loan count: %w", scanErr)
		}
	}

	return count, nil
}

func (s *LoanStore) selectLoans() *goqu.SelectDataset {
	return goqu.Dialect(dialectPostgres).
		From(s.tableName).
		Select(colID, colUserID, colBookID, colIssueDate, colDueDate, colReturnDate, colStatus, colExtensionsCount)
}

func (s *LoanStore) queryLoans(ctx context.Context, query string) ([]core.Loan, error) {
	s.logQuery(ctx, query)

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query loans: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var loans []core.Loan

	for rows.Next() {
		loan, scanErr := scanLoan(rows)
		if scanErr != nil {
			return nil, scanErr
		}

		loans = append(loans, loan)
	}

	return loans, nil
}

func scanLoan(rows adapters.DBRows) (core.Loan, error) {
	var (
		id, userID, bookID, status string
		issueDate, dueDate         time.Time
		returnDate                 sql.NullTime
		extensionsCount            int
	)

	if err := rows.Scan(&id, &userID, &bookID, &issueDate, &dueDate, &returnDate, &status, &extensionsCount); err != nil {
		return core.Loan{}, fmt.Errorf("scan loan row: %w", err)
	}

	loanID, err := uuid.Parse(id)
	if err != nil {
		return core.Loan{}, fmt.Errorf("parse loan id: %w", err)
	}

	borrowerID, err := uuid.Parse(userID)
	if err != nil {
		return core.Loan{}, fmt.Errorf("parse loan user id: %w", err)
	}

	catalogID, err := uuid.Parse(bookID)
	if err != nil {
		return core.Loan{}, fmt.Errorf("parse loan book id: %w", err)
	}

	loan := core.Loan{
		ID:              loanID,
		UserID:          borrowerID,
		BookID:          catalogID,
		IssueDate:       issueDate,
		DueDate:         dueDate,
		Status:          core.LoanStatus(status),
		ExtensionsCount: extensionsCount,
	}

	if returnDate.Valid {
		ts := returnDate.Time
		loan.ReturnDate = &ts
	}

	return loan, nil
}

func (s *LoanStore) logQuery(ctx context.Context, query string) {
	if s.contextualLogger != nil {
		s.contextualLogger.DebugContext(ctx, "executing sql", "query", query)
	}
}

func formatTime(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339Nano)
}
