package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/booklend/library-services-go/bookservice/core"
	"github.com/booklend/library-services-go/storage/adapters"
)

// stubAdapter answers every Query with an empty result set and fails Exec
// with a configured error.
type stubAdapter struct {
	execErr error
}

func (a *stubAdapter) Query(context.Context, string) (adapters.DBRows, error) {
	return emptyRows{}, nil
}

func (a *stubAdapter) Exec(context.Context, string) (adapters.DBResult, error) {
	return nil, a.execErr
}

type emptyRows struct{}

func (emptyRows) Next() bool        { return false }
func (emptyRows) Scan(...any) error { return nil }
func (emptyRows) Close() error      { return nil }

func Test_Insert_LostUniqueRace_SurfacesDuplicateISBN(t *testing.T) {
	// arrange: the pre-check sees no row, but a concurrent insert commits
	// first and the UNIQUE constraint rejects ours
	store, err := newBookStore(&stubAdapter{
		execErr: &pgconn.PgError{Code: "23505", ConstraintName: "books_isbn_key"},
	})
	require.NoError(t, err)

	book := core.BuildBook("Clean Architecture", "Martin", "9780134494166", 1, time.Now().UTC())

	// act
	err = store.Insert(context.Background(), book)

	// assert
	assert.ErrorIs(t, err, core.ErrDuplicateISBN)
}

func Test_Insert_UnrelatedExecFailure_IsNotADuplicate(t *testing.T) {
	// arrange
	store, err := newBookStore(&stubAdapter{execErr: assert.AnError})
	require.NoError(t, err)

	book := core.BuildBook("Clean Architecture", "Martin", "9780134494166", 1, time.Now().UTC())

	// act
	err = store.Insert(context.Background(), book)

	// assert
	require.Error(t, err)
	assert.NotErrorIs(t, err, core.ErrDuplicateISBN)
}
