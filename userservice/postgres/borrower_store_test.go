package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/booklend/library-services-go/storage/adapters"
	"github.com/booklend/library-services-go/userservice/core"
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

func Test_Insert_LostUniqueRace_SurfacesDuplicateEmail(t *testing.T) {
	// arrange: the pre-check sees no row, but a concurrent insert commits
	// first and the UNIQUE constraint rejects ours
	store, err := newBorrowerStore(&stubAdapter{
		execErr: &pq.Error{Code: "23505", Constraint: "users_email_key"},
	})
	require.NoError(t, err)

	borrower := core.BuildBorrower("Ada Lovelace", "ada@example.com", core.RoleStudent, time.Now().UTC())

	// act
	err = store.Insert(context.Background(), borrower)

	// assert
	assert.ErrorIs(t, err, core.ErrDuplicateEmail)
}

func Test_Insert_UnrelatedExecFailure_IsNotADuplicate(t *testing.T) {
	// arrange
	store, err := newBorrowerStore(&stubAdapter{execErr: assert.AnError})
	require.NoError(t, err)

	borrower := core.BuildBorrower("Ada Lovelace", "ada@example.com", core.RoleStudent, time.Now().UTC())

	// act
	err = store.Insert(context.Background(), borrower)

	// assert
	require.Error(t, err)
	assert.NotErrorIs(t, err, core.ErrDuplicateEmail)
}
