package remote

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/booklend/library-services-go/loanservice/core"
	"github.com/booklend/library-services-go/loanservice/shell"
)

const operationFetchBorrower = "fetch_borrower"

// BorrowerDirectory is the orchestrator's client for the User Directory
// leaf service.
type BorrowerDirectory struct {
	caller *Caller
}

// NewBorrowerDirectory creates a client for the User Directory at baseURL.
func NewBorrowerDirectory(baseURL string, opts ...CallerOption) *BorrowerDirectory {
	return &BorrowerDirectory{caller: NewCaller(baseURL, opts...)}
}

// FetchBorrower looks up a borrower by identifier and returns a live
// snapshot. Remote outcomes translate as: 404 -> NotFound(user), transport
// failure after retries -> DependencyUnavailable(user directory).
func (d *BorrowerDirectory) FetchBorrower(ctx context.Context, userID uuid.UUID) (core.BorrowerSnapshot, error) {
	var snapshot core.BorrowerSnapshot

	err := d.caller.Get(ctx, operationFetchBorrower, "/api/users/"+userID.String(), &snapshot)

	switch {
	case err == nil:
		return snapshot, nil
	case StatusCodeOf(err) == http.StatusNotFound:
		return core.BorrowerSnapshot{}, shell.NotFound(shell.DetailUserNotFound)
	default:
		return core.BorrowerSnapshot{}, shell.DependencyUnavailable(shell.DetailUserServiceUnavailable, err)
	}
}
