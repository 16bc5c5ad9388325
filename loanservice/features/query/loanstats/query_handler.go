package loanstats

import (
	"context"
	"time"

	"github.com/juju/clock"

	"github.com/booklend/library-services-go/loanservice/postgres"
	"github.com/booklend/library-services-go/loanservice/shell"
)

// QueryResult is the loan-side stats overview. All counters come from the
// loan store alone - no remote calls.
type QueryResult struct {
	ActiveLoans  int `json:"active_loans"`
	OverdueLoans int `json:"overdue_loans"`
	LoansToday   int `json:"loans_today"`
	ReturnsToday int `json:"returns_today"`
}

// LoanStore defines the persistence needed by the QueryHandler.
type LoanStore interface {
	Overview(ctx context.Context, now time.Time) (postgres.OverviewCounts, error)
}

// QueryHandler computes the stats overview.
type QueryHandler struct {
	loans LoanStore
	clk   clock.Clock
}

// Option configures a QueryHandler.
type Option func(*QueryHandler)

// WithClock replaces the wall clock, enabling deterministic tests.
func WithClock(clk clock.Clock) Option {
	return func(h *QueryHandler) {
		h.clk = clk
	}
}

// NewQueryHandler creates a new QueryHandler with optional configuration.
func NewQueryHandler(loans LoanStore, opts ...Option) QueryHandler {
	handler := QueryHandler{
		loans: loans,
		clk:   clock.WallClock,
	}

	for _, opt := range opts {
		opt(&handler)
	}

	return handler
}

// Handle aggregates the loan counters relative to the current time.
func (h QueryHandler) Handle(ctx context.Context, _ Query) (QueryResult, error) {
	counts, err := h.loans.Overview(ctx, h.clk.Now().UTC())
	if err != nil {
		return QueryResult{}, shell.Internal(err)
	}

	return QueryResult{
		ActiveLoans:  counts.ActiveLoans,
		OverdueLoans: counts.OverdueLoans,
		LoansToday:   counts.LoansToday,
		ReturnsToday: counts.ReturnsToday,
	}, nil
}
