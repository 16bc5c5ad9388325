package returnloan

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/juju/clock"

	"github.com/booklend/library-services-go/loanservice/core"
	"github.com/booklend/library-services-go/loanservice/shell"
)

// Catalog defines the remote operation needed from the Catalog service.
type Catalog interface {
	IncrementAvailability(ctx context.Context, bookID uuid.UUID) (core.BookSnapshot, error)
}

// LoanStore defines the persistence needed by the CommandHandler.
type LoanStore interface {
	GetByID(ctx context.Context, loanID uuid.UUID) (core.Loan, error)
	CompleteReturn(ctx context.Context, loan core.Loan) error
}

// CommandHandler drives the return-loan workflow. An unknown loan and an
// already-returned loan are indistinguishable to callers - both report
// "Loan not found or already returned" - so a repeated return can never
// increment stock twice.
type CommandHandler struct {
	catalog Catalog
	loans   LoanStore
	clk     clock.Clock
	logger  shell.ContextualLogger
}

// Option configures a CommandHandler.
type Option func(*CommandHandler)

// WithClock replaces the wall clock, enabling deterministic tests.
func WithClock(clk clock.Clock) Option {
	return func(h *CommandHandler) {
		h.clk = clk
	}
}

// WithContextualLogger sets the logger for workflow diagnostics.
func WithContextualLogger(logger shell.ContextualLogger) Option {
	return func(h *CommandHandler) {
		h.logger = logger
	}
}

// NewCommandHandler creates a new CommandHandler with optional configuration.
func NewCommandHandler(catalog Catalog, loans LoanStore, opts ...Option) CommandHandler {
	handler := CommandHandler{
		catalog: catalog,
		loans:   loans,
		clk:     clock.WallClock,
	}

	for _, opt := range opts {
		opt(&handler)
	}

	return handler
}

// Handle executes the return-loan workflow:
//
//  1. Look up the loan; absent and already-RETURNED collapse to the same
//     NotFound signal.
//  2. Atomically increment the Catalog's available-copy counter.
//  3. Mark the loan RETURNED with a conditional update.
//
// The increment runs before the local commit: a failure in step 3 leaves
// stock over-available rather than under-counted.
func (h CommandHandler) Handle(ctx context.Context, command Command) (core.Loan, error) {
	loan, err := h.loans.GetByID(ctx, command.LoanID)
	if err != nil {
		if errors.Is(err, core.ErrLoanNotFound) {
			return core.Loan{}, shell.NotFound(shell.DetailLoanNotFoundOrReturned)
		}

		return core.Loan{}, shell.Internal(err)
	}

	if !loan.IsActive() {
		return core.Loan{}, shell.NotFound(shell.DetailLoanNotFoundOrReturned)
	}

	if _, err = h.catalog.IncrementAvailability(ctx, loan.BookID); err != nil {
		return core.Loan{}, shell.AsWorkflowError(err)
	}

	returned, err := core.DecideReturn(loan, h.clk.Now().UTC())
	if err != nil {
		return core.Loan{}, shell.AsWorkflowError(err)
	}

	if err = h.loans.CompleteReturn(ctx, returned); err != nil {
		if errors.Is(err, core.ErrLoanNotFound) {
			// Lost the race against a concurrent return after incrementing:
			// stock is now over-available, which is the documented safe side.
			if h.logger != nil {
				h.logger.WarnContext(ctx, "concurrent return detected after stock increment",
					"loan_id", loan.ID.String(),
					"book_id", loan.BookID.String())
			}

			return core.Loan{}, shell.NotFound(shell.DetailLoanNotFoundOrReturned)
		}

		return core.Loan{}, shell.Internal(err)
	}

	return returned, nil
}
