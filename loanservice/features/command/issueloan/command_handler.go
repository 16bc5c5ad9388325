package issueloan

import (
	"context"

	"github.com/google/uuid"
	"github.com/juju/clock"

	"github.com/booklend/library-services-go/loanservice/core"
	"github.com/booklend/library-services-go/loanservice/shell"
)

// BorrowerDirectory defines the remote lookup needed from the User Directory.
type BorrowerDirectory interface {
	FetchBorrower(ctx context.Context, userID uuid.UUID) (core.BorrowerSnapshot, error)
}

// Catalog defines the remote operations needed from the Catalog service.
type Catalog interface {
	FetchBook(ctx context.Context, bookID uuid.UUID) (core.BookSnapshot, error)
	DecrementAvailability(ctx context.Context, bookID uuid.UUID) (core.BookSnapshot, error)
}

// LoanStore defines the persistence needed by the CommandHandler.
type LoanStore interface {
	Insert(ctx context.Context, loan core.Loan) error
}

// CommandHandler drives the issue-loan workflow across the two leaf
// services. Steps run in strict order; each failure leaves state consistent
// with "nothing happened yet" or the documented partial effect.
type CommandHandler struct {
	directory BorrowerDirectory
	catalog   Catalog
	loans     LoanStore
	clk       clock.Clock
	logger    shell.ContextualLogger
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
func NewCommandHandler(directory BorrowerDirectory, catalog Catalog, loans LoanStore, opts ...Option) CommandHandler {
	handler := CommandHandler{
		directory: directory,
		catalog:   catalog,
		loans:     loans,
		clk:       clock.WallClock,
	}

	for _, opt := range opts {
		opt(&handler)
	}

	return handler
}

// Handle executes the issue-loan workflow:
//
//  1. Verify the borrower exists (remote, retried on transport failures).
//  2. Verify the book exists and fetch its available-copy count.
//  3. Reject with "Book not available" before any mutation when no copy is free.
//  4. Atomically decrement the Catalog counter - the authoritative boundary;
//     a rejection here (lost race) propagates and no loan row is written.
//  5. Persist the new ACTIVE loan.
//
// A step-5 failure after the decrement leaves a copy marked unavailable with
// no loan; that inconsistency is logged and surfaced as Internal.
func (h CommandHandler) Handle(ctx context.Context, command Command) (core.Loan, error) {
	if _, err := h.directory.FetchBorrower(ctx, command.UserID); err != nil {
		return core.Loan{}, shell.AsWorkflowError(err)
	}

	book, err := h.catalog.FetchBook(ctx, command.BookID)
	if err != nil {
		return core.Loan{}, shell.AsWorkflowError(err)
	}

	loan, err := core.DecideIssue(command.UserID, book, h.clk.Now().UTC(), command.DueDate)
	if err != nil {
		return core.Loan{}, shell.AsWorkflowError(err)
	}

	if _, err = h.catalog.DecrementAvailability(ctx, command.BookID); err != nil {
		return core.Loan{}, shell.AsWorkflowError(err)
	}

	if err = h.loans.Insert(ctx, loan); err != nil {
		if h.logger != nil {
			h.logger.ErrorContext(ctx, "loan insert failed after stock decrement, copy held without loan record",
				"loan_id", loan.ID.String(),
				"book_id", command.BookID.String(),
				"user_id", command.UserID.String(),
				"error", err)
		}

		return core.Loan{}, shell.Internal(err)
	}

	return loan, nil
}
