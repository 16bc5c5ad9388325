package extendloan

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/booklend/library-services-go/loanservice/core"
	"github.com/booklend/library-services-go/loanservice/shell"
)

// LoanStore defines the persistence needed by the CommandHandler.
// RecordExtension must be conditional on the observed extension counter so
// concurrent extends cannot both bump past the cap.
type LoanStore interface {
	GetByID(ctx context.Context, loanID uuid.UUID) (core.Loan, error)
	RecordExtension(ctx context.Context, loan core.Loan, observedCount int) error
}

// CommandHandler drives the extend-loan workflow. Purely local - no remote
// calls; concurrency is handled by the store's conditional row update.
type CommandHandler struct {
	loans LoanStore
}

// NewCommandHandler creates a new CommandHandler.
func NewCommandHandler(loans LoanStore) CommandHandler {
	return CommandHandler{loans: loans}
}

// Handle executes the extend-loan workflow: NotFound for an unknown loan,
// InvalidOperation for a returned loan or an exhausted extension counter,
// otherwise the due date advances and the counter increments. Returns both
// the original and extended due timestamps for audit display.
func (h CommandHandler) Handle(ctx context.Context, command Command) (core.Extension, error) {
	loan, err := h.loans.GetByID(ctx, command.LoanID)
	if err != nil {
		if errors.Is(err, core.ErrLoanNotFound) {
			return core.Extension{}, shell.NotFound(shell.DetailLoanNotFound)
		}

		return core.Extension{}, shell.Internal(err)
	}

	extension, err := core.DecideExtend(loan, command.ExtensionDays)
	if err != nil {
		return core.Extension{}, shell.AsWorkflowError(err)
	}

	err = h.loans.RecordExtension(ctx, extension.Loan, loan.ExtensionsCount)
	if err == nil {
		return extension, nil
	}

	if errors.Is(err, core.ErrConcurrentUpdate) || errors.Is(err, core.ErrLoanNotFound) {
		// Another workflow changed the loan between the read and the update.
		// Re-decide against the fresh state to report the proper violation.
		current, readErr := h.loans.GetByID(ctx, command.LoanID)
		if readErr != nil {
			if errors.Is(readErr, core.ErrLoanNotFound) {
				return core.Extension{}, shell.NotFound(shell.DetailLoanNotFound)
			}

			return core.Extension{}, shell.Internal(readErr)
		}

		if _, decideErr := core.DecideExtend(current, command.ExtensionDays); decideErr != nil {
			return core.Extension{}, shell.AsWorkflowError(decideErr)
		}
	}

	return core.Extension{}, shell.Internal(err)
}
