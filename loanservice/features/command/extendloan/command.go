package extendloan

import "github.com/google/uuid"

const commandType = "ExtendLoan"

// Command represents the intent to extend a loan's due date by a number of
// days.
type Command struct {
	LoanID        uuid.UUID
	ExtensionDays int
}

// CommandType returns the type identifier for this command, used for
// observability and routing.
func (c Command) CommandType() string {
	return commandType
}

// BuildCommand creates a new Command with the provided parameters.
func BuildCommand(loanID uuid.UUID, extensionDays int) Command {
	return Command{
		LoanID:        loanID,
		ExtensionDays: extensionDays,
	}
}
