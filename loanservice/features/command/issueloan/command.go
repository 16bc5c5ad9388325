package issueloan

import (
	"time"

	"github.com/google/uuid"
)

const commandType = "IssueLoan"

// Command represents the intent to issue a new loan to a borrower.
type Command struct {
	UserID  uuid.UUID
	BookID  uuid.UUID
	DueDate time.Time
}

// CommandType returns the type identifier for this command, used for
// observability and routing.
func (c Command) CommandType() string {
	return commandType
}

// BuildCommand creates a new Command with the provided parameters.
func BuildCommand(userID uuid.UUID, bookID uuid.UUID, dueDate time.Time) Command {
	return Command{
		UserID:  userID,
		BookID:  bookID,
		DueDate: dueDate,
	}
}
