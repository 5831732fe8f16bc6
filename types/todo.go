package types

import (
	"time"

	"github.com/google/uuid"
)

// Todo status labels. Status is always one of these; any other value is
// rewritten by normalization on the next write.
const (
	TodoStatusPending   = "Pending"
	TodoStatusCompleted = "Completed"
	TodoStatusCancelled = "Cancelled"
	TodoStatusOverdue   = "Overdue"
)

// Todo represents a single to-do item.
type Todo struct {
	// ID is the auto-assigned identifier of the item.
	ID int `json:"id" db:"id"`

	// Title is the item's text.
	Title string `json:"title" db:"title"`

	// IsComplete reports whether the item is done. Status and
	// CompletedDate are derived from it on every write.
	IsComplete bool `json:"is_complete" db:"is_complete"`

	// CreatedDate is set once, when the item is added.
	CreatedDate time.Time `json:"created_date" db:"created_date"`

	// CompletedDate is present iff IsComplete is true.
	CompletedDate *time.Time `json:"completed_date,omitempty" db:"completed_date"`

	// DueDate is the optional deadline. Only the date part is compared
	// against today when deriving the Overdue status.
	DueDate *time.Time `json:"due_date,omitempty" db:"due_date"`

	// Status is one of the TodoStatus labels above.
	Status string `json:"status" db:"status"`

	// DisplayOrder is the manual sort position within the owner's list.
	DisplayOrder int `json:"display_order" db:"display_order"`

	// UserID is the owning user. Nil marks legacy/shared items.
	UserID *uuid.UUID `json:"user_id,omitempty" db:"user_id"`
}
