package types

import (
	"time"

	"github.com/google/uuid"
)

// JournalEntry represents one diary entry. For a given owner (or globally,
// for unowned entries) there is at most one entry per calendar date.
type JournalEntry struct {
	// ID is the auto-assigned identifier of the entry.
	ID int `json:"id" db:"id"`

	// EntryDate is the date the entry is about. Only the date part is
	// significant; the time of day is ignored for uniqueness and lookups.
	EntryDate time.Time `json:"entry_date" db:"entry_date"`

	// Content is the entry text.
	Content string `json:"content" db:"content"`

	// Mood is an optional short tag ("happy", "tired", ...).
	Mood *string `json:"mood,omitempty" db:"mood"`

	// CreatedDate is set once, when the entry is added.
	CreatedDate time.Time `json:"created_date" db:"created_date"`

	// ModifiedDate is set on every update, nil until then.
	ModifiedDate *time.Time `json:"modified_date,omitempty" db:"modified_date"`

	// UserID is the owning user. Nil marks legacy/shared entries.
	UserID *uuid.UUID `json:"user_id,omitempty" db:"user_id"`
}
