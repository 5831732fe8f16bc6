package types

import "time"

// ProfileStats is a read-side rollup of a user's todo and journal activity.
type ProfileStats struct {
	Username            string      `json:"username"`
	TotalTodos          int         `json:"total_todos"`
	CompletedTodos      int         `json:"completed_todos"`
	PendingTodos        int         `json:"pending_todos"`
	CancelledTodos      int         `json:"cancelled_todos"`
	TotalJournalEntries int         `json:"total_journal_entries"`
	JournalDates        []time.Time `json:"journal_dates"`
	LastJournalEntry    *time.Time  `json:"last_journal_entry,omitempty"`
	LastTodoCompleted   *time.Time  `json:"last_todo_completed,omitempty"`
}
