package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/daybook/apiserver/internal/store"
	"github.com/daybook/apiserver/types"
	"github.com/google/uuid"
)

// ProfileService aggregates todo and journal activity into read-side stats.
// It has no invariants of its own.
type ProfileService struct {
	users    UserRepository
	todos    TodoRepository
	journals JournalRepository
}

func NewProfileService(users UserRepository, todos TodoRepository, journals JournalRepository) *ProfileService {
	return &ProfileService{users: users, todos: todos, journals: journals}
}

// GetStats rolls up the user's todo counts by status, journal totals and
// distinct dates, and the most recent journal/completion dates. Unknown
// users surface as store.ErrNotFound.
func (s *ProfileService) GetStats(ctx context.Context, userID uuid.UUID) (types.ProfileStats, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.ProfileStats{}, store.ErrNotFound
		}
		return types.ProfileStats{}, err
	}

	todos, err := s.todos.ListByUser(ctx, userID)
	if err != nil {
		return types.ProfileStats{}, err
	}

	stats := types.ProfileStats{
		Username:   user.Username,
		TotalTodos: len(todos),
	}
	for _, todo := range todos {
		switch {
		case todo.IsComplete || todo.Status == types.TodoStatusCompleted:
			stats.CompletedTodos++
		case todo.Status == types.TodoStatusPending:
			stats.PendingTodos++
		}
		if todo.Status == types.TodoStatusCancelled {
			stats.CancelledTodos++
		}
		if todo.IsComplete && todo.CompletedDate != nil {
			if stats.LastTodoCompleted == nil || todo.CompletedDate.After(*stats.LastTodoCompleted) {
				completed := *todo.CompletedDate
				stats.LastTodoCompleted = &completed
			}
		}
	}

	entries, err := s.journals.ListByUser(ctx, userID)
	if err != nil {
		return types.ProfileStats{}, err
	}

	stats.TotalJournalEntries = len(entries)
	seen := make(map[time.Time]bool, len(entries))
	for _, entry := range entries {
		date := entryDate(entry.EntryDate)
		if !seen[date] {
			seen[date] = true
			stats.JournalDates = append(stats.JournalDates, date)
		}
		if stats.LastJournalEntry == nil || entry.EntryDate.After(*stats.LastJournalEntry) {
			last := entry.EntryDate
			stats.LastJournalEntry = &last
		}
	}
	sort.Slice(stats.JournalDates, func(i, j int) bool {
		return stats.JournalDates[i].Before(stats.JournalDates[j])
	})

	return stats, nil
}

func entryDate(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
