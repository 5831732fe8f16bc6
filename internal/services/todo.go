package services

import (
	"context"
	"time"

	"github.com/daybook/apiserver/types"
	"github.com/google/uuid"
)

// TodoRepository defines persistence operations for to-do items.
type TodoRepository interface {
	List(ctx context.Context) ([]types.Todo, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]types.Todo, error)
	ListCompletedByUser(ctx context.Context, userID uuid.UUID) ([]types.Todo, error)
	ListOverdueByUser(ctx context.Context, userID uuid.UUID, today time.Time) ([]types.Todo, error)
	Get(ctx context.Context, id int) (types.Todo, error)
	Create(ctx context.Context, todo types.Todo) (types.Todo, error)
	Update(ctx context.Context, todo types.Todo) (types.Todo, error)
	Delete(ctx context.Context, id int) error
}

// TodoService encapsulates to-do use-cases. Every write passes through
// status normalization, so stored rows always satisfy the completion/status
// consistency rules.
type TodoService struct {
	repo   TodoRepository
	events *EventPublisher
}

func NewTodoService(repo TodoRepository, events *EventPublisher) *TodoService {
	return &TodoService{repo: repo, events: events}
}

func (s *TodoService) List(ctx context.Context) ([]types.Todo, error) {
	return s.repo.List(ctx)
}

func (s *TodoService) ListForUser(ctx context.Context, userID uuid.UUID) ([]types.Todo, error) {
	return s.repo.ListByUser(ctx, userID)
}

// ListCompletedForUser returns completed items, most recently completed first.
func (s *TodoService) ListCompletedForUser(ctx context.Context, userID uuid.UUID) ([]types.Todo, error) {
	return s.repo.ListCompletedByUser(ctx, userID)
}

// ListOverdueForUser returns incomplete items due strictly before today,
// ordered by due date ascending.
func (s *TodoService) ListOverdueForUser(ctx context.Context, userID uuid.UUID) ([]types.Todo, error) {
	return s.repo.ListOverdueByUser(ctx, userID, today(time.Now()))
}

func (s *TodoService) GetByID(ctx context.Context, id int) (types.Todo, error) {
	return s.repo.Get(ctx, id)
}

// Add stamps the creation time, applies the Pending default, normalizes the
// status and persists the item.
func (s *TodoService) Add(ctx context.Context, todo types.Todo) (types.Todo, error) {
	now := time.Now()
	todo.CreatedDate = now
	if todo.Status == "" {
		todo.Status = types.TodoStatusPending
	}
	todo = NormalizeTodoStatus(todo, now)
	created, err := s.repo.Create(ctx, todo)
	if err != nil {
		return types.Todo{}, err
	}
	if created.IsComplete {
		s.events.TodoCompleted(ctx, created.UserID, created.Title)
	}
	return created, nil
}

// Update replaces all mutable fields of the item, re-running status
// normalization. Unknown ids surface as store.ErrNotFound.
func (s *TodoService) Update(ctx context.Context, todo types.Todo) (types.Todo, error) {
	existing, err := s.repo.Get(ctx, todo.ID)
	if err != nil {
		return types.Todo{}, err
	}

	todo.CreatedDate = existing.CreatedDate
	todo = NormalizeTodoStatus(todo, time.Now())
	updated, err := s.repo.Update(ctx, todo)
	if err != nil {
		return types.Todo{}, err
	}
	if !existing.IsComplete && updated.IsComplete {
		s.events.TodoCompleted(ctx, updated.UserID, updated.Title)
	}
	return updated, nil
}

// Delete removes the item. Unknown ids surface as store.ErrNotFound with no
// store mutation.
func (s *TodoService) Delete(ctx context.Context, id int) error {
	return s.repo.Delete(ctx, id)
}

// NormalizeTodoStatus recomputes the status label and completion timestamp
// from the completion flag and due date. It is pure and evaluated from
// scratch on every write, never patched incrementally, so flipping the
// completion flag back and forth is idempotent.
//
// Precedence:
//  1. incomplete with no status -> Pending
//  2. complete -> Completed, completion time stamped if missing
//  3. incomplete but still labeled Completed -> back to Pending, timestamp cleared
//  4. incomplete, due before today, not Cancelled -> Overdue
func NormalizeTodoStatus(todo types.Todo, now time.Time) types.Todo {
	if !todo.IsComplete && todo.Status == "" {
		todo.Status = types.TodoStatusPending
	}

	if todo.IsComplete {
		todo.Status = types.TodoStatusCompleted
		if todo.CompletedDate == nil {
			completed := now
			todo.CompletedDate = &completed
		}
	} else if todo.Status == types.TodoStatusCompleted {
		todo.Status = types.TodoStatusPending
		todo.CompletedDate = nil
	}

	if !todo.IsComplete && todo.DueDate != nil && todo.DueDate.Before(today(now)) {
		if todo.Status != types.TodoStatusCancelled {
			todo.Status = types.TodoStatusOverdue
		}
	}

	return todo
}

// today truncates a moment to the local calendar date.
func today(now time.Time) time.Time {
	year, month, day := now.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, now.Location())
}
