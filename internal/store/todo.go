package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/daybook/apiserver/types"
	"github.com/google/uuid"
)

const todoColumns = `id, title, is_complete, created_date, completed_date, due_date, status, display_order, user_id`

// TodoRepository handles persistence for to-do items.
type TodoRepository struct {
	db *sql.DB
}

func NewTodoRepository(db *sql.DB) *TodoRepository {
	return &TodoRepository{db: db}
}

func (r *TodoRepository) List(ctx context.Context) ([]types.Todo, error) {
	const query = `
		SELECT ` + todoColumns + `
		FROM todos
		ORDER BY id`
	return r.queryTodos(ctx, query)
}

func (r *TodoRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]types.Todo, error) {
	const query = `
		SELECT ` + todoColumns + `
		FROM todos
		WHERE user_id = $1
		ORDER BY id`
	return r.queryTodos(ctx, query, userID)
}

// ListCompletedByUser returns the user's completed items, most recently
// completed first.
func (r *TodoRepository) ListCompletedByUser(ctx context.Context, userID uuid.UUID) ([]types.Todo, error) {
	const query = `
		SELECT ` + todoColumns + `
		FROM todos
		WHERE user_id = $1 AND is_complete
		ORDER BY completed_date DESC`
	return r.queryTodos(ctx, query, userID)
}

// ListOverdueByUser returns the user's incomplete items whose due date is
// strictly before today, earliest deadline first.
func (r *TodoRepository) ListOverdueByUser(ctx context.Context, userID uuid.UUID, today time.Time) ([]types.Todo, error) {
	const query = `
		SELECT ` + todoColumns + `
		FROM todos
		WHERE user_id = $1 AND NOT is_complete AND due_date IS NOT NULL AND due_date < $2
		ORDER BY due_date`
	return r.queryTodos(ctx, query, userID, today)
}

func (r *TodoRepository) Get(ctx context.Context, id int) (types.Todo, error) {
	const query = `
		SELECT ` + todoColumns + `
		FROM todos
		WHERE id = $1`
	todo, err := scanTodo(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Todo{}, ErrNotFound
		}
		return types.Todo{}, err
	}
	return todo, nil
}

func (r *TodoRepository) Create(ctx context.Context, todo types.Todo) (types.Todo, error) {
	const query = `
		INSERT INTO todos (title, is_complete, created_date, completed_date, due_date, status, display_order, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		todo.Title,
		todo.IsComplete,
		todo.CreatedDate,
		todo.CompletedDate,
		todo.DueDate,
		todo.Status,
		todo.DisplayOrder,
		todo.UserID,
	).Scan(&todo.ID); err != nil {
		return types.Todo{}, err
	}
	return todo, nil
}

func (r *TodoRepository) Update(ctx context.Context, todo types.Todo) (types.Todo, error) {
	const query = `
		UPDATE todos
		SET title = $1,
			is_complete = $2,
			completed_date = $3,
			due_date = $4,
			status = $5,
			display_order = $6,
			user_id = $7
		WHERE id = $8`
	result, err := r.db.ExecContext(
		ctx,
		query,
		todo.Title,
		todo.IsComplete,
		todo.CompletedDate,
		todo.DueDate,
		todo.Status,
		todo.DisplayOrder,
		todo.UserID,
		todo.ID,
	)
	if err != nil {
		return types.Todo{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Todo{}, err
	}
	if affected == 0 {
		return types.Todo{}, ErrNotFound
	}
	return todo, nil
}

func (r *TodoRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM todos WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *TodoRepository) queryTodos(ctx context.Context, query string, args ...any) ([]types.Todo, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	todos := make([]types.Todo, 0)
	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		todos = append(todos, todo)
	}
	return todos, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTodo(row rowScanner) (types.Todo, error) {
	var todo types.Todo
	err := row.Scan(
		&todo.ID,
		&todo.Title,
		&todo.IsComplete,
		&todo.CreatedDate,
		&todo.CompletedDate,
		&todo.DueDate,
		&todo.Status,
		&todo.DisplayOrder,
		&todo.UserID,
	)
	return todo, err
}
