package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/daybook/apiserver/internal/services"
	"github.com/daybook/apiserver/internal/store"
	"github.com/daybook/apiserver/types"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// TodoHandler provides HTTP handlers for to-do items. Every route is
// scoped to the authenticated caller; items owned by someone else read
// as not found. Admins get the unscoped listing.
type TodoHandler struct {
	todoService *services.TodoService
}

func NewTodoHandler(todoService *services.TodoService) *TodoHandler {
	return &TodoHandler{todoService: todoService}
}

// TodoRouter registers todo routes on the given router.
func TodoRouter(r chi.Router, todoService *services.TodoService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewTodoHandler(todoService)

	r.Use(authMiddleware)
	r.Get("/", handler.ListTodos)
	r.Post("/", handler.CreateTodo)
	r.Get("/completed", handler.ListCompleted)
	r.Get("/overdue", handler.ListOverdue)
	r.Route("/{todoID}", func(r chi.Router) {
		r.Get("/", handler.GetTodo)
		r.Put("/", handler.UpdateTodo)
		r.Delete("/", handler.DeleteTodo)
	})
}

// TodoRequest carries the client-mutable fields of an item.
type TodoRequest struct {
	Title         string     `json:"title"`
	IsComplete    bool       `json:"is_complete"`
	CompletedDate *time.Time `json:"completed_date"`
	DueDate       *time.Time `json:"due_date"`
	Status        string     `json:"status"`
	DisplayOrder  int        `json:"display_order"`
}

func (h *TodoHandler) ListTodos(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var todos []types.Todo
	if roleFromContext(r.Context()) == types.AdminRole {
		todos, err = h.todoService.List(r.Context())
	} else {
		todos, err = h.todoService.ListForUser(r.Context(), userID)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list todos")
		return
	}
	writeJSON(w, http.StatusOK, todos)
}

func (h *TodoHandler) ListCompleted(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	todos, err := h.todoService.ListCompletedForUser(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list todos")
		return
	}
	writeJSON(w, http.StatusOK, todos)
}

func (h *TodoHandler) ListOverdue(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	todos, err := h.todoService.ListOverdueForUser(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list todos")
		return
	}
	writeJSON(w, http.StatusOK, todos)
}

func (h *TodoHandler) GetTodo(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, err := parseTodoID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	todo, err := h.fetchOwned(r, id, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "todo not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch todo")
		return
	}
	writeJSON(w, http.StatusOK, todo)
}

func (h *TodoHandler) CreateTodo(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req TodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	todo, err := h.todoService.Add(r.Context(), types.Todo{
		Title:         req.Title,
		IsComplete:    req.IsComplete,
		CompletedDate: req.CompletedDate,
		DueDate:       req.DueDate,
		Status:        req.Status,
		DisplayOrder:  req.DisplayOrder,
		UserID:        &userID,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create todo")
		return
	}
	writeJSON(w, http.StatusCreated, todo)
}

func (h *TodoHandler) UpdateTodo(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, err := parseTodoID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	existing, err := h.fetchOwned(r, id, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "todo not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch todo")
		return
	}

	var req TodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	todo, err := h.todoService.Update(r.Context(), types.Todo{
		ID:            existing.ID,
		Title:         req.Title,
		IsComplete:    req.IsComplete,
		CompletedDate: req.CompletedDate,
		DueDate:       req.DueDate,
		Status:        req.Status,
		DisplayOrder:  req.DisplayOrder,
		UserID:        existing.UserID,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "todo not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update todo")
		return
	}
	writeJSON(w, http.StatusOK, todo)
}

func (h *TodoHandler) DeleteTodo(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, err := parseTodoID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.fetchOwned(r, id, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "todo not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch todo")
		return
	}

	if err := h.todoService.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "todo not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete todo")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// fetchOwned loads a todo and hides items owned by another user behind
// ErrNotFound. Unowned (legacy/shared) items remain visible.
func (h *TodoHandler) fetchOwned(r *http.Request, id int, userID uuid.UUID) (types.Todo, error) {
	todo, err := h.todoService.GetByID(r.Context(), id)
	if err != nil {
		return types.Todo{}, err
	}
	if todo.UserID != nil && *todo.UserID != userID {
		return types.Todo{}, store.ErrNotFound
	}
	return todo, nil
}

func parseTodoID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "todoID")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, errors.New("invalid todo id")
	}
	return id, nil
}
