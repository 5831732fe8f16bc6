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

// JournalHandler provides HTTP handlers for journal entries, scoped to the
// authenticated caller.
type JournalHandler struct {
	journalService *services.JournalService
}

func NewJournalHandler(journalService *services.JournalService) *JournalHandler {
	return &JournalHandler{journalService: journalService}
}

// JournalRouter registers journal routes on the given router.
func JournalRouter(r chi.Router, journalService *services.JournalService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewJournalHandler(journalService)

	r.Use(authMiddleware)
	r.Get("/", handler.ListEntries)
	r.Post("/", handler.CreateEntry)
	r.Get("/by-date", handler.GetByDate)
	r.Get("/dates", handler.ListDates)
	r.Get("/month", handler.ListMonth)
	r.Route("/{entryID}", func(r chi.Router) {
		r.Get("/", handler.GetEntry)
		r.Put("/", handler.UpdateEntry)
		r.Delete("/", handler.DeleteEntry)
	})
}

// JournalEntryRequest carries the client-mutable fields of an entry.
type JournalEntryRequest struct {
	EntryDate time.Time `json:"entry_date"`
	Content   string    `json:"content"`
	Mood      *string   `json:"mood"`
}

func (h *JournalHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var entries []types.JournalEntry
	if roleFromContext(r.Context()) == types.AdminRole {
		entries, err = h.journalService.ListAll(r.Context())
	} else {
		entries, err = h.journalService.ListForUser(r.Context(), userID)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list entries")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *JournalHandler) GetEntry(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, err := parseEntryID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	entry, err := h.fetchOwned(r, id, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "entry not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch entry")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// GetByDate returns the caller's entry for a calendar date
// (?date=YYYY-MM-DD).
func (h *JournalHandler) GetByDate(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	date, err := parseDateParam(r, "date")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	entry, err := h.journalService.GetForUserByDate(r.Context(), userID, date)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "entry not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch entry")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// ListDates returns the caller's distinct entry dates for a month
// (?year=&month=), for calendar-view rendering.
func (h *JournalHandler) ListDates(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	year, month, err := parseYearMonth(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	dates, err := h.journalService.ListDatesWithEntries(r.Context(), year, month, &userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list dates")
		return
	}
	writeJSON(w, http.StatusOK, dates)
}

// ListMonth returns the caller's entries for a month (?year=&month=),
// earliest first.
func (h *JournalHandler) ListMonth(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	year, month, err := parseYearMonth(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	entries, err := h.journalService.ListForMonth(r.Context(), year, month, &userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list entries")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *JournalHandler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req JournalEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.EntryDate.IsZero() || req.Content == "" {
		writeError(w, http.StatusBadRequest, "entry_date and content are required")
		return
	}

	entry, err := h.journalService.Add(r.Context(), types.JournalEntry{
		EntryDate: req.EntryDate,
		Content:   req.Content,
		Mood:      req.Mood,
		UserID:    &userID,
	})
	if err != nil {
		if errors.Is(err, services.ErrDuplicateDate) {
			writeError(w, http.StatusConflict, "an entry already exists for this date")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create entry")
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (h *JournalHandler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, err := parseEntryID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	existing, err := h.fetchOwned(r, id, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "entry not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch entry")
		return
	}

	var req JournalEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.EntryDate.IsZero() || req.Content == "" {
		writeError(w, http.StatusBadRequest, "entry_date and content are required")
		return
	}

	entry, err := h.journalService.Update(r.Context(), types.JournalEntry{
		ID:        existing.ID,
		EntryDate: req.EntryDate,
		Content:   req.Content,
		Mood:      req.Mood,
		UserID:    existing.UserID,
	})
	if err != nil {
		if errors.Is(err, services.ErrDuplicateDate) {
			writeError(w, http.StatusConflict, "an entry already exists for this date")
			return
		}
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "entry not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update entry")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *JournalHandler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, err := parseEntryID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.fetchOwned(r, id, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "entry not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch entry")
		return
	}

	if err := h.journalService.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "entry not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete entry")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *JournalHandler) fetchOwned(r *http.Request, id int, userID uuid.UUID) (types.JournalEntry, error) {
	entry, err := h.journalService.GetByID(r.Context(), id)
	if err != nil {
		return types.JournalEntry{}, err
	}
	if entry.UserID != nil && *entry.UserID != userID {
		return types.JournalEntry{}, store.ErrNotFound
	}
	return entry, nil
}

func parseEntryID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "entryID")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, errors.New("invalid entry id")
	}
	return id, nil
}

func parseYearMonth(r *http.Request) (int, time.Month, error) {
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil || year < 1 {
		return 0, 0, errors.New("invalid year parameter")
	}
	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil || month < 1 || month > 12 {
		return 0, 0, errors.New("invalid month parameter")
	}
	return year, time.Month(month), nil
}
