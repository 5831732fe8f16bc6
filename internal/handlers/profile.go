package handlers

import (
	"errors"
	"net/http"

	"github.com/daybook/apiserver/internal/services"
	"github.com/daybook/apiserver/internal/store"
	"github.com/go-chi/chi/v5"
)

// ProfileHandler provides the stats rollup and data export endpoints.
type ProfileHandler struct {
	profileService *services.ProfileService
	exportService  *services.ExportService
}

func NewProfileHandler(profileService *services.ProfileService, exportService *services.ExportService) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
		exportService:  exportService,
	}
}

// ProfileRouter registers profile routes on the given router. The export
// route is only registered when an export service is configured.
func ProfileRouter(r chi.Router, profileService *services.ProfileService, exportService *services.ExportService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewProfileHandler(profileService, exportService)

	r.Use(authMiddleware)
	r.Get("/stats", handler.GetStats)
	if exportService != nil {
		r.Post("/export", handler.Export)
	}
}

func (h *ProfileHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	stats, err := h.profileService.GetStats(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ExportResponse reports where an export archive was stored.
type ExportResponse struct {
	ObjectKey string `json:"object_key"`
}

func (h *ProfileHandler) Export(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	key, err := h.exportService.Export(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to export data")
		return
	}
	writeJSON(w, http.StatusOK, ExportResponse{ObjectKey: key})
}
