package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/libranet/apiserver/internal/services"
	"github.com/rs/zerolog"
)

const exportFilename = "borrow_history.csv"

// MeHandler serves the authenticated principal's own profile and
// borrow history.
type MeHandler struct {
	history *services.HistoryService
	logger  zerolog.Logger
}

// NewMeHandler constructs a handler with the provided history service.
func NewMeHandler(history *services.HistoryService, logger zerolog.Logger) *MeHandler {
	return &MeHandler{history: history, logger: logger}
}

// MeRouter registers the current-user routes on the given router.
func MeRouter(r chi.Router, handler *MeHandler) {
	r.Get("/", handler.Profile)
	r.Get("/history", handler.History)
	r.Get("/history/export", handler.ExportHistory)
}

// Profile returns the principal's public identity.
func (h *MeHandler) Profile(w http.ResponseWriter, r *http.Request) {
	principal, err := principalFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, principal.Profile())
}

// History returns the principal's borrow requests.
func (h *MeHandler) History(w http.ResponseWriter, r *http.Request) {
	principal, err := principalFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	requests, err := h.history.HistoryFor(r.Context(), principal.ID)
	if err != nil {
		h.logger.Error().Err(err).Int("user_id", principal.ID).Msg("fetch history")
		writeError(w, http.StatusInternalServerError, "failed to fetch history")
		return
	}
	writeJSON(w, http.StatusOK, requests)
}

// ExportHistory streams the principal's borrow history as a CSV
// attachment. An empty history answers 404.
func (h *MeHandler) ExportHistory(w http.ResponseWriter, r *http.Request) {
	principal, err := principalFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	data, err := h.history.ExportCSV(r.Context(), principal.ID)
	if err != nil {
		if errors.Is(err, services.ErrNoHistory) {
			writeError(w, http.StatusNotFound, "no borrow history to export")
			return
		}
		h.logger.Error().Err(err).Int("user_id", principal.ID).Msg("export history")
		writeError(w, http.StatusInternalServerError, "failed to export history")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+exportFilename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
