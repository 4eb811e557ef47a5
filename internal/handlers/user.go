package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/libranet/apiserver/internal/services"
	"github.com/libranet/apiserver/internal/store"
	"github.com/rs/zerolog"
)

// UserHandler provides librarian-facing account management endpoints.
type UserHandler struct {
	accounts *services.AccountService
	history  *services.HistoryService
	logger   zerolog.Logger
}

// NewUserHandler constructs a handler with the provided services.
func NewUserHandler(accounts *services.AccountService, history *services.HistoryService, logger zerolog.Logger) *UserHandler {
	return &UserHandler{accounts: accounts, history: history, logger: logger}
}

// UserRouter registers account management routes. All of them are
// librarian actions.
func UserRouter(r chi.Router, handler *UserHandler) {
	r.Use(RequireLibrarian)
	r.Post("/", handler.CreateUser)
	r.Patch("/{userID}", handler.UpdateUser)
	r.Get("/{userID}/history", handler.UserHistory)
	r.Post("/{userID}/history/archive", handler.ArchiveUserHistory)
}

// UserCreateRequest is the payload for creating an account.
type UserCreateRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req UserCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username, email, and password are required")
		return
	}

	user, err := h.accounts.Register(r.Context(), req.Username, req.Email, req.Password, req.Role)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrWeakPassword),
			errors.Is(err, services.ErrDuplicateUsername),
			errors.Is(err, services.ErrDuplicateEmail),
			errors.Is(err, services.ErrDuplicateAccount):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error().Err(err).Str("username", req.Username).Msg("create user")
			writeError(w, http.StatusInternalServerError, "failed to create user")
		}
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// UserUpdateRequest is the payload for mutating an account's role or
// active flag. Omitted fields are left unchanged.
type UserUpdateRequest struct {
	Role   *string `json:"role"`
	Active *bool   `json:"active"`
}

func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseUserID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req UserUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.Role == nil && req.Active == nil {
		writeError(w, http.StatusBadRequest, "nothing to update")
		return
	}

	user, err := h.accounts.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		h.logger.Error().Err(err).Int("user_id", id).Msg("load user")
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}

	if req.Role != nil {
		user, err = h.accounts.SetRole(r.Context(), id, *req.Role)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if req.Active != nil {
		user, err = h.accounts.SetActive(r.Context(), id, *req.Active)
		if err != nil {
			h.logger.Error().Err(err).Int("user_id", id).Msg("update user")
			writeError(w, http.StatusInternalServerError, "failed to update user")
			return
		}
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) UserHistory(w http.ResponseWriter, r *http.Request) {
	id, err := parseUserID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	requests, err := h.history.HistoryForUser(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		h.logger.Error().Err(err).Int("user_id", id).Msg("fetch user history")
		writeError(w, http.StatusInternalServerError, "failed to fetch history")
		return
	}
	writeJSON(w, http.StatusOK, requests)
}

// ArchiveResponse carries the object key of an archived export.
type ArchiveResponse struct {
	ObjectKey string `json:"object_key"`
}

func (h *UserHandler) ArchiveUserHistory(w http.ResponseWriter, r *http.Request) {
	id, err := parseUserID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.history.HistoryForUser(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		h.logger.Error().Err(err).Int("user_id", id).Msg("load user history")
		writeError(w, http.StatusInternalServerError, "failed to archive history")
		return
	}

	key, err := h.history.ArchiveExport(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNoHistory):
			writeError(w, http.StatusNotFound, "no borrow history to archive")
		case errors.Is(err, services.ErrArchiveUnavailable):
			writeError(w, http.StatusServiceUnavailable, "archive storage not configured")
		default:
			h.logger.Error().Err(err).Int("user_id", id).Msg("archive history")
			writeError(w, http.StatusInternalServerError, "failed to archive history")
		}
		return
	}

	writeJSON(w, http.StatusCreated, ArchiveResponse{ObjectKey: key})
}

func parseUserID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "userID")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, errors.New("invalid user id")
	}
	return id, nil
}
