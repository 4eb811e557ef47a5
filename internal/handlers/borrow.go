package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/libranet/apiserver/internal/services"
	"github.com/libranet/apiserver/internal/store"
	"github.com/libranet/apiserver/types"
	"github.com/rs/zerolog"
)

// BorrowHandler provides HTTP handlers for borrow requests.
type BorrowHandler struct {
	borrow *services.BorrowService
	logger zerolog.Logger
}

// NewBorrowHandler constructs a handler with the provided borrow service.
func NewBorrowHandler(borrow *services.BorrowService, logger zerolog.Logger) *BorrowHandler {
	return &BorrowHandler{borrow: borrow, logger: logger}
}

// BorrowRouter registers borrow-request routes. Submission is a patron
// action; listing and deciding are librarian actions.
func BorrowRouter(r chi.Router, handler *BorrowHandler) {
	r.Post("/", handler.SubmitRequest)
	r.With(RequireLibrarian).Get("/", handler.ListRequests)
	r.With(RequireLibrarian).Put("/{requestID}", handler.DecideRequest)
}

// BorrowSubmitRequest is the payload for submitting a borrow request.
type BorrowSubmitRequest struct {
	BookID     int        `json:"book_id"`
	BorrowDate types.Date `json:"borrow_date"`
	ReturnDate types.Date `json:"return_date"`
}

func (h *BorrowHandler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	principal, err := principalFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req BorrowSubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.BookID < 1 {
		writeError(w, http.StatusBadRequest, "book_id is required")
		return
	}

	request, err := h.borrow.Submit(r.Context(), req.BookID, principal, req.BorrowDate, req.ReturnDate)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidDateRange),
			errors.Is(err, services.ErrInactiveAccount),
			errors.Is(err, services.ErrBookUnavailable),
			errors.Is(err, services.ErrDuplicateRequest):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "book not found")
		default:
			h.logger.Error().Err(err).Int("book_id", req.BookID).Msg("submit borrow request")
			writeError(w, http.StatusInternalServerError, "failed to submit borrow request")
		}
		return
	}

	writeJSON(w, http.StatusCreated, request)
}

func (h *BorrowHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.borrow.ListAll(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("list borrow requests")
		writeError(w, http.StatusInternalServerError, "failed to list borrow requests")
		return
	}
	writeJSON(w, http.StatusOK, requests)
}

// BorrowDecideRequest is the payload for deciding a borrow request.
type BorrowDecideRequest struct {
	Status types.BorrowStatus `json:"status"`
}

func (h *BorrowHandler) DecideRequest(w http.ResponseWriter, r *http.Request) {
	principal, err := principalFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseRequestID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req BorrowDecideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	request, err := h.borrow.Decide(r.Context(), id, req.Status, principal)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidStatus),
			errors.Is(err, services.ErrBookUnavailable):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, services.ErrAlreadyDecided):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "borrow request not found")
		default:
			h.logger.Error().Err(err).Int("request_id", id).Msg("decide borrow request")
			writeError(w, http.StatusInternalServerError, "failed to decide borrow request")
		}
		return
	}

	writeJSON(w, http.StatusOK, request)
}

func parseRequestID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "requestID")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, errors.New("invalid request id")
	}
	return id, nil
}
