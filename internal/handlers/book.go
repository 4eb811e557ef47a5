package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/libranet/apiserver/internal/services"
	"github.com/libranet/apiserver/types"
	"github.com/rs/zerolog"
)

// BookHandler provides HTTP handlers for the catalog.
type BookHandler struct {
	catalog *services.CatalogService
	logger  zerolog.Logger
}

// NewBookHandler constructs a handler with the provided catalog service.
func NewBookHandler(catalog *services.CatalogService, logger zerolog.Logger) *BookHandler {
	return &BookHandler{catalog: catalog, logger: logger}
}

// BookRouter registers catalog routes on the given router. Listing is
// open to any authenticated user; creation is a librarian action.
func BookRouter(r chi.Router, handler *BookHandler) {
	r.Get("/", handler.ListBooks)
	r.With(RequireLibrarian).Post("/", handler.CreateBook)
}

func (h *BookHandler) ListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.catalog.List(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("list books")
		writeError(w, http.StatusInternalServerError, "failed to list books")
		return
	}
	writeJSON(w, http.StatusOK, books)
}

// BookCreateRequest is the payload for creating a catalog book.
type BookCreateRequest struct {
	Title           string     `json:"title"`
	Author          string     `json:"author"`
	Publisher       string     `json:"publisher"`
	PublicationDate types.Date `json:"publication_date"`
	ISBN            string     `json:"isbn"`
	AvailableCopies int        `json:"available_copies"`
}

func (h *BookHandler) CreateBook(w http.ResponseWriter, r *http.Request) {
	var req BookCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	req.Author = strings.TrimSpace(req.Author)
	if req.Title == "" || req.Author == "" {
		writeError(w, http.StatusBadRequest, "title and author are required")
		return
	}

	book, err := h.catalog.Create(r.Context(), types.Book{
		Title:           req.Title,
		Author:          req.Author,
		Publisher:       strings.TrimSpace(req.Publisher),
		PublicationDate: req.PublicationDate,
		ISBN:            req.ISBN,
		AvailableCopies: req.AvailableCopies,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidISBN), errors.Is(err, services.ErrDuplicateISBN):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error().Err(err).Msg("create book")
			writeError(w, http.StatusInternalServerError, "failed to create book")
		}
		return
	}

	writeJSON(w, http.StatusCreated, book)
}
