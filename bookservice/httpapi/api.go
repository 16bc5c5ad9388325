// Package httpapi exposes the Catalog service over HTTP: book CRUD, search,
// and the signed-delta availability adjustment the loan orchestrator calls.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/juju/clock"
	jsoniter "github.com/json-iterator/go"

	"github.com/booklend/library-services-go/bookservice/core"
	"github.com/booklend/library-services-go/bookservice/postgres"
	"github.com/booklend/library-services-go/observability"
)

var json = jsoniter.ConfigFastest

const (
	detailBookNotFound        = "Book not found"
	detailISBNExists          = "ISBN already exists"
	detailInsufficientCopies  = "Not enough available copies"
	detailInvalidOperation    = "Invalid operation"
	detailInternalServerError = "Internal server error"

	operationIncrement = "increment"
	operationDecrement = "decrement"

	defaultPerPage = 10
	maxPerPage     = 100
)

// BookStore defines the persistence needed by the API.
type BookStore interface {
	Insert(ctx context.Context, book core.Book) error
	GetByID(ctx context.Context, bookID uuid.UUID) (core.Book, error)
	Search(ctx context.Context, term string, page int, perPage int) (postgres.SearchResult, error)
	Update(ctx context.Context, book core.Book, updatedAt time.Time) error
	Delete(ctx context.Context, bookID uuid.UUID) error
	AdjustAvailability(ctx context.Context, bookID uuid.UUID, delta int, updatedAt time.Time) (core.Book, error)
}

// API is the HTTP surface of the Catalog service.
type API struct {
	books  BookStore
	clk    clock.Clock
	logger observability.ContextualLogger
}

// Option configures an API.
type Option func(*API)

// WithClock replaces the wall clock, enabling deterministic tests.
func WithClock(clk clock.Clock) Option {
	return func(a *API) {
		a.clk = clk
	}
}

// WithContextualLogger sets the logger for request-level diagnostics.
func WithContextualLogger(logger observability.ContextualLogger) Option {
	return func(a *API) {
		a.logger = logger
	}
}

// NewAPI creates the API with the given book store.
func NewAPI(books BookStore, opts ...Option) *API {
	api := &API{
		books: books,
		clk:   clock.WallClock,
	}

	for _, opt := range opts {
		opt(api)
	}

	return api
}

// Router builds the gorilla/mux router.
func (a *API) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/health", handleHealth).Methods(http.MethodGet)

	books := router.PathPrefix("/api/books").Subrouter()
	books.HandleFunc("/", a.handleCreateBook).Methods(http.MethodPost)
	books.HandleFunc("/", a.handleSearchBooks).Methods(http.MethodGet)
	books.HandleFunc("/{bookID}", a.handleGetBook).Methods(http.MethodGet)
	books.HandleFunc("/{bookID}", a.handleUpdateBook).Methods(http.MethodPut)
	books.HandleFunc("/{bookID}", a.handleDeleteBook).Methods(http.MethodDelete)
	books.HandleFunc("/{bookID}/availability", a.handleAdjustAvailability).Methods(http.MethodPatch)

	return router
}

type createBookRequest struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	ISBN   string `json:"isbn"`
	Copies int    `json:"copies"`
}

type updateBookRequest struct {
	Title           *string `json:"title"`
	Author          *string `json:"author"`
	ISBN            *string `json:"isbn"`
	Copies          *int    `json:"copies"`
	AvailableCopies *int    `json:"available_copies"`
}

type adjustAvailabilityRequest struct {
	AvailableCopies int    `json:"available_copies"`
	Operation       string `json:"operation"`
}

type bookResponse struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	Author          string     `json:"author"`
	ISBN            string     `json:"isbn"`
	Copies          int        `json:"copies"`
	AvailableCopies int        `json:"available_copies"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       *time.Time `json:"updated_at"`
}

type searchBooksResponse struct {
	Books   []bookResponse `json:"books"`
	Total   int            `json:"total"`
	Page    int            `json:"page"`
	PerPage int            `json:"per_page"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func (a *API) handleCreateBook(w http.ResponseWriter, r *http.Request) {
	var request createBookRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if request.Title == "" || request.Author == "" || request.ISBN == "" || request.Copies < 1 {
		writeError(w, http.StatusBadRequest, "Title, author, ISBN and a positive copy count are required")
		return
	}

	book := core.BuildBook(request.Title, request.Author, request.ISBN, request.Copies, a.clk.Now().UTC())

	if err := a.books.Insert(r.Context(), book); err != nil {
		if errors.Is(err, core.ErrDuplicateISBN) {
			writeError(w, http.StatusBadRequest, detailISBNExists)
			return
		}

		a.writeInternal(w, r, err)

		return
	}

	writeJSON(w, http.StatusCreated, bookResponseFrom(book))
}

func (a *API) handleSearchBooks(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	page := queryInt(query.Get("page"), 1)
	perPage := queryInt(query.Get("per_page"), defaultPerPage)

	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	result, err := a.books.Search(r.Context(), query.Get("search"), page, perPage)
	if err != nil {
		a.writeInternal(w, r, err)
		return
	}

	books := make([]bookResponse, 0, len(result.Books))
	for _, book := range result.Books {
		books = append(books, bookResponseFrom(book))
	}

	writeJSON(w, http.StatusOK, searchBooksResponse{
		Books:   books,
		Total:   result.Total,
		Page:    result.Page,
		PerPage: result.PerPage,
	})
}

func (a *API) handleGetBook(w http.ResponseWriter, r *http.Request) {
	bookID, ok := pathBookID(w, r)
	if !ok {
		return
	}

	book, err := a.books.GetByID(r.Context(), bookID)
	if err != nil {
		if errors.Is(err, core.ErrBookNotFound) {
			writeError(w, http.StatusNotFound, detailBookNotFound)
			return
		}

		a.writeInternal(w, r, err)

		return
	}

	writeJSON(w, http.StatusOK, bookResponseFrom(book))
}

func (a *API) handleUpdateBook(w http.ResponseWriter, r *http.Request) {
	bookID, ok := pathBookID(w, r)
	if !ok {
		return
	}

	var request updateBookRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	book, err := a.books.GetByID(r.Context(), bookID)
	if err != nil {
		if errors.Is(err, core.ErrBookNotFound) {
			writeError(w, http.StatusNotFound, detailBookNotFound)
			return
		}

		a.writeInternal(w, r, err)

		return
	}

	if request.Title != nil {
		book.Title = *request.Title
	}

	if request.Author != nil {
		book.Author = *request.Author
	}

	if request.ISBN != nil {
		book.ISBN = *request.ISBN
	}

	if request.Copies != nil {
		book.Copies = *request.Copies
	}

	if request.AvailableCopies != nil {
		book.AvailableCopies = *request.AvailableCopies
	}

	now := a.clk.Now().UTC()

	if err = a.books.Update(r.Context(), book, now); err != nil {
		if errors.Is(err, core.ErrBookNotFound) {
			writeError(w, http.StatusNotFound, detailBookNotFound)
			return
		}

		a.writeInternal(w, r, err)

		return
	}

	book.UpdatedAt = &now

	writeJSON(w, http.StatusOK, bookResponseFrom(book))
}

func (a *API) handleDeleteBook(w http.ResponseWriter, r *http.Request) {
	bookID, ok := pathBookID(w, r)
	if !ok {
		return
	}

	if err := a.books.Delete(r.Context(), bookID); err != nil {
		if errors.Is(err, core.ErrBookNotFound) {
			writeError(w, http.StatusNotFound, detailBookNotFound)
			return
		}

		a.writeInternal(w, r, err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleAdjustAvailability(w http.ResponseWriter, r *http.Request) {
	bookID, ok := pathBookID(w, r)
	if !ok {
		return
	}

	var request adjustAvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if request.AvailableCopies < 1 {
		writeError(w, http.StatusBadRequest, "Copy count must be positive")
		return
	}

	var delta int

	switch request.Operation {
	case operationIncrement:
		delta = request.AvailableCopies
	case operationDecrement:
		delta = -request.AvailableCopies
	default:
		writeError(w, http.StatusBadRequest, detailInvalidOperation)
		return
	}

	book, err := a.books.AdjustAvailability(r.Context(), bookID, delta, a.clk.Now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, core.ErrBookNotFound):
			writeError(w, http.StatusNotFound, detailBookNotFound)
		case errors.Is(err, core.ErrInsufficientCopies):
			writeError(w, http.StatusBadRequest, detailInsufficientCopies)
		default:
			a.writeInternal(w, r, err)
		}

		return
	}

	writeJSON(w, http.StatusOK, bookResponseFrom(book))
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func bookResponseFrom(book core.Book) bookResponse {
	return bookResponse{
		ID:              book.ID,
		Title:           book.Title,
		Author:          book.Author,
		ISBN:            book.ISBN,
		Copies:          book.Copies,
		AvailableCopies: book.AvailableCopies,
		CreatedAt:       book.CreatedAt,
		UpdatedAt:       book.UpdatedAt,
	}
}

func pathBookID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["bookID"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid book id")
		return uuid.UUID{}, false
	}

	return id, true
}

func queryInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}

	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return fallback
	}

	return value
}

func (a *API) writeInternal(w http.ResponseWriter, r *http.Request, err error) {
	if a.logger != nil {
		a.logger.ErrorContext(r.Context(), "catalog request failed unexpectedly", "error", err)
	}

	writeError(w, http.StatusInternalServerError, detailInternalServerError)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
