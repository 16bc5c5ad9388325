// Package httpapi exposes the User Directory service over HTTP: borrower
// CRUD plus the lookup-by-id the loan orchestrator depends on.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/juju/clock"
	jsoniter "github.com/json-iterator/go"

	"github.com/booklend/library-services-go/observability"
	"github.com/booklend/library-services-go/userservice/core"
)

var json = jsoniter.ConfigFastest

const (
	detailUserNotFound        = "User not found"
	detailEmailRegistered     = "Email already registered"
	detailInternalServerError = "Internal server error"
)

// BorrowerStore defines the persistence needed by the API.
type BorrowerStore interface {
	Insert(ctx context.Context, borrower core.Borrower) error
	GetByID(ctx context.Context, borrowerID uuid.UUID) (core.Borrower, error)
	List(ctx context.Context) ([]core.Borrower, error)
	Update(ctx context.Context, borrower core.Borrower, updatedAt time.Time) error
	Delete(ctx context.Context, borrowerID uuid.UUID) error
}

// API is the HTTP surface of the User Directory service.
type API struct {
	borrowers BorrowerStore
	clk       clock.Clock
	logger    observability.ContextualLogger
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

// NewAPI creates the API with the given borrower store.
func NewAPI(borrowers BorrowerStore, opts ...Option) *API {
	api := &API{
		borrowers: borrowers,
		clk:       clock.WallClock,
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

	users := router.PathPrefix("/api/users").Subrouter()
	users.HandleFunc("/", a.handleCreateUser).Methods(http.MethodPost)
	users.HandleFunc("/", a.handleListUsers).Methods(http.MethodGet)
	users.HandleFunc("/{userID}", a.handleGetUser).Methods(http.MethodGet)
	users.HandleFunc("/{userID}", a.handleUpdateUser).Methods(http.MethodPut)
	users.HandleFunc("/{userID}", a.handleDeleteUser).Methods(http.MethodDelete)

	return router
}

type createUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type updateUserRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Role  *string `json:"role"`
}

type userResponse struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func (a *API) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var request createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	role := core.Role(request.Role)

	if request.Name == "" || !validEmail(request.Email) || !role.IsValid() {
		writeError(w, http.StatusBadRequest, "Name, a valid email and a role of student or faculty are required")
		return
	}

	borrower := core.BuildBorrower(request.Name, request.Email, role, a.clk.Now().UTC())

	if err := a.borrowers.Insert(r.Context(), borrower); err != nil {
		if errors.Is(err, core.ErrDuplicateEmail) {
			writeError(w, http.StatusBadRequest, detailEmailRegistered)
			return
		}

		a.writeInternal(w, r, err)

		return
	}

	writeJSON(w, http.StatusCreated, userResponseFrom(borrower))
}

func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request) {
	borrowers, err := a.borrowers.List(r.Context())
	if err != nil {
		a.writeInternal(w, r, err)
		return
	}

	users := make([]userResponse, 0, len(borrowers))
	for _, borrower := range borrowers {
		users = append(users, userResponseFrom(borrower))
	}

	writeJSON(w, http.StatusOK, users)
}

func (a *API) handleGetUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUserID(w, r)
	if !ok {
		return
	}

	borrower, err := a.borrowers.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, core.ErrBorrowerNotFound) {
			writeError(w, http.StatusNotFound, detailUserNotFound)
			return
		}

		a.writeInternal(w, r, err)

		return
	}

	writeJSON(w, http.StatusOK, userResponseFrom(borrower))
}

func (a *API) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUserID(w, r)
	if !ok {
		return
	}

	var request updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	borrower, err := a.borrowers.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, core.ErrBorrowerNotFound) {
			writeError(w, http.StatusNotFound, detailUserNotFound)
			return
		}

		a.writeInternal(w, r, err)

		return
	}

	if request.Name != nil {
		borrower.Name = *request.Name
	}

	if request.Email != nil {
		if !validEmail(*request.Email) {
			writeError(w, http.StatusBadRequest, "Invalid email")
			return
		}

		borrower.Email = *request.Email
	}

	if request.Role != nil {
		role := core.Role(*request.Role)
		if !role.IsValid() {
			writeError(w, http.StatusBadRequest, "Role must be student or faculty")
			return
		}

		borrower.Role = role
	}

	now := a.clk.Now().UTC()

	if err = a.borrowers.Update(r.Context(), borrower, now); err != nil {
		if errors.Is(err, core.ErrBorrowerNotFound) {
			writeError(w, http.StatusNotFound, detailUserNotFound)
			return
		}

		a.writeInternal(w, r, err)

		return
	}

	borrower.UpdatedAt = &now

	writeJSON(w, http.StatusOK, userResponseFrom(borrower))
}

func (a *API) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUserID(w, r)
	if !ok {
		return
	}

	if err := a.borrowers.Delete(r.Context(), userID); err != nil {
		if errors.Is(err, core.ErrBorrowerNotFound) {
			writeError(w, http.StatusNotFound, detailUserNotFound)
			return
		}

		a.writeInternal(w, r, err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func userResponseFrom(borrower core.Borrower) userResponse {
	return userResponse{
		ID:        borrower.ID,
		Name:      borrower.Name,
		Email:     borrower.Email,
		Role:      string(borrower.Role),
		CreatedAt: borrower.CreatedAt,
		UpdatedAt: borrower.UpdatedAt,
	}
}

func pathUserID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["userID"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user id")
		return uuid.UUID{}, false
	}

	return id, true
}

func validEmail(email string) bool {
	at := strings.Index(email, "@")
	return at > 0 && strings.Contains(email[at+1:], ".")
}

func (a *API) writeInternal(w http.ResponseWriter, r *http.Request, err error) {
	if a.logger != nil {
		a.logger.ErrorContext(r.Context(), "directory request failed unexpectedly", "error", err)
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
