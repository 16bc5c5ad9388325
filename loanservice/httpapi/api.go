package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"

	"github.com/booklend/library-services-go/loanservice/core"
	"github.com/booklend/library-services-go/loanservice/features/command/extendloan"
	"github.com/booklend/library-services-go/loanservice/features/command/issueloan"
	"github.com/booklend/library-services-go/loanservice/features/command/returnloan"
	"github.com/booklend/library-services-go/loanservice/features/query/loandetails"
	"github.com/booklend/library-services-go/loanservice/features/query/loanhistory"
	"github.com/booklend/library-services-go/loanservice/features/query/loanstats"
	"github.com/booklend/library-services-go/loanservice/features/query/overdueloans"
	"github.com/booklend/library-services-go/loanservice/shell"
)

var json = jsoniter.ConfigFastest

// Handlers groups the feature handlers served by the API.
type Handlers struct {
	IssueLoan    issueloan.CommandHandler
	ReturnLoan   returnloan.CommandHandler
	ExtendLoan   extendloan.CommandHandler
	LoanDetails  loandetails.QueryHandler
	LoanHistory  loanhistory.QueryHandler
	OverdueLoans overdueloans.QueryHandler
	LoanStats    loanstats.QueryHandler
}

// API is the HTTP surface of the loan orchestrator.
type API struct {
	handlers Handlers
	logger   shell.ContextualLogger
}

// Option configures an API.
type Option func(*API)

// WithContextualLogger sets the logger for request-level diagnostics.
func WithContextualLogger(logger shell.ContextualLogger) Option {
	return func(a *API) {
		a.logger = logger
	}
}

// NewAPI creates the API with the given feature handlers.
func NewAPI(handlers Handlers, opts ...Option) *API {
	api := &API{handlers: handlers}

	for _, opt := range opts {
		opt(api)
	}

	return api
}

// Router builds the gorilla/mux router. Static paths are registered before
// the parameterized ones so "overdue" is never read as a loan id.
func (a *API) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/health", handleHealth).Methods(http.MethodGet)

	loans := router.PathPrefix("/api/loans").Subrouter()
	loans.HandleFunc("/", a.handleIssueLoan).Methods(http.MethodPost)
	loans.HandleFunc("/returns/", a.handleReturnLoan).Methods(http.MethodPost)
	loans.HandleFunc("/overdue", a.handleOverdueLoans).Methods(http.MethodGet)
	loans.HandleFunc("/stats/overview", a.handleLoanStats).Methods(http.MethodGet)
	loans.HandleFunc("/user/{userID}", a.handleLoanHistory).Methods(http.MethodGet)
	loans.HandleFunc("/{loanID}", a.handleLoanDetails).Methods(http.MethodGet)
	loans.HandleFunc("/{loanID}/extend", a.handleExtendLoan).Methods(http.MethodPut)

	return router
}

type issueLoanRequest struct {
	UserID  string    `json:"user_id"`
	BookID  string    `json:"book_id"`
	DueDate time.Time `json:"due_date"`
}

type returnLoanRequest struct {
	LoanID string `json:"loan_id"`
}

type extendLoanRequest struct {
	ExtensionDays int `json:"extension_days"`
}

type loanResponse struct {
	ID              uuid.UUID  `json:"id"`
	UserID          uuid.UUID  `json:"user_id"`
	BookID          uuid.UUID  `json:"book_id"`
	IssueDate       time.Time  `json:"issue_date"`
	DueDate         time.Time  `json:"due_date"`
	ReturnDate      *time.Time `json:"return_date"`
	Status          string     `json:"status"`
	ExtensionsCount int        `json:"extensions_count"`
}

type extensionResponse struct {
	ID              uuid.UUID `json:"id"`
	UserID          uuid.UUID `json:"user_id"`
	BookID          uuid.UUID `json:"book_id"`
	IssueDate       time.Time `json:"issue_date"`
	OriginalDueDate time.Time `json:"original_due_date"`
	ExtendedDueDate time.Time `json:"extended_due_date"`
	Status          string    `json:"status"`
	ExtensionsCount int       `json:"extensions_count"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func (a *API) handleIssueLoan(w http.ResponseWriter, r *http.Request) {
	var request issueLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}

	userID, err := uuid.Parse(request.UserID)
	if err != nil {
		writeBadRequest(w, "Invalid user id")
		return
	}

	bookID, err := uuid.Parse(request.BookID)
	if err != nil {
		writeBadRequest(w, "Invalid book id")
		return
	}

	if request.DueDate.IsZero() {
		writeBadRequest(w, "Due date is required")
		return
	}

	loan, err := a.handlers.IssueLoan.Handle(r.Context(), issueloan.BuildCommand(userID, bookID, request.DueDate))
	if err != nil {
		a.writeError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusCreated, loanResponseFrom(loan))
}

func (a *API) handleReturnLoan(w http.ResponseWriter, r *http.Request) {
	var request returnLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}

	loanID, err := uuid.Parse(request.LoanID)
	if err != nil {
		writeBadRequest(w, "Invalid loan id")
		return
	}

	loan, err := a.handlers.ReturnLoan.Handle(r.Context(), returnloan.BuildCommand(loanID))
	if err != nil {
		a.writeError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, loanResponseFrom(loan))
}

func (a *API) handleExtendLoan(w http.ResponseWriter, r *http.Request) {
	loanID, ok := pathID(w, r, "loanID", "Invalid loan id")
	if !ok {
		return
	}

	var request extendLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}

	extension, err := a.handlers.ExtendLoan.Handle(r.Context(), extendloan.BuildCommand(loanID, request.ExtensionDays))
	if err != nil {
		a.writeError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, extensionResponse{
		ID:              extension.Loan.ID,
		UserID:          extension.Loan.UserID,
		BookID:          extension.Loan.BookID,
		IssueDate:       extension.Loan.IssueDate,
		OriginalDueDate: extension.OriginalDueDate,
		ExtendedDueDate: extension.ExtendedDueDate,
		Status:          string(extension.Loan.Status),
		ExtensionsCount: extension.Loan.ExtensionsCount,
	})
}

func (a *API) handleLoanDetails(w http.ResponseWriter, r *http.Request) {
	loanID, ok := pathID(w, r, "loanID", "Invalid loan id")
	if !ok {
		return
	}

	result, err := a.handlers.LoanDetails.Handle(r.Context(), loandetails.BuildQuery(loanID))
	if err != nil {
		a.writeError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleLoanHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userID", "Invalid user id")
	if !ok {
		return
	}

	result, err := a.handlers.LoanHistory.Handle(r.Context(), loanhistory.BuildQuery(userID))
	if err != nil {
		a.writeError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleOverdueLoans(w http.ResponseWriter, r *http.Request) {
	result, err := a.handlers.OverdueLoans.Handle(r.Context(), overdueloans.BuildQuery())
	if err != nil {
		a.writeError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleLoanStats(w http.ResponseWriter, r *http.Request) {
	result, err := a.handlers.LoanStats.Handle(r.Context(), loanstats.BuildQuery())
	if err != nil {
		a.writeError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func loanResponseFrom(loan core.Loan) loanResponse {
	return loanResponse{
		ID:              loan.ID,
		UserID:          loan.UserID,
		BookID:          loan.BookID,
		IssueDate:       loan.IssueDate,
		DueDate:         loan.DueDate,
		ReturnDate:      loan.ReturnDate,
		Status:          string(loan.Status),
		ExtensionsCount: loan.ExtensionsCount,
	}
}

func pathID(w http.ResponseWriter, r *http.Request, name string, badRequestDetail string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		writeBadRequest(w, badRequestDetail)
		return uuid.UUID{}, false
	}

	return id, true
}

func (a *API) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	kind := shell.KindOf(err)

	if kind == shell.KindInternal && a.logger != nil {
		a.logger.ErrorContext(ctx, "workflow failed unexpectedly", "error", err)
	}

	writeJSON(w, statusCodeFor(kind), errorResponse{Detail: shell.DetailOf(err)})
}

func statusCodeFor(kind shell.Kind) int {
	switch kind {
	case shell.KindNotFound:
		return http.StatusNotFound
	case shell.KindInvalidOperation:
		return http.StatusBadRequest
	case shell.KindDependencyUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeBadRequest(w http.ResponseWriter, detail string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Detail: detail})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
