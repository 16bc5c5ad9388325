package httpapi_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/booklend/library-services-go/bookservice/core"
	"github.com/booklend/library-services-go/bookservice/httpapi"
	"github.com/booklend/library-services-go/bookservice/postgres"
)

var json = jsoniter.ConfigFastest

var fixedNow = time.Date(2025, 3, 20, 12, 0, 0, 0, time.UTC)

// memoryBookStore mimics the conditional-update semantics of the real store.
type memoryBookStore struct {
	books map[uuid.UUID]core.Book
	err   error
}

func newMemoryBookStore() *memoryBookStore {
	return &memoryBookStore{books: make(map[uuid.UUID]core.Book)}
}

func (s *memoryBookStore) Insert(_ context.Context, book core.Book) error {
	if s.err != nil {
		return s.err
	}

	for _, existing := range s.books {
		if existing.ISBN == book.ISBN {
			return core.ErrDuplicateISBN
		}
	}

	s.books[book.ID] = book

	return nil
}

func (s *memoryBookStore) GetByID(_ context.Context, bookID uuid.UUID) (core.Book, error) {
	if s.err != nil {
		return core.Book{}, s.err
	}

	book, ok := s.books[bookID]
	if !ok {
		return core.Book{}, core.ErrBookNotFound
	}

	return book, nil
}

func (s *memoryBookStore) Search(_ context.Context, term string, page int, perPage int) (postgres.SearchResult, error) {
	if s.err != nil {
		return postgres.SearchResult{}, s.err
	}

	matches := make([]core.Book, 0, len(s.books))

	for _, book := range s.books {
		if term == "" ||
			strings.Contains(strings.ToLower(book.Title), strings.ToLower(term)) ||
			strings.Contains(strings.ToLower(book.Author), strings.ToLower(term)) ||
			strings.Contains(book.ISBN, term) {
			matches = append(matches, book)
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.Before(matches[j].CreatedAt)
	})

	total := len(matches)
	offset := (page - 1) * perPage

	if offset >= len(matches) {
		matches = nil
	} else if offset+perPage < len(matches) {
		matches = matches[offset : offset+perPage]
	} else {
		matches = matches[offset:]
	}

	return postgres.SearchResult{Books: matches, Total: total, Page: page, PerPage: perPage}, nil
}

func (s *memoryBookStore) Update(_ context.Context, book core.Book, updatedAt time.Time) error {
	if s.err != nil {
		return s.err
	}

	if _, ok := s.books[book.ID]; !ok {
		return core.ErrBookNotFound
	}

	book.UpdatedAt = &updatedAt
	s.books[book.ID] = book

	return nil
}

func (s *memoryBookStore) Delete(_ context.Context, bookID uuid.UUID) error {
	if s.err != nil {
		return s.err
	}

	if _, ok := s.books[bookID]; !ok {
		return core.ErrBookNotFound
	}

	delete(s.books, bookID)

	return nil
}

func (s *memoryBookStore) AdjustAvailability(
	_ context.Context,
	bookID uuid.UUID,
	delta int,
	updatedAt time.Time,
) (core.Book, error) {

	if s.err != nil {
		return core.Book{}, s.err
	}

	book, ok := s.books[bookID]
	if !ok {
		return core.Book{}, core.ErrBookNotFound
	}

	if book.AvailableCopies+delta < 0 {
		return core.Book{}, core.ErrInsufficientCopies
	}

	book.AvailableCopies += delta
	book.UpdatedAt = &updatedAt
	s.books[bookID] = book

	return book, nil
}

func newTestAPI() (*memoryBookStore, http.Handler) {
	store := newMemoryBookStore()
	api := httpapi.NewAPI(store, httpapi.WithClock(testclock.NewClock(fixedNow)))

	return store, api.Router()
}

func do(router http.Handler, method string, path string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	return recorder
}

func detailOf(t *testing.T, recorder *httptest.ResponseRecorder) string {
	t.Helper()

	var payload struct {
		Detail string `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &payload))

	return payload.Detail
}

func Test_CreateBook_AvailableEqualsTotalCopies(t *testing.T) {
	// arrange
	_, router := newTestAPI()
	body := `{"title":"Clean Architecture","author":"Martin","isbn":"9780134494166","copies":3}`

	// act
	recorder := do(router, http.MethodPost, "/api/books/", body)

	// assert
	require.Equal(t, http.StatusCreated, recorder.Code)

	var response struct {
		AvailableCopies int       `json:"available_copies"`
		Copies          int       `json:"copies"`
		CreatedAt       time.Time `json:"created_at"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Equal(t, 3, response.Copies)
	assert.Equal(t, 3, response.AvailableCopies)
	assert.Equal(t, fixedNow, response.CreatedAt.UTC())
}

func Test_CreateBook_DuplicateISBN_400(t *testing.T) {
	// arrange
	_, router := newTestAPI()
	body := `{"title":"Clean Architecture","author":"Martin","isbn":"9780134494166","copies":3}`
	require.Equal(t, http.StatusCreated, do(router, http.MethodPost, "/api/books/", body).Code)

	// act
	recorder := do(router, http.MethodPost, "/api/books/", body)

	// assert
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, "ISBN already exists", detailOf(t, recorder))
}

func Test_CreateBook_MissingFields_400(t *testing.T) {
	// arrange
	_, router := newTestAPI()

	// act
	recorder := do(router, http.MethodPost, "/api/books/", `{"title":"Clean Architecture","copies":0}`)

	// assert
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func Test_GetBook_Unknown_404(t *testing.T) {
	// arrange
	_, router := newTestAPI()

	// act
	recorder := do(router, http.MethodGet, "/api/books/"+uuid.NewString(), "")

	// assert
	assert.Equal(t, http.StatusNotFound, recorder.Code)
	assert.Equal(t, "Book not found", detailOf(t, recorder))
}

func Test_SearchBooks_MatchesTitleAndClampsPerPage(t *testing.T) {
	// arrange
	store, router := newTestAPI()

	book := core.BuildBook("Clean Architecture", "Martin", "9780134494166", 2, fixedNow)
	other := core.BuildBook("Domain-Driven Design", "Evans", "9780321125217", 1, fixedNow.Add(time.Minute))
	store.books[book.ID] = book
	store.books[other.ID] = other

	// act
	recorder := do(router, http.MethodGet, "/api/books/?search=clean&per_page=500", "")

	// assert
	require.Equal(t, http.StatusOK, recorder.Code)

	var response struct {
		Books   []struct{ Title string } `json:"books"`
		Total   int                      `json:"total"`
		Page    int                      `json:"page"`
		PerPage int                      `json:"per_page"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	require.Len(t, response.Books, 1)
	assert.Equal(t, "Clean Architecture", response.Books[0].Title)
	assert.Equal(t, 1, response.Total)
	assert.Equal(t, 1, response.Page)
	assert.Equal(t, 100, response.PerPage)
}

func Test_AdjustAvailability_DecrementBelowZero_400(t *testing.T) {
	// arrange
	store, router := newTestAPI()

	book := core.BuildBook("Clean Architecture", "Martin", "9780134494166", 1, fixedNow)
	book.AvailableCopies = 0
	store.books[book.ID] = book

	// act
	recorder := do(router, http.MethodPatch, "/api/books/"+book.ID.String()+"/availability",
		`{"available_copies":1,"operation":"decrement"}`)

	// assert
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, "Not enough available copies", detailOf(t, recorder))
	assert.Zero(t, store.books[book.ID].AvailableCopies)
}

func Test_AdjustAvailability_IncrementSucceeds(t *testing.T) {
	// arrange
	store, router := newTestAPI()

	book := core.BuildBook("Clean Architecture", "Martin", "9780134494166", 2, fixedNow)
	book.AvailableCopies = 1
	store.books[book.ID] = book

	// act
	recorder := do(router, http.MethodPatch, "/api/books/"+book.ID.String()+"/availability",
		`{"available_copies":1,"operation":"increment"}`)

	// assert
	require.Equal(t, http.StatusOK, recorder.Code)

	var response struct {
		AvailableCopies int `json:"available_copies"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Equal(t, 2, response.AvailableCopies)
}

func Test_AdjustAvailability_UnknownOperation_400(t *testing.T) {
	// arrange
	store, router := newTestAPI()

	book := core.BuildBook("Clean Architecture", "Martin", "9780134494166", 1, fixedNow)
	store.books[book.ID] = book

	// act
	recorder := do(router, http.MethodPatch, "/api/books/"+book.ID.String()+"/availability",
		`{"available_copies":1,"operation":"reset"}`)

	// assert
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, "Invalid operation", detailOf(t, recorder))
}

func Test_UpdateBook_PartialFieldsAndTimestamp(t *testing.T) {
	// arrange
	store, router := newTestAPI()

	book := core.BuildBook("Clean Architecture", "Martin", "9780134494166", 2, fixedNow.Add(-time.Hour))
	store.books[book.ID] = book

	// act
	recorder := do(router, http.MethodPut, "/api/books/"+book.ID.String(), `{"title":"Clean Architecture, 2nd"}`)

	// assert
	require.Equal(t, http.StatusOK, recorder.Code)

	updated := store.books[book.ID]
	assert.Equal(t, "Clean Architecture, 2nd", updated.Title)
	assert.Equal(t, "Martin", updated.Author)
	require.NotNil(t, updated.UpdatedAt)
	assert.Equal(t, fixedNow, updated.UpdatedAt.UTC())
}

func Test_DeleteBook_204_ThenGone(t *testing.T) {
	// arrange
	store, router := newTestAPI()

	book := core.BuildBook("Clean Architecture", "Martin", "9780134494166", 1, fixedNow)
	store.books[book.ID] = book

	// act
	recorder := do(router, http.MethodDelete, "/api/books/"+book.ID.String(), "")

	// assert
	assert.Equal(t, http.StatusNoContent, recorder.Code)
	assert.Equal(t, http.StatusNotFound, do(router, http.MethodGet, "/api/books/"+book.ID.String(), "").Code)
}

func Test_InternalFailure_MapsTo500(t *testing.T) {
	// arrange
	store, router := newTestAPI()
	store.err = assert.AnError

	// act
	recorder := do(router, http.MethodGet, "/api/books/"+uuid.NewString(), "")

	// assert
	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	assert.Equal(t, "Internal server error", detailOf(t, recorder))
}
