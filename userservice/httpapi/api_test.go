package httpapi_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/booklend/library-services-go/userservice/core"
	"github.com/booklend/library-services-go/userservice/httpapi"
)

var json = jsoniter.ConfigFastest

var fixedNow = time.Date(2025, 3, 20, 12, 0, 0, 0, time.UTC)

type memoryBorrowerStore struct {
	borrowers map[uuid.UUID]core.Borrower
	err       error
}

func newMemoryBorrowerStore() *memoryBorrowerStore {
	return &memoryBorrowerStore{borrowers: make(map[uuid.UUID]core.Borrower)}
}

func (s *memoryBorrowerStore) Insert(_ context.Context, borrower core.Borrower) error {
	if s.err != nil {
		return s.err
	}

	for _, existing := range s.borrowers {
		if existing.Email == borrower.Email {
			return core.ErrDuplicateEmail
		}
	}

	s.borrowers[borrower.ID] = borrower

	return nil
}

func (s *memoryBorrowerStore) GetByID(_ context.Context, borrowerID uuid.UUID) (core.Borrower, error) {
	if s.err != nil {
		return core.Borrower{}, s.err
	}

	borrower, ok := s.borrowers[borrowerID]
	if !ok {
		return core.Borrower{}, core.ErrBorrowerNotFound
	}

	return borrower, nil
}

func (s *memoryBorrowerStore) List(_ context.Context) ([]core.Borrower, error) {
	if s.err != nil {
		return nil, s.err
	}

	all := make([]core.Borrower, 0, len(s.borrowers))
	for _, borrower := range s.borrowers {
		all = append(all, borrower)
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})

	return all, nil
}

func (s *memoryBorrowerStore) Update(_ context.Context, borrower core.Borrower, updatedAt time.Time) error {
	if s.err != nil {
		return s.err
	}

	if _, ok := s.borrowers[borrower.ID]; !ok {
		return core.ErrBorrowerNotFound
	}

	borrower.UpdatedAt = &updatedAt
	s.borrowers[borrower.ID] = borrower

	return nil
}

func (s *memoryBorrowerStore) Delete(_ context.Context, borrowerID uuid.UUID) error {
	if s.err != nil {
		return s.err
	}

	if _, ok := s.borrowers[borrowerID]; !ok {
		return core.ErrBorrowerNotFound
	}

	delete(s.borrowers, borrowerID)

	return nil
}

func newTestAPI() (*memoryBorrowerStore, http.Handler) {
	store := newMemoryBorrowerStore()
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

func Test_CreateUser_Created(t *testing.T) {
	// arrange
	_, router := newTestAPI()

	// act
	recorder := do(router, http.MethodPost, "/api/users/",
		`{"name":"Ada Lovelace","email":"ada@example.com","role":"student"}`)

	// assert
	require.Equal(t, http.StatusCreated, recorder.Code)

	var response struct {
		Name      string    `json:"name"`
		Role      string    `json:"role"`
		CreatedAt time.Time `json:"created_at"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Equal(t, "Ada Lovelace", response.Name)
	assert.Equal(t, "student", response.Role)
	assert.Equal(t, fixedNow, response.CreatedAt.UTC())
}

func Test_CreateUser_DuplicateEmail_400(t *testing.T) {
	// arrange
	_, router := newTestAPI()
	body := `{"name":"Ada Lovelace","email":"ada@example.com","role":"student"}`
	require.Equal(t, http.StatusCreated, do(router, http.MethodPost, "/api/users/", body).Code)

	// act
	recorder := do(router, http.MethodPost, "/api/users/", body)

	// assert
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, "Email already registered", detailOf(t, recorder))
}

func Test_CreateUser_RejectsInvalidInput(t *testing.T) {
	// arrange
	_, router := newTestAPI()

	bodies := map[string]string{
		"missing name":     `{"email":"ada@example.com","role":"student"}`,
		"email without at": `{"name":"Ada","email":"ada.example.com","role":"student"}`,
		"unknown role":     `{"name":"Ada","email":"ada@example.com","role":"librarian"}`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			// act
			recorder := do(router, http.MethodPost, "/api/users/", body)

			// assert
			assert.Equal(t, http.StatusBadRequest, recorder.Code)
		})
	}
}

func Test_GetUser_Unknown_404(t *testing.T) {
	// arrange
	_, router := newTestAPI()

	// act
	recorder := do(router, http.MethodGet, "/api/users/"+uuid.NewString(), "")

	// assert
	assert.Equal(t, http.StatusNotFound, recorder.Code)
	assert.Equal(t, "User not found", detailOf(t, recorder))
}

func Test_GetUser_MalformedID_400(t *testing.T) {
	// arrange
	_, router := newTestAPI()

	// act
	recorder := do(router, http.MethodGet, "/api/users/not-a-uuid", "")

	// assert
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func Test_ListUsers_OldestFirst(t *testing.T) {
	// arrange
	store, router := newTestAPI()

	older := core.BuildBorrower("Ada Lovelace", "ada@example.com", core.RoleStudent, fixedNow.Add(-time.Hour))
	newer := core.BuildBorrower("Grace Hopper", "grace@example.com", core.RoleFaculty, fixedNow)
	store.borrowers[newer.ID] = newer
	store.borrowers[older.ID] = older

	// act
	recorder := do(router, http.MethodGet, "/api/users/", "")

	// assert
	require.Equal(t, http.StatusOK, recorder.Code)

	var response []struct {
		Name string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	require.Len(t, response, 2)
	assert.Equal(t, "Ada Lovelace", response[0].Name)
	assert.Equal(t, "Grace Hopper", response[1].Name)
}

func Test_UpdateUser_RoleChangeAndTimestamp(t *testing.T) {
	// arrange
	store, router := newTestAPI()

	borrower := core.BuildBorrower("Ada Lovelace", "ada@example.com", core.RoleStudent, fixedNow.Add(-time.Hour))
	store.borrowers[borrower.ID] = borrower

	// act
	recorder := do(router, http.MethodPut, "/api/users/"+borrower.ID.String(), `{"role":"faculty"}`)

	// assert
	require.Equal(t, http.StatusOK, recorder.Code)

	updated := store.borrowers[borrower.ID]
	assert.Equal(t, core.RoleFaculty, updated.Role)
	assert.Equal(t, "ada@example.com", updated.Email)
	require.NotNil(t, updated.UpdatedAt)
	assert.Equal(t, fixedNow, updated.UpdatedAt.UTC())
}

func Test_UpdateUser_RejectsInvalidRole(t *testing.T) {
	// arrange
	store, router := newTestAPI()

	borrower := core.BuildBorrower("Ada Lovelace", "ada@example.com", core.RoleStudent, fixedNow)
	store.borrowers[borrower.ID] = borrower

	// act
	recorder := do(router, http.MethodPut, "/api/users/"+borrower.ID.String(), `{"role":"librarian"}`)

	// assert
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, core.RoleStudent, store.borrowers[borrower.ID].Role)
}

func Test_DeleteUser_204_ThenGone(t *testing.T) {
	// arrange
	store, router := newTestAPI()

	borrower := core.BuildBorrower("Ada Lovelace", "ada@example.com", core.RoleStudent, fixedNow)
	store.borrowers[borrower.ID] = borrower

	// act
	recorder := do(router, http.MethodDelete, "/api/users/"+borrower.ID.String(), "")

	// assert
	assert.Equal(t, http.StatusNoContent, recorder.Code)
	assert.Equal(t, http.StatusNotFound, do(router, http.MethodGet, "/api/users/"+borrower.ID.String(), "").Code)
}

func Test_InternalFailure_MapsTo500(t *testing.T) {
	// arrange
	store, router := newTestAPI()
	store.err = assert.AnError

	// act
	recorder := do(router, http.MethodGet, "/api/users/", "")

	// assert
	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	assert.Equal(t, "Internal server error", detailOf(t, recorder))
}
