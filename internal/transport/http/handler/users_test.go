package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/egovauthenticator/api/internal/application/user"
	"github.com/egovauthenticator/api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mock ---

type mockUserSvc struct{ mock.Mock }

func (m *mockUserSvc) Register(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	args := m.Called(ctx, req)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserSvc) Login(ctx context.Context, req domain.LoginRequest) (*user.LoginResult, error) {
	args := m.Called(ctx, req)
	if r, _ := args.Get(0).(*user.LoginResult); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserSvc) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserSvc) Update(ctx context.Context, userID string, req domain.UpdateUserRequest) (*domain.User, error) {
	args := m.Called(ctx, userID, req)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

// --- Register tests ---

func TestRegister_InvalidBody(t *testing.T) {
	svc := &mockUserSvc{}
	h := NewUserHandler(svc)
	r := httptest.NewRequest(http.MethodPost, "/v1/users", bytes.NewBufferString("not-json"))
	rr := httptest.NewRecorder()
	h.Register(rr, r)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRegister_ValidationFailure(t *testing.T) {
	svc := &mockUserSvc{}
	h := NewUserHandler(svc)
	body := jsonBody(t, domain.CreateUserRequest{Name: "Juan", Email: "juan@example.com", Password: "short"})
	r := httptest.NewRequest(http.MethodPost, "/v1/users", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Register(rr, r)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decodeEnvelope(t, rr).Error, "password")
	svc.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc := &mockUserSvc{}
	svc.On("Register", mock.Anything, mock.Anything).Return(nil, domain.ErrDuplicateUser)
	h := NewUserHandler(svc)
	body := jsonBody(t, domain.CreateUserRequest{Name: "Juan", Email: "juan@example.com", Password: "secret123"})
	r := httptest.NewRequest(http.MethodPost, "/v1/users", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Register(rr, r)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "email already in use by another account", decodeEnvelope(t, rr).Error)
}

func TestRegister_HappyPath(t *testing.T) {
	svc := &mockUserSvc{}
	svc.On("Register", mock.Anything, mock.Anything).
		Return(&domain.User{UserID: "u1", Email: "juan@example.com", PasswordHash: "hash"}, nil)
	h := NewUserHandler(svc)
	body := jsonBody(t, domain.CreateUserRequest{Name: "Juan", Email: "juan@example.com", Password: "secret123"})
	r := httptest.NewRequest(http.MethodPost, "/v1/users", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Register(rr, r)

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.NotContains(t, rr.Body.String(), "hash")
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "u1", resp["id"])
}

// --- Login tests ---

func TestLogin_HappyPath(t *testing.T) {
	svc := &mockUserSvc{}
	svc.On("Login", mock.Anything, domain.LoginRequest{Email: "juan@example.com", Password: "secret123"}).
		Return(&user.LoginResult{Bearer: "tok", User: &domain.User{UserID: "u1"}}, nil)
	h := NewSessionHandler(svc)
	body := jsonBody(t, domain.LoginRequest{Email: "juan@example.com", Password: "secret123"})
	rr := httptest.NewRecorder()
	h.Login(rr, httptest.NewRequest(http.MethodPost, "/v1/sessions/login", bytes.NewReader(body)))

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp AuthEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "tok", resp.Bearer)
	assert.Equal(t, "u1", resp.User.UserID)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc := &mockUserSvc{}
	svc.On("Login", mock.Anything, mock.Anything).Return(nil, domain.ErrUnauthorized)
	h := NewSessionHandler(svc)
	body := jsonBody(t, domain.LoginRequest{Email: "juan@example.com", Password: "nope"})
	rr := httptest.NewRecorder()
	h.Login(rr, httptest.NewRequest(http.MethodPost, "/v1/sessions/login", bytes.NewReader(body)))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

// --- Get tests ---

func TestGet_MissingClaims(t *testing.T) {
	svc := &mockUserSvc{}
	h := NewUserHandler(svc)
	r := withChiID(httptest.NewRequest(http.MethodGet, "/v1/users/u1", nil), "u1")
	rr := httptest.NewRecorder()
	h.Get(rr, r)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestGet_Owner(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockUserSvc{}
	svc.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1", Email: "juan@example.com"}, nil)
	h := NewUserHandler(svc)

	r := withChiID(bearerReq(t, p, http.MethodGet, "/v1/users/u1", "u1", domain.RoleUser, nil), "u1")
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.Get), rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
}

func TestGet_Admin(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockUserSvc{}
	svc.On("Get", mock.Anything, "u2").Return(&domain.User{UserID: "u2"}, nil)
	h := NewUserHandler(svc)

	r := withChiID(bearerReq(t, p, http.MethodGet, "/v1/users/u2", "admin1", domain.RoleAdmin, nil), "u2")
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.Get), rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestGet_OtherUserForbidden(t *testing.T) {
	svc := &mockUserSvc{}
	h := NewUserHandler(svc)

	r := withChiID(asUser(httptest.NewRequest(http.MethodGet, "/v1/users/u2", nil), "u1", domain.RoleUser), "u2")
	rr := httptest.NewRecorder()
	h.Get(rr, r)

	assert.Equal(t, http.StatusForbidden, rr.Code)
	svc.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestGet_NotFound(t *testing.T) {
	svc := &mockUserSvc{}
	svc.On("Get", mock.Anything, "u1").Return(nil, domain.ErrNotFound)
	h := NewUserHandler(svc)

	r := withChiID(asUser(httptest.NewRequest(http.MethodGet, "/v1/users/u1", nil), "u1", domain.RoleUser), "u1")
	rr := httptest.NewRecorder()
	h.Get(rr, r)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

// --- Update tests ---

func TestUpdate_DuplicateEmail(t *testing.T) {
	svc := &mockUserSvc{}
	req := domain.UpdateUserRequest{Name: "Juan", Email: "taken@example.com"}
	svc.On("Update", mock.Anything, "u1", req).Return(nil, domain.ErrDuplicateUser)
	h := NewUserHandler(svc)

	r := httptest.NewRequest(http.MethodPut, "/v1/users/u1", bytes.NewReader(jsonBody(t, req)))
	r = withChiID(asUser(r, "u1", domain.RoleUser), "u1")
	rr := httptest.NewRecorder()
	h.Update(rr, r)

	assert.Equal(t, http.StatusConflict, rr.Code)
	svc.AssertExpectations(t)
}

func TestUpdate_InvalidEmail(t *testing.T) {
	svc := &mockUserSvc{}
	h := NewUserHandler(svc)

	body := jsonBody(t, domain.UpdateUserRequest{Name: "Juan", Email: "not-an-email"})
	r := withChiID(asUser(httptest.NewRequest(http.MethodPut, "/v1/users/u1", bytes.NewReader(body)), "u1", domain.RoleUser), "u1")
	rr := httptest.NewRecorder()
	h.Update(rr, r)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUpdate_HappyPath(t *testing.T) {
	svc := &mockUserSvc{}
	req := domain.UpdateUserRequest{Name: "Juan D.", Email: "juan@example.com"}
	svc.On("Update", mock.Anything, "u1", req).Return(&domain.User{UserID: "u1", Name: "Juan D."}, nil)
	h := NewUserHandler(svc)

	r := withChiID(asUser(httptest.NewRequest(http.MethodPut, "/v1/users/u1", bytes.NewReader(jsonBody(t, req))), "u1", domain.RoleUser), "u1")
	rr := httptest.NewRecorder()
	h.Update(rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "Juan D.", resp["name"])
}
