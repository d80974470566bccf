package user

import (
	"context"
	"errors"
	"testing"

	"github.com/egovauthenticator/api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- mocks ---

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) Put(ctx context.Context, u *domain.User) error {
	return m.Called(ctx, u).Error(0)
}
func (m *mockUserStore) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) UpdateProfile(ctx context.Context, userID, name, email string) error {
	return m.Called(ctx, userID, name, email).Error(0)
}

type mockJWTSigner struct{ mock.Mock }

func (m *mockJWTSigner) Sign(userID, role string) (string, error) {
	args := m.Called(userID, role)
	return args.String(0), args.Error(1)
}

// --- helpers ---

func newService(us *mockUserStore, jwt *mockJWTSigner) Service {
	return NewService(ServiceDeps{UserRepo: us, JWTProvider: jwt})
}

func baseReq() domain.CreateUserRequest {
	return domain.CreateUserRequest{
		Name:     "Juan Dela Cruz",
		Email:    "Juan@Example.com ",
		Password: "password123",
	}
}

func hashed(t *testing.T, pw string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

// --- Register tests ---

func TestRegister_EmailConflict(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "juan@example.com").Return(&domain.User{UserID: "other"}, nil)

	_, err := newService(us, nil).Register(context.Background(), baseReq())

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDuplicateUser))
	assert.True(t, errors.Is(err, domain.ErrConflict))
	us.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestRegister_HappyPath(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "juan@example.com").Return(nil, nil)
	us.On("Put", mock.Anything, mock.AnythingOfType("*domain.User")).Return(nil)

	u, err := newService(us, nil).Register(context.Background(), baseReq())

	require.NoError(t, err)
	assert.NotEmpty(t, u.UserID)
	assert.Equal(t, "juan@example.com", u.Email)
	assert.Equal(t, domain.RoleUser, u.Role)
	assert.True(t, u.Enable)
	assert.NotEqual(t, "password123", u.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("password123")))
	us.AssertExpectations(t)
}

func TestRegister_StoreError(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, mock.Anything).Return(nil, errors.New("dynamo down"))

	_, err := newService(us, nil).Register(context.Background(), baseReq())
	assert.ErrorContains(t, err, "dynamo down")
}

// --- Login tests ---

func TestLogin_HappyPath(t *testing.T) {
	us := &mockUserStore{}
	jwt := &mockJWTSigner{}
	u := &domain.User{UserID: "u1", Role: domain.RoleUser, Enable: true, PasswordHash: hashed(t, "password123")}
	us.On("GetByEmail", mock.Anything, "juan@example.com").Return(u, nil)
	jwt.On("Sign", "u1", domain.RoleUser).Return("bearer-token", nil)

	res, err := newService(us, jwt).Login(context.Background(), domain.LoginRequest{Email: "JUAN@example.com", Password: "password123"})

	require.NoError(t, err)
	assert.Equal(t, "bearer-token", res.Bearer)
	assert.Equal(t, "u1", res.User.UserID)
}

func TestLogin_UnknownEmail(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "nobody@example.com").Return(nil, nil)

	_, err := newService(us, nil).Login(context.Background(), domain.LoginRequest{Email: "nobody@example.com", Password: "x"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestLogin_WrongPassword(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, mock.Anything).
		Return(&domain.User{UserID: "u1", Enable: true, PasswordHash: hashed(t, "password123")}, nil)

	_, err := newService(us, nil).Login(context.Background(), domain.LoginRequest{Email: "juan@example.com", Password: "wrong-pass"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestLogin_Disabled(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, mock.Anything).
		Return(&domain.User{UserID: "u1", Enable: false, PasswordHash: hashed(t, "password123")}, nil)

	_, err := newService(us, nil).Login(context.Background(), domain.LoginRequest{Email: "juan@example.com", Password: "password123"})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

// --- Get / Update tests ---

func TestGet_NotFound(t *testing.T) {
	us := &mockUserStore{}
	us.On("Get", mock.Anything, "u1").Return(nil, nil)

	_, err := newService(us, nil).Get(context.Background(), "u1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdate_EmailOwnedByAnotherUser(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "taken@example.com").Return(&domain.User{UserID: "u2"}, nil)

	_, err := newService(us, nil).Update(context.Background(), "u1", domain.UpdateUserRequest{Name: "Juan", Email: "taken@example.com"})

	assert.ErrorIs(t, err, domain.ErrDuplicateUser)
	us.AssertNotCalled(t, "UpdateProfile", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdate_KeepOwnEmail(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "juan@example.com").Return(&domain.User{UserID: "u1"}, nil)
	us.On("UpdateProfile", mock.Anything, "u1", "Juan D.", "juan@example.com").Return(nil)
	us.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1", Name: "Juan D.", Email: "juan@example.com"}, nil)

	u, err := newService(us, nil).Update(context.Background(), "u1", domain.UpdateUserRequest{Name: " Juan D. ", Email: "juan@example.com"})

	require.NoError(t, err)
	assert.Equal(t, "Juan D.", u.Name)
	us.AssertExpectations(t)
}

func TestUpdate_MissingUser(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, mock.Anything).Return(nil, nil)
	us.On("UpdateProfile", mock.Anything, "u1", "Juan", "new@example.com").Return(domain.ErrNotFound)

	_, err := newService(us, nil).Update(context.Background(), "u1", domain.UpdateUserRequest{Name: "Juan", Email: "new@example.com"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
