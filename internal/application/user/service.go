package user

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/egovauthenticator/api/internal/domain"
	"github.com/egovauthenticator/api/internal/pkg/id"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// LoginResult is returned on a successful login.
type LoginResult struct {
	Bearer string       `json:"bearer"`
	User   *domain.User `json:"user"`
}

type Service interface {
	Register(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error)
	Login(ctx context.Context, req domain.LoginRequest) (*LoginResult, error)
	Get(ctx context.Context, userID string) (*domain.User, error)
	Update(ctx context.Context, userID string, req domain.UpdateUserRequest) (*domain.User, error)
}

type userStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Put(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, userID string) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID, name, email string) error
}

type jwtSigner interface {
	Sign(userID, role string) (string, error)
}

type service struct {
	repo        userStore
	jwtProvider jwtSigner
	logger      *zap.Logger
}

type ServiceDeps struct {
	UserRepo    userStore
	JWTProvider jwtSigner
	Logger      *zap.Logger
}

func NewService(deps ServiceDeps) Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service{
		repo:        deps.UserRepo,
		jwtProvider: deps.JWTProvider,
		logger:      logger,
	}
}

func (s *service) Register(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	email := normalizeEmail(req.Email)
	existing, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrDuplicateUser
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	u := &domain.User{
		UserID:       id.New(),
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: string(hash),
		Role:         domain.RoleUser,
		Enable:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Put(ctx, u); err != nil {
		return nil, err
	}
	s.logger.Info("user registered", zap.String("user_id", u.UserID))
	return u, nil
}

func (s *service) Login(ctx context.Context, req domain.LoginRequest) (*LoginResult, error) {
	u, err := s.repo.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	if !u.Enable {
		return nil, fmt.Errorf("account disabled: %w", domain.ErrForbidden)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	bearer, err := s.jwtProvider.Sign(u.UserID, u.Role)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Bearer: bearer, User: u}, nil
}

func (s *service) Get(ctx context.Context, userID string) (*domain.User, error) {
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
	}
	return u, nil
}

// Update replaces name and email. An email held by a different user is rejected
// with domain.ErrDuplicateUser.
func (s *service) Update(ctx context.Context, userID string, req domain.UpdateUserRequest) (*domain.User, error) {
	email := normalizeEmail(req.Email)
	owner, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if owner != nil && owner.UserID != userID {
		return nil, domain.ErrDuplicateUser
	}
	if err := s.repo.UpdateProfile(ctx, userID, strings.TrimSpace(req.Name), email); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
