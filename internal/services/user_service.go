package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"ticket-marketplace/internal/status"
	"ticket-marketplace/internal/store"
	"ticket-marketplace/models"
	"ticket-marketplace/security"
	"ticket-marketplace/utils"
)

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type UserService struct {
	store  *store.Store
	tokens *security.TokenIssuer
	log    *slog.Logger
	now    func() time.Time
}

func NewUserService(st *store.Store, tokens *security.TokenIssuer, logger *slog.Logger) *UserService {
	return &UserService{store: st, tokens: tokens, log: logger, now: time.Now}
}

func (s *UserService) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	if len(req.Password) < security.MinPasswordLength {
		return nil, status.Validationf("password must be at least %d characters", security.MinPasswordLength)
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := s.store.FindAccountByEmail(ctx, email); err == nil {
		return nil, status.ErrEmailTaken
	} else if !errors.Is(err, status.ErrUserNotFound) {
		return nil, err
	}

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		ID:           uuid.New().String(),
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleUser,
		CreatedAt:    s.now(),
	}
	if err := s.store.CreateAccount(ctx, user); err != nil {
		return nil, err
	}
	s.log.Info("user registered", "user_id", user.ID)
	return s.issue(user)
}

func (s *UserService) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	user, err := s.store.FindAccountByEmail(ctx, req.Email)
	if errors.Is(err, status.ErrUserNotFound) {
		return nil, status.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	ok, err := security.CheckPassword(user.PasswordHash, req.Password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, status.ErrInvalidCredentials
	}
	if user.IsBlocked {
		return nil, status.ErrUserBlocked
	}
	return s.issue(user)
}

func (s *UserService) issue(user *models.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user}, nil
}

func (s *UserService) Profile(ctx context.Context, userID string) (*models.User, error) {
	return s.store.FindAccount(ctx, userID)
}

func (s *UserService) ListUsers(ctx context.Context) ([]*models.User, error) {
	return s.store.ListAccounts(ctx)
}

func (s *UserService) SetBlocked(ctx context.Context, userID string, blocked bool) error {
	if err := s.store.SetBlocked(ctx, userID, blocked); err != nil {
		return err
	}
	s.log.Info("user block state changed", "user_id", userID, "blocked", blocked)
	return nil
}
