package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront/internal/auth"
	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// UserRepository is the account storage; implemented by store.Store
type UserRepository interface {
	GetUserByEmail(ctx context.Context, email string) (*store.UserRecord, error)
	CreateUser(ctx context.Context, u *store.UserRecord) error
	UpsertProviderUser(ctx context.Context, u *store.UserRecord) (*store.UserRecord, error)
}

// AuthService authenticates shoppers and issues session tokens
type AuthService struct {
	users  UserRepository
	hasher *auth.PasswordHasher
	tokens *auth.TokenManager
	logger *zap.Logger
}

func NewAuthService(users UserRepository, hasher *auth.PasswordHasher, tokens *auth.TokenManager) *AuthService {
	return &AuthService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		logger: util.GetLogger(),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Login authenticates an existing account. Accounts without a password (provider
// accounts) are identified by email alone.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, error) {
	ctx, span := util.StartSpan(ctx, "AuthService.Login")
	defer span.End()

	email = normalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("email is required: %w", ErrInvalidInput)
	}

	rec, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		util.AuthAttemptsTotal.WithLabelValues("password", "rejected").Inc()
		return nil, err
	}
	if rec.PasswordHash != "" && !s.hasher.Verify(password, rec.PasswordHash) {
		util.AuthAttemptsTotal.WithLabelValues("password", "rejected").Inc()
		return nil, ErrUnauthorized
	}

	util.AuthAttemptsTotal.WithLabelValues("password", "ok").Inc()
	return s.session(rec)
}

// Register creates a password account
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	ctx, span := util.StartSpan(ctx, "AuthService.Register")
	defer span.End()

	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("valid email is required: %w", ErrInvalidInput)
	}
	if password == "" {
		return nil, fmt.Errorf("password is required: %w", ErrInvalidInput)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	if strings.TrimSpace(name) == "" {
		name = models.NameFromEmail(email)
	}

	rec := &store.UserRecord{
		User: models.User{
			ID:       models.NewUserID(),
			Name:     strings.TrimSpace(name),
			Email:    email,
			Role:     models.RoleForEmail(email),
			Provider: models.ProviderLocal,
		},
		PasswordHash: hash,
	}
	if err := s.users.CreateUser(ctx, rec); err != nil {
		if errors.Is(err, ErrConflict) {
			util.AuthAttemptsTotal.WithLabelValues("register", "conflict").Inc()
		}
		return nil, err
	}

	util.AuthAttemptsTotal.WithLabelValues("register", "ok").Inc()
	s.logger.Info("User registered", zap.String("user_id", rec.ID))
	return s.session(rec)
}

// LoginWithGoogle upserts a provider-tagged account
func (s *AuthService) LoginWithGoogle(ctx context.Context, email, name string) (*models.User, error) {
	ctx, span := util.StartSpan(ctx, "AuthService.LoginWithGoogle")
	defer span.End()

	email = normalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("email is required: %w", ErrInvalidInput)
	}
	if strings.TrimSpace(name) == "" {
		name = models.NameFromEmail(email)
	}

	rec, err := s.users.UpsertProviderUser(ctx, &store.UserRecord{User: models.User{
		ID:       models.NewUserID(),
		Name:     name,
		Email:    email,
		Role:     models.RoleForEmail(email),
		Provider: models.ProviderGoogle,
	}})
	if err != nil {
		util.AuthAttemptsTotal.WithLabelValues("google", "error").Inc()
		return nil, err
	}

	util.AuthAttemptsTotal.WithLabelValues("google", "ok").Inc()
	return s.session(rec)
}

func (s *AuthService) session(rec *store.UserRecord) (*models.User, error) {
	token, err := s.tokens.Issue(rec.ID, rec.Email, rec.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	u := rec.User
	u.Token = token
	return &u, nil
}
