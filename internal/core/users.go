package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// maxPasswordBytes is the longest input bcrypt hashes
const maxPasswordBytes = 72

// UserService handles registration, login and token verification
type UserService struct {
	users      UserRepository
	tokens     TokenIssuer
	logger     *zap.Logger
	bcryptCost int
}

// NewUserService creates a new user service
func NewUserService(users UserRepository, tokens TokenIssuer, logger *zap.Logger, bcryptCost int) *UserService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &UserService{
		users:      users,
		tokens:     tokens,
		logger:     logger,
		bcryptCost: bcryptCost,
	}
}

// Session is the outcome of a successful registration or login
type Session struct {
	Token string
	User  *User
}

// Register creates a user with the default role and returns a signed token for it
func (s *UserService) Register(ctx context.Context, name, email, password string) (*Session, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return nil, ErrMissingFields
	}
	if len(password) > maxPasswordBytes {
		return nil, ErrPasswordTooLong
	}

	user, err := s.create(ctx, name, email, password, RoleUser)
	if err != nil {
		return nil, err
	}
	return s.session(user)
}

// Login verifies the credentials and returns a signed token
func (s *UserService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrMissingFields
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	s.logger.Info("User logged in", zap.String("user_id", user.ID))
	return s.session(user)
}

// Authenticate verifies a bearer token and returns its principal
func (s *UserService) Authenticate(token string) (Principal, error) {
	return s.tokens.Verify(token)
}

// EnsureAdmin creates an admin account for email unless one already exists
func (s *UserService) EnsureAdmin(ctx context.Context, name, email, password string) error {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil
	}
	if len(password) > maxPasswordBytes {
		return ErrPasswordTooLong
	}
	if name = strings.TrimSpace(name); name == "" {
		name = "Administrator"
	}

	existing, err := s.users.GetUserByEmail(ctx, email)
	if err == nil {
		if existing.Role != RoleAdmin {
			s.logger.Warn("Bootstrap admin email belongs to a non-admin user", zap.String("email", email))
		}
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("failed to look up bootstrap admin: %w", err)
	}

	if _, err := s.create(ctx, name, email, password, RoleAdmin); err != nil && !errors.Is(err, ErrUserExists) {
		return err
	}
	s.logger.Info("Bootstrap admin created", zap.String("email", email))
	return nil
}

func (s *UserService) create(ctx context.Context, name, email, password string, role Role) (*User, error) {
	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, ErrPasswordTooLong
	}
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, ErrUserExists) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("User registered", zap.String("user_id", user.ID), zap.String("role", string(role)))
	return user, nil
}

func (s *UserService) session(user *User) (*Session, error) {
	token, err := s.tokens.Issue(Principal{UserID: user.ID, Role: user.Role})
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return &Session{Token: token, User: user}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
