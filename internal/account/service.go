// Package account handles sign-up and sign-in. Passwords are stored as
// bcrypt hashes; a successful sign-in yields a session token.
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/prompt-gallery/internal/model"
	"github.com/prompt-gallery/internal/session"
	"github.com/prompt-gallery/internal/storage"
	"github.com/prompt-gallery/internal/validation"
)

var signupMessages = validation.Messages{
	"name.min":                "Name must be at least 2 characters",
	"email.required":          "Invalid email address",
	"email.email":             "Invalid email address",
	"password.min":            "Password must be at least 6 characters",
	"confirmPassword.eqfield": "Passwords don't match",
}

var loginMessages = validation.Messages{
	"email.required": "Invalid email address",
	"email.email":    "Invalid email address",
	"password.min":   "Password must be at least 6 characters",
}

type Service struct {
	users    storage.UserStore
	sessions *session.Manager
	log      logrus.FieldLogger
	cost     int

	// signupMu makes the first-account-is-admin check and the insert atomic
	// within this process.
	signupMu sync.Mutex
}

func NewService(users storage.UserStore, sessions *session.Manager, log logrus.FieldLogger) *Service {
	return &Service{
		users:    users,
		sessions: sessions,
		log:      log.WithField("component", "account"),
		cost:     bcrypt.DefaultCost,
	}
}

// Signup creates an account and signs it in. The very first account
// becomes an admin.
func (s *Service) Signup(ctx context.Context, req *model.SignupRequest) (*model.LoginResponse, error) {
	req.Email = normalizeEmail(req.Email)
	if verr := validation.Struct(req, signupMessages); verr != nil {
		return nil, verr
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	s.signupMu.Lock()
	user, err := s.createUser(ctx, req, string(hash))
	s.signupMu.Unlock()
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role}).Info("account created")
	return s.issue(user)
}

func (s *Service) createUser(ctx context.Context, req *model.SignupRequest, hash string) (*model.User, error) {
	existing, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: an account with this email already exists", model.ErrConflict)
	}

	count, err := s.users.Count(ctx)
	if err != nil {
		return nil, err
	}
	role := model.UserRoleUser
	if count == 0 {
		role = model.UserRoleAdmin
	}

	return s.users.Create(ctx, &model.User{
		Name:     strings.TrimSpace(req.Name),
		Email:    req.Email,
		Password: hash,
		Role:     role,
	})
}

func (s *Service) Login(ctx context.Context, req *model.LoginRequest) (*model.LoginResponse, error) {
	user, err := s.authenticate(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

// AdminLogin is Login restricted to admin accounts. A valid non-admin
// account is reported as invalid credentials.
func (s *Service) AdminLogin(ctx context.Context, req *model.LoginRequest) (*model.LoginResponse, error) {
	user, err := s.authenticate(ctx, req)
	if err != nil {
		return nil, err
	}
	if !user.IsAdmin() {
		return nil, model.ErrInvalidCredentials
	}
	return s.issue(user)
}

func (s *Service) authenticate(ctx context.Context, req *model.LoginRequest) (*model.User, error) {
	req.Email = normalizeEmail(req.Email)
	if verr := validation.Struct(req, loginMessages); verr != nil {
		return nil, verr
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, model.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, model.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to compare password: %w", err)
	}
	return user, nil
}

func (s *Service) issue(user *model.User) (*model.LoginResponse, error) {
	token, claims, err := s.sessions.Issue(user)
	if err != nil {
		return nil, err
	}
	return &model.LoginResponse{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Unix(),
		User:      user,
	}, nil
}

// Me returns the account behind claims, or nil when it no longer exists.
func (s *Service) Me(ctx context.Context, claims *model.Claims) (*model.User, error) {
	if claims == nil {
		return nil, model.ErrUnauthorized
	}
	return s.users.FindByID(ctx, claims.UserID)
}

// EnsureAdmin creates the configured admin account, or promotes the
// account that already uses email.
func (s *Service) EnsureAdmin(ctx context.Context, email, password, name string) (*model.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, errors.New("admin email and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.users.EnsureAdmin(ctx, email, string(hash), name)
	if err != nil {
		return nil, err
	}
	s.log.WithField("user_id", user.ID).Info("admin account ensured")
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
