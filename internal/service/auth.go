package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/shop_api/internal/hash"
	"github.com/Skotchmaster/shop_api/internal/logging"
	"github.com/Skotchmaster/shop_api/internal/models"
	"github.com/Skotchmaster/shop_api/internal/repo"
	"github.com/Skotchmaster/shop_api/internal/tokens"
)

type AuthService struct {
	Users    UserRepo
	Sessions SessionStore
	Events   EventPublisher
	Secret   []byte
	TTL      time.Duration
}

type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *models.User
}

// Identity is what a valid session token resolves to.
type Identity struct {
	User      *models.User
	SessionID string
}

func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login", "username", username)

	if username == "" || password == "" {
		l.Warn("login_failed", "status", 401, "reason", "empty credentials")
		return nil, ErrInvalidCredentials
	}

	user, err := s.Users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.Warn("login_failed", "status", 401, "reason", "unknown user")
			return nil, ErrInvalidCredentials
		}
		l.Error("login_failed", "status", 500, "error", err)
		return nil, fmt.Errorf("load user: %w", err)
	}

	if !hash.CheckPassword(user.PasswordHash, password) {
		l.Warn("login_failed", "status", 401, "reason", "wrong password")
		return nil, ErrInvalidCredentials
	}

	exp := time.Now().Add(s.TTL)
	session := &models.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: exp.Unix(),
	}
	if err := s.Sessions.CreateSession(ctx, session); err != nil {
		l.Error("login_failed", "status", 500, "reason", "cannot store session", "error", err)
		return nil, fmt.Errorf("create session: %w", err)
	}

	token, err := tokens.SignSession(user.ID, session.ID, exp, s.Secret)
	if err != nil {
		l.Error("login_failed", "status", 500, "reason", "cannot sign token", "error", err)
		return nil, fmt.Errorf("sign session: %w", err)
	}

	publish(ctx, s.Events, TopicUsers, strconv.FormatUint(uint64(user.ID), 10), Event{
		Type:   "user_logged_in",
		UserID: user.ID,
	})

	return &LoginResult{Token: token, ExpiresAt: exp, User: user}, nil
}

func (s *AuthService) Logout(ctx context.Context, id *Identity) error {
	if id == nil || id.User == nil || id.SessionID == "" {
		return ErrUnauthorized
	}
	if err := s.Sessions.RevokeSession(ctx, id.SessionID); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}

	publish(ctx, s.Events, TopicUsers, strconv.FormatUint(uint64(id.User.ID), 10), Event{
		Type:   "user_logged_out",
		UserID: id.User.ID,
	})
	return nil
}

func (s *AuthService) LoadUser(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.Users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
		}
		return nil, err
	}
	return user, nil
}

// ResolveIdentity accepts a token only while its session is live and its
// user still exists.
func (s *AuthService) ResolveIdentity(ctx context.Context, token string) (*Identity, error) {
	claims, err := tokens.SessionClaimsFromToken(token, s.Secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	session, err := s.Sessions.FindSession(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("%w: session gone", ErrUnauthorized)
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	if session.UserID != userID {
		return nil, fmt.Errorf("%w: session owner mismatch", ErrUnauthorized)
	}

	user, err := s.LoadUser(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
		}
		return nil, err
	}
	return &Identity{User: user, SessionID: session.ID}, nil
}

// SeedUser creates the account unless the username is taken. It reports
// whether a row was inserted.
func (s *AuthService) SeedUser(ctx context.Context, username, password string) (bool, error) {
	if username == "" || password == "" {
		return false, fmt.Errorf("%w: username and password are required", ErrValidation)
	}

	pwHash, err := hash.HashPassword(password)
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{Username: username, PasswordHash: pwHash}
	if err := s.Users.CreateUserIfNotExists(ctx, user); err != nil {
		if errors.Is(err, repo.ErrUserAlreadyExist) {
			return false, nil
		}
		return false, fmt.Errorf("create user: %w", err)
	}

	publish(ctx, s.Events, TopicUsers, strconv.FormatUint(uint64(user.ID), 10), Event{
		Type:   "user_created",
		UserID: user.ID,
		Name:   user.Username,
	})
	return true, nil
}
