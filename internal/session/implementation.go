// internal/session/implementation.go
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"memberdesk/internal/watch"
	"memberdesk/pkg/kvstore"
)

const (
	keyUsers       = "membership_users"
	keyCurrentUser = "membership_current_user"
	keyTheme       = "membership_theme"
)

// service implements the Service interface.
type service struct {
	store kvstore.Store

	mu       sync.Mutex
	accounts []account
}

// NewService loads the account list and returns the session service.
func NewService(ctx context.Context, store kvstore.Store) (Service, error) {
	s := &service{store: store}
	if err := kvstore.LoadJSON(ctx, store, keyUsers, &s.accounts); err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	return s, nil
}

// Register creates a new account and logs it in.
func (s *service) Register(ctx context.Context, username, password string) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.accounts {
		if a.Username == username {
			return nil, ErrDuplicateUsername
		}
	}

	hash, salt, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	acct := account{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		Salt:         salt,
	}
	s.accounts = append(s.accounts, acct)

	if err := kvstore.SaveJSON(ctx, s.store, keyUsers, s.accounts); err != nil {
		return nil, err
	}

	user := User{ID: acct.ID, Username: acct.Username}
	if err := kvstore.SaveJSON(ctx, s.store, keyCurrentUser, user); err != nil {
		return nil, err
	}

	return &user, nil
}

// Login verifies credentials and records the current-session user.
func (s *service) Login(ctx context.Context, username, password string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.accounts {
		if a.Username != username {
			continue
		}
		ok, err := verifyPassword(password, a.Salt, a.PasswordHash)
		if err != nil {
			return nil, fmt.Errorf("authentication failed: %w", err)
		}
		if !ok {
			return nil, ErrInvalidCredentials
		}

		user := User{ID: a.ID, Username: a.Username}
		if err := kvstore.SaveJSON(ctx, s.store, keyCurrentUser, user); err != nil {
			return nil, err
		}
		return &user, nil
	}

	return nil, ErrInvalidCredentials
}

// Logout clears the current-session user and the user's last-observed
// registration status, so the next login re-establishes a fresh baseline.
func (s *service) Logout(ctx context.Context) error {
	user, err := s.Current(ctx)
	if errors.Is(err, ErrNotAuthenticated) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, watch.LastStatusKey(user.ID)); err != nil {
		return err
	}
	return s.store.Delete(ctx, keyCurrentUser)
}

// Current returns the logged-in user, or ErrNotAuthenticated.
func (s *service) Current(ctx context.Context) (*User, error) {
	var user User
	if err := kvstore.LoadJSON(ctx, s.store, keyCurrentUser, &user); err != nil {
		return nil, err
	}
	if user.ID == "" {
		return nil, ErrNotAuthenticated
	}
	return &user, nil
}

// SetTheme persists the theme preference.
func (s *service) SetTheme(ctx context.Context, theme string) error {
	if theme != ThemeLight && theme != ThemeDark {
		return ErrInvalidTheme
	}
	return s.store.Set(ctx, keyTheme, []byte(theme))
}

// Theme returns the stored theme preference, defaulting to light.
func (s *service) Theme(ctx context.Context) (string, error) {
	data, err := s.store.Get(ctx, keyTheme)
	if errors.Is(err, kvstore.ErrKeyNotFound) {
		return ThemeLight, nil
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}
