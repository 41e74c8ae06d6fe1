// internal/session/service.go
package session

import "context"

// Service defines the interface for the session collaborator. It owns user
// accounts, the current-session user and the theme preference.
type Service interface {
	Register(ctx context.Context, username, password string) (*User, error)
	Login(ctx context.Context, username, password string) (*User, error)
	Logout(ctx context.Context) error
	Current(ctx context.Context) (*User, error)
	SetTheme(ctx context.Context, theme string) error
	Theme(ctx context.Context) (string, error)
}
