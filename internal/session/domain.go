// internal/session/domain.go
package session

import "errors"

var (
	ErrValidation         = errors.New("username and password are required")
	ErrDuplicateUsername  = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotAuthenticated   = errors.New("not logged in")
	ErrInvalidTheme       = errors.New("theme must be light or dark")
)

// User identifies the logged-in account. This is what the portal and the
// registration workflow consume as the "current user".
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// account is a stored user record. Credentials never leave this package.
type account struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"passwordHash"`
	Salt         string `json:"salt"`
}

// Themes accepted by SetTheme.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)
