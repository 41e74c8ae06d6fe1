// internal/session/implementation_test.go
package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memberdesk/internal/watch"
	"memberdesk/pkg/kvstore"
)

func newTestStore(t *testing.T) kvstore.Store {
	t.Helper()
	store, err := kvstore.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestService(t *testing.T, store kvstore.Store) Service {
	t.Helper()
	svc, err := NewService(context.Background(), store)
	require.NoError(t, err)
	return svc
}

func TestRegisterLogsIn(t *testing.T) {
	svc := newTestService(t, newTestStore(t))
	ctx := context.Background()

	user, err := svc.Register(ctx, "ana", "secret123")
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "ana", user.Username)

	current, err := svc.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, user.ID, current.ID)
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService(t, newTestStore(t))
	ctx := context.Background()

	_, err := svc.Register(ctx, "  ", "secret123")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Register(ctx, "ana", "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	svc := newTestService(t, newTestStore(t))
	ctx := context.Background()

	_, err := svc.Register(ctx, "ana", "secret123")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "ana", "different")
	assert.ErrorIs(t, err, ErrDuplicateUsername)
}

func TestLogin(t *testing.T) {
	svc := newTestService(t, newTestStore(t))
	ctx := context.Background()

	registered, err := svc.Register(ctx, "ana", "secret123")
	require.NoError(t, err)
	require.NoError(t, svc.Logout(ctx))

	user, err := svc.Login(ctx, "ana", "secret123")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)

	current, err := svc.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, current.ID)
}

func TestLoginBadCredentials(t *testing.T) {
	svc := newTestService(t, newTestStore(t))
	ctx := context.Background()

	_, err := svc.Register(ctx, "ana", "secret123")
	require.NoError(t, err)

	_, err = svc.Login(ctx, "ana", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody", "secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogoutClearsSessionAndBaseline(t *testing.T) {
	store := newTestStore(t)
	svc := newTestService(t, store)
	ctx := context.Background()

	user, err := svc.Register(ctx, "ana", "secret123")
	require.NoError(t, err)

	// Simulate a status baseline persisted by the watcher.
	key := watch.LastStatusKey(user.ID)
	require.NoError(t, store.Set(ctx, key, []byte("pending")))

	require.NoError(t, svc.Logout(ctx))

	_, err = svc.Current(ctx)
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	_, err = store.Get(ctx, key)
	assert.ErrorIs(t, err, kvstore.ErrKeyNotFound)
}

func TestLogoutWithoutSession(t *testing.T) {
	svc := newTestService(t, newTestStore(t))
	assert.NoError(t, svc.Logout(context.Background()))
}

func TestCurrentNotAuthenticated(t *testing.T) {
	svc := newTestService(t, newTestStore(t))

	_, err := svc.Current(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestAccountsSurviveReload(t *testing.T) {
	store := newTestStore(t)
	svc := newTestService(t, store)
	ctx := context.Background()

	_, err := svc.Register(ctx, "ana", "secret123")
	require.NoError(t, err)

	rebuilt := newTestService(t, store)
	user, err := rebuilt.Login(ctx, "ana", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "ana", user.Username)
}

func TestTheme(t *testing.T) {
	svc := newTestService(t, newTestStore(t))
	ctx := context.Background()

	theme, err := svc.Theme(ctx)
	require.NoError(t, err)
	assert.Equal(t, ThemeLight, theme, "light is the default")

	require.NoError(t, svc.SetTheme(ctx, ThemeDark))
	theme, err = svc.Theme(ctx)
	require.NoError(t, err)
	assert.Equal(t, ThemeDark, theme)

	assert.ErrorIs(t, svc.SetTheme(ctx, "solarized"), ErrInvalidTheme)
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, salt, err := hashPassword("secret123")
	require.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.NotEmpty(t, salt)

	ok, err := verifyPassword("secret123", salt, hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = verifyPassword("wrong", salt, hash)
	require.NoError(t, err)
	assert.False(t, ok)
}
