package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/rosecart/internal/api"
	"github.com/xenking/rosecart/internal/storage"
)

func authResult(id, token string) *api.AuthResult {
	return &api.AuthResult{
		User:        api.User{ID: id, Email: id + "@example.com", Role: api.RoleCustomer},
		AccessToken: token,
	}
}

func TestNew_HydratesTokenFromStorage(t *testing.T) {
	store := storage.NewMem()
	require.NoError(t, store.Set(storage.TokenKey, "persisted-token"))

	s := New(store)

	assert.Equal(t, "persisted-token", s.AccessToken())
	// A token alone is not an identity; Me or login must establish it.
	assert.False(t, s.Authenticated())
	assert.Empty(t, s.UserID())
}

func TestBegin_EstablishesSessionAndPersistsToken(t *testing.T) {
	store := storage.NewMem()
	s := New(store)

	require.NoError(t, s.Begin(context.Background(), authResult("u1", "tok-1")))

	assert.True(t, s.Authenticated())
	assert.Equal(t, "u1", s.UserID())
	assert.Equal(t, "tok-1", s.AccessToken())

	persisted, ok := store.Get(storage.TokenKey)
	require.True(t, ok)
	assert.Equal(t, "tok-1", persisted)
}

func TestBegin_LoginListenersFireOnEdgeOnly(t *testing.T) {
	s := New(storage.NewMem())

	var fired int
	s.OnLogin(func(context.Context) { fired++ })

	require.NoError(t, s.Begin(context.Background(), authResult("u1", "tok-1")))
	assert.Equal(t, 1, fired)

	// Re-establishing the same session (token refresh) is not a transition.
	require.NoError(t, s.Begin(context.Background(), authResult("u1", "tok-2")))
	assert.Equal(t, 1, fired)
	assert.Equal(t, "tok-2", s.AccessToken())

	// Logout then login is a fresh edge.
	require.NoError(t, s.End())
	require.NoError(t, s.Begin(context.Background(), authResult("u1", "tok-3")))
	assert.Equal(t, 2, fired)
}

func TestResume_DoesNotFireLoginListeners(t *testing.T) {
	store := storage.NewMem()
	require.NoError(t, store.Set(storage.TokenKey, "persisted-token"))
	s := New(store)

	var fired int
	s.OnLogin(func(context.Context) { fired++ })

	s.Resume(&api.User{ID: "u1"})

	assert.True(t, s.Authenticated())
	assert.Equal(t, "u1", s.UserID())
	assert.Zero(t, fired, "startup resume is not a login transition")
}

func TestEnd_TearsDownSession(t *testing.T) {
	store := storage.NewMem()
	s := New(store)
	require.NoError(t, s.Begin(context.Background(), authResult("u1", "tok-1")))

	var loggedOut bool
	s.OnLogout(func() { loggedOut = true })

	require.NoError(t, s.End())

	assert.False(t, s.Authenticated())
	assert.Empty(t, s.AccessToken())
	assert.True(t, loggedOut)
	_, ok := store.Get(storage.TokenKey)
	assert.False(t, ok)
}

func TestUser_ReturnsCopy(t *testing.T) {
	s := New(storage.NewMem())
	require.NoError(t, s.Begin(context.Background(), authResult("u1", "tok-1")))

	u := s.User()
	require.NotNil(t, u)
	u.Email = "mutated@example.com"

	assert.Equal(t, "u1@example.com", s.User().Email)
}
