package runtime

import (
	"log/slog"
	"testing"

	"chatx/domain"
	apperrors "chatx/errors"

	"github.com/stretchr/testify/require"
)

func TestRegistry_Connect(t *testing.T) {
	req := require.New(t)
	users := newFakeUserRepo(domain.User{ID: "u1", Username: "alice", Status: domain.StatusOffline})
	registry := NewRegistry(users, slog.Default())

	// When the user connects under handle c1
	user, err := registry.Connect("u1", "c1")
	req.NoError(err)

	// Then the record is online and reachable
	req.Equal(domain.StatusOnline, user.Status)
	req.Equal("c1", user.ConnectionID)
	req.True(user.Reachable())
}

func TestRegistry_Connect_Unknown_User(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(newFakeUserRepo(), slog.Default())

	// Connecting never creates a record, signup does
	_, err := registry.Connect("ghost", "c1")
	req.ErrorIs(err, apperrors.ErrUserNotFound)
}

func TestRegistry_Connect_Requires_Both_Arguments(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(newFakeUserRepo(), slog.Default())

	_, err := registry.Connect("", "c1")
	req.ErrorIs(err, apperrors.ErrBadRequest)

	_, err = registry.Connect("u1", "")
	req.ErrorIs(err, apperrors.ErrBadRequest)
}

func TestRegistry_Reconnect_Replaces_Handle(t *testing.T) {
	req := require.New(t)
	users := newFakeUserRepo(domain.User{ID: "u1", Username: "alice"})
	registry := NewRegistry(users, slog.Default())

	_, err := registry.Connect("u1", "c1")
	req.NoError(err)

	// When the user reconnects from a new socket
	user, err := registry.Connect("u1", "c2")
	req.NoError(err)

	// Then only the new handle is live
	req.Equal("c2", user.ConnectionID)
	_, err = users.QueryUserByConnection("c1")
	req.ErrorIs(err, apperrors.ErrUserNotFound)
}

func TestRegistry_Disconnect(t *testing.T) {
	req := require.New(t)
	users := newFakeUserRepo(domain.User{ID: "u1", Username: "alice"})
	registry := NewRegistry(users, slog.Default())

	_, err := registry.Connect("u1", "c1")
	req.NoError(err)

	// When the handle drops
	user, err := registry.Disconnect("c1")
	req.NoError(err)

	// Then the user is offline with no handle
	req.Equal(domain.StatusOffline, user.Status)
	req.Empty(user.ConnectionID)
	req.False(user.Reachable())
}

func TestRegistry_Disconnect_Unknown_Handle_Is_Noop(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(newFakeUserRepo(), slog.Default())

	// A handle nobody owns means the user already left
	_, err := registry.Disconnect("ghost")
	req.NoError(err)
}

func TestRegistry_DisconnectUser_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	users := newFakeUserRepo(domain.User{ID: "u1", Username: "alice"})
	registry := NewRegistry(users, slog.Default())

	_, err := registry.Connect("u1", "c1")
	req.NoError(err)

	first, err := registry.DisconnectUser("u1")
	req.NoError(err)
	second, err := registry.DisconnectUser("u1")
	req.NoError(err)

	req.Equal(first.Status, second.Status)
	req.Empty(second.ConnectionID)
}

func TestRegistry_Status_Always_Matches_Handle(t *testing.T) {
	req := require.New(t)
	users := newFakeUserRepo(domain.User{ID: "u1", Username: "alice"})
	registry := NewRegistry(users, slog.Default())

	// Whatever the interleaving of connects and disconnects, a user is
	// ONLINE exactly when a handle is set.
	steps := []func() error{
		func() error { _, err := registry.Connect("u1", "c1"); return err },
		func() error { _, err := registry.Connect("u1", "c2"); return err },
		func() error { _, err := registry.Disconnect("c1"); return err },
		func() error { _, err := registry.Disconnect("c2"); return err },
		func() error { _, err := registry.Connect("u1", "c3"); return err },
		func() error { _, err := registry.DisconnectUser("u1"); return err },
		func() error { _, err := registry.DisconnectUser("u1"); return err },
	}
	for _, step := range steps {
		req.NoError(step())
		user, err := users.GetUser("u1")
		req.NoError(err)
		req.Equal(user.Status == domain.StatusOnline, user.ConnectionID != "")
	}
}
