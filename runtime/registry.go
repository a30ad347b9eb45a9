// Package runtime wires the real-time path: connection registry, membership
// resolution, fan-out dispatch, and inbound event routing. It owns no
// authoritative state; the store is the single source of truth for who is
// online with which connection handle.
package runtime

import (
	"errors"
	"fmt"
	"log/slog"

	"chatx/domain"
	apperrors "chatx/errors"
	"chatx/repositories"
)

// Registry transitions users between online and offline. It is the only
// component that mutates reachability, and it does so exclusively through
// the user store's atomic connection update, so a successful transition is
// visible to the resolver and dispatcher on their next read.
type Registry struct {
	users repositories.IUserRepository
	log   *slog.Logger
}

func NewRegistry(users repositories.IUserRepository, log *slog.Logger) *Registry {
	return &Registry{users: users, log: log}
}

// Connect marks the user ONLINE under the given transport handle. The
// policy is strict: connecting an unknown user fails with NotFound, signup
// is the only path that creates records. Repeating the call with the same
// arguments is a no-op by construction.
func (r *Registry) Connect(userID, connectionID string) (domain.User, error) {
	if userID == "" || connectionID == "" {
		return domain.User{}, fmt.Errorf("%w: connect requires a user id and a connection handle", apperrors.ErrBadRequest)
	}
	user, err := r.users.UpdateConnection(userID, domain.StatusOnline, connectionID)
	if err != nil {
		return domain.User{}, err
	}
	r.log.Info("user connected", "user_id", user.ID, "connection_id", connectionID)
	return user, nil
}

// Disconnect resolves the owning user through the connection reverse index
// and marks them OFFLINE. A handle that no longer maps to anyone means the
// user is already offline; that is a no-op success, not an error.
func (r *Registry) Disconnect(connectionID string) (domain.User, error) {
	user, err := r.users.QueryUserByConnection(connectionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			r.log.Debug("disconnect on unknown handle, already offline", "connection_id", connectionID)
			return domain.User{}, nil
		}
		return domain.User{}, err
	}
	return r.DisconnectUser(user.ID)
}

// DisconnectUser marks the user OFFLINE and clears the connection handle.
// Disconnecting an already-offline user succeeds without touching the store.
func (r *Registry) DisconnectUser(userID string) (domain.User, error) {
	user, err := r.users.GetUser(userID)
	if err != nil {
		return domain.User{}, err
	}
	if user.Status == domain.StatusOffline && user.ConnectionID == "" {
		return user, nil
	}
	updated, err := r.users.UpdateConnection(userID, domain.StatusOffline, "")
	if err != nil {
		return domain.User{}, err
	}
	r.log.Info("user disconnected", "user_id", userID)
	return updated, nil
}
