package runtime

import (
	"fmt"
	"log/slog"

	"chatx/domain"
	apperrors "chatx/errors"
	"chatx/repositories"

	"github.com/samber/lo"
)

// Resolver computes a user's chat list: the rooms they belong to together
// with the other members' live records. Both lookups are batched so the
// cost stays at two store round trips regardless of how many rooms or
// shared recipients are involved.
type Resolver struct {
	rooms repositories.IRoomRepository
	users repositories.IUserRepository
	log   *slog.Logger
}

func NewResolver(rooms repositories.IRoomRepository, users repositories.IUserRepository, log *slog.Logger) *Resolver {
	return &Resolver{rooms: rooms, users: users, log: log}
}

// ResolveChatList fetches the given rooms in one batch, deduplicates the
// other-member ids across all of them, fetches those users in a second
// batch, and joins the two.
//
// An empty ref set is a malformed request: the caller must distinguish
// "user has no rooms yet" (do not call) from "caller sent nothing to look
// up". A ref that no longer resolves is dropped; only an entirely empty
// result is treated as not found. Result order follows the fetched room
// order, stable for a given input.
func (r *Resolver) ResolveChatList(userID string, refs []domain.RoomRef) ([]domain.ChatListEntry, error) {
	if len(refs) == 0 {
		return nil, fmt.Errorf("%w: no room ids to resolve", apperrors.ErrBadRequest)
	}

	rooms, err := r.rooms.GetRoomsByKeys(refs)
	if err != nil {
		return nil, err
	}
	if len(rooms) == 0 {
		return nil, fmt.Errorf("%w: none of %d room refs resolved", apperrors.ErrRoomNotFound, len(refs))
	}
	if len(rooms) < len(refs) {
		r.log.Warn("dropped unresolved room refs", "requested", len(refs), "resolved", len(rooms))
	}

	recipientIDs := lo.Uniq(lo.FlatMap(rooms, func(room domain.Room, _ int) []string {
		return lo.Map(room.Recipients(userID), func(m domain.Member, _ int) string { return m.ID })
	}))

	recipients, err := r.users.GetUsersByKeys(recipientIDs)
	if err != nil {
		return nil, err
	}
	byID := lo.KeyBy(recipients, func(u domain.User) string { return u.ID })

	chatList := make([]domain.ChatListEntry, 0, len(rooms))
	for _, room := range rooms {
		entry := domain.ChatListEntry{Room: room}
		for _, member := range room.Recipients(userID) {
			if user, ok := byID[member.ID]; ok {
				entry.RecipientUsers = append(entry.RecipientUsers, user)
			}
		}
		chatList = append(chatList, entry)
	}
	return chatList, nil
}
