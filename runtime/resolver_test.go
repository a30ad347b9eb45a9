package runtime

import (
	"log/slog"
	"testing"

	"chatx/domain"
	apperrors "chatx/errors"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func TestResolver_ResolveChatList(t *testing.T) {
	req := require.New(t)

	// Given alice sharing r1 with bob and r2 with bob and carol
	users := newFakeUserRepo(
		domain.User{ID: "u1", Username: "alice"},
		domain.User{ID: "u2", Username: "bob", Status: domain.StatusOnline, ConnectionID: "c2"},
		domain.User{ID: "u3", Username: "carol"},
	)
	rooms := newFakeRoomRepo(
		domain.Room{ID: "r1", Users: []domain.Member{{ID: "u1", Username: "alice"}, {ID: "u2", Username: "bob"}}},
		domain.Room{ID: "r2", Users: []domain.Member{{ID: "u1", Username: "alice"}, {ID: "u2", Username: "bob"}, {ID: "u3", Username: "carol"}}},
	)
	resolver := NewResolver(rooms, users, slog.Default())

	// When her chat list is resolved
	chatList, err := resolver.ResolveChatList("u1", []domain.RoomRef{{ID: "r1"}, {ID: "r2"}})
	req.NoError(err)

	// Then each entry pairs the room with the other members' live records
	req.Len(chatList, 2)
	req.Equal("r1", chatList[0].Room.ID)
	req.Equal([]string{"u2"}, lo.Map(chatList[0].RecipientUsers, func(u domain.User, _ int) string { return u.ID }))
	req.Equal("c2", chatList[0].RecipientUsers[0].ConnectionID)
	req.Equal("r2", chatList[1].Room.ID)
	req.Equal([]string{"u2", "u3"}, lo.Map(chatList[1].RecipientUsers, func(u domain.User, _ int) string { return u.ID }))
}

func TestResolver_Batches_Both_Lookups(t *testing.T) {
	req := require.New(t)
	users := newFakeUserRepo(
		domain.User{ID: "u1", Username: "alice"},
		domain.User{ID: "u2", Username: "bob"},
		domain.User{ID: "u3", Username: "carol"},
	)
	members := func(ids ...string) []domain.Member {
		return lo.Map(ids, func(id string, _ int) domain.Member { return domain.Member{ID: id} })
	}
	rooms := newFakeRoomRepo(
		domain.Room{ID: "r1", Users: members("u1", "u2")},
		domain.Room{ID: "r2", Users: members("u1", "u2", "u3")},
		domain.Room{ID: "r3", Users: members("u1", "u3")},
	)
	resolver := NewResolver(rooms, users, slog.Default())

	// When three rooms with overlapping recipients are resolved
	_, err := resolver.ResolveChatList("u1", []domain.RoomRef{{ID: "r1"}, {ID: "r2"}, {ID: "r3"}})
	req.NoError(err)

	// Then the store is hit exactly twice however much the rooms overlap
	req.Equal(1, rooms.batchCalls)
	req.Equal(1, users.batchCalls)
}

func TestResolver_Empty_Refs_Is_BadRequest(t *testing.T) {
	req := require.New(t)
	resolver := NewResolver(newFakeRoomRepo(), newFakeUserRepo(), slog.Default())

	_, err := resolver.ResolveChatList("u1", nil)
	req.ErrorIs(err, apperrors.ErrBadRequest)
}

func TestResolver_Drops_Unresolved_Rooms(t *testing.T) {
	req := require.New(t)
	users := newFakeUserRepo(
		domain.User{ID: "u1", Username: "alice"},
		domain.User{ID: "u2", Username: "bob"},
	)
	rooms := newFakeRoomRepo(
		domain.Room{ID: "r1", Users: []domain.Member{{ID: "u1"}, {ID: "u2"}}},
	)
	resolver := NewResolver(rooms, users, slog.Default())

	// When one ref points at a deleted room
	chatList, err := resolver.ResolveChatList("u1", []domain.RoomRef{{ID: "r1"}, {ID: "gone"}})

	// Then the survivor still resolves
	req.NoError(err)
	req.Len(chatList, 1)
	req.Equal("r1", chatList[0].Room.ID)
}

func TestResolver_All_Refs_Unresolved_Is_NotFound(t *testing.T) {
	req := require.New(t)
	resolver := NewResolver(newFakeRoomRepo(), newFakeUserRepo(), slog.Default())

	_, err := resolver.ResolveChatList("u1", []domain.RoomRef{{ID: "gone1"}, {ID: "gone2"}})
	req.ErrorIs(err, apperrors.ErrRoomNotFound)
}

func TestResolver_Skips_Recipients_Missing_From_Store(t *testing.T) {
	req := require.New(t)
	users := newFakeUserRepo(domain.User{ID: "u1", Username: "alice"}, domain.User{ID: "u2", Username: "bob"})
	rooms := newFakeRoomRepo(
		domain.Room{ID: "r1", Users: []domain.Member{{ID: "u1"}, {ID: "u2"}, {ID: "deleted"}}},
	)
	resolver := NewResolver(rooms, users, slog.Default())

	chatList, err := resolver.ResolveChatList("u1", []domain.RoomRef{{ID: "r1"}})
	req.NoError(err)
	req.Len(chatList, 1)
	req.Len(chatList[0].RecipientUsers, 1)
	req.Equal("u2", chatList[0].RecipientUsers[0].ID)
}
