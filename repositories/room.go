package repositories

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"chatx/domain"
	apperrors "chatx/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type IRoomRepository interface {
	AddRoom(room domain.Room) (domain.Room, error)
	GetRoom(id string) (domain.Room, error)
	GetRoomsByKeys(refs []domain.RoomRef) ([]domain.Room, error)
}

// RoomRepository persists rooms under "room:{id}". Rooms are written once
// at creation and never mutated, so no index maintenance is needed here.
type RoomRepository struct {
	db *badger.DB
}

func NewRoomRepository(db *badger.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

func roomKey(id string) []byte { return []byte("room:" + id) }

// AddRoom stores a new immutable room record. A room needs at least two
// members; anything less is a malformed request, not a storage problem.
func (r *RoomRepository) AddRoom(room domain.Room) (domain.Room, error) {
	if len(room.Users) < 2 {
		return domain.Room{}, fmt.Errorf("%w: a room needs at least two members", apperrors.ErrBadRequest)
	}
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	if room.CreatedAt.IsZero() {
		room.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(room)
	if err != nil {
		return domain.Room{}, fmt.Errorf("marshal failed: %w", err)
	}
	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(roomKey(room.ID), data)
	})
	if err != nil {
		return domain.Room{}, wrapStoreErr(err)
	}
	return room, nil
}

func (r *RoomRepository) GetRoom(id string) (domain.Room, error) {
	var room domain.Room
	err := r.db.View(func(txn *badger.Txn) error {
		found, err := readRoom(txn, id)
		if err != nil {
			return err
		}
		room = found
		return nil
	})
	if err != nil {
		return domain.Room{}, wrapStoreErr(err)
	}
	return room, nil
}

// GetRoomsByKeys batch-fetches rooms in one read transaction. A ref that no
// longer resolves is dropped silently; the resolver decides whether an
// all-missing result is fatal.
func (r *RoomRepository) GetRoomsByKeys(refs []domain.RoomRef) ([]domain.Room, error) {
	var rooms []domain.Room
	err := r.db.View(func(txn *badger.Txn) error {
		for _, ref := range refs {
			room, err := readRoom(txn, ref.ID)
			if err != nil {
				if errors.Is(err, apperrors.ErrRoomNotFound) {
					continue
				}
				return err
			}
			rooms = append(rooms, room)
		}
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	return rooms, nil
}

func readRoom(txn *badger.Txn, id string) (domain.Room, error) {
	item, err := txn.Get(roomKey(id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return domain.Room{}, apperrors.ErrRoomNotFound
		}
		return domain.Room{}, err
	}
	var room domain.Room
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &room)
	}); err != nil {
		return domain.Room{}, err
	}
	return room, nil
}
