package repositories

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "chatx/errors"

	"chatx/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

type IUserRepository interface {
	CreateUser(user domain.User) (domain.User, error)
	GetUser(id string) (domain.User, error)
	GetUsersByKeys(ids []string) ([]domain.User, error)
	FindByUsername(username string) (domain.User, error)
	QueryUsersByStatus(status domain.Status, excludeID string) ([]domain.User, error)
	QueryUserByConnection(connectionID string) (domain.User, error)
	UpdateConnection(id string, status domain.Status, connectionID string) (domain.User, error)
	AppendRoomRef(id string, ref domain.RoomRef) (domain.User, error)
}

// UserRepository persists users in BadgerDB together with three derived
// index entries maintained in the same transaction as the record itself:
//
//	user:{id}            -> JSON user record
//	username:{username}  -> id (uniqueness + lookup by name)
//	conn:{connectionId}  -> id (reverse lookup for disconnects)
//	status:{status}:{id} -> id (scan of online/offline users)
//
// Keeping the indexes inside the record's transaction is what lets the
// registry rely on single-record atomicity instead of cross-record locks.
type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) *UserRepository {
	return &UserRepository{db: db}
}

// diskUser mirrors domain.User with the password hash serialized, which the
// domain type deliberately refuses to do.
type diskUser struct {
	ID           string           `json:"id"`
	Username     string           `json:"username"`
	Email        string           `json:"email"`
	PasswordHash string           `json:"passwordHash"`
	Status       domain.Status    `json:"status"`
	ConnectionID string           `json:"connectionId"`
	ChatRooms    []domain.RoomRef `json:"chatRooms"`
	CreatedAt    time.Time        `json:"createdAt"`
}

func userKey(id string) []byte         { return []byte("user:" + id) }
func usernameKey(name string) []byte   { return []byte("username:" + name) }
func connKey(connID string) []byte     { return []byte("conn:" + connID) }
func statusKey(s domain.Status, id string) []byte {
	return []byte(fmt.Sprintf("status:%s:%s", s, id))
}

func fromDomainUser(u domain.User) diskUser {
	return diskUser{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Status:       u.Status,
		ConnectionID: u.ConnectionID,
		ChatRooms:    u.ChatRooms,
		CreatedAt:    u.CreatedAt,
	}
}

func toDomainUser(d diskUser) domain.User {
	return domain.User{
		ID:           d.ID,
		Username:     d.Username,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Status:       d.Status,
		ConnectionID: d.ConnectionID,
		ChatRooms:    d.ChatRooms,
		CreatedAt:    d.CreatedAt,
	}
}

// CreateUser persists a new user as OFFLINE with no connection handle.
// Username uniqueness is enforced by the username index entry created in
// the same transaction.
func (r *UserRepository) CreateUser(user domain.User) (domain.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Status = domain.StatusOffline
	user.ConnectionID = ""
	if user.ChatRooms == nil {
		user.ChatRooms = []domain.RoomRef{}
	}

	data, err := json.Marshal(fromDomainUser(user))
	if err != nil {
		return domain.User{}, fmt.Errorf("marshal failed: %w", err)
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(usernameKey(user.Username)); err == nil {
			return apperrors.ErrUserAlreadyExists
		}
		if err := txn.Set(userKey(user.ID), data); err != nil {
			return err
		}
		if err := txn.Set(usernameKey(user.Username), []byte(user.ID)); err != nil {
			return err
		}
		return txn.Set(statusKey(domain.StatusOffline, user.ID), []byte(user.ID))
	})
	if err != nil {
		return domain.User{}, wrapStoreErr(err)
	}
	return user, nil
}

func (r *UserRepository) GetUser(id string) (domain.User, error) {
	var user domain.User
	err := r.db.View(func(txn *badger.Txn) error {
		found, err := readUser(txn, id)
		if err != nil {
			return err
		}
		user = found
		return nil
	})
	if err != nil {
		return domain.User{}, wrapStoreErr(err)
	}
	return user, nil
}

// GetUsersByKeys batch-fetches users inside a single read transaction.
// Missing ids are skipped, not fatal: callers re-derive consistency from
// what the store still holds.
func (r *UserRepository) GetUsersByKeys(ids []string) ([]domain.User, error) {
	var users []domain.User
	err := r.db.View(func(txn *badger.Txn) error {
		for _, id := range lo.Uniq(ids) {
			user, err := readUser(txn, id)
			if err != nil {
				if errors.Is(err, apperrors.ErrUserNotFound) {
					continue
				}
				return err
			}
			users = append(users, user)
		}
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	return users, nil
}

func (r *UserRepository) FindByUsername(username string) (domain.User, error) {
	var user domain.User
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(usernameKey(username))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return apperrors.ErrUserNotFound
			}
			return err
		}
		var id string
		if err := item.Value(func(val []byte) error {
			id = string(val)
			return nil
		}); err != nil {
			return err
		}
		found, err := readUser(txn, id)
		if err != nil {
			return err
		}
		user = found
		return nil
	})
	if err != nil {
		return domain.User{}, wrapStoreErr(err)
	}
	return user, nil
}

// QueryUsersByStatus scans the status index prefix and resolves the ids
// into full records within the same transaction.
func (r *UserRepository) QueryUsersByStatus(status domain.Status, excludeID string) ([]domain.User, error) {
	var users []domain.User
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("status:%s:", status))
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			id := string(it.Item().Key()[len(prefix):])
			if id == excludeID {
				continue
			}
			user, err := readUser(txn, id)
			if err != nil {
				if errors.Is(err, apperrors.ErrUserNotFound) {
					continue
				}
				return err
			}
			users = append(users, user)
		}
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	return users, nil
}

// QueryUserByConnection resolves the owning user of a transport handle via
// the conn reverse index.
func (r *UserRepository) QueryUserByConnection(connectionID string) (domain.User, error) {
	var user domain.User
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(connKey(connectionID))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return apperrors.ErrUserNotFound
			}
			return err
		}
		var id string
		if err := item.Value(func(val []byte) error {
			id = string(val)
			return nil
		}); err != nil {
			return err
		}
		found, err := readUser(txn, id)
		if err != nil {
			return err
		}
		user = found
		return nil
	})
	if err != nil {
		return domain.User{}, wrapStoreErr(err)
	}
	return user, nil
}

// UpdateConnection atomically rewrites the user's status and connection
// handle and keeps the conn and status index entries in step. It is the
// single write path for online/offline transitions, so the
// "ONLINE iff handle set" invariant is enforced here and nowhere else.
func (r *UserRepository) UpdateConnection(id string, status domain.Status, connectionID string) (domain.User, error) {
	if status == domain.StatusOnline && connectionID == "" {
		return domain.User{}, fmt.Errorf("%w: online user requires a connection handle", apperrors.ErrBadRequest)
	}
	if status == domain.StatusOffline {
		connectionID = ""
	}

	var user domain.User
	err := r.db.Update(func(txn *badger.Txn) error {
		current, err := readUser(txn, id)
		if err != nil {
			return err
		}

		if current.ConnectionID != "" && current.ConnectionID != connectionID {
			if err := txn.Delete(connKey(current.ConnectionID)); err != nil {
				return err
			}
		}
		if current.Status != status {
			if err := txn.Delete(statusKey(current.Status, id)); err != nil {
				return err
			}
		}

		current.Status = status
		current.ConnectionID = connectionID

		data, err := json.Marshal(fromDomainUser(current))
		if err != nil {
			return err
		}
		if err := txn.Set(userKey(id), data); err != nil {
			return err
		}
		if err := txn.Set(statusKey(status, id), []byte(id)); err != nil {
			return err
		}
		if connectionID != "" {
			if err := txn.Set(connKey(connectionID), []byte(id)); err != nil {
				return err
			}
		}
		user = current
		return nil
	})
	if err != nil {
		return domain.User{}, wrapStoreErr(err)
	}
	return user, nil
}

// AppendRoomRef adds a room membership entry to the user record, skipping
// duplicates so retried room creations stay idempotent per member.
func (r *UserRepository) AppendRoomRef(id string, ref domain.RoomRef) (domain.User, error) {
	var user domain.User
	err := r.db.Update(func(txn *badger.Txn) error {
		current, err := readUser(txn, id)
		if err != nil {
			return err
		}
		if !lo.ContainsBy(current.ChatRooms, func(r domain.RoomRef) bool { return r.ID == ref.ID }) {
			current.ChatRooms = append(current.ChatRooms, ref)
			data, err := json.Marshal(fromDomainUser(current))
			if err != nil {
				return err
			}
			if err := txn.Set(userKey(id), data); err != nil {
				return err
			}
		}
		user = current
		return nil
	})
	if err != nil {
		return domain.User{}, wrapStoreErr(err)
	}
	return user, nil
}

func readUser(txn *badger.Txn, id string) (domain.User, error) {
	item, err := txn.Get(userKey(id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return domain.User{}, apperrors.ErrUserNotFound
		}
		return domain.User{}, err
	}
	var disk diskUser
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &disk)
	}); err != nil {
		return domain.User{}, err
	}
	return toDomainUser(disk), nil
}
