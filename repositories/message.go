package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"chatx/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type IMessageRepository interface {
	StoreMessage(message domain.Message) (domain.Message, error)
	GetMessages(roomID string, cursor *string) ([]domain.Message, *string, error)
}

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) *MessageRepository {
	return &MessageRepository{db: db, log: log, limitMessages: limitMessages}
}

// diskMessage is the persisted shape; the transient dispatch target list on
// domain.Message never reaches the store.
type diskMessage struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"chatId"`
	SenderID  string    `json:"senderId"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// StoreMessage persists a message in BadgerDB.
// The key is formatted as "msg:{room_id}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding (lexicographical order).
//  2. Prevent data loss by using UUID as a collision disconnector if two messages
//     arrive at the same nanosecond.
func (m *MessageRepository) StoreMessage(message domain.Message) (domain.Message, error) {
	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if message.CreatedAt.IsZero() {
		message.CreatedAt = now
	}
	message.UpdatedAt = now

	key := fmt.Sprintf("msg:%s:%019d:%s",
		message.RoomID,
		message.CreatedAt.UnixNano(),
		message.ID,
	)
	data, err := json.Marshal(diskMessage{
		ID:        message.ID,
		RoomID:    message.RoomID,
		SenderID:  message.SenderID,
		Text:      message.Text,
		CreatedAt: message.CreatedAt,
		UpdatedAt: message.UpdatedAt,
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("marshal failed: %w", err)
	}
	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
	if err != nil {
		return domain.Message{}, wrapStoreErr(err)
	}
	return message, nil
}

// GetMessages retrieves messages for a room using a reverse prefix scan.
// Thanks to the padded timestamp in the key, messages come back newest
// first. The returned cursor resumes the scan on the next page; scanning
// stops once the configured limitMessages is reached.
func (m *MessageRepository) GetMessages(roomID string, cursor *string) ([]domain.Message, *string, error) {
	var raw [][]byte
	var lastKey string
	var truncated bool
	err := m.db.View(func(txn *badger.Txn) error {
		prefixStr := fmt.Sprintf("msg:%s:", roomID)
		prefix := []byte(prefixStr)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			// Seek past the newest possible key for the room, then walk back.
			seekKey = append(prefix, []byte("9999999999999999999")...)
		default:
			seekKey = append(prefix, []byte(*cursor)...)
		}

		it.Seek(seekKey)

		if cursor != nil && it.ValidForPrefix(prefix) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if m.limitMessages != nil && len(raw) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d messages reached", *m.limitMessages))
				truncated = true
				break
			}
			item := it.Item()
			lastKey = string(item.Key()[len(prefixStr):])
			if err := item.Value(func(value []byte) error {
				cp := append([]byte(nil), value...)
				raw = append(raw, cp)
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, wrapStoreErr(err)
	}

	var messages []domain.Message
	for _, b := range raw {
		var disk diskMessage
		if err := json.Unmarshal(b, &disk); err != nil {
			return nil, nil, fmt.Errorf("unmarshal failed: %w", err)
		}
		messages = append(messages, domain.Message{
			ID:        disk.ID,
			RoomID:    disk.RoomID,
			SenderID:  disk.SenderID,
			Text:      disk.Text,
			CreatedAt: disk.CreatedAt,
			UpdatedAt: disk.UpdatedAt,
		})
	}
	if !truncated {
		return messages, nil, nil
	}
	return messages, &lastKey, nil
}
