// Package event defines the socket wire envelope and the dispatch
// outcome types shared by the router, dispatcher, and transport.
package event

import (
	"encoding/json"
	"fmt"

	"chatx/domain"
	"chatx/errors"
)

type Type string

const (
	TypeInit       Type = "INIT"
	TypeNewMessage Type = "NEW_MESSAGE"
)

// Action is the single socket route; every envelope carries it.
const Action = "onMessage"

// Metadata is the optional side channel of an envelope. INIT replies use it
// to hand the client its canonical user record and resolved chat list.
type Metadata struct {
	UserID        string                 `json:"userId,omitempty"`
	User          *domain.User           `json:"user,omitempty"`
	UserChatRooms []domain.RoomRef       `json:"userChatRooms,omitempty"`
	ChatList      []domain.ChatListEntry `json:"chatList,omitempty"`
	Error         string                 `json:"error,omitempty"`
}

// Envelope is the discriminated union wrapping every real-time event.
// Message is kept raw until Type has been inspected; unknown tags are a
// BadRequest, never silently dropped.
type Envelope struct {
	Action   string          `json:"action"`
	Type     Type            `json:"type"`
	Message  json.RawMessage `json:"message"`
	Metadata *Metadata       `json:"metadata,omitempty"`
}

// Decode parses a raw inbound frame into an envelope and validates the
// discriminator. The payload stays raw; callers pick the typed view.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: malformed envelope: %v", errors.ErrBadRequest, err)
	}
	switch env.Type {
	case TypeInit, TypeNewMessage:
		return env, nil
	default:
		return Envelope{}, fmt.Errorf("%w: unknown event type %q, expected one of [%s %s]",
			errors.ErrBadRequest, env.Type, TypeInit, TypeNewMessage)
	}
}

// NewMessagePayload extracts the Message of a NEW_MESSAGE envelope.
func (e Envelope) NewMessagePayload() (domain.Message, error) {
	if e.Type != TypeNewMessage {
		return domain.Message{}, fmt.Errorf("%w: envelope is %s, not %s", errors.ErrBadRequest, e.Type, TypeNewMessage)
	}
	var msg domain.Message
	if err := json.Unmarshal(e.Message, &msg); err != nil {
		return domain.Message{}, fmt.Errorf("%w: malformed message payload: %v", errors.ErrBadRequest, err)
	}
	return msg, nil
}

// NewInitReply builds the INIT response targeted at the requesting
// connection: message carries the connection handle, metadata the resolved
// state the client boots from.
func NewInitReply(connectionID string, user *domain.User, chatList []domain.ChatListEntry, resolveErr string) (Envelope, error) {
	raw, err := json.Marshal(connectionID)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		Action:  Action,
		Type:    TypeInit,
		Message: raw,
		Metadata: &Metadata{
			User:          user,
			UserChatRooms: user.ChatRooms,
			ChatList:      chatList,
			Error:         resolveErr,
		},
	}, nil
}

// NewMessageEnvelope wraps an outbound chat message for fan-out.
func NewMessageEnvelope(msg domain.Message) (Envelope, error) {
	raw, err := json.Marshal(msg)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Action: Action, Type: TypeNewMessage, Message: raw}, nil
}

// Encode serializes the envelope once so fan-out pushes share the bytes.
func (e Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}
