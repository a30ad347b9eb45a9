// Package domain contains core concepts of the chat system.
// This file defines Message events and related rules.
// Messages are immutable and validated by the domain.
package domain

import "time"

// Message represents an immutable chat event. Connections is a transient
// dispatch target list declared by the sender; it is never persisted.
type Message struct {
	ID          string    `json:"id"`
	RoomID      string    `json:"chatId"`
	SenderID    string    `json:"senderId"`
	Text        string    `json:"text"`
	Connections []string  `json:"connections,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
