// Package domain contains core concepts of the chat system.
// This file defines User records and the online/offline invariant.
// No runtime, network, or UI logic should be added here.
package domain

import "time"

type Status string

const (
	StatusOnline  Status = "ONLINE"
	StatusOffline Status = "OFFLINE"
)

// RoomRef is the room membership entry kept on the user record.
type RoomRef struct {
	ID string `json:"id"`
}

// User is the durable identity record. ConnectionID is the ephemeral
// transport handle and must be non-empty exactly while Status is ONLINE.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Status       Status    `json:"status"`
	ConnectionID string    `json:"connectionId,omitempty"`
	ChatRooms    []RoomRef `json:"chatRooms"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Reachable reports whether the user currently owns a live connection.
func (u User) Reachable() bool {
	return u.Status == StatusOnline && u.ConnectionID != ""
}
