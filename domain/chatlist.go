package domain

// ChatListEntry pairs a room with the live records of its other members.
// It is derived on demand and never cached beyond one request, because
// recipient status and connection handles are volatile.
type ChatListEntry struct {
	Room           Room   `json:"chat"`
	RecipientUsers []User `json:"recipientUsers"`
}
