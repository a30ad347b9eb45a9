package domain

import "time"

// Member is the projection of a user stored on a room record.
// Rooms keep only what the chat list needs; live status is always
// re-read from the user store.
type Member struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Room is immutable after creation: membership changes are out of scope,
// so a room is created once with its full member set (at least two).
type Room struct {
	ID        string    `json:"id"`
	Users     []Member  `json:"users"`
	CreatedAt time.Time `json:"createdAt"`
}

// Recipients returns the members of the room other than the given user.
func (r Room) Recipients(userID string) []Member {
	var others []Member
	for _, m := range r.Users {
		if m.ID != userID {
			others = append(others, m)
		}
	}
	return others
}
