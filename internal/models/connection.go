package models

import (
	"time"

	"github.com/google/uuid"
)

// Connection is a networking request between two users. A pair of users has
// at most one connection, whichever of them asked first.
type Connection struct {
	ID         uuid.UUID `json:"id"`
	FollowerID uuid.UUID `json:"follower_id"`
	FollowedID uuid.UUID `json:"followed_id"`
	Status     Status    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Involves reports whether userID is either side of the connection.
func (c *Connection) Involves(userID uuid.UUID) bool {
	return c.FollowerID == userID || c.FollowedID == userID
}

// ProfileStats are the activity counters shown on a user's profile.
type ProfileStats struct {
	Attended     int `json:"attended"`
	Organized    int `json:"organized"`
	Volunteering int `json:"volunteering"`
	Connections  int `json:"connections"`
}
