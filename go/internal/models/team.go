package models

import (
	"time"

	"github.com/google/uuid"
)

// Team represents a bidding team inside a room
type Team struct {
	ID        uuid.UUID  `json:"id"`
	RoomID    *uuid.UUID `json:"room_id,omitempty"`
	Name      string     `json:"name"`
	Budget    int64      `json:"budget"`
	Logo      *string    `json:"logo,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
