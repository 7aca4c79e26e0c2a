package models

import (
	"time"

	"github.com/google/uuid"
)

// PlayerStatus defines where a player is in the selection flow.
type PlayerStatus string

const (
	PlayerStatusAvailable PlayerStatus = "Available"
	PlayerStatusPending   PlayerStatus = "Pending"
	PlayerStatusSelected  PlayerStatus = "Selected"
)

// PlayerRole defines the playing role of a player.
type PlayerRole string

const (
	PlayerRoleBatsman      PlayerRole = "Batsman"
	PlayerRoleBowler       PlayerRole = "Bowler"
	PlayerRoleAllRounder   PlayerRole = "All-rounder"
	PlayerRoleWicketkeeper PlayerRole = "Wicketkeeper"
)

// Player represents a draftable player in the shared pool
type Player struct {
	ID          uuid.UUID    `json:"id"`
	RoomID      *uuid.UUID   `json:"room_id,omitempty"`
	Name        string       `json:"name"`
	Nationality string       `json:"nationality"`
	Role        PlayerRole   `json:"role"`
	Age         int          `json:"age"`
	BasePrice   int64        `json:"base_price"`
	SoldAmount  *int64       `json:"sold_amount,omitempty"`
	Status      PlayerStatus `json:"status"`
	TeamID      *uuid.UUID   `json:"team_id,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// IsAvailable reports whether the player can still be claimed.
func (p Player) IsAvailable() bool {
	return p.Status == PlayerStatusAvailable
}
