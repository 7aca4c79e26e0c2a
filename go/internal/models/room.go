package models

import (
	"time"

	"github.com/google/uuid"
)

// RoomStatusActive marks a room that is listed and joinable.
const RoomStatusActive = "active"

// TeamOrderKey selects the stable key teams are rotated by.
type TeamOrderKey string

const (
	TeamOrderByName      TeamOrderKey = "name"
	TeamOrderByCreatedAt TeamOrderKey = "created_at"
)

// StartPolicy selects how the first turn holder is chosen.
type StartPolicy string

const (
	StartPolicyRandom StartPolicy = "random"
	StartPolicyFirst  StartPolicy = "first"
)

// RoomSettings holds JSONB configuration for a room.
type RoomSettings struct {
	TeamOrder   TeamOrderKey `json:"team_order,omitempty"`
	StartPolicy StartPolicy  `json:"start_policy,omitempty"`
}

// WithDefaults fills unset settings.
func (s RoomSettings) WithDefaults() RoomSettings {
	if s.TeamOrder == "" {
		s.TeamOrder = TeamOrderByName
	}
	if s.StartPolicy == "" {
		s.StartPolicy = StartPolicyRandom
	}
	return s
}

// Room represents an auction room hosting one draft session.
type Room struct {
	ID        uuid.UUID    `json:"id"`
	Name      string       `json:"name"`
	Password  string       `json:"-"`
	Status    string       `json:"status"`
	Settings  RoomSettings `json:"settings"`
	CreatedAt time.Time    `json:"created_at"`
}

// UserRole is the self-declared role of a connected participant.
type UserRole string

const (
	UserRoleAuctioneer UserRole = "Auctioneer"
	UserRoleTeamOwner  UserRole = "Team Owner"
	UserRoleViewer     UserRole = "Viewer"
)

// ParseUserRole accepts the display name or a lowercase slug.
func ParseUserRole(s string) (UserRole, bool) {
	switch s {
	case string(UserRoleAuctioneer), "auctioneer":
		return UserRoleAuctioneer, true
	case string(UserRoleTeamOwner), "team_owner", "owner":
		return UserRoleTeamOwner, true
	case string(UserRoleViewer), "viewer":
		return UserRoleViewer, true
	default:
		return "", false
	}
}
