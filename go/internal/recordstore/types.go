package recordstore

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/draftroom/go/internal/models"
)

// Table names a logical table of the record store.
type Table string

const (
	TableRooms       Table = "rooms"
	TableTeams       Table = "teams"
	TablePlayers     Table = "players"
	TableDraftStatus Table = "draft_status"
)

// EventKind names the kind of write a change event reports.
type EventKind string

const (
	EventInsert EventKind = "insert"
	EventUpdate EventKind = "update"
	EventDelete EventKind = "delete"
	// EventAll subscribes to every kind on a table.
	EventAll EventKind = "*"
	// EventResync is emitted when the feed may have missed changes. It is delivered to every subscriber.
	EventResync EventKind = "resync"
)

// ChangeEvent carries the new row image of a single write.
type ChangeEvent struct {
	Table      Table           `json:"table"`
	Kind       EventKind       `json:"kind"`
	RoomID     *uuid.UUID      `json:"room_id,omitempty"`
	Row        json.RawMessage `json:"row,omitempty"`
	ReceivedAt time.Time       `json:"received_at"`
}

// Matches reports whether the event should be delivered to a (table, kind) subscription.
func (e ChangeEvent) Matches(table Table, kind EventKind) bool {
	if e.Kind == EventResync {
		return true
	}
	if e.Table != table {
		return false
	}
	return kind == EventAll || kind == e.Kind
}

// ConcernsRoom reports whether the event may affect roomID. Events without a room are global.
func (e ChangeEvent) ConcernsRoom(roomID *uuid.UUID) bool {
	if e.RoomID == nil || roomID == nil {
		return true
	}
	return *e.RoomID == *roomID
}

// DecodeChange parses a notification payload of the form {"table","kind","row"}.
func DecodeChange(payload []byte, receivedAt time.Time) (ChangeEvent, error) {
	var ev ChangeEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return ChangeEvent{}, err
	}
	ev.ReceivedAt = receivedAt
	if ev.RoomID == nil && len(ev.Row) > 0 {
		var keys struct {
			ID     *uuid.UUID `json:"id"`
			RoomID *uuid.UUID `json:"room_id"`
		}
		if err := json.Unmarshal(ev.Row, &keys); err == nil {
			if ev.Table == TableRooms {
				ev.RoomID = keys.ID
			} else {
				ev.RoomID = keys.RoomID
			}
		}
	}
	return ev, nil
}

// RoomFilter selects rooms.
type RoomFilter struct {
	ID     *uuid.UUID
	Status *string
}

// CreateRoomRequest describes a new room.
type CreateRoomRequest struct {
	Name     string
	Password string
	Settings models.RoomSettings
}

// TeamFilter selects teams. OrderBy defaults to name. Global restricts the match to teams
// without a room and is ignored when RoomID is set.
type TeamFilter struct {
	ID      *uuid.UUID
	RoomID  *uuid.UUID
	Global  bool
	OrderBy models.TeamOrderKey
}

// PlayerFilter selects players. A non-nil Status makes an update conditional on the prior status.
// Global restricts the match to players without a room and is ignored when RoomID is set.
type PlayerFilter struct {
	ID     *uuid.UUID
	RoomID *uuid.UUID
	Global bool
	TeamID *uuid.UUID
	Status *models.PlayerStatus
}

// PlayerFields are the columns written by a player update.
type PlayerFields struct {
	Status models.PlayerStatus
	TeamID *uuid.UUID
}

// StatusFilter selects the draft_status row. With neither field set it matches the global session.
type StatusFilter struct {
	ID     *uuid.UUID
	RoomID *uuid.UUID
}

// StatusFields is the (phase, current team) pair written by every coordinator operation.
type StatusFields struct {
	Status        models.DraftPhase
	CurrentTeamID *uuid.UUID
}
