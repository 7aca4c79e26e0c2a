package gateway

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/draftroom/go/internal/draft/events"
	"github.com/mcdev12/draftroom/go/internal/draft/selection"
	"github.com/mcdev12/draftroom/go/internal/draft/session"
	"github.com/mcdev12/draftroom/go/internal/models"
)

// CommandType is an operation requested by a client.
type CommandType string

const (
	CommandStart        CommandType = "start"
	CommandPause        CommandType = "pause"
	CommandAdvance      CommandType = "advance"
	CommandEnd          CommandType = "end"
	CommandSelectPlayer CommandType = "select_player"
	CommandPassTurn     CommandType = "pass_turn"
	CommandRefresh      CommandType = "refresh"
)

// ClientMessage is a command sent over the websocket.
type ClientMessage struct {
	Type      CommandType `json:"type"`
	RequestID string      `json:"request_id,omitempty"`
	PlayerID  *uuid.UUID  `json:"player_id,omitempty"`
	TeamID    *uuid.UUID  `json:"team_id,omitempty"`
}

// MessageType identifies a server message.
type MessageType string

const (
	MessageTypeState  MessageType = "state"
	MessageTypeResult MessageType = "result"
	MessageTypeEvent  MessageType = "event"
	MessageTypeError  MessageType = "error"
)

// ServerMessage is everything the gateway writes to a client.
type ServerMessage struct {
	Type      MessageType    `json:"type"`
	RequestID string         `json:"request_id,omitempty"`
	State     *StateView     `json:"state,omitempty"`
	Player    *models.Player `json:"player,omitempty"`
	Event     *events.Event  `json:"event,omitempty"`
	Notice    *events.Notice `json:"notice,omitempty"`
	Code      string         `json:"code,omitempty"`
}

// StateView is the session state as presented to a client.
type StateView struct {
	Phase           models.DraftPhase `json:"phase"`
	CurrentTeamID   *uuid.UUID        `json:"current_team_id"`
	CurrentTeamName string            `json:"current_team_name"`
	TeamOrder       []uuid.UUID       `json:"team_order,omitempty"`
	Actions         []session.Action  `json:"actions"`
	ObservedAt      time.Time         `json:"observed_at"`
}

var (
	ErrForbidden  = errors.New("role is not allowed to do that")
	ErrBadMessage = errors.New("malformed message")
)

// ErrorCode maps an operation error to a stable client-facing code.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, session.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, selection.ErrNotYourTurn):
		return "not_your_turn"
	case errors.Is(err, selection.ErrPlayerUnavailable):
		return "player_unavailable"
	case errors.Is(err, session.ErrStoreUnavailable):
		return "store_unavailable"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrBadMessage):
		return "bad_request"
	default:
		return "internal"
	}
}

// Allowed reports whether role may issue cmd.
func Allowed(role models.UserRole, cmd CommandType) bool {
	switch cmd {
	case CommandRefresh:
		return true
	case CommandStart, CommandPause, CommandAdvance, CommandEnd:
		return role == models.UserRoleAuctioneer
	case CommandSelectPlayer, CommandPassTurn:
		return role == models.UserRoleTeamOwner
	default:
		return false
	}
}
