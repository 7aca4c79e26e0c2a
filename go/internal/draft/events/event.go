package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type names a domain event.
type Type string

const (
	TypeDraftStarted   Type = "DraftStarted"
	TypeDraftPaused    Type = "DraftPaused"
	TypeDraftResumed   Type = "DraftResumed"
	TypeTurnAdvanced   Type = "TurnAdvanced"
	TypeDraftCompleted Type = "DraftCompleted"
	TypePlayerClaimed  Type = "PlayerClaimed"
	TypeTurnPassed     Type = "TurnPassed"
)

// Event is a domain event emitted after a successful coordinator or broker operation.
type Event struct {
	ID         uuid.UUID       `json:"eventId"`
	Type       Type            `json:"eventType"`
	RoomID     *uuid.UUID      `json:"roomId,omitempty"`
	OccurredAt time.Time       `json:"timestamp"`
	Payload    json.RawMessage `json:"payload"`
}

// Emitter receives domain events. Emission failures never fail the operation that caused them.
type Emitter interface {
	Emit(ctx context.Context, ev Event) error
}

// New builds an event with a fresh ID and a marshaled payload.
func New(typ Type, roomID *uuid.UUID, at time.Time, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal %s payload: %w", typ, err)
	}
	return Event{
		ID:         uuid.New(),
		Type:       typ,
		RoomID:     roomID,
		OccurredAt: at.UTC(),
		Payload:    raw,
	}, nil
}

// ParsePayload parses event data into the appropriate payload struct
func ParsePayload(ev Event) (interface{}, error) {
	var target interface{}
	switch ev.Type {
	case TypeDraftStarted:
		target = &DraftStartedPayload{}
	case TypeDraftPaused:
		target = &DraftPausedPayload{}
	case TypeDraftResumed:
		target = &DraftResumedPayload{}
	case TypeTurnAdvanced:
		target = &TurnAdvancedPayload{}
	case TypeDraftCompleted:
		target = &DraftCompletedPayload{}
	case TypePlayerClaimed:
		target = &PlayerClaimedPayload{}
	case TypeTurnPassed:
		target = &TurnPassedPayload{}
	default:
		return nil, fmt.Errorf("unknown event type: %s", ev.Type)
	}
	if err := json.Unmarshal(ev.Payload, target); err != nil {
		return nil, err
	}
	return target, nil
}
