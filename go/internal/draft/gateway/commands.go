package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mcdev12/draftroom/go/internal/draft/events"
	"github.com/mcdev12/draftroom/go/internal/draft/session"
	"github.com/mcdev12/draftroom/go/internal/models"
	"github.com/rs/zerolog/log"
)

// handleClientMessage runs one command and answers the sender. Failures never close the
// connection.
func (c *Connection) handleClientMessage(ctx context.Context, raw []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.sendMessage(errorMessage("", fmt.Errorf("%w: %v", ErrBadMessage, err)))
		return
	}

	reply, err := c.execute(ctx, msg)
	if err != nil {
		log.Warn().
			Err(err).
			Str("connection_id", c.ID).
			Str("command", string(msg.Type)).
			Msg("command failed")
		c.sendMessage(errorMessage(msg.RequestID, err))
		return
	}
	reply.RequestID = msg.RequestID
	c.sendMessage(reply)
}

func (c *Connection) execute(ctx context.Context, msg ClientMessage) (ServerMessage, error) {
	if !Allowed(c.Role, msg.Type) {
		if msg.Type == "" {
			return ServerMessage{}, fmt.Errorf("%w: missing command type", ErrBadMessage)
		}
		return ServerMessage{}, fmt.Errorf("%w: %s cannot %s", ErrForbidden, c.Role, msg.Type)
	}

	coordinator := c.session.Coordinator
	var (
		state models.DraftState
		err   error
	)
	switch msg.Type {
	case CommandStart:
		state, err = coordinator.Start(ctx)
	case CommandPause:
		state, err = coordinator.Pause(ctx)
	case CommandAdvance:
		state, err = coordinator.Advance(ctx)
	case CommandEnd:
		state, err = coordinator.End(ctx)
	case CommandRefresh:
		err = coordinator.Refresh(ctx)
		state = coordinator.State()
	case CommandPassTurn:
		if c.TeamID == nil {
			return ServerMessage{}, fmt.Errorf("%w: connection is not bound to a team", ErrForbidden)
		}
		if err = c.session.Broker.PassTurn(ctx, *c.TeamID); err == nil {
			err = coordinator.Refresh(ctx)
		}
		state = coordinator.State()
	case CommandSelectPlayer:
		return c.selectPlayer(ctx, msg)
	}
	if err != nil {
		return ServerMessage{}, err
	}
	return ServerMessage{Type: MessageTypeResult, State: c.view(state)}, nil
}

// selectPlayer claims for the connection's own team.
func (c *Connection) selectPlayer(ctx context.Context, msg ClientMessage) (ServerMessage, error) {
	if c.TeamID == nil {
		return ServerMessage{}, fmt.Errorf("%w: connection is not bound to a team", ErrForbidden)
	}
	if msg.TeamID != nil && *msg.TeamID != *c.TeamID {
		return ServerMessage{}, fmt.Errorf("%w: cannot select for another team", ErrForbidden)
	}
	if msg.PlayerID == nil {
		return ServerMessage{}, fmt.Errorf("%w: player_id is required", ErrBadMessage)
	}

	player, err := c.session.Broker.SelectPlayer(ctx, *c.TeamID, *msg.PlayerID)
	if err != nil {
		return ServerMessage{}, err
	}
	return ServerMessage{
		Type:   MessageTypeResult,
		State:  c.view(c.session.Coordinator.State()),
		Player: player,
	}, nil
}

func (c *Connection) view(s models.DraftState) *StateView {
	v := NewStateView(c.session.Coordinator, s, c.Role == models.UserRoleAuctioneer)
	return &v
}

// NewStateView renders s. Available actions are listed only when withActions is set.
func NewStateView(coordinator *session.Coordinator, s models.DraftState, withActions bool) StateView {
	actions := []session.Action{}
	if withActions {
		actions = append(actions, session.AvailableActions(s.Phase)...)
	}
	return StateView{
		Phase:           s.Phase,
		CurrentTeamID:   s.CurrentTeamID,
		CurrentTeamName: coordinator.TeamName(s.CurrentTeamID),
		TeamOrder:       s.TeamOrder,
		Actions:         actions,
		ObservedAt:      s.ObservedAt,
	}
}

func errorMessage(requestID string, err error) ServerMessage {
	notice := events.ErrorNotice(err)
	return ServerMessage{
		Type:      MessageTypeError,
		RequestID: requestID,
		Notice:    &notice,
		Code:      ErrorCode(err),
	}
}
