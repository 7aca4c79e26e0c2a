package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/mcdev12/draftroom/go/internal/draft/gateway"
	"github.com/mcdev12/draftroom/go/internal/draft/session"
	"github.com/mcdev12/draftroom/go/internal/models"
	"github.com/mcdev12/draftroom/go/internal/rooms"
)

// Handler serves the REST API. Every draft operation runs on a fresh per-request session.
type Handler struct {
	rooms    *rooms.App
	sessions gateway.SessionFactory
}

func NewHandler(app *rooms.App, sessions gateway.SessionFactory) *Handler {
	return &Handler{rooms: app, sessions: sessions}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, jsonResponse{"status": "ok"})
}

func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	list, err := h.rooms.ListActiveRooms(r.Context())
	if err != nil {
		mapErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"rooms": list})
}

func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var input rooms.CreateRoomRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}

	room, err := h.rooms.CreateRoom(r.Context(), input)
	if err != nil {
		mapErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, jsonResponse{"room": room})
}

func (h *Handler) GetRoom(w http.ResponseWriter, r *http.Request) {
	roomID, err := roomIDFromURL(r)
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	room, err := h.rooms.GetRoom(r.Context(), *roomID)
	if err != nil {
		mapErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"room": room})
}

func (h *Handler) ListTeams(w http.ResponseWriter, r *http.Request) {
	roomID, err := roomIDFromURL(r)
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	teams, err := h.rooms.ListTeams(r.Context(), roomID)
	if err != nil {
		mapErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"teams": teams})
}

func (h *Handler) ListPlayers(w http.ResponseWriter, r *http.Request) {
	roomID, err := roomIDFromURL(r)
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	var status *models.PlayerStatus
	if s := r.URL.Query().Get("status"); s != "" {
		st := models.PlayerStatus(s)
		switch st {
		case models.PlayerStatusAvailable, models.PlayerStatusPending, models.PlayerStatusSelected:
		default:
			badRequestResponse(w, fmt.Errorf("unknown player status %q", s))
			return
		}
		status = &st
	}

	players, err := h.rooms.ListPlayers(r.Context(), roomID, status)
	if err != nil {
		mapErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"players": players})
}

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	roomID, err := roomIDFromURL(r)
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	ds, err := h.rooms.GetDraftStatus(r.Context(), roomID)
	if err != nil {
		mapErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{
		"status":  ds,
		"actions": session.AvailableActions(ds.Status),
	})
}

func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	roomID, err := roomIDFromURL(r)
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	d, err := h.rooms.GetDashboard(r.Context(), roomID)
	if err != nil {
		mapErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

type coordinatorOp func(c *session.Coordinator, ctx context.Context) (models.DraftState, error)

// draftOp adapts a coordinator operation to a handler.
func (h *Handler) draftOp(op coordinatorOp) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID, err := roomIDFromURL(r)
		if err != nil {
			badRequestResponse(w, err)
			return
		}
		sess, err := h.sessions.NewSession(r.Context(), roomID)
		if err != nil {
			mapErrorToHTTP(w, r, err)
			return
		}
		state, err := op(sess.Coordinator, r.Context())
		if err != nil {
			mapErrorToHTTP(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, jsonResponse{"state": gateway.NewStateView(sess.Coordinator, state, true)})
	}
}

type selectPlayerRequest struct {
	PlayerID uuid.UUID `json:"player_id"`
}

func (h *Handler) SelectPlayer(w http.ResponseWriter, r *http.Request) {
	roomID, err := roomIDFromURL(r)
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	p := participantFrom(r.Context())
	if p.TeamID == nil {
		mapErrorToHTTP(w, r, fmt.Errorf("%w: %s header is required", gateway.ErrForbidden, HeaderTeamID))
		return
	}

	var input selectPlayerRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}
	if input.PlayerID == uuid.Nil {
		badRequestResponse(w, errors.New("player_id is required"))
		return
	}

	sess, err := h.sessions.NewSession(r.Context(), roomID)
	if err != nil {
		mapErrorToHTTP(w, r, err)
		return
	}
	player, err := sess.Broker.SelectPlayer(r.Context(), *p.TeamID, input.PlayerID)
	if err != nil {
		mapErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"player": player})
}

func (h *Handler) PassTurn(w http.ResponseWriter, r *http.Request) {
	roomID, err := roomIDFromURL(r)
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	p := participantFrom(r.Context())
	if p.TeamID == nil {
		mapErrorToHTTP(w, r, fmt.Errorf("%w: %s header is required", gateway.ErrForbidden, HeaderTeamID))
		return
	}
	sess, err := h.sessions.NewSession(r.Context(), roomID)
	if err != nil {
		mapErrorToHTTP(w, r, err)
		return
	}
	if err := sess.Broker.PassTurn(r.Context(), *p.TeamID); err != nil {
		mapErrorToHTTP(w, r, err)
		return
	}
	if err := sess.Coordinator.Refresh(r.Context()); err != nil {
		mapErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"state": gateway.NewStateView(sess.Coordinator, sess.Coordinator.State(), true)})
}
