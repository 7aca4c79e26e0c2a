package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mcdev12/draftroom/go/internal/models"
	"github.com/mcdev12/draftroom/go/internal/recordstore"
	"github.com/rs/zerolog/log"
)

// WebSocketHandler handles websocket upgrade requests for draft rooms
type WebSocketHandler struct {
	connectionManager *ConnectionManager
}

// NewWebSocketHandler creates a new websocket handler
func NewWebSocketHandler(cm *ConnectionManager) *WebSocketHandler {
	return &WebSocketHandler{
		connectionManager: cm,
	}
}

// HandleRoomConnection upgrades a client. Query parameters: room_id (omit for the global
// session), role, team_id (required for team owners) and user_id.
func (h *WebSocketHandler) HandleRoomConnection(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	params := ConnectParams{UserID: q.Get("user_id")}
	if params.UserID == "" {
		params.UserID = "anonymous"
	}

	if s := q.Get("room_id"); s != "" {
		roomID, err := uuid.Parse(s)
		if err != nil {
			http.Error(w, "invalid room_id format", http.StatusBadRequest)
			return
		}
		params.RoomID = &roomID
	}

	params.Role = models.UserRoleViewer
	if s := q.Get("role"); s != "" {
		role, ok := models.ParseUserRole(s)
		if !ok {
			http.Error(w, "unknown role", http.StatusBadRequest)
			return
		}
		params.Role = role
	}

	if s := q.Get("team_id"); s != "" {
		teamID, err := uuid.Parse(s)
		if err != nil {
			http.Error(w, "invalid team_id format", http.StatusBadRequest)
			return
		}
		params.TeamID = &teamID
	}
	if params.Role == models.UserRoleTeamOwner && params.TeamID == nil {
		http.Error(w, "team_id is required for team owners", http.StatusBadRequest)
		return
	}

	if err := h.connectionManager.UpgradeConnection(w, r, params); err != nil {
		log.Error().
			Err(err).
			Str("room_id", roomString(params.RoomID)).
			Str("user_id", params.UserID).
			Msg("failed to upgrade WebSocket connection")
		switch {
		case errors.Is(err, errUpgradeFailed):
		case errors.Is(err, recordstore.ErrNotFound):
			http.Error(w, "room not found", http.StatusNotFound)
		case errors.Is(err, recordstore.ErrStoreUnavailable):
			http.Error(w, "store unavailable", http.StatusServiceUnavailable)
		default:
			http.Error(w, "failed to open session", http.StatusInternalServerError)
		}
		return
	}
}

// HandleConnectionStats returns statistics about active connections
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.connectionManager.GetConnectionStats()); err != nil {
		log.Error().Err(err).Msg("failed to write connection stats")
	}
}

// RegisterRoutes registers websocket routes
func (h *WebSocketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/draft", h.HandleRoomConnection)
	r.Get("/ws/stats", h.HandleConnectionStats)
}
