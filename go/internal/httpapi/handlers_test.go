package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/draftroom/go/internal/draft/gateway"
	"github.com/mcdev12/draftroom/go/internal/draft/selection"
	"github.com/mcdev12/draftroom/go/internal/models"
	"github.com/mcdev12/draftroom/go/internal/recordstore"
	"github.com/mcdev12/draftroom/go/internal/rooms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiFixture struct {
	router http.Handler
	store  *recordstore.MemoryStore
	room   *models.Room
	teamA  models.Team
	teamB  models.Team
	player models.Player
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	clock := clockwork.NewFakeClock()
	store := recordstore.NewMemoryStore(recordstore.NewHub(64), clock)

	room, err := store.CreateRoom(context.Background(), recordstore.CreateRoomRequest{
		Name:     "IPL Mega Auction",
		Settings: models.RoomSettings{TeamOrder: models.TeamOrderByName, StartPolicy: models.StartPolicyFirst},
	})
	require.NoError(t, err)
	roomID := room.ID

	f := &apiFixture{store: store, room: room}
	f.teamA = store.PutTeam(models.Team{RoomID: &roomID, Name: "A"})
	f.teamB = store.PutTeam(models.Team{RoomID: &roomID, Name: "B"})
	f.player = store.PutPlayer(models.Player{RoomID: &roomID, Name: "Jasprit Bumrah", Role: models.PlayerRoleBowler})

	factory := gateway.NewStoreSessionFactory(store, selection.ClaimConditional, clock, nil)
	f.router = NewRouter(NewHandler(rooms.NewApp(store), factory))
	return f
}

func (f *apiFixture) roomPath(suffix string) string {
	return "/api/rooms/" + f.room.ID.String() + suffix
}

type call struct {
	method string
	path   string
	body   any
	role   string
	teamID *uuid.UUID
}

func (f *apiFixture) do(t *testing.T, c call) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if c.body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(c.body))
	}
	req := httptest.NewRequest(c.method, c.path, &buf)
	if c.role != "" {
		req.Header.Set(HeaderRole, c.role)
	}
	if c.teamID != nil {
		req.Header.Set(HeaderTeamID, c.teamID.String())
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func stateOf(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	state, ok := body["state"].(map[string]any)
	require.True(t, ok, "response has no state: %v", body)
	return state
}

func TestHealth(t *testing.T) {
	f := newAPIFixture(t)
	rec, body := f.do(t, call{method: http.MethodGet, path: "/health"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestRooms_CreateAndList(t *testing.T) {
	f := newAPIFixture(t)

	rec, body := f.do(t, call{method: http.MethodPost, path: "/api/rooms", body: map[string]any{"name": "  Second Room  "}})
	require.Equal(t, http.StatusCreated, rec.Code)
	room := body["room"].(map[string]any)
	assert.Equal(t, "Second Room", room["name"])

	rec, body = f.do(t, call{method: http.MethodGet, path: "/api/rooms"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["rooms"], 2)

	rec, body = f.do(t, call{method: http.MethodGet, path: "/api/rooms/" + room["id"].(string)})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Second Room", body["room"].(map[string]any)["name"])
}

func TestRooms_CreateRejectsBadInput(t *testing.T) {
	f := newAPIFixture(t)

	tests := []struct {
		name string
		body any
		code string
	}{
		{"missing name", map[string]any{"name": " "}, "validation_failed"},
		{"unknown start policy", map[string]any{"name": "x", "settings": map[string]any{"start_policy": "coin_flip"}}, "validation_failed"},
		{"unknown field", map[string]any{"name": "x", "owner": "y"}, "bad_request"},
		{"empty body", nil, "bad_request"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := f.do(t, call{method: http.MethodPost, path: "/api/rooms", body: tt.body})
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.code, body["code"])
		})
	}
}

func TestRooms_NotFoundAndBadID(t *testing.T) {
	f := newAPIFixture(t)

	rec, body := f.do(t, call{method: http.MethodGet, path: "/api/rooms/" + uuid.NewString()})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", body["code"])

	rec, _ = f.do(t, call{method: http.MethodGet, path: "/api/rooms/not-a-uuid/teams"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDraft_AuctioneerFlow(t *testing.T) {
	f := newAPIFixture(t)
	auctioneer := "auctioneer"

	rec, body := f.do(t, call{method: http.MethodPost, path: f.roomPath("/draft/start"), role: auctioneer})
	require.Equal(t, http.StatusOK, rec.Code)
	state := stateOf(t, body)
	assert.Equal(t, "in_progress", state["phase"])
	assert.Equal(t, "A", state["current_team_name"])

	rec, body = f.do(t, call{method: http.MethodPost, path: f.roomPath("/draft/advance"), role: auctioneer})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "B", stateOf(t, body)["current_team_name"])

	rec, body = f.do(t, call{method: http.MethodPost, path: f.roomPath("/draft/pause"), role: auctioneer})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "paused", stateOf(t, body)["phase"])

	rec, body = f.do(t, call{method: http.MethodPost, path: f.roomPath("/draft/end"), role: auctioneer})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "completed", stateOf(t, body)["phase"])
	assert.Equal(t, "None", stateOf(t, body)["current_team_name"])

	rec, body = f.do(t, call{method: http.MethodPost, path: f.roomPath("/draft/start"), role: auctioneer})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_transition", body["code"])
}

func TestDraft_RolesAreEnforced(t *testing.T) {
	f := newAPIFixture(t)

	rec, _ := f.do(t, call{method: http.MethodPost, path: f.roomPath("/draft/start")})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = f.do(t, call{method: http.MethodPost, path: f.roomPath("/draft/start"), role: "team_owner", teamID: &f.teamA.ID})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = f.do(t, call{method: http.MethodPost, path: f.roomPath("/draft/selections"), role: "auctioneer",
		body: map[string]any{"player_id": f.player.ID}})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = f.do(t, call{method: http.MethodGet, path: f.roomPath("/status"), role: "judge"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDraft_TeamOwnerSelects(t *testing.T) {
	f := newAPIFixture(t)
	rec, _ := f.do(t, call{method: http.MethodPost, path: f.roomPath("/draft/start"), role: "auctioneer"})
	require.Equal(t, http.StatusOK, rec.Code)

	pick := map[string]any{"player_id": f.player.ID}

	rec, body := f.do(t, call{method: http.MethodPost, path: f.roomPath("/draft/selections"), role: "team_owner", teamID: &f.teamB.ID, body: pick})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "not_your_turn", body["code"])

	rec, _ = f.do(t, call{method: http.MethodPost, path: f.roomPath("/draft/selections"), role: "team_owner", body: pick})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, body = f.do(t, call{method: http.MethodPost, path: f.roomPath("/draft/selections"), role: "team_owner", teamID: &f.teamA.ID, body: pick})
	require.Equal(t, http.StatusOK, rec.Code)
	player := body["player"].(map[string]any)
	assert.Equal(t, "Pending", player["status"])
	assert.Equal(t, f.teamA.ID.String(), player["team_id"])

	rec, body = f.do(t, call{method: http.MethodPost, path: f.roomPath("/draft/selections"), role: "team_owner", teamID: &f.teamA.ID, body: pick})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "player_unavailable", body["code"])

	rec, body = f.do(t, call{method: http.MethodGet, path: f.roomPath("/players?status=Available")})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, body["players"])

	rec, _ = f.do(t, call{method: http.MethodGet, path: f.roomPath("/players?status=Sold")})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDraft_PassTurnClearsHolder(t *testing.T) {
	f := newAPIFixture(t)
	rec, _ := f.do(t, call{method: http.MethodPost, path: f.roomPath("/draft/start"), role: "auctioneer"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body := f.do(t, call{method: http.MethodPost, path: f.roomPath("/draft/pass"), role: "team_owner", teamID: &f.teamB.ID})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "not_your_turn", body["code"])

	rec, _ = f.do(t, call{method: http.MethodPost, path: f.roomPath("/draft/pass"), role: "team_owner"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, body = f.do(t, call{method: http.MethodGet, path: f.roomPath("/status")})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, f.teamA.ID.String(), body["status"].(map[string]any)["current_team_id"], "rejected pass must not write")

	rec, body = f.do(t, call{method: http.MethodPost, path: f.roomPath("/draft/pass"), role: "team_owner", teamID: &f.teamA.ID})
	require.Equal(t, http.StatusOK, rec.Code)
	state := stateOf(t, body)
	assert.Equal(t, "in_progress", state["phase"])
	assert.Equal(t, "None", state["current_team_name"])
	assert.Nil(t, state["current_team_id"])
}

func TestReads_StatusAndDashboard(t *testing.T) {
	f := newAPIFixture(t)

	rec, body := f.do(t, call{method: http.MethodGet, path: f.roomPath("/status")})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "not_started", body["status"].(map[string]any)["status"])
	assert.Equal(t, []any{"start"}, body["actions"])

	rec, body = f.do(t, call{method: http.MethodGet, path: f.roomPath("/teams")})
	require.Equal(t, http.StatusOK, rec.Code)
	teams := body["teams"].([]any)
	require.Len(t, teams, 2)
	assert.Equal(t, "A", teams[0].(map[string]any)["name"])

	rec, body = f.do(t, call{method: http.MethodGet, path: f.roomPath("/dashboard")})
	require.Equal(t, http.StatusOK, rec.Code)
	card := body["status"].(map[string]any)
	assert.Equal(t, "None", card["current_team_name"])
	assert.EqualValues(t, 1, card["available_count"])
	assert.Len(t, body["available_players"], 1)
}

func TestGlobalSession(t *testing.T) {
	f := newAPIFixture(t)

	rec, body := f.do(t, call{method: http.MethodPost, path: "/api/session/draft/start", role: "auctioneer"})
	assert.Equal(t, http.StatusNotFound, rec.Code, "no global status row yet: %v", body)

	f.store.PutDraftStatus(models.DraftStatus{Status: models.DraftPhaseNotStarted})

	rec, body = f.do(t, call{method: http.MethodPost, path: "/api/session/draft/start", role: "auctioneer"})
	assert.Equal(t, http.StatusConflict, rec.Code, "room teams do not join the global session: %v", body)

	solo := f.store.PutTeam(models.Team{Name: "Solo"})

	rec, body = f.do(t, call{method: http.MethodGet, path: "/api/session/teams"})
	require.Equal(t, http.StatusOK, rec.Code)
	teams := body["teams"].([]any)
	require.Len(t, teams, 1)
	assert.Equal(t, "Solo", teams[0].(map[string]any)["name"])

	rec, body = f.do(t, call{method: http.MethodPost, path: "/api/session/draft/start", role: "auctioneer"})
	require.Equal(t, http.StatusOK, rec.Code)
	state := stateOf(t, body)
	assert.Equal(t, "in_progress", state["phase"])
	assert.Equal(t, "Solo", state["current_team_name"])
	assert.Equal(t, solo.ID.String(), state["current_team_id"])

	rec, body = f.do(t, call{method: http.MethodGet, path: "/api/session/players"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, body["players"])

	rec, body = f.do(t, call{method: http.MethodGet, path: f.roomPath("/status")})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "not_started", body["status"].(map[string]any)["status"])
}
