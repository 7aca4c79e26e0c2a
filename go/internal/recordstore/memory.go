package recordstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/draftroom/go/internal/models"
)

// MemoryStore is an in-process Store used for local runs and tests. Every write publishes a
// change event on its hub, the same way the Postgres triggers do.
type MemoryStore struct {
	mu       sync.RWMutex
	rooms    map[uuid.UUID]models.Room
	teams    map[uuid.UUID]models.Team
	players  map[uuid.UUID]models.Player
	statuses map[uuid.UUID]models.DraftStatus
	feed     *Hub
	clock    clockwork.Clock
}

// NewMemoryStore creates an empty store publishing on feed.
func NewMemoryStore(feed *Hub, clock clockwork.Clock) *MemoryStore {
	return &MemoryStore{
		rooms:    make(map[uuid.UUID]models.Room),
		teams:    make(map[uuid.UUID]models.Team),
		players:  make(map[uuid.UUID]models.Player),
		statuses: make(map[uuid.UUID]models.DraftStatus),
		feed:     feed,
		clock:    clock,
	}
}

// PutTeam inserts or replaces a team.
func (m *MemoryStore) PutTeam(t models.Team) models.Team {
	m.mu.Lock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = m.clock.Now()
	}
	m.teams[t.ID] = t
	m.mu.Unlock()

	m.emit(TableTeams, EventInsert, t.RoomID, t)
	return t
}

// PutPlayer inserts or replaces a player.
func (m *MemoryStore) PutPlayer(p models.Player) models.Player {
	m.mu.Lock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Status == "" {
		p.Status = models.PlayerStatusAvailable
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = m.clock.Now()
	}
	m.players[p.ID] = p
	m.mu.Unlock()

	m.emit(TablePlayers, EventInsert, p.RoomID, p)
	return p
}

// PutDraftStatus inserts or replaces a draft_status row.
func (m *MemoryStore) PutDraftStatus(ds models.DraftStatus) models.DraftStatus {
	m.mu.Lock()
	if ds.ID == uuid.Nil {
		ds.ID = uuid.New()
	}
	if ds.Status == "" {
		ds.Status = models.DraftPhaseNotStarted
	}
	ds.UpdatedAt = m.clock.Now()
	m.statuses[ds.ID] = ds
	m.mu.Unlock()

	m.emit(TableDraftStatus, EventInsert, ds.RoomID, ds)
	return ds
}

func (m *MemoryStore) ReadRooms(_ context.Context, f RoomFilter) ([]models.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var rooms []models.Room
	for _, r := range m.rooms {
		if f.ID != nil && r.ID != *f.ID {
			continue
		}
		if f.Status != nil && r.Status != *f.Status {
			continue
		}
		rooms = append(rooms, r)
	}
	sort.Slice(rooms, func(i, j int) bool {
		return rooms[i].CreatedAt.After(rooms[j].CreatedAt)
	})
	return rooms, nil
}

func (m *MemoryStore) GetRoom(_ context.Context, id uuid.UUID) (*models.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.rooms[id]
	if !ok {
		return nil, fmt.Errorf("room %s: %w", id, ErrNotFound)
	}
	return &r, nil
}

func (m *MemoryStore) CreateRoom(_ context.Context, req CreateRoomRequest) (*models.Room, error) {
	now := m.clock.Now()
	room := models.Room{
		ID:        uuid.New(),
		Name:      req.Name,
		Password:  req.Password,
		Status:    models.RoomStatusActive,
		Settings:  req.Settings.WithDefaults(),
		CreatedAt: now,
	}
	roomID := room.ID
	status := models.DraftStatus{
		ID:        uuid.New(),
		RoomID:    &roomID,
		Status:    models.DraftPhaseNotStarted,
		UpdatedAt: now,
	}

	m.mu.Lock()
	m.rooms[room.ID] = room
	m.statuses[status.ID] = status
	m.mu.Unlock()

	m.emit(TableRooms, EventInsert, &roomID, room)
	m.emit(TableDraftStatus, EventInsert, &roomID, status)
	return &room, nil
}

func (m *MemoryStore) ReadTeams(_ context.Context, f TeamFilter) ([]models.Team, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var teams []models.Team
	for _, t := range m.teams {
		if f.ID != nil && t.ID != *f.ID {
			continue
		}
		if !inScope(t.RoomID, f.RoomID, f.Global) {
			continue
		}
		teams = append(teams, t)
	}
	sortTeams(teams, f.OrderBy)
	return teams, nil
}

func (m *MemoryStore) ReadPlayers(_ context.Context, f PlayerFilter) ([]models.Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var players []models.Player
	for _, p := range m.players {
		if matchPlayer(p, f) {
			players = append(players, p)
		}
	}
	sort.Slice(players, func(i, j int) bool {
		if players[i].Name != players[j].Name {
			return players[i].Name < players[j].Name
		}
		return players[i].ID.String() < players[j].ID.String()
	})
	return players, nil
}

func (m *MemoryStore) ReadDraftStatus(_ context.Context, f StatusFilter) (*models.DraftStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, ds := range m.statuses {
		if matchStatus(ds, f) {
			return &ds, nil
		}
	}
	return nil, fmt.Errorf("draft status: %w", ErrNotFound)
}

func (m *MemoryStore) UpdateDraftStatus(_ context.Context, f StatusFilter, fields StatusFields) (int64, error) {
	m.mu.Lock()
	var updated []models.DraftStatus
	for id, ds := range m.statuses {
		if !matchStatus(ds, f) {
			continue
		}
		ds.Status = fields.Status
		ds.CurrentTeamID = copyID(fields.CurrentTeamID)
		ds.UpdatedAt = m.clock.Now()
		m.statuses[id] = ds
		updated = append(updated, ds)
	}
	m.mu.Unlock()

	for _, ds := range updated {
		m.emit(TableDraftStatus, EventUpdate, ds.RoomID, ds)
	}
	return int64(len(updated)), nil
}

func (m *MemoryStore) UpdatePlayers(_ context.Context, f PlayerFilter, fields PlayerFields) (int64, error) {
	if f.ID == nil && f.RoomID == nil && f.TeamID == nil && f.Status == nil {
		return 0, fmt.Errorf("update players: refusing unfiltered update")
	}

	m.mu.Lock()
	var updated []models.Player
	for id, p := range m.players {
		if !matchPlayer(p, f) {
			continue
		}
		p.Status = fields.Status
		p.TeamID = copyID(fields.TeamID)
		m.players[id] = p
		updated = append(updated, p)
	}
	m.mu.Unlock()

	for _, p := range updated {
		m.emit(TablePlayers, EventUpdate, p.RoomID, p)
	}
	return int64(len(updated)), nil
}

func (m *MemoryStore) Subscribe(ctx context.Context, table Table, kind EventKind) (*Subscription, error) {
	sub, err := m.feed.Subscribe(ctx, table, kind)
	if err != nil {
		return nil, unavailable("subscribe", err)
	}
	return sub, nil
}

func (m *MemoryStore) emit(table Table, kind EventKind, roomID *uuid.UUID, row any) {
	raw, err := json.Marshal(row)
	if err != nil {
		return
	}
	m.feed.Publish(ChangeEvent{
		Table:      table,
		Kind:       kind,
		RoomID:     copyID(roomID),
		Row:        raw,
		ReceivedAt: m.clock.Now(),
	})
}

func matchPlayer(p models.Player, f PlayerFilter) bool {
	if f.ID != nil && p.ID != *f.ID {
		return false
	}
	if !inScope(p.RoomID, f.RoomID, f.Global) {
		return false
	}
	if f.TeamID != nil && !sameID(p.TeamID, f.TeamID) {
		return false
	}
	if f.Status != nil && p.Status != *f.Status {
		return false
	}
	return true
}

func matchStatus(ds models.DraftStatus, f StatusFilter) bool {
	if f.ID != nil && ds.ID != *f.ID {
		return false
	}
	if f.RoomID != nil && !sameID(ds.RoomID, f.RoomID) {
		return false
	}
	if f.ID == nil && f.RoomID == nil && ds.RoomID != nil {
		return false
	}
	return true
}

func sortTeams(teams []models.Team, key models.TeamOrderKey) {
	sort.Slice(teams, func(i, j int) bool {
		a, b := teams[i], teams[j]
		if key == models.TeamOrderByCreatedAt {
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
		} else if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID.String() < b.ID.String()
	})
}

func inScope(rowRoom, roomID *uuid.UUID, global bool) bool {
	switch {
	case roomID != nil:
		return sameID(rowRoom, roomID)
	case global:
		return rowRoom == nil
	}
	return true
}

func sameID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func copyID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	c := *id
	return &c
}
