package rooms

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mcdev12/draftroom/go/internal/models"
	"github.com/mcdev12/draftroom/go/internal/recordstore"
	"github.com/rs/zerolog/log"
)

// RoomsRepository defines what the app layer needs from the record store
type RoomsRepository interface {
	ReadRooms(ctx context.Context, f recordstore.RoomFilter) ([]models.Room, error)
	GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error)
	CreateRoom(ctx context.Context, req recordstore.CreateRoomRequest) (*models.Room, error)
	ReadTeams(ctx context.Context, f recordstore.TeamFilter) ([]models.Team, error)
	ReadPlayers(ctx context.Context, f recordstore.PlayerFilter) ([]models.Player, error)
	ReadDraftStatus(ctx context.Context, f recordstore.StatusFilter) (*models.DraftStatus, error)
}

// App handles room business logic and the read side of the dashboard
type App struct {
	repo RoomsRepository
}

// NewApp creates a new rooms App
func NewApp(repo RoomsRepository) *App {
	return &App{repo: repo}
}

// ListActiveRooms returns joinable rooms, newest first.
func (a *App) ListActiveRooms(ctx context.Context) ([]models.Room, error) {
	status := models.RoomStatusActive
	rooms, err := a.repo.ReadRooms(ctx, recordstore.RoomFilter{Status: &status})
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	return rooms, nil
}

// GetRoom retrieves a room by ID
func (a *App) GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	room, err := a.repo.GetRoom(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	return room, nil
}

// CreateRoom creates a room together with its not-started draft session.
func (a *App) CreateRoom(ctx context.Context, req CreateRoomRequest) (*models.Room, error) {
	if err := validateCreateRoomRequest(req); err != nil {
		return nil, err
	}

	room, err := a.repo.CreateRoom(ctx, recordstore.CreateRoomRequest{
		Name:     strings.TrimSpace(req.Name),
		Password: req.Password,
		Settings: req.Settings.WithDefaults(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}

	log.Info().Str("room_id", room.ID.String()).Str("name", room.Name).Msg("room created")
	return room, nil
}

// ListTeams returns the room's teams in the room's rotation key order.
func (a *App) ListTeams(ctx context.Context, roomID *uuid.UUID) ([]models.Team, error) {
	order, err := a.teamOrder(ctx, roomID)
	if err != nil {
		return nil, err
	}
	teams, err := a.repo.ReadTeams(ctx, recordstore.TeamFilter{RoomID: roomID, Global: roomID == nil, OrderBy: order})
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	return teams, nil
}

// ListPlayers returns the room's players, optionally only those in status.
func (a *App) ListPlayers(ctx context.Context, roomID *uuid.UUID, status *models.PlayerStatus) ([]models.Player, error) {
	players, err := a.repo.ReadPlayers(ctx, recordstore.PlayerFilter{RoomID: roomID, Global: roomID == nil, Status: status})
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	return players, nil
}

// GetDraftStatus returns the persisted session row.
func (a *App) GetDraftStatus(ctx context.Context, roomID *uuid.UUID) (*models.DraftStatus, error) {
	ds, err := a.repo.ReadDraftStatus(ctx, recordstore.StatusFilter{RoomID: roomID})
	if err != nil {
		return nil, fmt.Errorf("failed to get draft status: %w", err)
	}
	return ds, nil
}

// GetDashboard assembles the dashboard for a room. A nil room is the global session.
func (a *App) GetDashboard(ctx context.Context, roomID *uuid.UUID) (*Dashboard, error) {
	var room *models.Room
	if roomID != nil {
		r, err := a.GetRoom(ctx, *roomID)
		if err != nil {
			return nil, err
		}
		room = r
	}

	ds, err := a.GetDraftStatus(ctx, roomID)
	if err != nil {
		return nil, err
	}
	order := models.TeamOrderByName
	if room != nil {
		order = room.Settings.WithDefaults().TeamOrder
	}
	teams, err := a.repo.ReadTeams(ctx, recordstore.TeamFilter{RoomID: roomID, Global: roomID == nil, OrderBy: order})
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	players, err := a.ListPlayers(ctx, roomID, nil)
	if err != nil {
		return nil, err
	}

	d := BuildDashboard(*ds, teams, players)
	d.Room = room
	return &d, nil
}

func (a *App) teamOrder(ctx context.Context, roomID *uuid.UUID) (models.TeamOrderKey, error) {
	if roomID == nil {
		return models.TeamOrderByName, nil
	}
	room, err := a.GetRoom(ctx, *roomID)
	if err != nil {
		return "", err
	}
	return room.Settings.WithDefaults().TeamOrder, nil
}

func validateCreateRoomRequest(req CreateRoomRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if len(req.Name) > 100 {
		return fmt.Errorf("%w: name must be at most 100 characters", ErrValidation)
	}
	switch req.Settings.TeamOrder {
	case "", models.TeamOrderByName, models.TeamOrderByCreatedAt:
	default:
		return fmt.Errorf("%w: unknown team_order %q", ErrValidation, req.Settings.TeamOrder)
	}
	switch req.Settings.StartPolicy {
	case "", models.StartPolicyRandom, models.StartPolicyFirst:
	default:
		return fmt.Errorf("%w: unknown start_policy %q", ErrValidation, req.Settings.StartPolicy)
	}
	return nil
}
