package recordstore

import (
	"context"

	"github.com/google/uuid"
	"github.com/mcdev12/draftroom/go/internal/models"
)

// Store is the record store contract: filtered reads, partial updates and per-table change
// subscriptions. Updates never return the prior row.
type Store interface {
	ReadRooms(ctx context.Context, f RoomFilter) ([]models.Room, error)
	GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error)
	CreateRoom(ctx context.Context, req CreateRoomRequest) (*models.Room, error)

	ReadTeams(ctx context.Context, f TeamFilter) ([]models.Team, error)
	ReadPlayers(ctx context.Context, f PlayerFilter) ([]models.Player, error)
	ReadDraftStatus(ctx context.Context, f StatusFilter) (*models.DraftStatus, error)

	UpdateDraftStatus(ctx context.Context, f StatusFilter, fields StatusFields) (int64, error)
	UpdatePlayers(ctx context.Context, f PlayerFilter, fields PlayerFields) (int64, error)

	Subscribe(ctx context.Context, table Table, kind EventKind) (*Subscription, error)
}

var (
	_ Store = (*PostgresStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
