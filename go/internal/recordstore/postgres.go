package recordstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/draftroom/go/internal/models"
	"github.com/mcdev12/draftroom/go/internal/sqlutil"
	"github.com/sqlc-dev/pqtype"
)

const (
	roomColumns   = "id, name, password, status, settings, created_at"
	teamColumns   = "id, room_id, name, budget, logo, created_at"
	playerColumns = "id, room_id, name, nationality, role, age, base_price, sold_amount, status, team_id, created_at"
	statusColumns = "id, room_id, status, current_team_id, updated_at"
)

type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type queries struct {
	db dbtx
}

// PostgresStore implements Store over database/sql. Change notifications are read from the
// hub, which a PGListener or a relay consumer feeds.
type PostgresStore struct {
	db   *sql.DB
	q    *queries
	feed *Hub
}

// NewPostgresStore creates a store bound to db and feed.
func NewPostgresStore(db *sql.DB, feed *Hub) *PostgresStore {
	return &PostgresStore{
		db:   db,
		q:    &queries{db: db},
		feed: feed,
	}
}

// ReadRooms returns rooms matching f, newest first.
func (s *PostgresStore) ReadRooms(ctx context.Context, f RoomFilter) ([]models.Room, error) {
	w := newWhere(0)
	if f.ID != nil {
		w.eq("id", *f.ID)
	}
	if f.Status != nil {
		w.eq("status", *f.Status)
	}

	query := "SELECT " + roomColumns + " FROM rooms" + w.sql() + " ORDER BY created_at DESC"
	rows, err := s.q.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, unavailable("read rooms", err)
	}
	defer rows.Close()

	var rooms []models.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, unavailable("scan room", err)
		}
		rooms = append(rooms, *room)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("read rooms", err)
	}
	return rooms, nil
}

// GetRoom returns a single room by ID.
func (s *PostgresStore) GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	row := s.q.db.QueryRowContext(ctx, "SELECT "+roomColumns+" FROM rooms WHERE id = $1", id)
	room, err := scanRoom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("room %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, unavailable("get room", err)
	}
	return room, nil
}

// CreateRoom inserts a room and its not-started draft_status row in one transaction.
func (s *PostgresStore) CreateRoom(ctx context.Context, req CreateRoomRequest) (*models.Room, error) {
	settings, err := sqlutil.ToNullRawMessage(req.Settings)
	if err != nil {
		return nil, fmt.Errorf("failed to encode room settings: %w", err)
	}

	var room *models.Room
	err = sqlutil.Run(ctx, s.db, func(tx *sql.Tx) *queries { return &queries{db: tx} }, func(q *queries) error {
		row := q.db.QueryRowContext(ctx,
			"INSERT INTO rooms (name, password, status, settings) VALUES ($1, $2, $3, $4) RETURNING "+roomColumns,
			req.Name, req.Password, models.RoomStatusActive, settings,
		)
		created, err := scanRoom(row)
		if err != nil {
			return err
		}
		if _, err := q.db.ExecContext(ctx,
			"INSERT INTO draft_status (room_id, status) VALUES ($1, $2)",
			created.ID, string(models.DraftPhaseNotStarted),
		); err != nil {
			return err
		}
		room = created
		return nil
	})
	if err != nil {
		return nil, unavailable("create room", err)
	}
	return room, nil
}

// ReadTeams returns teams matching f in the requested stable order.
func (s *PostgresStore) ReadTeams(ctx context.Context, f TeamFilter) ([]models.Team, error) {
	w := newWhere(0)
	if f.ID != nil {
		w.eq("id", *f.ID)
	}
	w.room(f.RoomID, f.Global)

	order := " ORDER BY name, id"
	if f.OrderBy == models.TeamOrderByCreatedAt {
		order = " ORDER BY created_at, id"
	}

	rows, err := s.q.db.QueryContext(ctx, "SELECT "+teamColumns+" FROM teams"+w.sql()+order, w.args...)
	if err != nil {
		return nil, unavailable("read teams", err)
	}
	defer rows.Close()

	var teams []models.Team
	for rows.Next() {
		var (
			t      models.Team
			roomID uuid.NullUUID
			logo   sql.NullString
		)
		if err := rows.Scan(&t.ID, &roomID, &t.Name, &t.Budget, &logo, &t.CreatedAt); err != nil {
			return nil, unavailable("scan team", err)
		}
		t.RoomID = sqlutil.FromNullUUID(roomID)
		t.Logo = sqlutil.FromSqlStringPtr(logo)
		teams = append(teams, t)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("read teams", err)
	}
	return teams, nil
}

// ReadPlayers returns players matching f ordered by name.
func (s *PostgresStore) ReadPlayers(ctx context.Context, f PlayerFilter) ([]models.Player, error) {
	w := playerWhere(0, f)

	rows, err := s.q.db.QueryContext(ctx, "SELECT "+playerColumns+" FROM players"+w.sql()+" ORDER BY name, id", w.args...)
	if err != nil {
		return nil, unavailable("read players", err)
	}
	defer rows.Close()

	var players []models.Player
	for rows.Next() {
		var (
			p          models.Player
			roomID     uuid.NullUUID
			teamID     uuid.NullUUID
			soldAmount sql.NullInt64
			role       string
			status     string
		)
		if err := rows.Scan(&p.ID, &roomID, &p.Name, &p.Nationality, &role, &p.Age, &p.BasePrice,
			&soldAmount, &status, &teamID, &p.CreatedAt); err != nil {
			return nil, unavailable("scan player", err)
		}
		p.RoomID = sqlutil.FromNullUUID(roomID)
		p.TeamID = sqlutil.FromNullUUID(teamID)
		p.SoldAmount = sqlutil.FromSqlInt64(soldAmount)
		p.Role = models.PlayerRole(role)
		p.Status = models.PlayerStatus(status)
		players = append(players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("read players", err)
	}
	return players, nil
}

// ReadDraftStatus returns the draft_status row selected by f.
func (s *PostgresStore) ReadDraftStatus(ctx context.Context, f StatusFilter) (*models.DraftStatus, error) {
	w := statusWhere(0, f)

	var (
		ds            models.DraftStatus
		roomID        uuid.NullUUID
		currentTeamID uuid.NullUUID
		status        string
	)
	row := s.q.db.QueryRowContext(ctx, "SELECT "+statusColumns+" FROM draft_status"+w.sql()+" LIMIT 1", w.args...)
	if err := row.Scan(&ds.ID, &roomID, &status, &currentTeamID, &ds.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("draft status: %w", ErrNotFound)
		}
		return nil, unavailable("read draft status", err)
	}
	ds.RoomID = sqlutil.FromNullUUID(roomID)
	ds.CurrentTeamID = sqlutil.FromNullUUID(currentTeamID)
	ds.Status = models.DraftPhase(status)
	return &ds, nil
}

// UpdateDraftStatus writes the (status, current_team_id) pair on the row selected by f.
func (s *PostgresStore) UpdateDraftStatus(ctx context.Context, f StatusFilter, fields StatusFields) (int64, error) {
	w := statusWhere(2, f)
	args := append([]any{string(fields.Status), sqlutil.ToNullUUID(fields.CurrentTeamID)}, w.args...)

	res, err := s.q.db.ExecContext(ctx,
		"UPDATE draft_status SET status = $1, current_team_id = $2, updated_at = now()"+w.sql(), args...)
	if err != nil {
		return 0, unavailable("update draft status", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, unavailable("update draft status", err)
	}
	return n, nil
}

// UpdatePlayers writes status and team_id on every player selected by f.
func (s *PostgresStore) UpdatePlayers(ctx context.Context, f PlayerFilter, fields PlayerFields) (int64, error) {
	w := playerWhere(2, f)
	if len(w.clauses) == 0 {
		return 0, fmt.Errorf("update players: refusing unfiltered update")
	}
	args := append([]any{string(fields.Status), sqlutil.ToNullUUID(fields.TeamID)}, w.args...)

	res, err := s.q.db.ExecContext(ctx, "UPDATE players SET status = $1, team_id = $2"+w.sql(), args...)
	if err != nil {
		return 0, unavailable("update players", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, unavailable("update players", err)
	}
	return n, nil
}

// Subscribe opens a change subscription on the store's feed.
func (s *PostgresStore) Subscribe(ctx context.Context, table Table, kind EventKind) (*Subscription, error) {
	sub, err := s.feed.Subscribe(ctx, table, kind)
	if err != nil {
		return nil, unavailable("subscribe", err)
	}
	return sub, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoom(row rowScanner) (*models.Room, error) {
	var (
		r         models.Room
		settings  pqtype.NullRawMessage
		createdAt time.Time
	)
	if err := row.Scan(&r.ID, &r.Name, &r.Password, &r.Status, &settings, &createdAt); err != nil {
		return nil, err
	}
	if err := sqlutil.FromNullRawMessage(settings, &r.Settings); err != nil {
		return nil, fmt.Errorf("decode room settings: %w", err)
	}
	r.Settings = r.Settings.WithDefaults()
	r.CreatedAt = createdAt
	return &r, nil
}

func playerWhere(offset int, f PlayerFilter) *where {
	w := newWhere(offset)
	if f.ID != nil {
		w.eq("id", *f.ID)
	}
	w.room(f.RoomID, f.Global)
	if f.TeamID != nil {
		w.eq("team_id", *f.TeamID)
	}
	if f.Status != nil {
		w.eq("status", string(*f.Status))
	}
	return w
}

func statusWhere(offset int, f StatusFilter) *where {
	w := newWhere(offset)
	if f.ID != nil {
		w.eq("id", *f.ID)
	}
	if f.RoomID != nil {
		w.eq("room_id", *f.RoomID)
	}
	if f.ID == nil && f.RoomID == nil {
		w.isNull("room_id")
	}
	return w
}

// where accumulates AND-ed equality clauses with positional placeholders after offset.
type where struct {
	offset  int
	clauses []string
	args    []any
}

func newWhere(offset int) *where {
	return &where{offset: offset}
}

func (w *where) eq(column string, value any) {
	w.args = append(w.args, value)
	w.clauses = append(w.clauses, fmt.Sprintf("%s = $%d", column, w.offset+len(w.args)))
}

func (w *where) isNull(column string) {
	w.clauses = append(w.clauses, column+" IS NULL")
}

// room scopes the clause to roomID, or to rows without a room when global is set.
func (w *where) room(roomID *uuid.UUID, global bool) {
	switch {
	case roomID != nil:
		w.eq("room_id", *roomID)
	case global:
		w.isNull("room_id")
	}
}

func (w *where) sql() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}
