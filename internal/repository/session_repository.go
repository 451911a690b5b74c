package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/live-event-sessions/internal/model"
)

// SessionRepo persists streaming sessions.  Rows are never deleted;
// ending a session clears active and stamps end_time.
type SessionRepo struct {
	db *sql.DB
}

// NewSessionRepo constructs a new SessionRepo.
func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{db: db} }

const sessionColumns = `id, event_id, entity_id, room_id, provider_backed, session_key, access_level, geo_regions,
       metrics, metrics_updated_at, active, start_time, end_time, created_by`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*model.StreamingSession, error) {
	var (
		s         model.StreamingSession
		regions   []byte
		metrics   []byte
		metricsAt sql.NullTime
		endTime   sql.NullTime
	)
	if err := row.Scan(
		&s.ID, &s.EventID, &s.EntityID, &s.RoomID, &s.ProviderBacked, &s.SessionKey, &s.AccessLevel, &regions,
		&metrics, &metricsAt, &s.Active, &s.StartTime, &endTime, &s.CreatedBy,
	); err != nil {
		return nil, err
	}
	var err error
	if s.GeoRegions, err = decodeList(regions); err != nil {
		return nil, fmt.Errorf("decode geo_regions: %w", err)
	}
	if s.Metrics, err = decodeMetrics(metrics); err != nil {
		return nil, err
	}
	if metricsAt.Valid {
		t := metricsAt.Time
		s.MetricsUpdatedAt = &t
	}
	if endTime.Valid {
		t := endTime.Time
		s.EndTime = &t
	}
	return &s, nil
}

func decodeMetrics(raw []byte) (model.Metrics, error) {
	m := model.Metrics{}
	if len(raw) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode metrics: %w", err)
	}
	if m == nil {
		m = model.Metrics{}
	}
	return m, nil
}

// Create inserts s.  A second active session for the same event violates
// the unique index and yields ErrActiveSessionExists.
func (r *SessionRepo) Create(ctx context.Context, s *model.StreamingSession) error {
	regions, err := encodeList(s.GeoRegions)
	if err != nil {
		return err
	}
	metrics, err := json.Marshal(s.Metrics)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO streaming_sessions
		   (id, event_id, entity_id, room_id, provider_backed, session_key, access_level, geo_regions, metrics, active, start_time, created_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
		s.ID, s.EventID, s.EntityID, s.RoomID, s.ProviderBacked, s.SessionKey, s.AccessLevel, regions, string(metrics),
		s.StartTime.UTC(), s.CreatedBy)
	if isDuplicate(err) {
		return ErrActiveSessionExists
	}
	return err
}

// FindActiveByEvent returns the event's active session or nil.
func (r *SessionRepo) FindActiveByEvent(ctx context.Context, eventID uint64) (*model.StreamingSession, error) {
	s, err := scanSession(r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM streaming_sessions WHERE event_id = ? AND active = 1 LIMIT 1`, eventID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

// GetByID loads a session regardless of state.
func (r *SessionRepo) GetByID(ctx context.Context, id string) (*model.StreamingSession, error) {
	s, err := scanSession(r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM streaming_sessions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	return s, err
}

// Deactivate ends an active session.  It returns ErrSessionNotFound when
// no active session has that id.
func (r *SessionRepo) Deactivate(ctx context.Context, id string, end time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE streaming_sessions SET active = 0, end_time = ? WHERE id = ? AND active = 1`, end.UTC(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// ListActive returns active sessions, newest first.
func (r *SessionRepo) ListActive(ctx context.Context) ([]model.StreamingSession, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM streaming_sessions WHERE active = 1 ORDER BY start_time DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.StreamingSession{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// MergeMetrics adds delta to the stored counters under a row lock so
// concurrent increments are not lost.
func (r *SessionRepo) MergeMetrics(ctx context.Context, id string, delta model.Metrics, at time.Time) (_ *model.StreamingSession, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	var raw []byte
	err = tx.QueryRowContext(ctx, `SELECT metrics FROM streaming_sessions WHERE id = ? FOR UPDATE`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	current, err := decodeMetrics(raw)
	if err != nil {
		return nil, err
	}
	for k, v := range delta {
		current[k] += v
	}
	merged, err := json.Marshal(current)
	if err != nil {
		return nil, err
	}
	if _, err = tx.ExecContext(ctx,
		`UPDATE streaming_sessions SET metrics = ?, metrics_updated_at = ? WHERE id = ?`,
		string(merged), at.UTC(), id); err != nil {
		return nil, err
	}
	s, err := scanSession(tx.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM streaming_sessions WHERE id = ?`, id))
	if err != nil {
		return nil, err
	}
	return s, nil
}
