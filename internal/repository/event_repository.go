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

// EventRepo reads events and writes the fields the live engine owns:
// phase, status, last transition actor and end time.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo constructs a new EventRepo.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

const eventColumns = `id, entity_id, coordinator_id, title, phase, status, geo_restricted, geo_regions,
       geofence_type, geofence_regions, ticket_required, ticket_types, start_time, end_time,
       last_transition_by, updated_at`

// GetEvent loads one event.
func (r *EventRepo) GetEvent(ctx context.Context, id uint64) (*model.Event, error) {
	var (
		ev             model.Event
		coordinator    sql.NullInt64
		lastBy         sql.NullInt64
		regions        []byte
		fenceType      sql.NullString
		fenceRegions   []byte
		ticketTypesRaw []byte
		endTime        sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id).Scan(
		&ev.ID, &ev.EntityID, &coordinator, &ev.Title, &ev.Phase, &ev.Status, &ev.GeoRestricted, &regions,
		&fenceType, &fenceRegions, &ev.TicketRequired, &ticketTypesRaw, &ev.StartTime, &endTime,
		&lastBy, &ev.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}

	if coordinator.Valid {
		v := uint64(coordinator.Int64)
		ev.CoordinatorID = &v
	}
	if lastBy.Valid {
		v := uint64(lastBy.Int64)
		ev.LastTransitionBy = &v
	}
	if endTime.Valid {
		t := endTime.Time
		ev.EndTime = &t
	}
	if ev.GeoRegions, err = decodeList(regions); err != nil {
		return nil, fmt.Errorf("decode geo_regions: %w", err)
	}
	if fenceType.Valid {
		p := &model.GeofencePolicy{Type: model.GeofenceType(fenceType.String)}
		if p.Regions, err = decodeList(fenceRegions); err != nil {
			return nil, fmt.Errorf("decode geofence_regions: %w", err)
		}
		ev.Geofence = p
	}
	ev.TicketTypes = []model.TicketType{}
	if len(ticketTypesRaw) > 0 {
		if err := json.Unmarshal(ticketTypesRaw, &ev.TicketTypes); err != nil {
			return nil, fmt.Errorf("decode ticket_types: %w", err)
		}
	}
	return &ev, nil
}

// UpdatePhase writes the new phase and status only if the stored phase
// still equals from.
func (r *EventRepo) UpdatePhase(ctx context.Context, id uint64, from, to model.Phase, status model.EventStatus, actorID uint64) error {
	var by any
	if actorID != 0 {
		by = actorID
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE events SET phase = ?, status = ?, last_transition_by = ? WHERE id = ? AND phase = ?`,
		to, status, by, id, from)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if err := r.mustExist(ctx, id); err != nil {
		return err
	}
	return ErrPhaseChanged
}

// UpdateStatus sets the event status.
func (r *EventRepo) UpdateStatus(ctx context.Context, id uint64, status model.EventStatus) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE events SET status = ? WHERE id = ?`, status, id); err != nil {
		return err
	}
	return r.mustExist(ctx, id)
}

// SetEndTime sets the scheduled end.
func (r *EventRepo) SetEndTime(ctx context.Context, id uint64, end time.Time) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE events SET end_time = ? WHERE id = ?`, end.UTC(), id); err != nil {
		return err
	}
	return r.mustExist(ctx, id)
}

func (r *EventRepo) mustExist(ctx context.Context, id uint64) error {
	var ok bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM events WHERE id = ?)`, id).Scan(&ok); err != nil {
		return err
	}
	if !ok {
		return ErrEventNotFound
	}
	return nil
}
