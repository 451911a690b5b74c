package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/live-event-sessions/internal/model"
)

// PermissionRepo decides who may run an event's sessions.
type PermissionRepo struct {
	db *sql.DB
}

// NewPermissionRepo constructs a new PermissionRepo.
func NewPermissionRepo(db *sql.DB) *PermissionRepo { return &PermissionRepo{db: db} }

// IsAuthorized allows global admins, the event's coordinator, the owner
// of the event's entity and entity members with the ADMIN or MANAGER role.
func (r *PermissionRepo) IsAuthorized(ctx context.Context, ev *model.Event, actor model.Actor) (bool, error) {
	if actor.Role == model.RoleAdmin {
		return true, nil
	}
	if ev.CoordinatorID != nil && *ev.CoordinatorID == actor.UserID {
		return true, nil
	}

	var ownerID uint64
	err := r.db.QueryRowContext(ctx, `SELECT owner_id FROM entities WHERE id = ?`, ev.EntityID).Scan(&ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if ownerID == actor.UserID {
		return true, nil
	}

	var role model.EntityRole
	err = r.db.QueryRowContext(ctx,
		`SELECT role FROM entity_members WHERE entity_id = ? AND user_id = ?`, ev.EntityID, actor.UserID).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return role.CanManageEvents(), nil
}
