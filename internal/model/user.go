package model

import "time"

// GlobalRole is the platform-wide role carried in access tokens.
type GlobalRole string

const (
    RoleUser  GlobalRole = "USER"
    RoleAdmin GlobalRole = "ADMIN"
)

// ParseGlobalRole maps a claim value to a GlobalRole.  Unknown values
// yield RoleUser and false.
func ParseGlobalRole(s string) (GlobalRole, bool) {
    switch GlobalRole(s) {
    case RoleUser:
        return RoleUser, true
    case RoleAdmin:
        return RoleAdmin, true
    }
    return RoleUser, false
}

// EntityRole is a member's role inside an entity.
type EntityRole string

const (
    EntityRoleAdmin   EntityRole = "ADMIN"
    EntityRoleManager EntityRole = "MANAGER"
    EntityRoleMember  EntityRole = "MEMBER"
)

// CanManageEvents reports whether the role may run sessions for the
// entity's events.
func (r EntityRole) CanManageEvents() bool {
    switch r {
    case EntityRoleAdmin, EntityRoleManager:
        return true
    case EntityRoleMember:
        return false
    }
    return false
}

// ParticipantRole is the role requested when joining a session's room.
type ParticipantRole string

const (
    ParticipantHost        ParticipantRole = "HOST"
    ParticipantCoordinator ParticipantRole = "COORDINATOR"
    ParticipantSpeaker     ParticipantRole = "PARTICIPANT"
    ParticipantViewer      ParticipantRole = "VIEWER"
)

// ParseParticipantRole validates a requested room role.
func ParseParticipantRole(s string) (ParticipantRole, bool) {
    switch r := ParticipantRole(s); r {
    case ParticipantHost, ParticipantCoordinator, ParticipantSpeaker, ParticipantViewer:
        return r, true
    }
    return "", false
}

// CanPublish reports whether the role may publish media.  Only hosts and
// coordinators broadcast; everyone else subscribes.
func (r ParticipantRole) CanPublish() bool {
    switch r {
    case ParticipantHost, ParticipantCoordinator:
        return true
    case ParticipantSpeaker, ParticipantViewer:
        return false
    }
    return false
}

// Actor identifies the authenticated caller of a privileged operation.
type Actor struct {
    UserID uint64
    Role   GlobalRole
}

// User represents a platform account as stored in the `users` table.
type User struct {
    ID           uint64     // users.id
    Email        string     // users.email
    PasswordHash string     // users.password_hash
    Role         GlobalRole // users.role
    IsActive     bool       // users.is_active
    CreatedAt    time.Time  // users.created_at
    UpdatedAt    time.Time  // users.updated_at
}
