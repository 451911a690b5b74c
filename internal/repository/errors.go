// Package repository holds the MySQL data access for users, events,
// streaming sessions, tickets and entity permissions.  Sentinel errors
// let the service layer tell "missing" and "lost a race" apart from
// plain database failures.
package repository

import (
	"encoding/json"
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrEventNotFound is returned when no event has the requested id.
var ErrEventNotFound = errors.New("event not found")

// ErrSessionNotFound is returned when a session does not exist, or when
// a deactivation finds it already ended.
var ErrSessionNotFound = errors.New("session not found")

// ErrActiveSessionExists is returned when inserting a session for an
// event that already has an active one.  The unique index on
// streaming_sessions.active_event_id produces it.
var ErrActiveSessionExists = errors.New("event already has an active session")

// ErrPhaseChanged is returned by a conditional phase update when the
// stored phase no longer matches what the caller read.
var ErrPhaseChanged = errors.New("event phase changed")

// isDuplicate reports whether err is a MySQL duplicate key violation.
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

// encodeList stores a string list as a JSON array; empty lists are NULL.
func encodeList(list []string) (any, error) {
	if len(list) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(list)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func decodeList(raw []byte) ([]string, error) {
	out := []string{}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}
