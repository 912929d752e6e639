package model

import "time"

// CharacterRole is an optional sub-resource of a session with its own
// capacity, assignable per registrant (e.g. a voice-acting part).  Its
// capacity is independent of the session's: the sum of per-role
// assignments need not equal session-level registrations because roles
// are optional per order item.
//
// Fields:
//  ID        – primary key identifier.
//  SessionID – owning session.
//  Name      – role name for display.
//  Capacity  – maximum concurrent assignments.
//  Assigned  – count of active order items referencing this role.
type CharacterRole struct {
	ID        uint64    // character_roles.id
	SessionID uint64    // character_roles.session_id
	Name      string    // character_roles.name
	Capacity  int64     // character_roles.capacity
	Assigned  int64     // character_roles.assigned
	CreatedAt time.Time // character_roles.created_at
	UpdatedAt time.Time // character_roles.updated_at
}

// Remaining returns the free sub-capacity of the role.
func (r *CharacterRole) Remaining() int64 {
	return r.Capacity - r.Assigned
}

// RoleAvailability is the public availability projection of a role.
type RoleAvailability struct {
	RoleID    uint64 `json:"role_id"`
	Name      string `json:"name"`
	Capacity  int64  `json:"capacity"`
	Assigned  int64  `json:"assigned"`
	Available int64  `json:"available"`
}
