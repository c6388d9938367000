package domain

import "time"

// User mirrors the persisted representation in the users table. The gateway only
// reads it; account lifecycle belongs to the surrounding portal.
type User struct {
	ID           string
	Username     string
	Email        string
	Role         string
	IsActive     bool
	RegisteredAt time.Time
	LastLogin    *time.Time
}

// Principal is the authenticated caller resolved per request. It is never
// persisted by the gateway.
type Principal struct {
	ID       string
	Username string
	Role     Role
	IsActive bool
}

// OwnsResource reports whether the principal may act on a resource owned by
// ownerID. Super admins bypass ownership entirely; everyone else must own the
// resource.
func (p Principal) OwnsResource(ownerID string) bool {
	if p.Role == RoleSuperAdmin {
		return true
	}
	return ownerID != "" && p.ID == ownerID
}
