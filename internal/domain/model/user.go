package model

import "time"

// Role is the capability level of a caller.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User is the account an order belongs to.
type User struct {
	ID        int64
	Email     string
	Role      Role
	CreatedAt time.Time
}

// Principal identifies the authenticated caller of a request.
type Principal struct {
	UserID int64
	Role   Role
}

// IsAdmin reports whether the caller may act on any user's orders.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}
