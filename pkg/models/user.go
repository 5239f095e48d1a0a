package models

// UserRole is the role carried in an access token
type UserRole string

const (
	RoleUser   UserRole = "user"
	RoleDriver UserRole = "driver"
	RoleAdmin  UserRole = "admin"
	// RoleSystem marks service identities, such as the pricing engine's
	// own actor when it synthesizes default records.
	RoleSystem UserRole = "system"
)

// Valid reports whether r is a known role
func (r UserRole) Valid() bool {
	switch r {
	case RoleUser, RoleDriver, RoleAdmin, RoleSystem:
		return true
	}
	return false
}
