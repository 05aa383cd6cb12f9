package service

import "github.com/placement-sarthi/placement-api/internal/models"

// Actor identifies the authenticated caller of a service operation.
type Actor struct {
	UserID      string
	Role        models.UserRole
	ReferenceID string
}

// IsAdmin reports whether the actor has the ADMIN role.
func (a Actor) IsAdmin() bool { return a.Role == models.RoleAdmin }

// Owns reports whether the actor's reference id matches ref. Admins own everything.
func (a Actor) Owns(ref string) bool {
	return a.IsAdmin() || (a.ReferenceID != "" && a.ReferenceID == ref)
}
