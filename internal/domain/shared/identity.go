package shared

import "github.com/google/uuid"

// Role defines the access level attached to a request by the auth layer
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleAuditor Role = "auditor"
	RoleClient  Role = "client"
)

// Identity describes the authenticated caller of a core operation.
// It is populated by the (external) auth middleware and passed through verbatim.
type Identity struct {
	ID   uuid.UUID `json:"id"`
	Role Role      `json:"role"`
}

// Privileged reports whether the identity may operate on accounts it does not own.
// Auditors have read access elsewhere but are not privileged for fund movement.
func (i Identity) Privileged() bool {
	return i.Role == RoleAdmin
}

// ValidRole reports whether the role is one of the known roles
func ValidRole(r Role) bool {
	switch r {
	case RoleAdmin, RoleAuditor, RoleClient:
		return true
	}
	return false
}
