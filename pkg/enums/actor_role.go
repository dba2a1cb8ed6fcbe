package enums

import "fmt"

// ActorRole is the coarse role carried in access-token claims. Role
// issuance lives in the external auth service; this only gates routes.
type ActorRole string

const (
	ActorRoleTenant  ActorRole = "tenant"
	ActorRoleEarner  ActorRole = "earner"
	ActorRoleAdmin   ActorRole = "admin"
	ActorRoleService ActorRole = "service"
)

var validActorRoles = []ActorRole{
	ActorRoleTenant,
	ActorRoleEarner,
	ActorRoleAdmin,
	ActorRoleService,
}

// IsValid reports whether the value is a known ActorRole.
func (r ActorRole) IsValid() bool {
	for _, candidate := range validActorRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseActorRole converts raw input into an ActorRole.
func ParseActorRole(value string) (ActorRole, error) {
	for _, candidate := range validActorRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid actor role %q", value)
}
