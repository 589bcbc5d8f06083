package entities

// Role is the access tier an identity resolves to for one execution.
type Role int

const (
	// RoleDenied may not execute at all.
	RoleDenied Role = iota
	// RoleStandard executes against ownership-scoped views only.
	RoleStandard
	// RoleElevated executes against the full store and administrative capabilities.
	RoleElevated
)

func (r Role) String() string {
	switch r {
	case RoleStandard:
		return "standard"
	case RoleElevated:
		return "elevated"
	default:
		return "denied"
	}
}

// Allowed reports whether the role may execute.
func (r Role) Allowed() bool {
	return r == RoleStandard || r == RoleElevated
}
