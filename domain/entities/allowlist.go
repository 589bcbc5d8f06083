package entities

// Tier is one authorization level expressed as ids and names.
type Tier struct {
	IDs   StringSet
	Names StringSet
}

// AllowList is the normalized, immutable authorization view of Settings.
type AllowList struct {
	Elevated      Tier
	Standard      Tier
	AllowAllUsers bool
}

// NewAllowList normalizes the configured tiers once.
func NewAllowList(s Settings) *AllowList {
	return &AllowList{
		Elevated: Tier{
			IDs:   NewStringSet(s.SuperAdminUserIDs),
			Names: NewStringSet(s.SuperAdminUsernames),
		},
		Standard: Tier{
			IDs:   NewStringSet(s.NormalUserIDs),
			Names: NewStringSet(s.NormalUsernames),
		},
		AllowAllUsers: s.AllowAllUsers,
	}
}

// HasNameRules reports whether any tier is configured by name, which is the
// only case where resolving a role needs an identity-store lookup.
func (a *AllowList) HasNameRules() bool {
	return a.Elevated.Names.Len() > 0 || a.Standard.Names.Len() > 0
}

// DefaultRole is the role of an identity no rule matched.
func (a *AllowList) DefaultRole() Role {
	if a.AllowAllUsers {
		return RoleStandard
	}
	return RoleDenied
}
