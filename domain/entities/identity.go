package entities

import (
	"fmt"
	"strings"
)

// Reserved identifiers of non-player (system) identities. They never resolve
// to an executing role.
const (
	NonPlayerInvader = "2"
	NonPlayerKeeper  = "3"
)

// Identity is a calling tenant.
type Identity struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// IsNonPlayer reports whether id denotes a reserved system identity.
func IsNonPlayer(id string) bool {
	return id == NonPlayerInvader || id == NonPlayerKeeper
}

// NormalizeToken coerces a raw identity token to a trimmed string.
// It returns false when the token is absent or empty after trimming.
func NormalizeToken(raw any) (string, bool) {
	if raw == nil {
		return "", false
	}
	var s string
	switch v := raw.(type) {
	case string:
		s = v
	case fmt.Stringer:
		s = v.String()
	default:
		s = fmt.Sprint(v)
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

// NormalizeList trims every configured token and drops empty ones.
// A nil list yields an empty (non-nil) slice.
func NormalizeList(list []string) []string {
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := NormalizeToken(item); ok {
			out = append(out, s)
		}
	}
	return out
}

// StringSet is an immutable set of normalized tokens.
type StringSet map[string]struct{}

// NewStringSet builds a set from a raw configured list.
func NewStringSet(list []string) StringSet {
	set := make(StringSet, len(list))
	for _, s := range NormalizeList(list) {
		set[s] = struct{}{}
	}
	return set
}

// Has reports whether s is a member. Comparison is case-sensitive.
func (s StringSet) Has(v string) bool {
	_, ok := s[v]
	return ok
}

// Len returns the number of members.
func (s StringSet) Len() int {
	return len(s)
}
