package policy

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/reglet-dev/cligate/domain/entities"
)

// Gate checks command admissibility independent of the caller's role.
type Gate struct {
	prefixes  []string
	maxLength int
}

// NewGate builds a Gate from settings. A non-positive maximum disables the
// length rule.
func NewGate(s entities.Settings) *Gate {
	return &Gate{
		maxLength: s.MaxCodeLength,
		prefixes:  entities.NormalizeList(s.AllowedCodePrefixes),
	}
}

// Check applies the rules in order; the first failing rule wins.
func (g *Gate) Check(code string) entities.Admission {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return entities.Admission{Reason: "empty code"}
	}
	if g.maxLength > 0 && utf8.RuneCountInString(code) > g.maxLength {
		return entities.Admission{Reason: fmt.Sprintf("code too long (>%d)", g.maxLength)}
	}
	if len(g.prefixes) > 0 {
		allowed := false
		for _, p := range g.prefixes {
			if strings.HasPrefix(trimmed, p) {
				allowed = true
				break
			}
		}
		if !allowed {
			return entities.Admission{
				Reason: "code prefix not allowed (allowed: " + strings.Join(g.prefixes, ", ") + ")",
			}
		}
	}
	return entities.Admission{OK: true}
}
