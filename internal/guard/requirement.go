package guard

import (
	"fmt"
	"strings"

	"github.com/medrex/clinic-portal/pkg/types"
)

// Mode selects how a requirement's names are combined
type Mode int

const (
	// ModeAny is satisfied when at least one name is granted
	ModeAny Mode = iota
	// ModeAll is satisfied when every name is granted
	ModeAll
)

func (m Mode) String() string {
	switch m {
	case ModeAny:
		return "any"
	case ModeAll:
		return "all"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode parses "any" or "all"; an empty string is ModeAny
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "any":
		return ModeAny, nil
	case "all":
		return ModeAll, nil
	default:
		return 0, fmt.Errorf("unknown requirement mode %q", s)
	}
}

// Requirement is attached to a protected region. No names means public.
type Requirement struct {
	Names []types.Permission
	Mode  Mode
}

// Public is the empty requirement
var Public = Requirement{}

// AnyOf requires at least one of names
func AnyOf(names ...types.Permission) Requirement {
	return Requirement{Names: names, Mode: ModeAny}
}

// AllOf requires every one of names
func AllOf(names ...types.Permission) Requirement {
	return Requirement{Names: names, Mode: ModeAll}
}

// IsPublic reports whether the requirement names no permission
func (r Requirement) IsPublic() bool {
	return len(r.Names) == 0
}

// Validate reports why a requirement cannot be evaluated
func (r Requirement) Validate() error {
	if r.Mode != ModeAny && r.Mode != ModeAll {
		return fmt.Errorf("unknown requirement mode %s", r.Mode)
	}
	for i, name := range r.Names {
		if name == "" {
			return fmt.Errorf("requirement name %d is empty", i)
		}
	}
	return nil
}
