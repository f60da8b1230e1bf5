// Package guard gates protected regions on the current session.
package guard

import (
	"github.com/medrex/clinic-portal/internal/permission"
	"github.com/medrex/clinic-portal/pkg/types"
)

// Decision is the outcome of evaluating a requirement
type Decision string

const (
	Allow        Decision = "ALLOW"
	DenyRedirect Decision = "DENY_REDIRECT"
	DenyInline   Decision = "DENY_INLINE"
)

// Policy is the caller's choice of how a permission denial is rendered
type Policy int

const (
	// FullPage denials navigate to the default route
	FullPage Policy = iota
	// Inline denials render nothing or a notice in place
	Inline
)

func (p Policy) String() string {
	if p == Inline {
		return "inline"
	}
	return "full_page"
}

// Evaluate decides access for sess. Unauthenticated sessions are always
// redirected. A malformed requirement is never satisfied.
func Evaluate(sess types.Session, req Requirement, policy Policy) Decision {
	if !sess.IsAuthenticated() {
		return DenyRedirect
	}
	if req.Validate() != nil {
		return deny(policy)
	}
	if req.IsPublic() {
		return Allow
	}

	var granted bool
	switch req.Mode {
	case ModeAll:
		granted = permission.HasAll(sess.Permissions, req.Names)
	default:
		granted = permission.HasAny(sess.Permissions, req.Names)
	}
	if granted {
		return Allow
	}
	return deny(policy)
}

func deny(policy Policy) Decision {
	if policy == Inline {
		return DenyInline
	}
	return DenyRedirect
}
