package types

import (
	"fmt"
	"sort"
)

// Permission is an opaque named grant such as "PATIENT_MANAGEMENT"
type Permission string

// PermissionSet holds granted permissions. Duplicates collapse and insertion
// order is irrelevant. A nil set is not a well-formed set.
type PermissionSet map[Permission]struct{}

// NewPermissionSet builds a set from permission names, skipping empty names
func NewPermissionSet(names ...string) PermissionSet {
	set := make(PermissionSet, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		set[Permission(name)] = struct{}{}
	}
	return set
}

// Contains reports exact-match membership
func (s PermissionSet) Contains(p Permission) bool {
	if s == nil {
		return false
	}
	_, ok := s[p]
	return ok
}

// Names returns the permission names sorted lexically
func (s PermissionSet) Names() []string {
	names := make([]string, 0, len(s))
	for p := range s {
		names = append(names, string(p))
	}
	sort.Strings(names)
	return names
}

// Clone returns an independent copy of the set. Cloning nil yields nil.
func (s PermissionSet) Clone() PermissionSet {
	if s == nil {
		return nil
	}
	out := make(PermissionSet, len(s))
	for p := range s {
		out[p] = struct{}{}
	}
	return out
}

// Equal reports whether both sets hold the same permissions
func (s PermissionSet) Equal(other PermissionSet) bool {
	if len(s) != len(other) {
		return false
	}
	for p := range s {
		if _, ok := other[p]; !ok {
			return false
		}
	}
	return true
}

// SessionStatus is the authentication state of the session
type SessionStatus string

const (
	StatusAnonymous     SessionStatus = "anonymous"
	StatusLoading       SessionStatus = "loading"
	StatusAuthenticated SessionStatus = "authenticated"
)

// Session represents the authenticated actor together with its credential
// and granted permissions
type Session struct {
	User        User          `json:"user"`
	Token       string        `json:"-"`
	Permissions PermissionSet `json:"-"`
	Status      SessionStatus `json:"status"`
}

// AnonymousSession returns the default, unauthenticated session
func AnonymousSession() Session {
	return Session{
		Status:      StatusAnonymous,
		Permissions: PermissionSet{},
	}
}

// IsAuthenticated reports whether the session is authenticated
func (s Session) IsAuthenticated() bool {
	return s.Status == StatusAuthenticated
}

// Clone returns a copy that shares no mutable state with s
func (s Session) Clone() Session {
	s.Permissions = s.Permissions.Clone()
	return s
}

// Validate checks the status invariant: authenticated iff both token and
// user id are present, and no permissions while anonymous
func (s Session) Validate() error {
	hasCredential := s.Token != "" && s.User.ID != ""

	switch s.Status {
	case StatusAuthenticated:
		if !hasCredential {
			return fmt.Errorf("authenticated session requires token and user id")
		}
	case StatusAnonymous, StatusLoading:
		if hasCredential {
			return fmt.Errorf("%s session must not carry a credential", s.Status)
		}
		if s.Status == StatusAnonymous && len(s.Permissions) > 0 {
			return fmt.Errorf("anonymous session must not carry permissions")
		}
	default:
		return fmt.Errorf("unknown session status %q", s.Status)
	}

	return nil
}
