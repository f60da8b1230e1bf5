// Package permission evaluates flat permission sets. All functions are pure
// and treat a nil set as granting nothing.
package permission

import (
	"sort"
	"strings"

	"github.com/medrex/clinic-portal/pkg/types"
)

// CategoryDelimiter separates the category prefix from the rest of a permission name
const CategoryDelimiter = "_"

// Has reports exact-match membership of name in perms
func Has(perms types.PermissionSet, name types.Permission) bool {
	return perms.Contains(name)
}

// HasAny reports whether at least one of names is granted.
// An empty names list yields false; callers treat empty requirements as public.
func HasAny(perms types.PermissionSet, names []types.Permission) bool {
	for _, name := range names {
		if Has(perms, name) {
			return true
		}
	}
	return false
}

// HasAll reports whether every one of names is granted. Vacuously true for empty names.
func HasAll(perms types.PermissionSet, names []types.Permission) bool {
	for _, name := range names {
		if !Has(perms, name) {
			return false
		}
	}
	return true
}

// Category returns the substring before the first delimiter, or the full name
// when the name carries no delimiter.
func Category(name types.Permission) string {
	s := string(name)
	if i := strings.Index(s, CategoryDelimiter); i >= 0 {
		return s[:i]
	}
	return s
}

// GroupByCategory groups perms by Category. Each list is sorted. A name
// without a delimiter shares its group with names whose prefix equals it,
// so PATIENT and PATIENT_VIEW both land under PATIENT.
func GroupByCategory(perms types.PermissionSet) map[string][]types.Permission {
	groups := make(map[string][]types.Permission)
	for p := range perms {
		category := Category(p)
		groups[category] = append(groups[category], p)
	}
	for _, list := range groups {
		sort.Slice(list, func(i, j int) bool { return list[i] < list[j] })
	}
	return groups
}

// ContainsMarker reports whether any granted permission contains one of the
// marker substrings. Used by the navigation menu only.
func ContainsMarker(perms types.PermissionSet, markers []string) bool {
	for p := range perms {
		for _, marker := range markers {
			if marker != "" && strings.Contains(string(p), marker) {
				return true
			}
		}
	}
	return false
}

// Names converts raw strings to permissions, preserving order
func Names(names ...string) []types.Permission {
	out := make([]types.Permission, len(names))
	for i, name := range names {
		out[i] = types.Permission(name)
	}
	return out
}
