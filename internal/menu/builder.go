package menu

import (
	"github.com/medrex/clinic-portal/internal/permission"
	"github.com/medrex/clinic-portal/pkg/types"
)

// Build returns the catalog entries visible to perms, in catalog order.
// A nil set yields the unconditional entries only.
func Build(perms types.PermissionSet) []Item {
	items := make([]Item, 0, len(catalog))
	for _, candidate := range catalog {
		if Visible(candidate, perms) {
			items = append(items, candidate.clone())
		}
	}
	return items
}

// Visible reports whether a single entry is shown for perms
func Visible(item Item, perms types.PermissionSet) bool {
	if item.Unconditional {
		return true
	}
	if perms == nil {
		return false
	}
	return permission.HasAny(perms, item.RequiredPermissionAny) ||
		permission.ContainsMarker(perms, item.Markers)
}

// IDs returns the ids of items, handy for logs and assertions
func IDs(items []Item) []string {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	return ids
}
