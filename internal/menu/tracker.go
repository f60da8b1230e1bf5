package menu

import (
	"sync"

	"github.com/medrex/clinic-portal/internal/session"
	"github.com/medrex/clinic-portal/pkg/types"
)

// Tracker keeps the built menu in step with the session store. The menu is
// rebuilt only when the granted permission set changes.
type Tracker struct {
	mu          sync.RWMutex
	perms       types.PermissionSet
	items       []Item
	builds      int
	onChange    func([]Item)
	unsubscribe func()
}

// NewTracker builds the menu for the current session and follows the store.
// onChange may be nil.
func NewTracker(store *session.Store, onChange func([]Item)) *Tracker {
	t := &Tracker{onChange: onChange}
	t.update(store.Session().Permissions)
	t.unsubscribe = store.Subscribe(func(s types.Session) {
		t.update(s.Permissions)
	})
	return t
}

// Items returns the current menu
func (t *Tracker) Items() []Item {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return cloneItems(t.items)
}

// Builds returns how many times the menu was computed
func (t *Tracker) Builds() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.builds
}

// Stop detaches the tracker from the store
func (t *Tracker) Stop() {
	if t.unsubscribe != nil {
		t.unsubscribe()
	}
}

func (t *Tracker) update(perms types.PermissionSet) {
	t.mu.Lock()
	if t.builds > 0 && t.perms.Equal(perms) {
		t.mu.Unlock()
		return
	}
	t.perms = perms.Clone()
	t.items = Build(perms)
	t.builds++
	items := cloneItems(t.items)
	t.mu.Unlock()

	if t.onChange != nil {
		t.onChange(items)
	}
}

func cloneItems(items []Item) []Item {
	out := make([]Item, len(items))
	for i, item := range items {
		out[i] = item.clone()
	}
	return out
}
