package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/medrex/clinic-portal/pkg/types"
)

func authenticated(perms ...string) types.Session {
	return types.Session{
		User:        types.User{ID: "u1", Email: "doc@clinic.test", Role: types.RoleDoctor},
		Token:       "t1",
		Permissions: types.NewPermissionSet(perms...),
		Status:      types.StatusAuthenticated,
	}
}

func TestStore_DefaultsToAnonymous(t *testing.T) {
	store := NewStore()

	sess := store.Session()
	assert.Equal(t, types.StatusAnonymous, sess.Status)
	assert.NotNil(t, sess.Permissions)
	assert.Empty(t, sess.Permissions)
	assert.NoError(t, sess.Validate())
}

func TestStore_SetAndClear(t *testing.T) {
	store := NewStore()

	store.Set(authenticated("PATIENT_MANAGEMENT"))
	sess := store.Session()
	assert.True(t, sess.IsAuthenticated())
	assert.Equal(t, "t1", sess.Token)
	assert.True(t, sess.Permissions.Contains("PATIENT_MANAGEMENT"))

	store.Clear()
	sess = store.Session()
	assert.Equal(t, types.StatusAnonymous, sess.Status)
	assert.Empty(t, sess.Token)
	assert.Empty(t, sess.Permissions)
}

func TestStore_SessionIsACopy(t *testing.T) {
	store := NewStore()
	original := authenticated("PATIENT_MANAGEMENT")
	store.Set(original)

	// mutating the caller's set after Set must not leak in
	original.Permissions["BILLING_MANAGEMENT"] = struct{}{}
	assert.False(t, store.Session().Permissions.Contains("BILLING_MANAGEMENT"))

	// mutating a returned copy must not leak in either
	got := store.Session()
	got.Permissions["SYSTEM_SETTINGS"] = struct{}{}
	assert.False(t, store.Session().Permissions.Contains("SYSTEM_SETTINGS"))
}

func TestStore_SubscribersNotifiedInOrder(t *testing.T) {
	store := NewStore()

	var calls []string
	store.Subscribe(func(s types.Session) { calls = append(calls, "first:"+string(s.Status)) })
	store.Subscribe(func(s types.Session) { calls = append(calls, "second:"+string(s.Status)) })

	store.Set(authenticated())
	store.Clear()

	assert.Equal(t, []string{
		"first:authenticated",
		"second:authenticated",
		"first:anonymous",
		"second:anonymous",
	}, calls)
}

func TestStore_ListenerMayReadStore(t *testing.T) {
	store := NewStore()

	var seen types.SessionStatus
	store.Subscribe(func(types.Session) { seen = store.Session().Status })

	store.Set(authenticated())
	assert.Equal(t, types.StatusAuthenticated, seen)
}

func TestStore_Unsubscribe(t *testing.T) {
	store := NewStore()

	count := 0
	unsubscribe := store.Subscribe(func(types.Session) { count++ })
	other := 0
	store.Subscribe(func(types.Session) { other++ })

	store.Set(authenticated())
	unsubscribe()
	unsubscribe()
	store.Clear()

	assert.Equal(t, 1, count)
	assert.Equal(t, 2, other)
}

func TestStore_ConcurrentAccess(t *testing.T) {
	store := NewStore()
	store.Subscribe(func(types.Session) {})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			store.Set(authenticated("VIEW_PATIENTS"))
		}()
		go func() {
			defer wg.Done()
			sess := store.Session()
			assert.NoError(t, sess.Validate())
		}()
	}
	wg.Wait()
}
