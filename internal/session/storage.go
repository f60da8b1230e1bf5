package session

import (
	"context"
	"errors"
)

// Persisted keys
const (
	KeyUser        = "clinic.user"
	KeyToken       = "clinic.token"
	KeyPermissions = "clinic.permissions"
)

// Keys lists every key the session model persists
var Keys = []string{KeyUser, KeyToken, KeyPermissions}

// Storage is the persisted key-value collaborator. Get reports a missing
// key with ok=false and a nil error.
type Storage interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// RemoveKeys removes every persisted session key, continuing past failures
func RemoveKeys(ctx context.Context, storage Storage) error {
	var errs []error
	for _, key := range Keys {
		if err := storage.Remove(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
