package session

import (
	"context"
	"fmt"

	"github.com/medrex/clinic-portal/pkg/encryption"
)

// SealedStorage encrypts values before handing them to the wrapped storage.
// Keys stay in the clear.
type SealedStorage struct {
	inner  Storage
	cipher *encryption.AESEncryption
}

var _ Storage = (*SealedStorage)(nil)

// NewSealedStorage wraps inner with AES-GCM sealing keyed by passphrase
func NewSealedStorage(inner Storage, passphrase string) (*SealedStorage, error) {
	cipher, err := encryption.NewAESEncryption(passphrase)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage encryption: %w", err)
	}
	return &SealedStorage{inner: inner, cipher: cipher}, nil
}

func (s *SealedStorage) Get(ctx context.Context, key string) (string, bool, error) {
	sealed, ok, err := s.inner.Get(ctx, key)
	if err != nil || !ok {
		return "", ok, err
	}
	value, err := s.cipher.DecryptString(sealed)
	if err != nil {
		return "", false, fmt.Errorf("failed to open session key %s: %w", key, err)
	}
	return value, true, nil
}

func (s *SealedStorage) Set(ctx context.Context, key, value string) error {
	sealed, err := s.cipher.EncryptString(value)
	if err != nil {
		return fmt.Errorf("failed to seal session key %s: %w", key, err)
	}
	return s.inner.Set(ctx, key, sealed)
}

func (s *SealedStorage) Remove(ctx context.Context, key string) error {
	return s.inner.Remove(ctx, key)
}

func (s *SealedStorage) Clear(ctx context.Context) error {
	return s.inner.Clear(ctx)
}
