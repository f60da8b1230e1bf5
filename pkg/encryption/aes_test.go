package encryption

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAESEncryption_StringRoundTrip(t *testing.T) {
	enc, err := NewAESEncryption("workstation-secret")
	require.NoError(t, err)

	sealed, err := enc.EncryptString("bearer-token")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "bearer-token")

	opened, err := enc.DecryptString(sealed)
	require.NoError(t, err)
	assert.Equal(t, "bearer-token", opened)
}

func TestAESEncryption_NonceIsRandom(t *testing.T) {
	enc, err := NewAESEncryption("workstation-secret")
	require.NoError(t, err)

	first, err := enc.EncryptString("same")
	require.NoError(t, err)
	second, err := enc.EncryptString("same")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestAESEncryption_WrongKey(t *testing.T) {
	enc, err := NewAESEncryption("right")
	require.NoError(t, err)
	other, err := NewAESEncryption("wrong")
	require.NoError(t, err)

	sealed, err := enc.EncryptString("token")
	require.NoError(t, err)

	_, err = other.DecryptString(sealed)
	assert.Error(t, err)
}

func TestAESEncryption_Malformed(t *testing.T) {
	enc, err := NewAESEncryption("key")
	require.NoError(t, err)

	_, err = enc.DecryptString("not base64!")
	assert.Error(t, err)

	_, err = enc.Decrypt([]byte{1, 2})
	assert.Error(t, err)

	_, err = NewAESEncryption("")
	assert.Error(t, err)
}
