package cryptox_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aussiebroadwan/tollgate/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func useMasterKey(t *testing.T, value string) {
	t.Helper()
	cryptox.ResetMasterKeyForTesting()
	t.Setenv(cryptox.MasterKeyEnv, value)
	t.Cleanup(cryptox.ResetMasterKeyForTesting)
}

func TestEncryptDecryptSecret(t *testing.T) {
	useMasterKey(t, "test-master-key-for-encryption-12345")

	secret := []byte("hmac-secret-that-is-long-enough-for-hs256")

	enc1, err := cryptox.EncryptSecret(secret)
	require.NoError(t, err)
	enc2, err := cryptox.EncryptSecret(secret)
	require.NoError(t, err)
	require.NotEqual(t, enc1, enc2, "random nonce per encryption")

	dec, err := cryptox.DecryptSecret(enc1)
	require.NoError(t, err)
	require.Equal(t, secret, dec)
}

func TestDecryptSecretRejectsTampering(t *testing.T) {
	useMasterKey(t, "test-master-key-tampered")

	enc, err := cryptox.EncryptSecret([]byte("original"))
	require.NoError(t, err)

	enc[len(enc)-1] ^= 0xFF
	_, err = cryptox.DecryptSecret(enc)
	require.Error(t, err)

	_, err = cryptox.DecryptSecret([]byte("short"))
	require.ErrorContains(t, err, "too short")
}

func TestSealOpenSecret(t *testing.T) {
	useMasterKey(t, "test-master-key-prefix")

	sealed, err := cryptox.SealSecret([]byte("s3cr3t"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(sealed, cryptox.CipherPrefix))

	plain, err := cryptox.OpenSecret(sealed)
	require.NoError(t, err)
	require.Equal(t, []byte("s3cr3t"), plain)

	_, err = cryptox.OpenSecret("plain-value")
	require.Error(t, err)

	_, err = cryptox.OpenSecret(cryptox.CipherPrefix + "!!not-base64!!")
	require.Error(t, err)
}

func TestSecretSealedUnderAnotherKeyFails(t *testing.T) {
	useMasterKey(t, "first-master-key")
	sealed, err := cryptox.SealSecret([]byte("value"))
	require.NoError(t, err)

	useMasterKey(t, "second-master-key")
	_, err = cryptox.OpenSecret(sealed)
	require.Error(t, err)
}

func TestMasterKeyFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "master.key")
	require.NoError(t, os.WriteFile(path, []byte("file-based-master-key-content-xyz\n"), 0o600))

	cryptox.ResetMasterKeyForTesting()
	cryptox.SetMasterKeyPath(path)
	t.Cleanup(cryptox.ResetMasterKeyForTesting)

	sealed, err := cryptox.SealSecret([]byte("from-file"))
	require.NoError(t, err)

	plain, err := cryptox.OpenSecret(sealed)
	require.NoError(t, err)
	require.Equal(t, []byte("from-file"), plain)
}

func TestEphemeralMasterKeyCanBeDisabled(t *testing.T) {
	cryptox.ResetMasterKeyForTesting()
	t.Setenv(cryptox.MasterKeyEnv, "")
	cryptox.AllowEphemeralMasterKey(false)
	t.Cleanup(cryptox.ResetMasterKeyForTesting)

	_, err := cryptox.SealSecret([]byte("x"))
	require.ErrorIs(t, err, cryptox.ErrMasterKeyMissing)
}
