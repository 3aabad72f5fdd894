package kms

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func tempKeystore(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "keys", "master.key")
}

func TestLocalKMSNewGeneratesKey(t *testing.T) {
	path := tempKeystore(t)

	k, err := NewLocalKMS(path)
	require.NoError(t, err)
	require.Equal(t, 1, k.ActiveVersion())

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestLocalKMSEncryptDecryptRoundtrip(t *testing.T) {
	k, err := NewLocalKMS(tempKeystore(t))
	require.NoError(t, err)

	ct, err := k.Encrypt("cold-archive payload")
	require.NoError(t, err)
	require.Contains(t, ct, "v1:")

	pt, err := k.Decrypt(ct)
	require.NoError(t, err)
	require.Equal(t, "cold-archive payload", pt)
}

func TestLocalKMSRotatePreservesOldVersionForDecrypt(t *testing.T) {
	k, err := NewLocalKMS(tempKeystore(t))
	require.NoError(t, err)

	ct, err := k.Encrypt("issued-before-rotation")
	require.NoError(t, err)

	v2, err := k.Rotate()
	require.NoError(t, err)
	require.Equal(t, 2, v2)
	require.Equal(t, 2, k.ActiveVersion())

	pt, err := k.Decrypt(ct)
	require.NoError(t, err)
	require.Equal(t, "issued-before-rotation", pt)
}

func TestDeriveWitnessKeyDeterministicPerSchemeAndSalt(t *testing.T) {
	k, err := NewLocalKMS(tempKeystore(t))
	require.NoError(t, err)

	salt := []byte("batch-001")
	k1, err := k.DeriveWitnessKey("SNARK_GROTH16_STYLE", salt)
	require.NoError(t, err)
	k2, err := k.DeriveWitnessKey("SNARK_GROTH16_STYLE", salt)
	require.NoError(t, err)
	require.Equal(t, k1, k2)

	k3, err := k.DeriveWitnessKey("STARK_STYLE", salt)
	require.NoError(t, err)
	require.NotEqual(t, k1, k3)

	k4, err := k.DeriveWitnessKey("SNARK_GROTH16_STYLE", []byte("batch-002"))
	require.NoError(t, err)
	require.NotEqual(t, k1, k4)
}

func TestDecryptUnknownVersionFails(t *testing.T) {
	k, err := NewLocalKMS(tempKeystore(t))
	require.NoError(t, err)

	_, err = k.Decrypt("v99:AAAA")
	require.Error(t, err)
}
