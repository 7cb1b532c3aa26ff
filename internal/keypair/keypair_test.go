package keypair

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeKeygenFile(t *testing.T, raw []byte) string {
	t.Helper()

	ints := make([]int, len(raw))
	for i, b := range raw {
		ints[i] = int(b)
	}
	data, err := json.Marshal(ints)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "id.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestLoadFile(t *testing.T) {
	want, err := Generate()
	require.NoError(t, err)

	path := writeKeygenFile(t, want)

	got, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, want.PublicKey(), got.PublicKey())
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.json"))
	assert.ErrorIs(t, err, ErrKeypairFile)
}

func TestLoadFile_Garbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "id.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := LoadFile(path)
	assert.ErrorIs(t, err, ErrKeypairFile)
}

func TestLoadFile_WrongLength(t *testing.T) {
	path := writeKeygenFile(t, make([]byte, 32))

	_, err := LoadFile(path)
	assert.Error(t, err)
}

func TestFromBase58(t *testing.T) {
	want, err := Generate()
	require.NoError(t, err)

	got, err := FromBase58(base58.Encode(want))
	require.NoError(t, err)
	assert.Equal(t, want.PublicKey(), got.PublicKey())

	_, err = FromBase58("0OIl")
	assert.ErrorIs(t, err, ErrInvalidKeypair)

	_, err = FromBase58(base58.Encode([]byte{1, 2, 3}))
	assert.ErrorIs(t, err, ErrInvalidKeypair)
}

func TestSource_Load(t *testing.T) {
	fileKey, err := Generate()
	require.NoError(t, err)
	secretKey, err := Generate()
	require.NoError(t, err)

	path := writeKeygenFile(t, fileKey)

	key, generated, err := Source{Path: path, Secret: base58.Encode(secretKey)}.Load()
	require.NoError(t, err)
	assert.False(t, generated)
	assert.Equal(t, fileKey.PublicKey(), key.PublicKey())

	key, generated, err = Source{Secret: base58.Encode(secretKey)}.Load()
	require.NoError(t, err)
	assert.False(t, generated)
	assert.Equal(t, secretKey.PublicKey(), key.PublicKey())

	key, generated, err = Source{}.Load()
	require.NoError(t, err)
	assert.True(t, generated)
	assert.Len(t, key, secretKeyLength)
}

func TestSource_Load_OptionalPath(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "id.json")

	_, _, err := Source{Path: missing}.Load()
	assert.ErrorIs(t, err, ErrKeypairFile)

	key, generated, err := Source{Path: missing, PathOptional: true}.Load()
	require.NoError(t, err)
	assert.True(t, generated)
	assert.Len(t, key, secretKeyLength)

	secretKey, err := Generate()
	require.NoError(t, err)
	key, generated, err = Source{Path: missing, PathOptional: true, Secret: base58.Encode(secretKey)}.Load()
	require.NoError(t, err)
	assert.False(t, generated)
	assert.Equal(t, secretKey.PublicKey(), key.PublicKey())
}

func TestSource_Load_OptionalPathCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "id.json")
	require.NoError(t, os.WriteFile(path, []byte("[1,2,3"), 0o600))

	key, generated, err := Source{Path: path, PathOptional: true}.Load()
	assert.ErrorIs(t, err, ErrKeypairFile)
	assert.False(t, generated)
	assert.Nil(t, key)

	short := writeKeygenFile(t, make([]byte, 32))
	_, generated, err = Source{Path: short, PathOptional: true}.Load()
	assert.Error(t, err)
	assert.False(t, generated)
}

func TestLoadFile_MissingIsNotExist(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
