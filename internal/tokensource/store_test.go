package tokensource

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvStore(t *testing.T) {
	store := &EnvStore{Variable: "TOKENSOURCE_TEST_CREDENTIAL"}
	ctx := context.Background()

	_, err := store.Read(ctx)
	assert.ErrorIs(t, err, ErrNoCredential)

	t.Setenv("TOKENSOURCE_TEST_CREDENTIAL", "  secret-token \n")
	got, err := store.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "secret-token", got)

	assert.Error(t, store.Write(ctx, "anything"))
}

func TestFileStore(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "credential")
	store := &FileStore{Path: path}
	ctx := context.Background()

	_, err := store.Read(ctx)
	assert.ErrorIs(t, err, ErrNoCredential)

	require.NoError(t, store.Write(ctx, "secret-token"))

	got, err := store.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "secret-token", got)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// An empty write clears the store.
	require.NoError(t, store.Write(ctx, ""))
	_, err = store.Read(ctx)
	assert.ErrorIs(t, err, ErrNoCredential)

	// Clearing an already-empty store is fine.
	require.NoError(t, store.Write(ctx, ""))
}

func TestFileStoreEmptyFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "credential")
	require.NoError(t, os.WriteFile(path, []byte("   \n"), 0o600))

	store := &FileStore{Path: path}
	_, err := store.Read(context.Background())
	assert.ErrorIs(t, err, ErrNoCredential)
}
