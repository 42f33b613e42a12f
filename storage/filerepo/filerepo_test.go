package filerepo_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jrsteele09/go-judge-client/storage"
	"github.com/jrsteele09/go-judge-client/storage/filerepo"
	"github.com/stretchr/testify/require"
)

func TestSetGetDelete(t *testing.T) {
	repo, err := filerepo.New(t.TempDir())
	require.NoError(t, err)

	_, err = repo.Get("auth-token")
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, repo.Set("auth-token", "tok-1"))
	value, err := repo.Get("auth-token")
	require.NoError(t, err)
	require.Equal(t, "tok-1", value)

	require.NoError(t, repo.Delete("auth-token"))
	_, err = repo.Get("auth-token")
	require.ErrorIs(t, err, storage.ErrNotFound)

	// Deleting an absent key is not an error
	require.NoError(t, repo.Delete("auth-token"))
}

func TestPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	repo, err := filerepo.New(dir)
	require.NoError(t, err)
	require.NoError(t, repo.Set("provider", "github"))
	require.NoError(t, repo.Set("auth-token", "tok-1"))
	require.NoError(t, repo.Delete("auth-token"))

	reopened, err := filerepo.New(dir)
	require.NoError(t, err)

	value, err := reopened.Get("provider")
	require.NoError(t, err)
	require.Equal(t, "github", value)

	_, err = reopened.Get("auth-token")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCorruptStateFileStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "state.json"), []byte("{not json"), 0o600))

	repo, err := filerepo.New(dir)
	require.NoError(t, err)

	_, err = repo.Get("auth-token")
	require.ErrorIs(t, err, storage.ErrNotFound)
}
