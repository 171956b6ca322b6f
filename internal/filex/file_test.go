package filex

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) func() {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	return func() { _ = os.Chdir(old) }
}

func TestEnsureParentDir_CreatesNestedDirectory(t *testing.T) {
	tmp := t.TempDir()
	dsn := filepath.Join(tmp, "data", "device", "hk.db")

	got, err := EnsureParentDir(dsn)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(tmp, "data", "device"), got)

	fi, err := os.Stat(got)
	require.NoError(t, err)
	require.True(t, fi.IsDir(), "should create a directory")

	if runtime.GOOS != "windows" {
		perm := fi.Mode().Perm()
		require.Equal(t, os.FileMode(0o700), perm&0o700)
	}
}

func TestEnsureParentDir_RelativeToCWD(t *testing.T) {
	tmp := t.TempDir()
	defer chdir(t, tmp)()

	got, err := EnsureParentDir("hk.db")
	require.NoError(t, err)

	want, err := filepath.EvalSymlinks(tmp)
	require.NoError(t, err)
	gotResolved, err := filepath.EvalSymlinks(got)
	require.NoError(t, err)
	assert.Equal(t, want, gotResolved)
}

func TestEnsureParentDir_Idempotent(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "x", "hk.db")

	first, err := EnsureParentDir(dsn)
	require.NoError(t, err)
	second, err := EnsureParentDir(dsn)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestEnsureParentDir_FileInTheWay(t *testing.T) {
	tmp := t.TempDir()
	blocker := filepath.Join(tmp, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	_, err := EnsureParentDir(filepath.Join(blocker, "hk.db"))
	require.Error(t, err)
}

func TestEnsureParentDir_MemoryAndURI(t *testing.T) {
	for _, dsn := range []string{":memory:", "file:hk?mode=memory&cache=shared", "file:/tmp/hk.db"} {
		got, err := EnsureParentDir(dsn)
		require.NoError(t, err, dsn)
		assert.Empty(t, got, dsn)
	}
	assert.True(t, IsMemoryDSN(":memory:"))
	assert.False(t, IsMemoryDSN("hk.db"))
}
