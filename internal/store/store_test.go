package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "state.yaml")
}

func TestOpen_CreatesFreshStore(t *testing.T) {
	path := storePath(t)
	s, err := Open(path)
	require.NoError(t, err)

	v, ok := s.Get(schemaVersionKey)
	assert.True(t, ok)
	assert.Equal(t, schemaVersion, v)

	_, err = os.Stat(path)
	assert.NoError(t, err, "store file should exist immediately after Open")
}

func TestSetGetDelete_PersistAcrossReopen(t *testing.T) {
	path := storePath(t)

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Set("window-size", "1280x800"))
	require.NoError(t, s.Set("theme", "dark"))
	require.NoError(t, s.Delete("theme"))

	reopened, err := Open(path)
	require.NoError(t, err)

	v, ok := reopened.Get("window-size")
	assert.True(t, ok)
	assert.Equal(t, "1280x800", v)

	_, ok = reopened.Get("theme")
	assert.False(t, ok)
}

func TestDelete_MissingKeyIsNoop(t *testing.T) {
	s, err := Open(storePath(t))
	require.NoError(t, err)
	assert.NoError(t, s.Delete("never-set"))
}

func TestRecordBoot_CountsAndShutdownMarker(t *testing.T) {
	path := storePath(t)

	s, err := Open(path)
	require.NoError(t, err)

	count, clean, err := s.RecordBoot()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.False(t, clean, "a fresh store has no clean-shutdown marker")

	// Session ends cleanly.
	require.NoError(t, s.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	count, clean, err = s2.RecordBoot()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.True(t, clean)

	// This session never closes; the next boot must see it as unclean.
	s3, err := Open(path)
	require.NoError(t, err)
	count, clean, err = s3.RecordBoot()
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.False(t, clean)
}

func TestOpen_RejectsCorruptFile(t *testing.T) {
	path := storePath(t)
	require.NoError(t, os.WriteFile(path, []byte("{not yaml: ["), 0o644))

	_, err := Open(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not valid YAML")
}

func TestOpen_RejectsNewerSchema(t *testing.T) {
	path := storePath(t)
	require.NoError(t, os.WriteFile(path, []byte("schema-version: \"99\"\n"), 0o644))

	_, err := Open(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported schema version")
}

func TestPersist_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "state.yaml"))
	require.NoError(t, err)
	require.NoError(t, s.Set("k", "v"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "state.yaml", entries[0].Name())
}
