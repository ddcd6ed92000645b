package backup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCreateAndRestoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	source := writeSource(t, dir, "text.csv", "knowledge.title@en|Knowledge Base|\n")

	backupPath, err := Create(source, time.Date(2026, 1, 2, 14, 30, 22, 0, time.UTC))
	require.NoError(t, err)
	assert.Contains(t, backupPath, "text.csv.20260102_143022.xz")

	// mutate the source, then restore it
	require.NoError(t, os.WriteFile(source, []byte("mutated"), 0o644))

	require.NoError(t, Restore(backupPath, source))
	restored, err := os.ReadFile(source)
	require.NoError(t, err)
	assert.Equal(t, "knowledge.title@en|Knowledge Base|\n", string(restored))
}

func TestListEmptyWhenNoBackupsDir(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "text.csv")
	infos, err := List(source)
	require.NoError(t, err)
	assert.Empty(t, infos)
}

func TestCleanupRetains32Newest(t *testing.T) {
	dir := t.TempDir()
	source := writeSource(t, dir, "text.csv", "a|b|\n")

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 33; i++ {
		_, err := Create(source, base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
	}

	infos, err := List(source)
	require.NoError(t, err)
	assert.Len(t, infos, MaxBackups)
	// newest first
	assert.True(t, infos[0].Timestamp > infos[len(infos)-1].Timestamp)
}

func TestInfoHumanSize(t *testing.T) {
	info := Info{SizeBytes: 2048}
	assert.Contains(t, info.HumanSize(), "kB")
}
