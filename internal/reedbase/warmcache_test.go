package reedbase

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvoss-dev/reedcms/internal/csv"
	"github.com/vvoss-dev/reedcms/internal/reedstream"
)

func TestInitWarmPrimesFromSnapshotThenCSVWins(t *testing.T) {
	dir := t.TempDir()
	warm, err := OpenWarmCache(filepath.Join(dir, "warm.bbolt"))
	require.NoError(t, err)
	defer warm.Close()

	stale := &Cache{name: "text", data: map[string]string{"home.title": "Stale Snapshot"}}
	require.NoError(t, warm.Save(stale))

	csvPath := filepath.Join(dir, "text.csv")
	require.NoError(t, csv.WriteCSV(csvPath, []csv.Record{
		{Key: "home.title", Value: "Fresh From CSV"},
	}))

	c, err := InitWarm("text", csvPath, warm)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())

	resp, err := c.Get(reedstream.NewRequest("home.title"))
	require.NoError(t, err)
	assert.Equal(t, "Fresh From CSV", resp.Data)
}

func TestInitWarmPrimesWhenCSVMissing(t *testing.T) {
	dir := t.TempDir()
	warm, err := OpenWarmCache(filepath.Join(dir, "warm.bbolt"))
	require.NoError(t, err)
	defer warm.Close()

	stale := &Cache{name: "route", data: map[string]string{"home@en": "/home"}}
	require.NoError(t, warm.Save(stale))

	c, err := InitWarm("route", filepath.Join(dir, "routes.csv"), warm)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())

	resp, err := c.Get(reedstream.NewRequest("home@en"))
	require.NoError(t, err)
	assert.Equal(t, "/home", resp.Data)
}

func TestInitWarmWithNilWarmCacheBehavesLikeInit(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "meta.csv")
	require.NoError(t, csv.WriteCSV(csvPath, []csv.Record{{Key: "home.cache.ttl", Value: "600"}}))

	c, err := InitWarm("meta", csvPath, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())
}

func TestSaveAllSnapshotsEveryCache(t *testing.T) {
	dir := t.TempDir()
	warm, err := OpenWarmCache(filepath.Join(dir, "warm.bbolt"))
	require.NoError(t, err)
	defer warm.Close()

	text := &Cache{name: "text", data: map[string]string{"a": "1"}}
	meta := &Cache{name: "meta", data: map[string]string{"b": "2"}}

	require.NoError(t, SaveAll(warm, text, meta, nil))

	primed := make(map[string]string)
	require.NoError(t, warm.prime("text", primed))
	assert.Equal(t, "1", primed["a"])
}
