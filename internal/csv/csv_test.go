package csv

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadCSVRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "text.csv")

	in := []Record{
		{Key: "knowledge.title@en", Value: "Knowledge Base", Description: ""},
		{Key: "about.title@en", Value: "About us | team", Description: "nav label"},
	}
	require.NoError(t, WriteCSV(path, in))

	out, err := ReadCSV(path)
	require.NoError(t, err)
	require.Len(t, out, 2)
	// sorted by key: about.* before knowledge.*
	assert.Equal(t, "about.title@en", out[0].Key)
	assert.Equal(t, "About us | team", out[0].Value)
	assert.Equal(t, "nav label", out[0].Description)
	assert.Equal(t, "knowledge.title@en", out[1].Key)
}

func TestReadCSVSkipsCommentsAndBlankLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "text.csv")
	require.NoError(t, writeRaw(path, "# comment\n\nfoo|bar|baz\n"))

	out, err := ReadCSV(path)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "foo", out[0].Key)
}

func TestReadCSVMissingFile(t *testing.T) {
	_, err := ReadCSV(filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
}

func TestMatrixCSVRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "roles.matrix.csv")
	header := []string{"rolename", "permissions", "desc"}

	recs := []MatrixRecord{
		{
			Fields: map[string]MatrixValue{
				"rolename":    {Single: "editor"},
				"permissions": {List: []string{"text[rw-]", "route[r--]"}, IsList: true},
			},
			FieldOrder:  []string{"rolename", "permissions"},
			Description: "content editor",
		},
	}
	require.NoError(t, WriteMatrixCSV(path, header, recs))

	out, err := ReadMatrixCSV(path, map[string]bool{"permissions": true})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "editor", out[0].Fields["rolename"].Single)
	assert.Equal(t, []string{"text[rw-]", "route[r--]"}, out[0].Fields["permissions"].List)
	assert.Equal(t, "content editor", out[0].Description)
}

func writeRaw(path, content string) error {
	return atomicWrite(path, []byte(content))
}
