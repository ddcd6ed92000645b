package assets

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/vvoss-dev/reedcms/internal/reedstream"
)

// Manifest maps logical asset names ("layout.mouse.css") to their
// session-hashed filenames on disk, persisted to
// public/asset-manifest.json so templates can resolve the current
// bundle without recomputing hashes on every request.
type Manifest struct {
	mu      sync.RWMutex
	path    string
	entries map[string]string
}

// LoadManifest reads an existing manifest file, or starts an empty one
// if it does not yet exist.
func LoadManifest(path string) (*Manifest, error) {
	m := &Manifest{path: path, entries: map[string]string{}}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return nil, reedstream.IOError("read", path, err)
	}
	if err := json.Unmarshal(data, &m.entries); err != nil {
		return nil, reedstream.Parse("manifest", err.Error())
	}
	return m, nil
}

// Set records the hashed filename for a logical asset name and persists
// the manifest immediately.
func (m *Manifest) Set(logicalName, hashedFilename string) error {
	m.mu.Lock()
	m.entries[logicalName] = hashedFilename
	snapshot := make(map[string]string, len(m.entries))
	for k, v := range m.entries {
		snapshot[k] = v
	}
	m.mu.Unlock()
	return m.persist(snapshot)
}

// Lookup returns the hashed filename for logicalName, if recorded.
func (m *Manifest) Lookup(logicalName string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.entries[logicalName]
	return v, ok
}

func (m *Manifest) persist(entries map[string]string) error {
	if err := EnsureOutputDir(filepath.Dir(m.path)); err != nil {
		return err
	}
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ordered := make(map[string]string, len(entries))
	for _, k := range keys {
		ordered[k] = entries[k]
	}
	data, err := json.MarshalIndent(ordered, "", "  ")
	if err != nil {
		return reedstream.Build("assets", "encode manifest: "+err.Error())
	}
	if err := atomicWriteFile(m.path, data); err != nil {
		return reedstream.IOError("write", m.path, err)
	}
	return nil
}
