// Package reedbase implements the four typed key-value caches (text,
// route, meta, config) backed by pipe-delimited CSV with environment and
// language fallback resolution.
package reedbase

import (
	"os"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/vvoss-dev/reedcms/internal/backup"
	"github.com/vvoss-dev/reedcms/internal/csv"
	"github.com/vvoss-dev/reedcms/internal/obs"
	"github.com/vvoss-dev/reedcms/internal/reedstream"
)

var environmentPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// HasEnvironmentSuffix reports whether key carries a trailing @segment.
func HasEnvironmentSuffix(key string) bool {
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == '@' {
			return true
		}
	}
	return false
}

// ExtractBaseKey strips the last @segment from key, if any.
func ExtractBaseKey(key string) string {
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == '@' {
			return key[:i]
		}
	}
	return key
}

// BuildEnvKey formats "base@environment".
func BuildEnvKey(base, environment string) string {
	return base + "@" + environment
}

// ValidateEnvironment accepts [A-Za-z0-9_-]+ and rejects empty strings.
func ValidateEnvironment(env string) error {
	if env == "" {
		return reedstream.Validation("environment", env, "environment name cannot be empty")
	}
	if !environmentPattern.MatchString(env) {
		return reedstream.Validation("environment", env, "only alphanumeric, underscore, and hyphen allowed")
	}
	return nil
}

// Cache is one of ReedCMS's four typed KV stores: a flat map of composite
// keys (base, base@language, base@language@environment, ...) to values,
// backed by an append-friendly pipe-delimited CSV file.
type Cache struct {
	name string
	path string
	mu   sync.RWMutex
	data map[string]string
}

// Init reads csvPath into a new Cache. A missing file is not an error —
// the cache simply starts empty, per spec.md §4.4.
func Init(name, csvPath string) (*Cache, error) {
	c := &Cache{name: name, path: csvPath, data: make(map[string]string)}
	if _, statErr := os.Stat(csvPath); os.IsNotExist(statErr) {
		return c, nil
	}
	records, err := csv.ReadCSV(csvPath)
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		c.data[r.Key] = r.Value
	}
	return c, nil
}

// Get composes a lookup key from req.Key plus optional @language and
// @environment suffixes, probing {K@L@E, K@L, K} in that order — the
// first hit wins. Returns NotFound with the attempted context on a full
// miss.
func (c *Cache) Get(req reedstream.Request) (reedstream.Response[string], error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	baseWithLang := req.Key
	if req.Language != "" {
		baseWithLang = BuildEnvKey(req.Key, req.Language)
	}

	candidates := []string{}
	if req.Environment != "" {
		candidates = append(candidates, BuildEnvKey(baseWithLang, req.Environment))
	}
	if baseWithLang != req.Key {
		candidates = append(candidates, baseWithLang)
	}
	candidates = append(candidates, req.Key)

	for _, key := range candidates {
		if value, ok := c.data[key]; ok {
			obs.Metrics.CacheHits.WithLabelValues(c.name).Inc()
			resp := reedstream.NewResponse(value, key, true)
			return resp, nil
		}
	}

	obs.Metrics.CacheMisses.WithLabelValues(c.name).Inc()
	err := reedstream.NotFound(req.Key).WithContext(
		"language=" + req.Language + ", environment=" + req.Environment,
	)
	return reedstream.Response[string]{}, err
}

// SetWithBackup backs up the pre-image CSV (if it exists) via
// internal/backup, then performs Set. This is the write path every
// caller (CLI, API) should use; Set alone is exposed for callers that
// manage their own backup timing (e.g. batch imports).
func (c *Cache) SetWithBackup(req reedstream.Request) (reedstream.Response[string], error) {
	if _, err := os.Stat(c.path); err == nil {
		if _, err := backup.Create(c.path, time.Now()); err != nil {
			return reedstream.Response[string]{}, err
		}
	}
	return c.Set(req)
}

// Set requires req.Value, updates the cache, and atomically rewrites the
// CSV from the flattened, sorted cache. It does not create a backup —
// use SetWithBackup for the full write path.
func (c *Cache) Set(req reedstream.Request) (reedstream.Response[string], error) {
	if !req.HasValue {
		return reedstream.Response[string]{}, reedstream.Validation("value", "", "value required for set operation")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[req.Key] = req.Value

	records := make([]csv.Record, 0, len(c.data))
	for k, v := range c.data {
		records = append(records, csv.Record{Key: k, Value: v})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Key < records[j].Key })

	if err := csv.WriteCSV(c.path, records); err != nil {
		return reedstream.Response[string]{}, err
	}

	obs.Logger.WithFields(map[string]any{
		"component": "reedbase",
		"cache":     c.name,
		"key":       req.Key,
	}).Debug("cache key set")

	return reedstream.NewResponse(req.Value, req.Key, false), nil
}

// Len returns the number of entries currently cached.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}
