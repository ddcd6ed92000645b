package reedbase

import (
	"os"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/vvoss-dev/reedcms/internal/csv"
	"github.com/vvoss-dev/reedcms/internal/obs"
	"github.com/vvoss-dev/reedcms/internal/reedstream"
)

// WarmCache is an optional bbolt-backed snapshot of each Cache's flattened
// key/value data. It exists purely to prime a Cache's in-memory map ahead
// of the canonical CSV read on startup. When the CSV file exists its
// contents replace the primed map, so CSV remains the source of truth
// (spec.md §3.3). When the CSV file is missing, the primed snapshot is
// kept, so that cache starts with the snapshot's data instead of empty.
type WarmCache struct {
	db *bolt.DB
}

// OpenWarmCache opens (creating if absent) the bbolt file at path.
func OpenWarmCache(path string) (*WarmCache, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, reedstream.IOError("open warm cache", path, err)
	}
	return &WarmCache{db: db}, nil
}

// Close releases the underlying bbolt file.
func (w *WarmCache) Close() error {
	return w.db.Close()
}

// prime loads name's snapshot bucket into data, if one exists. A missing
// bucket (first boot, or a cache never saved) is not an error.
func (w *WarmCache) prime(name string, data map[string]string) error {
	return w.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(name))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			data[string(k)] = string(v)
			return nil
		})
	})
}

// Save replaces c's snapshot bucket with its current flattened data. Call
// this during clean shutdown so the next cold boot starts warm.
func (w *WarmCache) Save(c *Cache) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return w.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(c.name)); err != nil && err != bolt.ErrBucketNotFound {
			return err
		}
		b, err := tx.CreateBucket([]byte(c.name))
		if err != nil {
			return err
		}
		for k, v := range c.data {
			if err := b.Put([]byte(k), []byte(v)); err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveAll snapshots every cache in caches, stopping at the first error.
func SaveAll(w *WarmCache, caches ...*Cache) error {
	for _, c := range caches {
		if c == nil {
			continue
		}
		if err := w.Save(c); err != nil {
			return err
		}
	}
	return nil
}

// InitWarm behaves like Init but first primes the cache's map from warm's
// snapshot bucket. If the CSV file exists, its contents then replace the
// primed map; if it is missing, the primed map is kept. warm may be nil,
// in which case InitWarm is exactly Init.
func InitWarm(name, csvPath string, warm *WarmCache) (*Cache, error) {
	if warm == nil {
		return Init(name, csvPath)
	}

	c := &Cache{name: name, path: csvPath, data: make(map[string]string)}
	if err := warm.prime(name, c.data); err != nil {
		obs.Logger.WithFields(map[string]any{
			"component": "reedbase",
			"cache":     name,
			"error":     err.Error(),
		}).Warn("warm cache prime failed, falling back to cold CSV read")
	}

	if _, statErr := os.Stat(csvPath); os.IsNotExist(statErr) {
		return c, nil
	}
	records, err := csv.ReadCSV(csvPath)
	if err != nil {
		return nil, err
	}
	fresh := make(map[string]string, len(records))
	for _, r := range records {
		fresh[r.Key] = r.Value
	}
	c.data = fresh
	return c, nil
}
