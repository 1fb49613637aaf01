package offline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
)

// entry is the stored form of a cache value.
type entry struct {
	Value json.RawMessage `json:"value"`
	TS    int64           `json:"ts"` // unix millis
}

// Cache stores timestamped values under CachePrefix. Reads never check age;
// stale entries are removed by PurgeOlderThan.
type Cache struct {
	kv  *Store
	now func() time.Time

	mu sync.Mutex // serializes ts reads and writes per Cache
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) { c.now = now }
}

func NewCache(kv *Store, opts ...CacheOption) *Cache {
	c := &Cache{kv: kv, now: time.Now}
	for _, o := range opts {
		o(c)
	}
	return c
}

// SetCache stores value under key with the current time. The timestamp of
// a key never moves backwards, even if the clock does.
func (c *Cache) SetCache(key string, value any) error {
	if key == "" {
		return ErrEmptyKey
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("offline: encode cache value %q: %w", key, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	ts := c.now().UnixMilli()
	if prev, ok := c.read(key); ok && prev.TS > ts {
		ts = prev.TS
	}
	b, err := json.Marshal(entry{Value: raw, TS: ts})
	if err != nil {
		return err
	}
	c.kv.put(CachePrefix+key, b)
	return nil
}

// GetCache decodes the value under key into dest and reports whether it
// was present.
func (c *Cache) GetCache(key string, dest any) (bool, error) {
	e, ok := c.read(key)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(e.Value, dest); err != nil {
		return false, fmt.Errorf("offline: decode cache value %q: %w", key, err)
	}
	return true, nil
}

// RemoveCache deletes key regardless of age.
func (c *Cache) RemoveCache(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	c.kv.del(CachePrefix + key)
	return nil
}

// Keys lists cache keys without the prefix.
func (c *Cache) Keys() []string {
	full := c.kv.keysWithPrefix(CachePrefix)
	out := make([]string, len(full))
	for i, k := range full {
		out[i] = strings.TrimPrefix(k, CachePrefix)
	}
	return out
}

// PurgeOlderThan deletes cache entries written before now-maxAge, along
// with entries that no longer decode. Keys outside the cache namespace are
// never touched.
func (c *Cache) PurgeOlderThan(maxAge time.Duration) (int, error) {
	if maxAge < 0 {
		return 0, fmt.Errorf("offline: negative max age %s", maxAge)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := c.now().Add(-maxAge).UnixMilli()
	purged := 0
	for _, full := range c.kv.keysWithPrefix(CachePrefix) {
		e, ok := c.read(strings.TrimPrefix(full, CachePrefix))
		if ok && e.TS >= cutoff {
			continue
		}
		c.kv.del(full)
		purged++
	}
	return purged, nil
}

// StartPurgeJob purges entries older than maxAge once immediately and then
// every interval until ctx is done. It blocks; run it in a goroutine.
func (c *Cache) StartPurgeJob(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	purge := func() {
		n, err := c.PurgeOlderThan(maxAge)
		if err != nil {
			c.kv.log.Warn().Err(err).Msg("cache purge failed")
			return
		}
		if n > 0 {
			c.kv.log.Debug().Int("purged", n).Dur("max_age", maxAge).Msg("cache purge")
		}
	}

	purge()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purge()
		}
	}
}

// read returns the decoded entry for key. Absent and undecodable entries
// both report false.
func (c *Cache) read(key string) (entry, bool) {
	raw, _ := c.kv.GetKV(CachePrefix + key)
	if raw == nil {
		return entry{}, false
	}
	var e entry
	if err := json.Unmarshal(raw, &e); err != nil || e.Value == nil {
		return entry{}, false
	}
	return e, true
}
