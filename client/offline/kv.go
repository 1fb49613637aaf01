// Package offline is the client's persisted key-value store, the TTL cache
// layered on it, and startup hydration.
//
// The store is best-effort: when the bbolt file cannot be opened or written
// it keeps working from memory, and callers never see storage errors.
package offline

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	bolt "go.etcd.io/bbolt"
)

// CachePrefix is the namespace owned by Cache. Raw writes into it are refused.
const CachePrefix = "cache:"

var (
	ErrReservedKey = errors.New("offline: key is reserved for the cache namespace")
	ErrInvalidJSON = errors.New("offline: value is not valid JSON")
	ErrEmptyKey    = errors.New("offline: empty key")
)

var bucketKV = []byte("kv")

// Store is a JSON key-value store persisted in bbolt with an in-memory copy
// of every key. Reads are served from memory.
type Store struct {
	db  *bolt.DB
	log zerolog.Logger

	mu  sync.RWMutex
	mem map[string][]byte
}

// Open opens the bbolt file at path. An empty path, or a file that cannot be
// opened, yields a memory-only store.
func Open(path string, log zerolog.Logger) *Store {
	s := &Store{log: log, mem: make(map[string][]byte)}
	if path == "" {
		return s
	}
	db, err := openBolt(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("offline store unavailable; running memory-only")
		return s
	}
	s.db = db
	if err := s.load(); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("offline store unreadable; starting empty")
	}
	return s
}

func openBolt(path string) (*bolt.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketKV)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func (s *Store) load() error {
	return s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketKV).ForEach(func(k, v []byte) error {
			s.mem[string(k)] = append([]byte(nil), v...)
			return nil
		})
	})
}

// Persistent reports whether writes reach disk.
func (s *Store) Persistent() bool { return s.db != nil }

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SetKV stores value under key. Keys in the cache namespace are refused.
func (s *Store) SetKV(key string, value json.RawMessage) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if !json.Valid(value) {
		return ErrInvalidJSON
	}
	s.put(key, value)
	return nil
}

// GetKV returns the value under key, or nil when absent.
func (s *Store) GetKV(key string) (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.mem[key]
	if !ok {
		return nil, nil
	}
	return append(json.RawMessage(nil), v...), nil
}

// DelKV removes key. Missing keys are not an error.
func (s *Store) DelKV(key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	s.del(key)
	return nil
}

// Keys returns every stored key, cache entries included, sorted.
func (s *Store) Keys() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.mem))
	for k := range s.mem {
		out = append(out, k)
	}
	sort.Strings(out)
	return out, nil
}

// ClearAll removes every key, cache entries included.
func (s *Store) ClearAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mem = make(map[string][]byte)
	if s.db == nil {
		return nil
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketKV); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
			return err
		}
		_, err := tx.CreateBucket(bucketKV)
		return err
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("offline store clear failed; memory cleared")
	}
	return nil
}

// put writes through to bbolt. A failed disk write keeps the memory copy.
// The disk write happens under mu so disk and memory apply writes to a key
// in the same order.
func (s *Store) put(key string, value []byte) {
	v := append([]byte(nil), value...)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mem[key] = v
	if s.db == nil {
		return
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketKV).Put([]byte(key), v)
	})
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("offline store write failed; kept in memory")
	}
}

func (s *Store) del(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.mem, key)
	if s.db == nil {
		return
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketKV).Delete([]byte(key))
	})
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("offline store delete failed")
	}
}

// keysWithPrefix lists keys starting with prefix, sorted.
func (s *Store) keysWithPrefix(prefix string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for k := range s.mem {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func checkKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if strings.HasPrefix(key, CachePrefix) {
		return ErrReservedKey
	}
	return nil
}
