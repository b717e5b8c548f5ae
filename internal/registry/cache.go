package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/funcn-ai/funcn/internal/util"
)

// CacheEntry is the on-disk record of one fetched index payload.
type CacheEntry struct {
	SourceAlias  string          `json:"source_alias"`
	Payload      json.RawMessage `json:"payload"`
	ETag         string          `json:"etag,omitempty"`
	CachedAt     time.Time       `json:"cached_at"`
	TTLSeconds   int64           `json:"ttl_seconds"`
	LastAccessed time.Time       `json:"last_accessed"`
	SizeBytes    int64           `json:"size_bytes"`
}

// Expired returns true once the entry's TTL has elapsed since it was cached.
// A 304 revalidation does not reset cached_at, so an expired entry stays
// expired on disk and is revalidated (cheaply) on each fetch.
func (e *CacheEntry) Expired(now time.Time) bool {
	return now.After(e.CachedAt.Add(time.Duration(e.TTLSeconds) * time.Second))
}

// CacheStore is the on-disk cache of fetched index payloads, one JSON file
// per source alias. It is constructed per command invocation; there is no
// cross-process locking (accepted limitation).
type CacheStore struct {
	dir        string
	ttlSeconds int64
	now        func() time.Time
}

func NewCacheStore(dir string, ttlSeconds int64) *CacheStore {
	return &CacheStore{dir: dir, ttlSeconds: ttlSeconds, now: time.Now}
}

func (s *CacheStore) entryPath(alias string) string {
	return filepath.Join(s.dir, util.SafeFilename(alias)+".json")
}

func (s *CacheStore) read(alias string) (*CacheEntry, error) {
	buf, err := os.ReadFile(s.entryPath(alias))
	if err != nil {
		return nil, err
	}
	var entry CacheEntry
	if err := json.Unmarshal(buf, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *CacheStore) write(alias string, entry *CacheEntry) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return &CacheWriteError{Alias: alias, Cause: err}
	}
	buf, err := json.Marshal(entry)
	if err != nil {
		return &CacheWriteError{Alias: alias, Cause: err}
	}
	if err := os.WriteFile(s.entryPath(alias), buf, 0644); err != nil {
		return &CacheWriteError{Alias: alias, Cause: err}
	}
	return nil
}

// Get returns the cached entry for alias if present and not expired, else
// nil. A hit updates last_accessed.
func (s *CacheStore) Get(alias string) *CacheEntry {
	entry, err := s.read(alias)
	if err != nil {
		return nil
	}
	if entry.Expired(s.now()) {
		return nil
	}
	entry.LastAccessed = s.now()
	// best effort; a failed touch still serves the hit
	s.write(alias, entry) //nolint:errcheck
	return entry
}

// GetAny returns the cached entry regardless of expiry, for ETag
// revalidation. Returns nil when no entry exists.
func (s *CacheStore) GetAny(alias string) *CacheEntry {
	entry, err := s.read(alias)
	if err != nil {
		return nil
	}
	return entry
}

// Put writes or replaces the entry for alias, resetting cached_at.
func (s *CacheStore) Put(alias string, payload []byte, etag string) error {
	now := s.now()
	return s.write(alias, &CacheEntry{
		SourceAlias:  alias,
		Payload:      json.RawMessage(payload),
		ETag:         etag,
		CachedAt:     now,
		TTLSeconds:   s.ttlSeconds,
		LastAccessed: now,
		SizeBytes:    int64(len(payload)),
	})
}

// Touch updates last_accessed without changing payload or cached_at. Used
// when a conditional fetch returns 304.
func (s *CacheStore) Touch(alias string) error {
	entry, err := s.read(alias)
	if err != nil {
		return &CacheWriteError{Alias: alias, Cause: err}
	}
	entry.LastAccessed = s.now()
	return s.write(alias, entry)
}

// Invalidate deletes the entry for alias, or every entry when alias is
// empty.
func (s *CacheStore) Invalidate(alias string) error {
	if alias != "" {
		if err := os.Remove(s.entryPath(alias)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove cache entry for %q: %w", alias, err)
		}
		return nil
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read cache directory: %w", err)
	}
	for _, de := range entries {
		if de.IsDir() || filepath.Ext(de.Name()) != ".json" {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, de.Name())); err != nil {
			return fmt.Errorf("failed to remove cache entry %s: %w", de.Name(), err)
		}
	}
	return nil
}

// CacheStat is a human-readable view of one cache entry for user-facing
// inspection.
type CacheStat struct {
	Alias        string
	Age          string
	Size         string
	CachedAt     time.Time
	LastAccessed time.Time
	Expired      bool
}

// Stats returns one stat per cached alias, sorted by alias.
func (s *CacheStore) Stats() ([]CacheStat, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cache directory: %w", err)
	}
	var stats []CacheStat
	for _, de := range entries {
		if de.IsDir() || filepath.Ext(de.Name()) != ".json" {
			continue
		}
		entry, err := s.read(de.Name()[:len(de.Name())-len(".json")])
		if err != nil {
			continue
		}
		stats = append(stats, CacheStat{
			Alias:        entry.SourceAlias,
			Age:          humanize.Time(entry.CachedAt),
			Size:         humanize.Bytes(uint64(entry.SizeBytes)),
			CachedAt:     entry.CachedAt,
			LastAccessed: entry.LastAccessed,
			Expired:      entry.Expired(s.now()),
		})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Alias < stats[j].Alias })
	return stats, nil
}
