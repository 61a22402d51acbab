// Package cache provides the in-memory metadata store backing the filesystem
// facade. It maps normalized paths to their last-known metadata records and
// (directory, recursive) pairs to their last-known listings, and keeps both
// coherent under concurrent mutation.
package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/driftfs/driftfs/internal/pathutil"
	"github.com/driftfs/driftfs/pkg/types"
)

// Config represents metadata store configuration.
type Config struct {
	// MaxEntries bounds the number of cached records; the oldest entries are
	// evicted first. Zero means unbounded.
	MaxEntries int `yaml:"max_entries"`

	// TTL expires records and listings after a fixed age. Entries are checked
	// on access, so no background sweeper is needed. Zero disables expiry.
	TTL time.Duration `yaml:"ttl"`
}

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() *Config {
	return &Config{
		MaxEntries: 100000,
		TTL:        5 * time.Minute,
	}
}

type entry struct {
	info    types.FileInfo
	stored  time.Time
	element *list.Element
}

type listingKey struct {
	dir       string
	recursive bool
}

type listingEntry struct {
	listing types.Listing
	stored  time.Time
}

// MetadataStore is a mutex-guarded implementation of types.MetadataCache
// with bounded capacity and oldest-first eviction.
type MetadataStore struct {
	mu        sync.RWMutex
	config    *Config
	entries   map[string]*entry
	evictList *list.List
	listings  map[listingKey]*listingEntry
	stats     types.CacheStats
}

var _ types.MetadataCache = (*MetadataStore)(nil)

// New creates a metadata store. A nil config selects DefaultConfig.
func New(config *Config) *MetadataStore {
	if config == nil {
		config = DefaultConfig()
	}
	return &MetadataStore{
		config:    config,
		entries:   make(map[string]*entry),
		evictList: list.New(),
		listings:  make(map[listingKey]*listingEntry),
	}
}

// Get returns the cached record for path, if any. The returned record is a
// copy; mutating it does not affect the store.
func (s *MetadataStore) Get(path string) (*types.FileInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[path]
	if !ok {
		s.stats.Misses++
		return nil, false
	}
	if s.expired(e.stored) {
		s.removeEntry(path)
		s.stats.Misses++
		return nil, false
	}

	s.evictList.MoveToFront(e.element)
	s.stats.Hits++
	info := e.info
	return &info, true
}

// GetListing returns the cached listing for the exact (dir, recursive) key.
func (s *MetadataStore) GetListing(dir string, recursive bool) (*types.Listing, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := listingKey{dir: dir, recursive: recursive}
	le, ok := s.listings[key]
	if !ok {
		s.stats.Misses++
		return nil, false
	}
	if s.expired(le.stored) {
		delete(s.listings, key)
		s.stats.Misses++
		return nil, false
	}

	s.stats.Hits++
	listing := le.listing
	listing.Entries = append([]types.FileInfo(nil), le.listing.Entries...)
	return &listing, true
}

// Put overwrites the cached record for info.Path.
func (s *MetadataStore) Put(info types.FileInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[info.Path]; ok {
		e.info = info
		e.stored = time.Now()
		s.evictList.MoveToFront(e.element)
		return
	}

	e := &entry{info: info, stored: time.Now()}
	e.element = s.evictList.PushFront(info.Path)
	s.entries[info.Path] = e
	s.evictIfNeeded()
}

// PutListing overwrites the cached listing for its (dir, recursive) key.
func (s *MetadataStore) PutListing(listing types.Listing) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := listingKey{dir: listing.Directory, recursive: listing.Recursive}
	s.listings[key] = &listingEntry{listing: listing, stored: time.Now()}
}

// Invalidate removes the record for path and every listing whose directory is
// path or an ancestor of path. Removal is complete, never a stale marker.
func (s *MetadataStore) Invalidate(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeEntry(path)
	s.removeAffectedListings(path)
}

// InvalidatePrefix removes everything Invalidate removes, plus every cached
// record and listing at or beneath path. Used for mutations that replace or
// delete a whole subtree.
func (s *MetadataStore) InvalidatePrefix(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeEntry(path)
	for p := range s.entries {
		if pathutil.IsAncestor(path, p) {
			s.removeEntry(p)
		}
	}
	s.removeAffectedListings(path)
	for key := range s.listings {
		if pathutil.IsAncestor(path, key.dir) {
			delete(s.listings, key)
		}
	}
}

// InvalidateAll clears the entire store.
func (s *MetadataStore) InvalidateAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]*entry)
	s.evictList.Init()
	s.listings = make(map[listingKey]*listingEntry)
}

// Stats returns hit and eviction counters.
func (s *MetadataStore) Stats() types.CacheStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := s.stats
	stats.Entries = len(s.entries)
	stats.Listings = len(s.listings)
	return stats
}

func (s *MetadataStore) expired(stored time.Time) bool {
	if s.config.TTL == 0 {
		return false
	}
	return time.Since(stored) > s.config.TTL
}

func (s *MetadataStore) removeEntry(path string) {
	e, ok := s.entries[path]
	if !ok {
		return
	}
	s.evictList.Remove(e.element)
	delete(s.entries, path)
}

func (s *MetadataStore) removeAffectedListings(path string) {
	for key := range s.listings {
		if key.dir == path || pathutil.IsAncestor(key.dir, path) {
			delete(s.listings, key)
		}
	}
}

func (s *MetadataStore) evictIfNeeded() {
	if s.config.MaxEntries <= 0 {
		return
	}
	for len(s.entries) > s.config.MaxEntries {
		oldest := s.evictList.Back()
		if oldest == nil {
			return
		}
		s.removeEntry(oldest.Value.(string))
		s.stats.Evictions++
	}
}
