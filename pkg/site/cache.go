package site

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/jlrickert/cli-toolkit/toolkit"
	"github.com/spf13/afero"
)

// namespaceKey is the diagnostic entry recording which project root the
// cache file belongs to. It is stored alongside the fingerprints so a cache
// file can be identified when inspected by hand.
const namespaceKey = "_namespace"

// Cache is the persisted fingerprint store used to skip unchanged writes
// across runs. One Cache is constructed per build and passed by reference to
// every component that needs Get/Put; there is no process-global state.
//
// Each distinct project root gets its own cache file, named by a hash of the
// root path so two projects never trample each other's fingerprints.
type Cache struct {
	fs   afero.Fs
	path string
	root string

	mu      sync.Mutex
	entries map[string]string
	loaded  bool
	dirty   bool

	logger *slog.Logger
}

// NewCache creates a cache for the project rooted at root, persisted under
// dir. The hasher derives the per-project namespace; pass the same hasher
// the build uses for content fingerprints.
func NewCache(fs afero.Fs, dir, root string, hasher toolkit.Hasher, logger *slog.Logger) *Cache {
	ns := hasher.Hash([]byte(root))
	return &Cache{
		fs:      fs,
		path:    filepath.Join(dir, ns+".json"),
		root:    root,
		entries: map[string]string{},
		logger:  logger,
	}
}

// Path returns the on-disk location of the cache file.
func (c *Cache) Path() string { return c.path }

// Load reads the cache file into memory. It is idempotent per Cache: the
// second and later calls are no-ops. A missing or corrupt file is a
// deliberate recovery case, not an error; the build simply starts from an
// empty cache and rewrites everything once.
func (c *Cache) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loaded {
		return nil
	}
	c.loaded = true

	raw, err := afero.ReadFile(c.fs, c.path)
	if err != nil {
		return nil // start fresh
	}
	var entries map[string]string
	if err := json.Unmarshal(raw, &entries); err != nil {
		c.logger.Warn("cache file corrupt, starting fresh",
			"path", c.path, "err", err)
		return nil
	}
	delete(entries, namespaceKey)
	c.entries = entries
	return nil
}

// Save serializes the in-memory map back to disk atomically. A
// serialization failure clears the cache and logs rather than crashing: the
// worst outcome of a lost cache is one full rebuild.
func (c *Cache) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.dirty {
		return nil
	}

	out := make(map[string]string, len(c.entries)+1)
	for k, v := range c.entries {
		out[k] = v
	}
	out[namespaceKey] = c.root

	data, err := json.Marshal(out)
	if err != nil {
		c.logger.Warn("cache not serializable, clearing", "err", err)
		c.entries = map[string]string{}
		return nil
	}

	if err := writeFileAtomic(c.fs, c.path, data, 0o644); err != nil {
		return fmt.Errorf("save cache: %w", err)
	}
	c.dirty = false
	return nil
}

// Get returns the stored fingerprint for key, or ("", false) when no entry
// exists.
func (c *Cache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

// Put records the fingerprint for key.
func (c *Cache) Put(key, hash string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries[key] == hash {
		return
	}
	c.entries[key] = hash
	c.dirty = true
}

// Clear empties the in-memory map. It does not delete the file; the next
// Save overwrites it.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) == 0 {
		return
	}
	c.entries = map[string]string{}
	c.dirty = true
}
