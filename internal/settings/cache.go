package settings

import (
	"sync"
	"sync/atomic"

	"vellum/pkg/logger"
)

// Reader is the slice of the Store the cache needs for a bulk load. Tests
// substitute stubs; production passes *Store.
type Reader interface {
	GetMany(keys ...string) (map[string]string, error)
}

// snapshot is one immutable generation of cache state. Readers grab the
// current pointer and work off it; Load builds a replacement off to the side
// and swaps it in, so a reader sees either the old or the new generation,
// never a half-written one.
type snapshot struct {
	global  map[string]string
	perSite map[string]map[string]string
}

var emptySnapshot = &snapshot{}

// Cache is the process-wide read-through settings cache. One instance is
// constructed in main and handed to whoever needs it; there is no lazy
// package-level singleton.
//
// Getters never touch the database. When the cache is empty (before the
// first Load, after Invalidate, or after a failed Load against a
// not-yet-migrated table) they serve declared defaults, so a settings-store
// outage degrades page renders instead of failing them.
type Cache struct {
	mu   sync.Mutex // serializes Load and Invalidate against each other
	snap atomic.Pointer[snapshot]
}

func NewCache() *Cache {
	c := &Cache{}
	c.snap.Store(emptySnapshot)
	return c
}

// Load bulk-reads the whole settings table and swaps in a fresh snapshot:
// the global layer is the declared defaults overlaid with stored non-empty
// values, and rows matching "site:<subdomain>:<key>" are bucketed into the
// per-site override layer (overridable keys only).
//
// Any store error leaves the cache empty instead of failing the process;
// first-run deployments hit this before migrations and simply retry on a
// later request. The returned error is informational.
func (c *Cache) Load(store Reader) error {
	rows, err := store.GetMany()
	if err != nil {
		c.mu.Lock()
		c.snap.Store(emptySnapshot)
		c.mu.Unlock()

		logger.LogWarn("Settings load failed, serving defaults: %v", err)
		return err
	}

	global := make(map[string]string, len(defaults))
	for key, def := range defaults {
		global[key] = def
		if v, ok := rows[key]; ok && !isUnset(v) {
			global[key] = v
		}
	}

	perSite := make(map[string]map[string]string)
	for stored, v := range rows {
		sub, key, ok := ParseSiteKey(stored)
		if !ok || !overridable[key] {
			continue
		}
		if perSite[sub] == nil {
			perSite[sub] = make(map[string]string)
		}
		perSite[sub][key] = v
	}

	c.mu.Lock()
	c.snap.Store(&snapshot{global: global, perSite: perSite})
	c.mu.Unlock()

	logger.LogInfo("Settings cache loaded: %d keys, %d site overrides", len(global), len(perSite))
	return nil
}

// Get returns the effective global value for key. Never errors, never
// blocks; an empty cache or an undeclared key falls back to the default
// table (which yields "" for unknown keys).
func (c *Cache) Get(key string) string {
	snap := c.snap.Load()
	if v, ok := snap.global[key]; ok {
		return v
	}
	return defaults[key]
}

// GetForSite returns the value of key as seen by one subdomain: a present,
// non-empty override wins; otherwise the global value (itself defaulted).
func (c *Cache) GetForSite(key, subdomain string) string {
	if subdomain != "" {
		snap := c.snap.Load()
		if overrides, ok := snap.perSite[subdomain]; ok {
			if v, ok := overrides[key]; ok && !isUnset(v) {
				return v
			}
		}
	}
	return c.Get(key)
}

// Invalidate drops both layers synchronously. Getters degrade to defaults
// until someone calls Load again; nothing repopulates the cache implicitly.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.snap.Store(emptySnapshot)
	c.mu.Unlock()
}

// Loaded reports whether a snapshot is currently populated. Used by the
// stats endpoint only; request handling never branches on it.
func (c *Cache) Loaded() bool {
	return len(c.snap.Load().global) > 0
}
