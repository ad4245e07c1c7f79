// Package cache provides a thread-safe, in-memory key-value store with
// TTL-based expiration and active memory management (eviction). Vellum uses
// it for rendered page bytes keyed by host and path.
package cache

import (
	"log"
	"sort"
	"sync"
	"time"

	"vellum/internal/config"
	"vellum/pkg/logger"
	"vellum/pkg/utils"
)

const (
	DefaultMaxSize = 64 // 64 MB Limit
	DefaultTTL     = 10 * time.Minute

	// GCInterval: Expired items cleanup frequency.
	// 5 minutes is a good balance to avoid frequent locking overhead.
	GCInterval = 5 * time.Minute

	// MonitorInterval: Heartbeat logging.
	// 30 minutes is sufficient for production observability.
	MonitorInterval = 30 * time.Minute

	// Rendered pages bigger than this skip the cache; a handful of huge
	// pages would evict thousands of normal ones.
	maxItemSize = 512 * 1024
)

type Item struct {
	Data      []byte
	ExpiresAt time.Time
	Size      int64
}

type MemoryCache struct {
	sync.RWMutex
	items     map[string]Item
	totalSize int64
	maxSize   int64
	ttl       time.Duration
	enabled   bool
}

// Stats is the monitoring view served by the admin stats endpoint.
type Stats struct {
	Enabled bool  `json:"enabled"`
	Items   int   `json:"items"`
	Bytes   int64 `json:"bytes"`
	MaxSize int64 `json:"max_size"`
}

// New initializes the in-memory page cache.
// It configures size limits and starts background maintenance routines (GC & Monitor).
func New() *MemoryCache {

	limitMB := int64(config.AppConfig.Cache.MaxCapacity)
	if limitMB <= 0 {
		limitMB = DefaultMaxSize
	}
	maxSize := limitMB * 1024 * 1024

	ttlStr := config.AppConfig.Cache.TTL
	ttl, err := time.ParseDuration(ttlStr)
	if err != nil {
		ttl = DefaultTTL

		logger.LogWarn("Invalid cache TTL '%s', using default 10m", ttlStr)
	}

	isEnabled := config.AppConfig.Cache.Enabled
	c := &MemoryCache{
		maxSize: maxSize,
		ttl:     ttl,
		enabled: isEnabled,
	}

	if c.enabled {
		c.items = make(map[string]Item)

		// Go Workers
		go c.startGC()      // Garbage Worker
		go c.startMonitor() // Statistics Worker

		logger.LogInfo("Page Cache Initialized: %d MB Limit, TTL: %s", limitMB, ttl)
	} else {

		logger.LogWarn("Page Cache is DISABLED via config (Running in pass-through mode).")
	}
	return c
}

// Set stores a value in the cache with the configured TTL.
func (c *MemoryCache) Set(key string, data []byte) {
	if !c.enabled {
		return
	}

	c.Lock()
	defer c.Unlock()

	size := int64(len(data))

	// Safety Check: Single item shouldn't take more than 50% of the cache.
	if size > c.maxSize/2 {
		return
	}

	if size > maxItemSize {
		return
	}

	// Eviction Strategy: If full, make room.
	if c.totalSize+size > c.maxSize {
		c.prune(size)
	}

	// Overwrite logic: Remove old size before adding new
	if oldItem, exists := c.items[key]; exists {
		c.totalSize -= oldItem.Size
	}

	c.items[key] = Item{
		Data:      data,
		ExpiresAt: time.Now().Add(c.ttl),
		Size:      size,
	}
	c.totalSize += size
}

// Get retrieves an item if it exists and hasn't expired.
func (c *MemoryCache) Get(key string) ([]byte, bool) {
	if !c.enabled {
		return nil, false
	}

	c.RLock()
	defer c.RUnlock()

	item, found := c.items[key]
	if !found {
		return nil, false
	}
	if time.Now().After(item.ExpiresAt) {
		return nil, false
	}
	return item.Data, true
}

// Delete explicitly removes an item from the cache.
func (c *MemoryCache) Delete(key string) {
	if !c.enabled {
		return
	}

	c.Lock()
	defer c.Unlock()

	if item, found := c.items[key]; found {
		delete(c.items, key)
		c.totalSize -= item.Size
	}
}

// Purge drops every cached page. Settings writes call this: a theme or
// site-name change invalidates every rendered page at once.
func (c *MemoryCache) Purge() {
	if !c.enabled {
		return
	}

	c.Lock()
	defer c.Unlock()

	c.items = make(map[string]Item)
	c.totalSize = 0
}

// GetStats returns a point-in-time snapshot for monitoring.
func (c *MemoryCache) GetStats() Stats {
	if !c.enabled {
		return Stats{Enabled: false}
	}

	c.RLock()
	defer c.RUnlock()

	return Stats{
		Enabled: true,
		Items:   len(c.items),
		Bytes:   c.totalSize,
		MaxSize: c.maxSize,
	}
}

// prune evicts items sorted by expiration time until memory usage drops below 80%.
// Note: This operation holds the Write Lock.
func (c *MemoryCache) prune(needed int64) {
	if len(c.items) == 0 {
		return
	}

	// Target: Free up to 20% of capacity to avoid frequent pruning
	targetSize := int64(float64(c.maxSize) * 0.80)

	type candidate struct {
		Key       string
		ExpiresAt time.Time
		Size      int64
	}

	candidates := make([]candidate, 0, len(c.items))
	for k, v := range c.items {
		candidates = append(candidates, candidate{k, v.ExpiresAt, v.Size})
	}

	// Sort by Expiration: Delete items that will expire soonest first.
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].ExpiresAt.Before(candidates[j].ExpiresAt)
	})

	for _, cand := range candidates {
		if c.totalSize <= targetSize {
			break
		}

		delete(c.items, cand.Key)
		c.totalSize -= cand.Size
	}
}

// startGC is a background worker that removes expired items.
func (c *MemoryCache) startGC() {
	ticker := time.NewTicker(GCInterval)
	for range ticker.C {
		c.Lock() // Write Lock
		if len(c.items) == 0 {
			c.Unlock()
			continue
		}
		now := time.Now()
		removedCount := 0
		removedBytes := int64(0)

		for k, v := range c.items {
			if now.After(v.ExpiresAt) {
				delete(c.items, k)
				c.totalSize -= v.Size
				removedBytes += v.Size
				removedCount++
			}
		}
		c.Unlock()

		if removedCount > 0 {
			log.Printf("[CACHE] GC: Cleaned %d items (%s freed)", removedCount, utils.FormatBytes(removedBytes))
		}
	}
}

// startMonitor logs cache statistics periodically.
func (c *MemoryCache) startMonitor() {
	ticker := time.NewTicker(MonitorInterval)
	for range ticker.C {
		c.RLock()
		if len(c.items) == 0 {
			c.RUnlock()
			continue
		}

		count := len(c.items)
		used := c.totalSize
		max := c.maxSize
		c.RUnlock()

		percent := 0.0
		if max > 0 {
			percent = (float64(used) / float64(max)) * 100
		}

		log.Printf("[CACHE] Cache: %d items | Usage: %s / %s (%.2f%%)",
			count,
			utils.FormatBytes(used),
			utils.FormatBytes(max),
			percent,
		)
	}
}
