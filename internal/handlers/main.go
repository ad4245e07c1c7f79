package handlers

import (
	"golang.org/x/sync/singleflight"

	"vellum/internal/settings"
	"vellum/pkg/cache"
)

var (
	// Global in-memory cache for rendered pages
	globalCache *cache.MemoryCache

	// Site-wide settings cache, loaded once at startup
	siteSettings *settings.Cache

	// Durable settings store, hit only on admin writes and reloads
	settingsStore *settings.Store

	// SingleFlight group to prevent render stampedes
	requestGroup singleflight.Group
)

func SetCache(c *cache.MemoryCache) {
	globalCache = c
}

func SetSettings(c *settings.Cache) {
	siteSettings = c
}

func SetStore(s *settings.Store) {
	settingsStore = s
}
