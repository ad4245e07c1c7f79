package handlers

import (
	"net/http"
	"time"

	"vellum/internal/appinfo"
	"vellum/pkg/utils"
)

// GetStats reports process uptime, content counters, and cache health.
// Path: GET /admin/api/stats
func GetStats(w http.ResponseWriter, r *http.Request) {
	uptime := time.Since(appinfo.StartTime).Round(time.Second)

	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"uptime":          uptime.String(),
		"published_posts": appinfo.PublishedPosts.Load(),
		"published_pages": appinfo.PublishedPages.Load(),
		"settings_loaded": siteSettings.Loaded(),
		"page_cache":      globalCache.GetStats(),
	})
}
