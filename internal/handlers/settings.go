package handlers

import (
	"encoding/json"
	"net/http"

	"vellum/internal/settings"
	"vellum/pkg/logger"
	"vellum/pkg/utils"
)

// refreshSettings is the post-write consistency step: drop the snapshot,
// reload from the store, and purge rendered pages (a theme or site-name
// change invalidates everything). Writes never auto-propagate; this is the
// explicit invalidate+reload the cache contract demands.
func refreshSettings() {
	siteSettings.Invalidate()
	if err := siteSettings.Load(settingsStore); err != nil {
		// Getters degrade to defaults until a later reload succeeds.
		logger.LogWarn("Settings reload after write failed: %v", err)
	}
	globalCache.Purge()
}

// validSettingTarget accepts declared global keys and "site:<sub>:<key>"
// forms whose base key is overridable. Everything else is a 400, so typos
// do not land dead rows in the table.
func validSettingTarget(key string) bool {
	if sub, base, ok := settings.ParseSiteKey(key); ok {
		return sub != "" && settings.IsDeclared(base)
	}
	return settings.IsDeclared(key)
}

// ListSettings returns the effective global values alongside the raw stored
// rows (including per-site overrides).
// Path: GET /admin/api/settings
func ListSettings(w http.ResponseWriter, r *http.Request) {
	stored, err := settingsStore.GetMany()
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, utils.ErrServerInternal, "Failed to read settings.")
		return
	}

	effective := make(map[string]string)
	for _, key := range []string{
		"site_name", "site_tagline", "theme", "posts_per_page",
		"timezone", "footer_text", "robots_txt",
	} {
		effective[key] = siteSettings.Get(key)
	}

	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"effective": effective,
		"stored":    stored,
		"loaded":    siteSettings.Loaded(),
	})
}

type updateSettingRequest struct {
	Value string `json:"value"`
}

// UpdateSetting upserts one setting and synchronously refreshes the caches.
// Path: PUT /admin/api/settings/{key}
func UpdateSetting(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if !utils.IsValidSettingKey(key) {
		utils.WriteError(w, http.StatusBadRequest, utils.ErrValidationInvalidFormat, "Setting key contains invalid characters.")
		return
	}
	if !validSettingTarget(key) {
		utils.WriteError(w, http.StatusBadRequest, utils.ErrSettingUnknownKey, "Unknown setting key: "+key)
		return
	}

	var req updateSettingRequest
	r.Body = http.MaxBytesReader(w, r.Body, 64*1024)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, utils.ErrRequestInvalid, "Invalid request body.")
		return
	}

	if err := settingsStore.Set(key, req.Value); err != nil {
		logger.LogError("Setting write failed: %v", err)
		utils.WriteError(w, http.StatusInternalServerError, utils.ErrSettingWriteFailed, "Failed to persist setting.")
		return
	}

	refreshSettings()

	utils.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "success",
		"key":    key,
		"value":  req.Value,
	})
}

// DeleteSetting removes a stored row; the effective value falls back to the
// declared default (or the global value, for per-site keys).
// Path: DELETE /admin/api/settings/{key}
func DeleteSetting(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if !utils.IsValidSettingKey(key) {
		utils.WriteError(w, http.StatusBadRequest, utils.ErrValidationInvalidFormat, "Setting key contains invalid characters.")
		return
	}

	deleted, err := settingsStore.Delete(key)
	if err != nil {
		logger.LogError("Setting delete failed: %v", err)
		utils.WriteError(w, http.StatusInternalServerError, utils.ErrSettingDeleteFailed, "Failed to delete setting.")
		return
	}
	if !deleted {
		utils.WriteError(w, http.StatusNotFound, utils.ErrResourceNotFound, "No stored value for key: "+key)
		return
	}

	refreshSettings()

	utils.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "success",
		"action": "deleted",
		"key":    key,
	})
}
