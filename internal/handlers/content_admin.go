package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"vellum/internal/appinfo"
	"vellum/internal/database"
	"vellum/pkg/logger"
	"vellum/pkg/utils"
)

type contentRequest struct {
	Slug      string `json:"slug"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Template  string `json:"template"`
	Published bool   `json:"published"`
}

func validContentKind(kind string) bool {
	return kind == "post" || kind == "page"
}

// CreateContent inserts a new post or page. Publishing bumps the content
// counters; any insert purges the rendered-page cache so list templates
// pick the new entry up.
// Path: POST /admin/api/content/{kind}
func CreateContent(w http.ResponseWriter, r *http.Request) {
	kind := r.PathValue("kind")
	if !validContentKind(kind) {
		utils.WriteError(w, http.StatusBadRequest, utils.ErrRequestInvalid, "Content kind must be \"post\" or \"page\".")
		return
	}

	var req contentRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, utils.ErrRequestInvalid, "Invalid request body.")
		return
	}

	slug := utils.NormalizeSlug(req.Slug)
	if slug == "" {
		utils.WriteError(w, http.StatusBadRequest, utils.ErrRequestMissingKey, "Content slug is missing.")
		return
	}

	if slugTaken(r, kind, slug) {
		utils.WriteError(w, http.StatusConflict, utils.ErrResourceConflict, "Slug already exists: "+slug)
		return
	}

	id := uuid.NewString()

	var err error
	if kind == "post" {
		err = database.DB.WithContext(r.Context()).Create(&database.Post{
			ID: id, Slug: slug, Title: req.Title, Body: req.Body,
			Template: req.Template, Published: req.Published,
		}).Error
	} else {
		err = database.DB.WithContext(r.Context()).Create(&database.Page{
			ID: id, Slug: slug, Title: req.Title, Body: req.Body,
			Template: req.Template, Published: req.Published,
		}).Error
	}
	if err != nil {
		logger.LogError("Content create failed: %v", err)
		utils.WriteError(w, http.StatusInternalServerError, utils.ErrServerInternal, "Failed to create content.")
		return
	}

	if req.Published {
		appinfo.ContentPublished(kind == "post")
	}
	globalCache.Purge()

	utils.WriteJSON(w, http.StatusCreated, map[string]string{
		"status": "success",
		"id":     id,
		"slug":   slug,
	})
}

func slugTaken(r *http.Request, kind, slug string) bool {
	var count int64
	q := database.DB.WithContext(r.Context())
	if kind == "post" {
		q.Model(&database.Post{}).Where("slug = ?", slug).Count(&count)
	} else {
		q.Model(&database.Page{}).Where("slug = ?", slug).Count(&count)
	}
	return count > 0
}

// DeleteContent removes a post or page by id through the transactional
// delete path, which also adjusts the publish counters and drops the
// rendered cache.
// Path: DELETE /admin/api/content/{kind}/{id}
func DeleteContent(w http.ResponseWriter, r *http.Request) {
	kind := r.PathValue("kind")
	if !validContentKind(kind) {
		utils.WriteError(w, http.StatusBadRequest, utils.ErrRequestInvalid, "Content kind must be \"post\" or \"page\".")
		return
	}

	id := r.PathValue("id")
	if err := CoreDeleteContent(r.Context(), kind, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.WriteError(w, http.StatusNotFound, utils.ErrResourceNotFound, "No such "+kind+": "+id)
			return
		}
		logger.LogError("Content delete failed: %v", err)
		utils.WriteError(w, http.StatusInternalServerError, utils.ErrServerInternal, "Failed to delete content.")
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "success",
		"action": "deleted",
		"kind":   kind,
		"id":     id,
	})
}
