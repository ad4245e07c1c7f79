package handlers

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"vellum/internal/config"
	"vellum/internal/database"
	"vellum/internal/templates"
	"vellum/pkg/logger"
	"vellum/pkg/utils"
)

// searchDirs builds the template search path for one request: the active
// theme first, then site-local overrides, then the built-in defaults. The
// theme comes from the settings cache per subdomain, so two subdomains on
// the same process can render with different themes.
func searchDirs(theme string) []string {
	site := config.AppConfig.Site
	return []string{
		filepath.Join(site.ThemesDir, theme),
		site.TemplatesDir,
		site.DefaultDir,
	}
}

type pageData struct {
	SiteName    string
	SiteTagline string
	FooterText  string
	BaseURL     string
	Title       string
	Body        template.HTML

	// Posts: recent published posts, newest first, for page templates that
	// list them. Length is bounded by the posts_per_page setting.
	Posts []postSummary
}

type postSummary struct {
	Slug  string
	Title string
}

// ServePage renders a page by its (possibly nested) slug.
// Path: / and /{slug...}
func ServePage(w http.ResponseWriter, r *http.Request) {
	slugs := templates.SplitSlugs(utils.NormalizeSlug(r.PathValue("slug")))
	serveContent(w, r, "page", slugs)
}

// ServePost renders a post by its slug.
// Path: /post/{slug...}
func ServePost(w http.ResponseWriter, r *http.Request) {
	slugs := templates.SplitSlugs(utils.NormalizeSlug(r.PathValue("slug")))
	if len(slugs) == 0 {
		utils.WriteError(w, http.StatusBadRequest, utils.ErrRequestMissingKey, "Post slug is missing.")
		return
	}
	serveContent(w, r, "post", slugs)
}

// RobotsHandler serves robots.txt straight from settings. Runs on the cache
// default when nothing is stored, which keeps the file alive even when the
// settings table is unreachable.
func RobotsHandler(w http.ResponseWriter, r *http.Request) {
	sub := utils.SubdomainOf(r.Host, config.AppConfig.Site.BaseDomain)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(siteSettings.GetForSite("robots_txt", sub)))
}

// serveContent is the shared render path: rendered bytes are cached per
// host+path and the render itself runs inside SingleFlight so a cold popular
// URL is rendered once, not per concurrent request.
func serveContent(w http.ResponseWriter, r *http.Request, kind string, slugs []string) {
	sub := utils.SubdomainOf(r.Host, config.AppConfig.Site.BaseDomain)

	cacheKey := "page:" + r.Host + ":" + r.URL.Path

	data, err, _ := requestGroup.Do(cacheKey, func() (interface{}, error) {
		if cached, ok := globalCache.Get(cacheKey); ok {
			return cached, nil
		}

		html, err := renderContent(kind, slugs, sub)
		if err != nil {
			return nil, err
		}

		globalCache.Set(cacheKey, html)
		return html, nil
	})

	if errors.Is(err, utils.ErrNotFound) {
		renderError(w, r, sub, http.StatusNotFound)
		return
	}
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, utils.ErrTemplateRender, "Failed to render content.")
		return
	}

	serveHTML(w, r, data.([]byte))
}

// renderContent loads the content row, resolves its template against the
// active theme, and executes it. A missing row and a missing template are
// the same condition from the visitor's point of view: not found.
func renderContent(kind string, slugs []string, sub string) ([]byte, error) {
	slugPath := strings.Join(slugs, "/")
	if slugPath == "" {
		slugPath = "home" // the root URL renders the "home" page
	}

	var title, body, hint string
	var posts []postSummary

	switch kind {
	case "post":
		var post database.Post
		err := database.DB.First(&post, "slug = ? AND published = ?", slugPath, true).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("load post %q: %w", slugPath, err)
		}
		title, body, hint = post.Title, post.Body, post.Template
	default:
		var page database.Page
		err := database.DB.First(&page, "slug = ? AND published = ?", slugPath, true).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("load page %q: %w", slugPath, err)
		}
		title, body, hint = page.Title, page.Body, page.Template
		posts = recentPosts()
	}

	dirs := searchDirs(siteSettings.GetForSite("theme", sub))

	name := hint
	if name == "" {
		name = templates.Resolve(kind, slugs, dirs...)
	}

	// Resolution never guarantees existence; this is where a missing
	// template finally surfaces.
	path, ok := templates.Locate(name, dirs...)
	if !ok {
		return nil, utils.ErrNotFound
	}

	tmpl, err := template.ParseFiles(path)
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", name, err)
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, pageData{
		SiteName:    siteSettings.GetForSite("site_name", sub),
		SiteTagline: siteSettings.GetForSite("site_tagline", sub),
		FooterText:  siteSettings.Get("footer_text"),
		BaseURL:     config.AppConfig.GetBaseUrl(),
		Title:       title,
		Body:        template.HTML(body),
		Posts:       posts,
	})
	if err != nil {
		return nil, fmt.Errorf("execute template %s: %w", name, err)
	}

	return buf.Bytes(), nil
}

// recentPosts loads the newest published posts for page templates.
func recentPosts() []postSummary {
	limit := utils.ParseInt(siteSettings.Get("posts_per_page"), 10, 1, 100)

	var rows []database.Post
	err := database.DB.Select("slug", "title").
		Where("published = ?", true).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		logger.LogWarn("Recent posts query failed: %v", err)
		return nil
	}

	out := make([]postSummary, 0, len(rows))
	for _, p := range rows {
		out = append(out, postSummary{Slug: p.Slug, Title: p.Title})
	}
	return out
}

// renderError renders the themed error template ("error-404.html" before
// "error.html"). When even that is missing we fall back to the JSON error
// envelope rather than a blank page.
func renderError(w http.ResponseWriter, r *http.Request, sub string, status int) {
	dirs := searchDirs(siteSettings.GetForSite("theme", sub))

	name := templates.Resolve("error", []string{strconv.Itoa(status)}, dirs...)
	path, ok := templates.Locate(name, dirs...)
	if !ok {
		utils.WriteError(w, status, utils.ErrContentNotFound, "The requested content does not exist.")
		return
	}

	tmpl, err := template.ParseFiles(path)
	if err != nil {
		utils.WriteError(w, status, utils.ErrContentNotFound, "The requested content does not exist.")
		return
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, pageData{
		SiteName: siteSettings.GetForSite("site_name", sub),
		BaseURL:  config.AppConfig.GetBaseUrl(),
		Title:    http.StatusText(status),
	}); err != nil {
		utils.WriteError(w, status, utils.ErrContentNotFound, "The requested content does not exist.")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

// serveHTML handles HTTP caching headers (ETag, Cache-Control).
// Returns 304 Not Modified if client's cache is valid.
func serveHTML(w http.ResponseWriter, r *http.Request, data []byte) {
	hash := sha256.Sum256(data)
	etag := hex.EncodeToString(hash[:])

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.Header().Set("ETag", `"`+etag+`"`)

	if match := r.Header.Get("If-None-Match"); match != "" {
		if strings.Contains(match, etag) {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}

	w.Write(data)
}
