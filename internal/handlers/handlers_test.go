package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"vellum/internal/appinfo"
	"vellum/internal/config"
	"vellum/internal/database"
	"vellum/internal/session"
	"vellum/internal/settings"
	"vellum/pkg/cache"
)

// setupTest wires the handler package globals against a throwaway sqlite
// file and template tree, the same shape main() builds in production.
func setupTest(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	defaultDir := filepath.Join(dir, "templates", "default")
	require.NoError(t, os.MkdirAll(defaultDir, 0o750))

	config.AppConfig = &config.Config{
		App:    config.InConfigAppConfig{Name: "Vellum", Version: "0.1.0"},
		Server: config.ServerConfig{Port: 0, Env: "test"},
		Site: config.SiteConfig{
			BaseDomain:   "example.com",
			ThemesDir:    filepath.Join(dir, "themes"),
			TemplatesDir: filepath.Join(dir, "site"),
			DefaultDir:   defaultDir,
		},
		Session: config.SessionConfig{
			Secret:     "test-secret",
			CookieName: "vellum_session",
			MaxAge:     "1h",
		},
		Cache: config.CacheConfig{Enabled: true, MaxCapacity: 8, TTL: "1m"},
		Admin: config.AdminConfig{Username: "admin", Password: "correct-horse"},
	}

	db, err := gorm.Open(sqlite.Open(filepath.Join(dir, "test.db")), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&database.Setting{}, &database.User{}, &database.Post{}, &database.Page{}))
	database.DB = db

	store := settings.NewStore(db)
	siteCache := settings.NewCache()
	require.NoError(t, siteCache.Load(store))

	SetStore(store)
	SetSettings(siteCache)
	SetCache(cache.New())

	return defaultDir
}

func newSessionedMux(t *testing.T, register func(mux *http.ServeMux)) http.Handler {
	t.Helper()

	codec, err := session.NewAEADCodec("test-secret", time.Hour)
	require.NoError(t, err)

	mux := http.NewServeMux()
	register(mux)

	return session.Middleware(codec, session.CookieConfig{
		Name:   "vellum_session",
		MaxAge: time.Hour,
	})(mux)
}

func adminSession(t *testing.T) *http.Cookie {
	t.Helper()

	codec, err := session.NewAEADCodec("test-secret", time.Hour)
	require.NoError(t, err)
	value, err := codec.Encode(session.State{"uid": "admin", "role": database.RoleAdmin})
	require.NoError(t, err)

	return &http.Cookie{Name: "vellum_session", Value: value}
}

func TestServePageRendersThroughResolver(t *testing.T) {
	defaultDir := setupTest(t)

	tpl := "{{.SiteName}}|{{.Title}}|{{.Body}}"
	require.NoError(t, os.WriteFile(filepath.Join(defaultDir, "page.html"), []byte(tpl), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(defaultDir, "page-about.html"), []byte("about:"+tpl), 0o644))

	require.NoError(t, database.DB.Create(&database.Page{
		ID: "p1", Slug: "about", Title: "About Us", Body: "<p>hi</p>", Published: true,
	}).Error)
	require.NoError(t, database.DB.Create(&database.Page{
		ID: "p2", Slug: "contact", Title: "Contact", Body: "x", Published: true,
	}).Error)

	h := newSessionedMux(t, func(mux *http.ServeMux) {
		mux.HandleFunc("GET /{slug...}", ServePage)
	})

	// The specific candidate wins where it exists...
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://example.com/about", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "about:Vellum|About Us|<p>hi</p>", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("ETag"))

	// ...and the bare template carries everything else.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://example.com/contact", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "Vellum|Contact|"))
}

func TestServePageNotFound(t *testing.T) {
	setupTest(t)

	h := newSessionedMux(t, func(mux *http.ServeMux) {
		mux.HandleFunc("GET /{slug...}", ServePage)
	})

	// No error template on disk: the JSON envelope is the fallback.
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://example.com/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "content/not_found")
}

func TestRobotsServedFromSettings(t *testing.T) {
	setupTest(t)

	h := newSessionedMux(t, func(mux *http.ServeMux) {
		mux.HandleFunc("GET /robots.txt", RobotsHandler)
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://example.com/robots.txt", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "User-agent: *")

	// A per-subdomain override changes only that host.
	require.NoError(t, settingsStore.Set(settings.SiteKey("blog", "robots_txt"), "User-agent: *\nDisallow: /\n"))
	refreshSettings()

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://blog.example.com/robots.txt", nil))
	assert.Contains(t, rec.Body.String(), "Disallow: /")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://example.com/robots.txt", nil))
	assert.NotContains(t, rec.Body.String(), "Disallow: /\n")
}

func TestSettingsCRUDFlow(t *testing.T) {
	setupTest(t)

	h := newSessionedMux(t, func(mux *http.ServeMux) {
		mux.HandleFunc("GET /admin/api/settings", RequireRole(database.RoleEditor, ListSettings))
		mux.HandleFunc("PUT /admin/api/settings/{key}", RequireRole(database.RoleAdmin, UpdateSetting))
		mux.HandleFunc("DELETE /admin/api/settings/{key}", RequireRole(database.RoleAdmin, DeleteSetting))
	})

	admin := adminSession(t)

	put := func(key, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPut, "http://example.com/admin/api/settings/"+key, strings.NewReader(body))
		req.AddCookie(admin)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	// Write goes to the store, and the reload makes it visible immediately.
	rec := put("site_name", `{"value":"Custom"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Custom", siteSettings.Get("site_name"))

	// Unknown keys are rejected before touching the table.
	rec = put("no_such_setting", `{"value":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Per-site override of an overridable key is accepted.
	rec = put("site:blog:site_name", `{"value":"The Blog"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "The Blog", siteSettings.GetForSite("site_name", "blog"))
	assert.Equal(t, "Custom", siteSettings.GetForSite("site_name", "docs"))

	// Delete falls back to the declared default.
	req := httptest.NewRequest(http.MethodDelete, "http://example.com/admin/api/settings/site_name", nil)
	req.AddCookie(admin)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Vellum", siteSettings.Get("site_name"))

	// Deleting again: nothing stored, 404.
	req = httptest.NewRequest(http.MethodDelete, "http://example.com/admin/api/settings/site_name", nil)
	req.AddCookie(admin)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSettingsRequireAuth(t *testing.T) {
	setupTest(t)

	h := newSessionedMux(t, func(mux *http.ServeMux) {
		mux.HandleFunc("GET /admin/api/settings", RequireRole(database.RoleEditor, ListSettings))
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://example.com/admin/api/settings", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginGrantsAdminSession(t *testing.T) {
	setupTest(t)

	h := newSessionedMux(t, func(mux *http.ServeMux) {
		mux.HandleFunc("POST /admin/api/login", LoginHandler)
		mux.HandleFunc("GET /admin/api/stats", RequireRole(database.RoleEditor, GetStats))
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "http://example.com/admin/api/login",
		strings.NewReader(`{"username":"admin","password":"wrong"}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "http://example.com/admin/api/login",
		strings.NewReader(`{"username":"admin","password":"correct-horse"}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodGet, "http://example.com/admin/api/stats", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "published_posts")
}

func TestContentAdminCRUD(t *testing.T) {
	setupTest(t)

	h := newSessionedMux(t, func(mux *http.ServeMux) {
		mux.HandleFunc("POST /admin/api/content/{kind}", RequireRole(database.RoleEditor, CreateContent))
		mux.HandleFunc("DELETE /admin/api/content/{kind}/{id}", RequireRole(database.RoleEditor, DeleteContent))
		mux.HandleFunc("GET /{slug...}", ServePage)
	})

	admin := adminSession(t)

	send := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, "http://example.com"+path, strings.NewReader(body))
		req.AddCookie(admin)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	pagesBefore := appinfo.PublishedPages.Load()

	// Publishing a page bumps the counter and the page becomes servable.
	rec := send(http.MethodPost, "/admin/api/content/page",
		`{"slug":"about","title":"About","body":"<p>hi</p>","published":true}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, pagesBefore+1, appinfo.PublishedPages.Load())

	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)

	rec = send(http.MethodGet, "/about", "")
	assert.Equal(t, http.StatusNotFound, rec.Code, "no template on disk yet")

	// Duplicate slug is a conflict, unknown kind a bad request.
	rec = send(http.MethodPost, "/admin/api/content/page", `{"slug":"about","title":"Again"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = send(http.MethodPost, "/admin/api/content/widget", `{"slug":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Unpublished drafts leave the counter alone.
	postsBefore := appinfo.PublishedPosts.Load()
	rec = send(http.MethodPost, "/admin/api/content/post", `{"slug":"draft","title":"Draft"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, postsBefore, appinfo.PublishedPosts.Load())

	// Deleting the published page walks the counter back.
	rec = send(http.MethodDelete, "/admin/api/content/page/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, pagesBefore, appinfo.PublishedPages.Load())

	rec = send(http.MethodDelete, "/admin/api/content/page/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPageTemplateListsRecentPosts(t *testing.T) {
	defaultDir := setupTest(t)

	tpl := `{{range .Posts}}{{.Slug}};{{end}}`
	require.NoError(t, os.WriteFile(filepath.Join(defaultDir, "page.html"), []byte(tpl), 0o644))

	base := time.Now()
	for i, slug := range []string{"oldest", "middle", "newest"} {
		require.NoError(t, database.DB.Create(&database.Post{
			ID: slug, Slug: slug, Title: slug, Published: true,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}).Error)
	}
	require.NoError(t, database.DB.Create(&database.Post{
		ID: "hidden", Slug: "hidden", Published: false,
		CreatedAt: base.Add(time.Hour),
	}).Error)
	require.NoError(t, database.DB.Create(&database.Page{
		ID: "home", Slug: "home", Title: "Home", Published: true,
	}).Error)

	require.NoError(t, settingsStore.Set("posts_per_page", "2"))
	refreshSettings()

	h := newSessionedMux(t, func(mux *http.ServeMux) {
		mux.HandleFunc("GET /{slug...}", ServePage)
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://example.com/", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	// Two newest published posts, newest first; the draft never appears.
	assert.Equal(t, "newest;middle;", rec.Body.String())
}

func TestRequireRoleBrowserRedirect(t *testing.T) {
	setupTest(t)

	h := newSessionedMux(t, func(mux *http.ServeMux) {
		mux.HandleFunc("GET /admin/dashboard", RequireRole(database.RoleEditor, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://example.com/admin/dashboard", nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestUpsertUserFromIdentity(t *testing.T) {
	setupTest(t)

	u1, err := UpsertUserFromIdentity(t.Context(), "github", "12345", "a@example.com", "Ada")
	require.NoError(t, err)
	assert.Equal(t, database.RoleViewer, u1.Role)

	// Promote, then re-login: profile fields update, role survives.
	require.NoError(t, database.DB.Model(&database.User{}).Where("id = ?", u1.ID).Update("role", database.RoleEditor).Error)

	u2, err := UpsertUserFromIdentity(t.Context(), "github", "12345", "ada@example.com", "Ada L")
	require.NoError(t, err)
	assert.Equal(t, u1.ID, u2.ID)
	assert.Equal(t, database.RoleEditor, u2.Role)
	assert.Equal(t, "ada@example.com", u2.Email)
}
