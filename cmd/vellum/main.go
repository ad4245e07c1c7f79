package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"vellum/internal/appinfo"
	"vellum/internal/config"
	"vellum/internal/database"
	"vellum/internal/handlers"
	"vellum/internal/middleware"
	"vellum/internal/registry"
	"vellum/internal/session"
	"vellum/internal/settings"
	"vellum/pkg/cache"
	"vellum/pkg/logger"
	"vellum/pkg/utils"
)

func main() {

	utils.LoadEnv()

	// Load Config & Env
	config.Load()

	// Connect DB
	database.InitDB()
	go database.StartMaintenance()

	// App Uptime
	appinfo.StartTime = time.Now()

	// Settings: durable store + process-wide cache. A failed first load is
	// fine (pre-migration deploys); getters serve defaults until a reload.
	store := settings.NewStore(database.DB)
	siteSettings := settings.NewCache()
	if err := siteSettings.Load(store); err != nil {
		logger.LogWarn("Initial settings load failed, continuing on defaults: %v", err)
	}

	// Rendered-page cache
	pageCache := cache.New()

	handlers.SetCache(pageCache)
	handlers.SetSettings(siteSettings)
	handlers.SetStore(store)

	// Session codec: 256-bit key derived from the configured secret.
	codec, err := session.NewAEADCodec(config.AppConfig.Session.Secret, config.AppConfig.SessionMaxAge())
	if err != nil {
		logger.LogFatal("Session codec init failed: %v", err)
	}

	mux := http.NewServeMux()

	// Public content routes
	mux.HandleFunc("GET /robots.txt", handlers.RobotsHandler)
	mux.HandleFunc("GET /post/{slug...}", handlers.ServePost) // /post/hello-world
	mux.HandleFunc("GET /{slug...}", handlers.ServePage)      // /, /about, /services/web

	registerAdminRoutes(mux)

	// Session handling is not optional middleware; it wraps the mux before
	// the configurable outer chain.
	sessioned := session.Middleware(codec, session.CookieConfig{
		Name:   config.AppConfig.Session.CookieName,
		Domain: config.AppConfig.Session.CookieDomain,
		Secure: config.AppConfig.Session.Secure,
		MaxAge: config.AppConfig.SessionMaxAge(),
	})(mux)

	// Outer chain comes from config by registry name; a typo is fatal at
	// startup, not a silent hole in production.
	registry.Register("logger", middleware.LoggerMiddleware)
	registry.Register("cors", middleware.CorsMiddleware)
	registry.Register("ratelimit", middleware.RateLimitMiddleware)

	finalHandler, err := registry.Chain(sessioned, config.AppConfig.Server.Middleware)
	if err != nil {
		logger.LogFatal("Middleware wiring failed: %v", err)
	}

	port := config.AppConfig.Server.Port

	baseURL := config.AppConfig.GetBaseUrl()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      finalHandler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	logger.LogServerStart(port, baseURL)
	log.Fatal(server.ListenAndServe())
}
