package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"

	"vellum/pkg/logger"
)

var AppConfig *Config

func (c *Config) GetBaseUrl() string {
	if c.BaseURL != "" {
		return strings.TrimRight(c.BaseURL, "/")
	}
	return fmt.Sprintf("http://localhost:%d", c.Server.Port)
}

// SessionMaxAge returns the parsed session lifetime. Validate() already
// guarantees the string parses; the fallback covers direct struct literals
// in tests.
func (c *Config) SessionMaxAge() time.Duration {
	d, err := time.ParseDuration(c.Session.MaxAge)
	if err != nil || d <= 0 {
		return 7 * 24 * time.Hour
	}
	return d
}

func Load() {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("VELLUM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.BindEnv("database.path", "VELLUM_DATABASE_PATH")

	v.BindEnv("session.secret", "VELLUM_SESSION_SECRET")

	v.BindEnv("admin.username", "ADMIN_USERNAME")

	v.BindEnv("admin.password", "ADMIN_PASSWORD")

	v.BindEnv("server.port", "APP_PORT")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.LogInfo("Config file not found. Using Environment Variables and Defaults.")
		} else {
			logger.LogWarn("Config file found but unreadable: %v", err)
		}
	}

	if err := v.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("[CRITICAL] Error: Failed to parse configuration: %v", err)
	}

	AppConfig.BaseURL = AppConfig.GetBaseUrl()

	if err := AppConfig.Validate(); err != nil {
		log.Fatalf("[FATAL] CONFIGURATION ERROR: %v", err)
	}

	logger.LogInfo("⚙️  %s v%s Initialized | Env: %s | Port: %d",
		AppConfig.App.Name,
		AppConfig.App.Version,
		AppConfig.Server.Env,
		AppConfig.Server.Port,
	)
}

func setDefaults(v *viper.Viper) {
	// App
	v.SetDefault("app.name", "Vellum")
	v.SetDefault("app.version", "0.1.0")

	// Server
	v.SetDefault("server.port", 9960)
	v.SetDefault("server.env", "development")
	v.SetDefault("server.middleware", []string{"ratelimit", "cors", "logger"})

	// Site & Templates
	v.SetDefault("site.base_domain", "")
	v.SetDefault("site.themes_dir", "themes")
	v.SetDefault("site.templates_dir", "site/templates")
	v.SetDefault("site.default_dir", "templates/default")

	// Session
	v.SetDefault("session.cookie_name", "vellum_session")
	v.SetDefault("session.cookie_domain", "")
	v.SetDefault("session.secure", false)
	v.SetDefault("session.max_age", "168h") // 7 days

	// Caching
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.max_capacity", 64) // 64 MB
	v.SetDefault("cache.ttl", "10m")

	// Security & Limits
	v.SetDefault("security.rate_limit.enabled", true)
	v.SetDefault("security.rate_limit.requests", 20)
	v.SetDefault("security.rate_limit.window", "1s")
	v.SetDefault("security.rate_limit.burst", 50)

	// Database
	v.SetDefault("database.path", "./data/vellum.db")
	v.SetDefault("database.max_size", "512MB")
	v.SetDefault("database.maintenance_interval", "30m")
}

func (c *Config) Validate() error {
	// Security: Session Secret Check
	if c.Session.Secret == "" || c.Session.Secret == "secret" {
		if c.Server.Env == "production" {
			return fmt.Errorf("session.secret cannot be default or empty in production environment")
		}
		logger.LogWarn("Security Alert: Using unsafe default Session Secret. Do not use this in production!")
	}

	// Session: Max-Age Parsing Check
	if _, err := time.ParseDuration(c.Session.MaxAge); err != nil {
		return fmt.Errorf("invalid session.max_age format '%s': %v", c.Session.MaxAge, err)
	}

	// Cache: TTL Parsing Check
	if _, err := time.ParseDuration(c.Cache.TTL); err != nil {
		return fmt.Errorf("invalid cache.ttl format '%s': %v", c.Cache.TTL, err)
	}

	// RateLimit: Window Parsing Check
	if _, err := time.ParseDuration(c.Security.RateLimit.Window); err != nil {
		return fmt.Errorf("invalid rate_limit.window format '%s': %v", c.Security.RateLimit.Window, err)
	}

	// Admin Credentials Check
	if c.Admin.Username == "" || c.Admin.Password == "" {
		if c.Server.Env == "production" {
			return fmt.Errorf(
				"admin credentials are missing. " +
					"Set 'admin.username/password' in config.yaml or use " +
					"ADMIN_USERNAME / ADMIN_PASSWORD env vars",
			)
		}
		logger.LogWarn("Admin credentials missing; the settings API will reject logins.")
	}

	return nil
}
