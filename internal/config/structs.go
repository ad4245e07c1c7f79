package config

type Config struct {
	// App: Global application metadata
	App InConfigAppConfig `mapstructure:"app"`

	// Server: Network configuration and execution environment
	Server ServerConfig `mapstructure:"server"`

	// Database: SQLite engine parameters and maintenance policies
	Database DatabaseConfig `mapstructure:"database"`

	// Site: Template search directories and multi-site domain layout
	Site SiteConfig `mapstructure:"site"`

	// Session: Encrypted session cookie parameters
	Session SessionConfig `mapstructure:"session"`

	// Cache: In-memory rendered-page cache settings to reduce render work
	Cache CacheConfig `mapstructure:"cache"`

	// Security: CORS whitelist and DDoS protection
	Security SecurityConfig `mapstructure:"security"`

	// Admin: Built-in administrator credentials
	Admin AdminConfig `mapstructure:"admin"`

	// BaseURL: The public-facing root URL used for absolute link generation
	BaseURL string `mapstructure:"base_url"`
}

type InConfigAppConfig struct {
	// Name: Identity of the service used in headers and logs (e.g., "Vellum")
	Name string `mapstructure:"name"`

	// Version: Application semantic version (e.g., "0.1.0")
	Version string `mapstructure:"version"`
}

type ServerConfig struct {
	// Port: The TCP port the HTTP server will bind to (default: 9960)
	Port int `mapstructure:"port"`

	// Env: Execution context (development, staging, production)
	Env string `mapstructure:"env"`

	// Middleware: Outer middleware chain by registry name, outermost first
	// (e.g., ["ratelimit", "cors", "logger"])
	Middleware []string `mapstructure:"middleware"`
}

type DatabaseConfig struct {
	// Path: Physical location of the SQLite database file (e.g., ./data/vellum.db)
	Path string `mapstructure:"path"`

	// MaxSize: Soft limit for DB file size before a vacuum is considered (e.g., "512MB")
	MaxSize string `mapstructure:"max_size"`

	// MaintenanceInterval: Frequency of background checkpoint/vacuum checks (e.g., "30m")
	MaintenanceInterval string `mapstructure:"maintenance_interval"`
}

type SiteConfig struct {
	// BaseDomain: Domain the multi-site subdomains hang off (e.g., "example.com").
	// Empty disables subdomain resolution; every request is the main site.
	BaseDomain string `mapstructure:"base_domain"`

	// ThemesDir: Root directory holding one subdirectory per theme
	ThemesDir string `mapstructure:"themes_dir"`

	// TemplatesDir: Site-local template overrides, searched after the theme
	TemplatesDir string `mapstructure:"templates_dir"`

	// DefaultDir: Built-in fallback templates shipped with the binary
	DefaultDir string `mapstructure:"default_dir"`
}

type SessionConfig struct {
	// Secret: Symmetric secret the 256-bit session key is derived from
	Secret string `mapstructure:"secret"`

	// CookieName: Name of the session cookie (default "vellum_session")
	CookieName string `mapstructure:"cookie_name"`

	// CookieDomain: Optional Domain attribute (e.g., ".example.com").
	// Empty scopes cookies to the exact request host.
	CookieDomain string `mapstructure:"cookie_domain"`

	// Secure: Whether the cookie requires HTTPS transport
	Secure bool `mapstructure:"secure"`

	// MaxAge: Session lifetime (e.g., "168h" for 7 days)
	MaxAge string `mapstructure:"max_age"`
}

type CacheConfig struct {
	// Enabled: Toggles the in-memory rendered-page caching layer
	Enabled bool `mapstructure:"enabled"`

	// MaxCapacity: Maximum RAM allocated for cache in MB (e.g., 64)
	MaxCapacity int `mapstructure:"max_capacity"`

	// TTL: Expiration time for cached pages (e.g., "10m", "1h")
	TTL string `mapstructure:"ttl"`
}

type SecurityConfig struct {
	// CorsOrigins: List of allowed domains for browser-based cross-origin requests
	CorsOrigins []string `mapstructure:"cors_origins"`

	// RateLimit: DDoS protection logic using a token-bucket algorithm
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type RateLimitConfig struct {
	// Enabled: Global toggle for the rate limiting middleware
	Enabled bool `mapstructure:"enabled"`

	// Requests: Number of allowed requests per time window
	Requests int `mapstructure:"requests"`

	// Window: The timeframe for the request limit (e.g., "1s", "1m")
	Window string `mapstructure:"window"`

	// Burst: Temporary allowed spike capacity above the steady-rate limit
	Burst int `mapstructure:"burst"`
}

type AdminConfig struct {
	// Username: Built-in admin login identifier
	Username string `mapstructure:"username"`
	// Password: Built-in admin login secret
	Password string `mapstructure:"password"`
}
