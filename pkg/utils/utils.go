package utils

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/joho/godotenv"
)

// LoadEnv loads a local .env file if present. Missing files are fine;
// production deployments pass real environment variables instead.
func LoadEnv() {
	_ = godotenv.Load()
}

// NormalizeSlug cleans a content slug for lookup and storage.
// - trims spaces
// - removes leading/trailing slashes
// - collapses multiple slashes
func NormalizeSlug(slug string) string {
	slug = strings.TrimSpace(slug)
	slug = strings.Trim(slug, "/")

	for strings.Contains(slug, "//") {
		slug = strings.ReplaceAll(slug, "//", "/")
	}

	return slug
}

func GetRealIP(r *http.Request) string {

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[0])
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// SubdomainOf extracts the subdomain label from a request host, relative
// to the configured base domain. "blog.example.com" with base "example.com"
// yields "blog"; the bare domain and unrelated hosts yield "".
func SubdomainOf(host, baseDomain string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.ToLower(strings.TrimSuffix(host, "."))

	if baseDomain == "" || host == baseDomain {
		return ""
	}

	if !strings.HasSuffix(host, "."+baseDomain) {
		return ""
	}

	sub := strings.TrimSuffix(host, "."+baseDomain)
	if sub == "www" {
		return ""
	}
	return sub
}

func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}
