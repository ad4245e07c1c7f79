// Package settings holds the durable site-wide key/value store and the
// process-wide cache the request path reads it through.
package settings

import "strings"

// Declared setting keys with their defaults. The cache invariant hangs off
// this table: after a successful Load every one of these keys is present in
// the global snapshot; after Invalidate (or a failed Load) none are, and
// getters serve these values directly.
var defaults = map[string]string{
	"site_name":      "Vellum",
	"site_tagline":   "Just another Vellum site",
	"theme":          "default",
	"posts_per_page": "10",
	"timezone":       "UTC",
	"footer_text":    "Powered by Vellum",
	"robots_txt":     "User-agent: *\nDisallow: /admin/\n",
}

// Keys a subdomain may override via "site:<subdomain>:<key>" rows. Everything
// else is global-only; override rows for other keys are ignored at load.
var overridable = map[string]bool{
	"site_name":    true,
	"site_tagline": true,
	"theme":        true,
	"robots_txt":   true,
}

// DefaultFor returns the declared default for key ("" for unknown keys).
func DefaultFor(key string) string {
	return defaults[key]
}

// IsDeclared reports whether key is one of the known global settings.
func IsDeclared(key string) bool {
	_, ok := defaults[key]
	return ok
}

// isUnset reports whether a stored value means "use the default".
//
// Empty string is deliberately "unset", never "explicitly empty": storing ""
// for robots_txt brings back the default file rather than suppressing it.
// Operators who need a blank value must store a sentinel like "\n".
func isUnset(v string) bool { return v == "" }

const sitePrefix = "site:"

// SiteKey builds the namespaced form of a per-subdomain override key.
func SiteKey(subdomain, key string) string {
	return sitePrefix + subdomain + ":" + key
}

// ParseSiteKey splits a stored key of the form "site:<subdomain>:<key>".
// Any key matching the pattern is an override, never a global setting.
func ParseSiteKey(stored string) (subdomain, key string, ok bool) {
	if !strings.HasPrefix(stored, sitePrefix) {
		return "", "", false
	}
	rest := stored[len(sitePrefix):]
	i := strings.IndexByte(rest, ':')
	if i <= 0 || i == len(rest)-1 {
		return "", "", false
	}
	return rest[:i], rest[i+1:], true
}
