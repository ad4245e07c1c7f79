// Package templates implements WordPress-style template name resolution:
// the most specific candidate that exists on disk wins, falling back
// progressively to the bare "<kind>.html".
package templates

import (
	"os"
	"path/filepath"
	"strings"
)

// Candidates builds the template filenames for kind and slugs, most specific
// first. For kind "post" and slugs ["services", "web"] that is:
//
//	post-services-web.html
//	post-services.html
//	post.html
//
// Always exactly len(slugs)+1 names.
func Candidates(kind string, slugs []string) []string {
	names := make([]string, 0, len(slugs)+1)
	for i := len(slugs); i > 0; i-- {
		names = append(names, kind+"-"+strings.Join(slugs[:i], "-")+".html")
	}
	return append(names, kind+".html")
}

// Resolve returns the name of the first candidate that exists in any of the
// search directories, checking dirs in priority order (theme before site
// before built-in default) per candidate. When nothing exists it still
// returns the bare "<kind>.html": missing templates are a render-time
// problem, not a resolution-time one.
//
// Pure function of its inputs and the filesystem at call time. A request
// may memoize the result for its own lifetime, but nothing may cache it
// across requests: a theme switch changes the search dirs under us.
func Resolve(kind string, slugs []string, dirs ...string) string {
	for _, name := range Candidates(kind, slugs) {
		for _, dir := range dirs {
			if info, err := os.Stat(filepath.Join(dir, name)); err == nil && !info.IsDir() {
				return name
			}
		}
	}
	return kind + ".html"
}

// Locate finds the full path of a resolved template name, checking dirs in
// the same priority order Resolve used. The render step calls this; a false
// return is the "template not found" case the renderer surfaces as a 404.
func Locate(name string, dirs ...string) (string, bool) {
	for _, dir := range dirs {
		full := filepath.Join(dir, name)
		if info, err := os.Stat(full); err == nil && !info.IsDir() {
			return full, true
		}
	}
	return "", false
}

// SplitSlugs breaks a URL path into slug segments, dropping empties left by
// leading, trailing, or doubled slashes.
func SplitSlugs(path string) []string {
	parts := strings.Split(path, "/")
	slugs := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		slugs = append(slugs, p)
	}
	return slugs
}
