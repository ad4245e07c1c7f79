package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"vellum/internal/config"
	"vellum/internal/database"
	"vellum/internal/session"
	"vellum/pkg/utils"
)

// Login RATE LIMITER (Brute Force Protection)
var loginVisitors = make(map[string]*rate.Limiter)
var loginMu sync.Mutex

// getLoginVisitor creates a strict rate limiter specifically for login endpoints.
// Limits: 1 request/sec, Burst: 10.
func getLoginVisitor(ip string) *rate.Limiter {
	loginMu.Lock()
	defer loginMu.Unlock()

	limiter, exists := loginVisitors[ip]
	if !exists {
		limiter = rate.NewLimiter(1, 10)
		loginVisitors[ip] = limiter
	}
	return limiter
}

// LoginRateLimitMiddleware enforces strict limits on authentication attempts.
func LoginRateLimitMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := utils.GetRealIP(r)

		limiter := getLoginVisitor(ip)
		if !limiter.Allow() {
			utils.WriteError(w, http.StatusTooManyRequests, utils.ErrAuthRateLimitExceed, "Too many login attempts. Please wait.")
			return
		}
		next(w, r)
	}
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginHandler validates the built-in admin credentials and writes identity
// into the session; the session middleware seals it into the cookie. OAuth
// sign-ins land in the same session shape through UpsertUserFromIdentity.
// It uses constant-time comparison to prevent timing attacks.
func LoginHandler(w http.ResponseWriter, r *http.Request) {
	var creds LoginRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1024)
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		utils.WriteError(w, http.StatusBadRequest, utils.ErrRequestInvalid, "Invalid request body.")
		return
	}

	expectedUser := config.AppConfig.Admin.Username
	expectedPass := config.AppConfig.Admin.Password

	// Even if username is wrong, we check password to keep response time consistent.
	userMatch := subtle.ConstantTimeCompare([]byte(creds.Username), []byte(expectedUser)) == 1
	passMatch := subtle.ConstantTimeCompare([]byte(creds.Password), []byte(expectedPass)) == 1

	if !userMatch || !passMatch || expectedUser == "" {
		// Artificial delay to slow down brute-force scripts
		time.Sleep(500 * time.Millisecond)
		utils.WriteError(w, http.StatusUnauthorized, utils.ErrAuthInvalid, "Incorrect username or password.")
		return
	}

	sess := session.FromContext(r.Context())
	sess.Set("uid", "admin")
	sess.Set("role", database.RoleAdmin)

	utils.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"action":  "logged_in",
		"message": "Login successful.",
	})
}

// LogoutHandler empties the session; the middleware re-issues a cookie
// holding nothing.
func LogoutHandler(w http.ResponseWriter, r *http.Request) {
	session.FromContext(r.Context()).Clear()

	utils.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"action":  "logged_out",
		"message": "Logged out successfully.",
	})
}

// roleRank orders roles by privilege; unknown or missing roles rank lowest.
func roleRank(role string) int {
	switch role {
	case database.RoleAdmin:
		return 3
	case database.RoleEditor:
		return 2
	case database.RoleViewer:
		return 1
	default:
		return 0
	}
}

// RequireRole protects routes by the role carried in the session.
// It handles both API clients (401/403 JSON) and Browsers (Redirect).
func RequireRole(minRole string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := session.FromContext(r.Context())

		if sess.GetString("uid") == "" {
			if strings.HasPrefix(r.URL.Path, "/admin/api/") {
				utils.WriteError(w, http.StatusUnauthorized, utils.ErrAuthRequired, "Session expired or invalid.")
				return
			}

			// No dedicated login page is served; send browsers home.
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}

		if roleRank(sess.GetString("role")) < roleRank(minRole) {
			utils.WriteError(w, http.StatusForbidden, utils.ErrAuthForbiddenRole, "This action requires the "+minRole+" role.")
			return
		}

		next(w, r)
	}
}

// IsAuthenticated reports whether the request carries a signed-in session.
func IsAuthenticated(r *http.Request) bool {
	return session.FromContext(r.Context()).GetString("uid") != ""
}
