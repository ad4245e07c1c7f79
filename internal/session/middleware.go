package session

import (
	"net/http"
	"time"

	"vellum/pkg/logger"
)

// CookieConfig is the full scope the session cookie is (re)issued with.
type CookieConfig struct {
	Name   string
	Domain string // "" scopes the cookie to the exact request host
	Secure bool
	MaxAge time.Duration
}

// Middleware decodes the session cookie into the request context and seals
// the (possibly mutated) state back into a fresh Set-Cookie on the way out.
//
// Cookies have to hit the wire before the status line, so the response
// writer is wrapped and the Set-Cookie headers are injected just before the
// first WriteHeader/Write from the handler.
func Middleware(codec Codec, cfg CookieConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

			var sess *Session
			if c, err := r.Cookie(cfg.Name); err == nil {
				state, stale := codec.Decode(c.Value)
				sess = newSession(state, stale)
			} else {
				// No cookie at all: fresh empty session, nothing to clean up.
				sess = newSession(nil, false)
			}

			cw := &cookieWriter{
				ResponseWriter: w,
				emit: func(h http.Header) {
					writeSessionCookies(h, codec, cfg, sess)
				},
			}

			next.ServeHTTP(cw, r.WithContext(intoContext(r.Context(), sess)))

			// Handler wrote nothing: headers are still open, flush now so
			// the implicit 200 carries the cookie too.
			cw.flush()
		})
	}
}

// writeSessionCookies always re-issues the session under the configured
// scope. When the inbound cookie was stale AND a cookie domain is
// configured, it additionally clears the cookie at the exact request host:
// after a cookie-domain change, legacy host-scoped cookies shadow the new
// domain-scoped one, and a domain-scoped clear cannot reach them. Without a
// configured domain there is nothing to disambiguate and no extra clear.
func writeSessionCookies(h http.Header, codec Codec, cfg CookieConfig, sess *Session) {
	value, err := codec.Encode(sess.snapshot())
	if err != nil {
		logger.LogError("Session encode failed, dropping cookie for this response: %v", err)
		return
	}

	setCookie(h, &http.Cookie{
		Name:     cfg.Name,
		Value:    value,
		Path:     "/",
		Domain:   cfg.Domain,
		HttpOnly: true, // JavaScript access forbidden (XSS protection)
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode, // CSRF
		MaxAge:   int(cfg.MaxAge.Seconds()),
	})

	if sess.consumeStale() && cfg.Domain != "" {
		// No Domain attribute: scoped to the literal request hostname,
		// which is exactly where the legacy cookie lives.
		setCookie(h, &http.Cookie{
			Name:     cfg.Name,
			Value:    "",
			Path:     "/",
			HttpOnly: true,
			Secure:   cfg.Secure,
			SameSite: http.SameSiteLaxMode,
			Expires:  time.Unix(0, 0),
			MaxAge:   -1,
		})
	}
}

func setCookie(h http.Header, c *http.Cookie) {
	if v := c.String(); v != "" {
		h.Add("Set-Cookie", v)
	}
}

// cookieWriter injects the session cookies right before the first byte of
// the response. Same wrapping trick as the request logger's status writer.
type cookieWriter struct {
	http.ResponseWriter
	emit func(http.Header)
	done bool
}

func (w *cookieWriter) flush() {
	if w.done {
		return
	}
	w.done = true
	w.emit(w.Header())
}

func (w *cookieWriter) WriteHeader(code int) {
	w.flush()
	w.ResponseWriter.WriteHeader(code)
}

func (w *cookieWriter) Write(b []byte) (int, error) {
	w.flush()
	return w.ResponseWriter.Write(b)
}
