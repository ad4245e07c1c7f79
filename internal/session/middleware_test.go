package session

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(codec Codec, cfg CookieConfig, h http.HandlerFunc) http.Handler {
	if h == nil {
		h = func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}
	}
	return Middleware(codec, cfg)(h)
}

// clearingCookies returns the Set-Cookie values for name with an expiry in
// the past or a non-positive max-age.
func clearingCookies(t *testing.T, res *http.Response, name string) []string {
	t.Helper()
	var out []string
	for _, raw := range res.Header.Values("Set-Cookie") {
		if !strings.HasPrefix(raw, name+"=") {
			continue
		}
		if strings.Contains(raw, "Max-Age=0") || strings.Contains(strings.ToLower(raw), "expires=thu, 01 jan 1970") {
			out = append(out, raw)
		}
	}
	return out
}

func TestMiddlewareIssuesCookieOnEveryResponse(t *testing.T) {
	codec := newTestCodec(t, "test-secret")
	cfg := CookieConfig{Name: "vellum_session", Secure: true, MaxAge: time.Hour}

	h := newTestHandler(codec, cfg, func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).Set("uid", "u-1")
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://app.test/", nil))
	res := rec.Result()

	cookies := res.Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, "vellum_session", c.Name)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, int(time.Hour.Seconds()), c.MaxAge)

	// The cookie carries what the handler put in the session.
	state, stale := codec.Decode(c.Value)
	require.False(t, stale)
	assert.Equal(t, "u-1", state["uid"])
}

func TestMiddlewareCookieWrittenWhenHandlerWritesNothing(t *testing.T) {
	codec := newTestCodec(t, "test-secret")
	cfg := CookieConfig{Name: "vellum_session", MaxAge: time.Hour}

	h := newTestHandler(codec, cfg, func(w http.ResponseWriter, r *http.Request) {})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://app.test/", nil))

	assert.Len(t, rec.Result().Cookies(), 1)
}

func TestMiddlewareRoundTripAcrossRequests(t *testing.T) {
	codec := newTestCodec(t, "test-secret")
	cfg := CookieConfig{Name: "vellum_session", MaxAge: time.Hour}

	h := newTestHandler(codec, cfg, func(w http.ResponseWriter, r *http.Request) {
		sess := FromContext(r.Context())
		if sess.GetString("uid") == "" {
			sess.Set("uid", "u-7")
		}
		w.Write([]byte(sess.GetString("uid")))
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://app.test/", nil))
	first := rec.Result().Cookies()[0]

	req := httptest.NewRequest(http.MethodGet, "http://app.test/", nil)
	req.AddCookie(first)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "u-7", rec.Body.String())
}

func TestStaleCookieWithDomainGetsNarrowClear(t *testing.T) {
	codec := newTestCodec(t, "test-secret")
	cfg := CookieConfig{Name: "vellum_session", Domain: ".example.com", MaxAge: time.Hour}

	h := newTestHandler(codec, cfg, nil)

	req := httptest.NewRequest(http.MethodGet, "http://blog.example.com/", nil)
	req.AddCookie(&http.Cookie{Name: "vellum_session", Value: "corrupt-beyond-repair"})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	res := rec.Result()

	raws := res.Header.Values("Set-Cookie")
	require.Len(t, raws, 2)

	// The normal re-issue carries the configured domain scope (net/http
	// serializes ".example.com" without the leading dot).
	var domainScoped, hostScoped []string
	for _, raw := range raws {
		if strings.Contains(raw, "Domain=") {
			domainScoped = append(domainScoped, raw)
		} else {
			hostScoped = append(hostScoped, raw)
		}
	}
	require.Len(t, domainScoped, 1)
	assert.Contains(t, domainScoped[0], "Domain=example.com")

	// The extra clear targets the exact host: no Domain attribute, expired.
	require.Len(t, hostScoped, 1)
	assert.Contains(t, hostScoped[0], "Max-Age=0")
	assert.Contains(t, strings.ToLower(hostScoped[0]), "expires=")
	assert.Equal(t, hostScoped, clearingCookies(t, res, "vellum_session"))
}

func TestStaleCookieWithoutDomainNoExtraClear(t *testing.T) {
	codec := newTestCodec(t, "test-secret")
	cfg := CookieConfig{Name: "vellum_session", MaxAge: time.Hour}

	h := newTestHandler(codec, cfg, nil)

	req := httptest.NewRequest(http.MethodGet, "http://app.test/", nil)
	req.AddCookie(&http.Cookie{Name: "vellum_session", Value: "corrupt-beyond-repair"})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	res := rec.Result()

	// Just the re-issued cookie; with no configured domain there is no
	// narrower scope to disambiguate, so at most one clearing directive
	// (here: none).
	require.Len(t, res.Header.Values("Set-Cookie"), 1)
	assert.LessOrEqual(t, len(clearingCookies(t, res, "vellum_session")), 1)

	state, stale := codec.Decode(res.Cookies()[0].Value)
	assert.False(t, stale)
	assert.Empty(t, state)
}

func TestValidCookieNoClearingDirectives(t *testing.T) {
	codec := newTestCodec(t, "test-secret")
	cfg := CookieConfig{Name: "vellum_session", Domain: ".example.com", MaxAge: time.Hour}

	good, err := codec.Encode(State{"uid": "u-1"})
	require.NoError(t, err)

	h := newTestHandler(codec, cfg, nil)

	req := httptest.NewRequest(http.MethodGet, "http://example.com/", nil)
	req.AddCookie(&http.Cookie{Name: "vellum_session", Value: good})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	res := rec.Result()

	require.Len(t, res.Header.Values("Set-Cookie"), 1)
	assert.Empty(t, clearingCookies(t, res, "vellum_session"))
}

func TestFromContextWithoutMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess := FromContext(req.Context())
	require.NotNil(t, sess)
	assert.Equal(t, "", sess.GetString("uid"))
}
