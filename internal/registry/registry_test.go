package registry

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tagger(tag string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("X-Chain", tag)
			next.ServeHTTP(w, r)
		})
	}
}

func TestChainOrderAndUnknownName(t *testing.T) {
	Register("outer", tagger("outer"))
	Register("inner", tagger("inner"))

	h, err := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}), []string{"outer", "inner"})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	// First name runs first: outermost.
	assert.Equal(t, []string{"outer", "inner"}, rec.Header().Values("X-Chain"))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	_, err = Chain(http.NotFoundHandler(), []string{"outer", "nope"})
	assert.ErrorContains(t, err, `unknown middleware "nope"`)
}

func TestRegisterDuplicatePanics(t *testing.T) {
	Register("dup", tagger("dup"))
	assert.Panics(t, func() { Register("dup", tagger("dup")) })
}
