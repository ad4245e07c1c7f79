package session

import (
	"context"
	"sync"
)

type contextKey struct{}

// Session is the in-flight request's view of its session state. The
// middleware decodes it from the cookie, handlers mutate it, and the
// response side seals whatever is left back into a fresh cookie.
type Session struct {
	mu    sync.Mutex
	state State
	stale bool
}

func newSession(state State, stale bool) *Session {
	if state == nil {
		state = State{}
	}
	return &Session{state: state, stale: stale}
}

func (s *Session) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.state[key]
	return v, ok
}

// GetString is Get for the common case; non-string values read as "".
func (s *Session) GetString(key string) string {
	v, ok := s.Get(key)
	if !ok {
		return ""
	}
	str, _ := v.(string)
	return str
}

func (s *Session) Set(key string, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state[key] = v
}

func (s *Session) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.state, key)
}

// Clear empties the state. The response still carries a (now empty) valid
// cookie; this is the logout path.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = State{}
}

// snapshot copies the state for encoding without holding the lock across I/O.
func (s *Session) snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(State, len(s.state))
	for k, v := range s.state {
		out[k] = v
	}
	return out
}

// consumeStale reads and clears the stale flag. Exactly one consumer per
// request: the response side uses it to decide on the extra narrow-scope
// cookie clear, and clearing it here keeps the same response cycle from
// re-clearing redundantly.
func (s *Session) consumeStale() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	was := s.stale
	s.stale = false
	return was
}

// FromContext returns the request's session. The middleware always installs
// one; the empty fallback keeps handlers tested without it from panicking.
func FromContext(ctx context.Context) *Session {
	if s, ok := ctx.Value(contextKey{}).(*Session); ok {
		return s
	}
	return newSession(nil, false)
}

func intoContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}
