// Package registry maps middleware names from configuration onto compiled-in
// constructors. Config says `server.middleware: ["ratelimit", "cors",
// "logger"]`; anything not registered at startup is a hard wiring error, so
// a typo fails fast instead of silently running without protection.
package registry

import (
	"fmt"
	"net/http"
	"sync"
)

type Middleware func(http.Handler) http.Handler

var (
	mu    sync.Mutex
	table = make(map[string]Middleware)
)

// Register adds a named middleware to the table. Called from main during
// startup wiring; duplicate names panic because they are programmer error.
func Register(name string, mw Middleware) {
	mu.Lock()
	defer mu.Unlock()

	if _, exists := table[name]; exists {
		panic(fmt.Sprintf("registry: middleware %q registered twice", name))
	}
	table[name] = mw
}

// Resolve looks up each name, preserving order.
func Resolve(names []string) ([]Middleware, error) {
	mu.Lock()
	defer mu.Unlock()

	out := make([]Middleware, 0, len(names))
	for _, name := range names {
		mw, ok := table[name]
		if !ok {
			return nil, fmt.Errorf("registry: unknown middleware %q", name)
		}
		out = append(out, mw)
	}
	return out, nil
}

// Chain wraps h with the named middlewares, first name outermost. An empty
// list returns h unchanged.
func Chain(h http.Handler, names []string) (http.Handler, error) {
	mws, err := Resolve(names)
	if err != nil {
		return nil, err
	}
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h, nil
}
