// Package featuregate short-circuits whole API families behind a runtime
// switch. A disabled family answers exactly like a route that was never
// defined, so callers cannot tell a switched-off feature from a missing
// one.
package featuregate

import (
	"net/http"
	"strings"

	"github.com/sentinel-iam/sentinel/internal/platform/httpx"
)

// Gate classifies request paths against a fixed set of gated path roots.
// The flag is read once at startup and immutable for the process lifetime,
// so concurrent reads need no locking.
type Gate struct {
	enabled bool
	roots   []string
}

// New constructs a Gate covering the given path roots.
func New(enabled bool, roots ...string) *Gate {
	cleaned := make([]string, 0, len(roots))
	for _, root := range roots {
		root = strings.TrimSuffix(root, "/")
		if root != "" {
			cleaned = append(cleaned, root)
		}
	}
	return &Gate{enabled: enabled, roots: cleaned}
}

// IsGated reports whether the path belongs to a gated API family.
func (g *Gate) IsGated(path string) bool {
	for _, root := range g.roots {
		if path == root || strings.HasPrefix(path, root+"/") {
			return true
		}
	}
	return false
}

// Middleware blocks gated paths while the feature is off. It runs before
// authentication: a disabled family must look absent even to callers
// holding valid credentials. The 404 body is the router's own not-found
// body, byte for byte.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.enabled && g.IsGated(r.URL.Path) {
			httpx.NotFound(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}
