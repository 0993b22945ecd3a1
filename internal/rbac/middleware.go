package rbac

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/sentinel-iam/sentinel/internal/platform/httpx"
	"github.com/sentinel-iam/sentinel/internal/token"
)

// DecisionObserver counts authorization outcomes. Implemented by the
// metrics registry; nil disables observation.
type DecisionObserver interface {
	ObserveAuthzDecision(outcome string)
}

// Middleware wires bearer-token authentication and permission checks into
// the HTTP pipeline.
type Middleware struct {
	Codec    *token.Codec
	Engine   *Engine
	Logger   *slog.Logger
	Observer DecisionObserver
}

// Authenticate resolves the principal from an Authorization header, if one
// is present. A missing header leaves the request anonymous and defers the
// decision to the permission check; a present-but-invalid credential is
// rejected immediately, even on paths that tolerate anonymity.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}
		scheme, raw, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") {
			httpx.Fail(w, httpx.FailureUnauthenticated, nil)
			return
		}
		subject, err := m.Codec.Validate(strings.TrimSpace(raw))
		if err != nil {
			httpx.Fail(w, httpx.FailureUnauthenticated, nil)
			return
		}
		ctx := ContextWithPrincipal(r.Context(), &Principal{ID: subject})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m Middleware) observe(outcome string) {
	if m.Observer != nil {
		m.Observer.ObserveAuthzDecision(outcome)
	}
}

// Require ensures the current principal holds the given permission.
func (m Middleware) Require(perm Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := PrincipalFromContext(r.Context())
			if err := m.Engine.Decide(r.Context(), principal, perm); err != nil {
				outcome := "denied"
				if httpx.Classify(err) == httpx.FailureUnavailable {
					outcome = "error"
					if m.Logger != nil {
						m.Logger.Error("permission check", slog.String("path", r.URL.Path), slog.Any("error", err))
					}
				}
				m.observe(outcome)
				httpx.RespondError(w, err)
				return
			}
			m.observe("granted")
			next.ServeHTTP(w, r)
		})
	}
}
