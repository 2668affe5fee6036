package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/appetiteclub/apt"
)

type contextKey struct{}

// WithPrincipal returns a context carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

// PrincipalFrom returns the caller stored in ctx.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(contextKey{}).(Principal)
	return p, ok
}

// RoleFrom returns the caller role, DefaultRole when unauthenticated.
func RoleFrom(ctx context.Context) Role {
	if p, ok := PrincipalFrom(ctx); ok {
		return p.Role
	}
	return DefaultRole
}

// Authenticate verifies the bearer token and stores the principal in the
// request context. Browsers cannot set headers on websocket and SSE
// requests, so an access_token query parameter is accepted too.
func Authenticate(v *Verifier, logger apt.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := v.Verify(bearerToken(r))
			if err != nil {
				logger.Debug("rejected request", "path", r.URL.Path, "error", err)
				if errors.Is(err, ErrMissingToken) {
					apt.RespondError(w, http.StatusUnauthorized, "Authentication required")
					return
				}
				apt.RespondError(w, http.StatusUnauthorized, "Invalid token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// RequireView rejects callers whose role may not use any of views.
func RequireView(views ...View) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := RoleFrom(r.Context())
			for _, v := range views {
				if CanAccess(role, v) {
					next.ServeHTTP(w, r)
					return
				}
			}
			apt.RespondError(w, http.StatusForbidden, "Role "+string(role)+" cannot perform this action")
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return r.URL.Query().Get("access_token")
}

// Gate bundles authentication and view checks. A nil Gate or one built
// without a verifier lets every request through.
type Gate struct {
	verifier *Verifier
	logger   apt.Logger
}

func NewGate(v *Verifier, logger apt.Logger) *Gate {
	return &Gate{verifier: v, logger: logger}
}

func (g *Gate) Enabled() bool {
	return g != nil && g.verifier != nil
}

func (g *Gate) Authenticate() func(http.Handler) http.Handler {
	if !g.Enabled() {
		return passthrough
	}
	return Authenticate(g.verifier, g.logger)
}

func (g *Gate) Require(views ...View) func(http.Handler) http.Handler {
	if !g.Enabled() {
		return passthrough
	}
	return RequireView(views...)
}

func passthrough(next http.Handler) http.Handler {
	return next
}
