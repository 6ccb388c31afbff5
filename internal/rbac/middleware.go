package rbac

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/aegis-admin/aegis/internal/shared"
)

// Middleware wires permission checks for HTTP handlers. It sits behind the
// auth guard, which has already placed the caller identity in context.
type Middleware struct {
	Logger  *slog.Logger
	Service *Service
}

// RequirePermission ensures the caller's effective permission set grants
// the required code. Wildcard segments in a granted code match anything,
// so the default super permission passes every check.
func (m Middleware) RequirePermission(code string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := shared.IdentityFromContext(r.Context())
			if !ok {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			granted, err := m.Service.FindUserPermissions(r.Context(), identity.UserID)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("rbac require permission", slog.Any("error", err))
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			for _, g := range granted {
				if permissionMatches(g, code) {
					next.ServeHTTP(w, r)
					return
				}
			}
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})
	}
}

// permissionMatches compares a granted code against a required one,
// treating "*" segments in the grant as wildcards.
func permissionMatches(granted, required string) bool {
	if granted == required {
		return true
	}
	gp := strings.Split(granted, ":")
	rp := strings.Split(required, ":")
	if len(gp) != len(rp) {
		return false
	}
	for i := range gp {
		if gp[i] != "*" && gp[i] != rp[i] {
			return false
		}
	}
	return true
}
