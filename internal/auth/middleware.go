package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/aegis-admin/aegis/internal/shared"
)

// Guard validates bearer tokens on protected routes. A token is live only
// when its signature verifies, it is not blacklisted, and it matches the
// per-user mirror (single-active-session confirmation).
type Guard struct {
	logger *slog.Logger
	tokens *TokenManager
	client *redis.Client
}

// NewGuard constructs a Guard.
func NewGuard(logger *slog.Logger, tokens *TokenManager, client *redis.Client) *Guard {
	return &Guard{logger: logger, tokens: tokens, client: client}
}

// RequireAuth rejects requests without a live session token and injects the
// caller identity into the request context.
func (g *Guard) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := BearerToken(r)
		if token == "" {
			unauthorized(w)
			return
		}

		claims, err := g.tokens.Parse(token)
		if err != nil {
			unauthorized(w)
			return
		}

		ctx := r.Context()
		blacklisted, err := g.client.Exists(ctx, shared.BlacklistKey(token)).Result()
		if err != nil {
			g.logger.Error("guard blacklist lookup", slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		if blacklisted > 0 {
			unauthorized(w)
			return
		}

		userID, err := strconv.ParseInt(claims.UserID, 10, 64)
		if err != nil {
			unauthorized(w)
			return
		}

		mirror, err := g.client.Get(ctx, shared.SSOKey(userID)).Result()
		if errors.Is(err, redis.Nil) {
			unauthorized(w)
			return
		}
		if err != nil {
			g.logger.Error("guard mirror lookup", slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		if mirror != token {
			// A newer login replaced this session.
			unauthorized(w)
			return
		}

		ctx = shared.ContextWithIdentity(ctx, shared.Identity{UserID: userID, UserName: claims.UserName})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// BearerToken extracts the token from the Authorization header, if any.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return header[len(prefix):]
	}
	return ""
}

func unauthorized(w http.ResponseWriter) {
	http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
}
