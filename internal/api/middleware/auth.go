package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rensmac/govassist/internal/api/response"
	"github.com/rensmac/govassist/internal/security"
)

type contextKey string

const (
	ChannelIDKey contextKey = "channelID"
	ChannelKey   contextKey = "channel"
)

// AuthMiddleware handles JWT authentication for channel adapters
type AuthMiddleware struct {
	jwtManager *security.JWTManager
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(jwtManager *security.JWTManager) *AuthMiddleware {
	return &AuthMiddleware{jwtManager: jwtManager}
}

// Authenticate validates the JWT token
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			response.Error(w, http.StatusUnauthorized, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			response.Error(w, http.StatusUnauthorized, "invalid authorization header format")
			return
		}

		claims, err := m.jwtManager.ValidateToken(parts[1])
		if err != nil {
			response.Unauthorized(w, "invalid or expired token: "+err.Error())
			return
		}

		ctx := context.WithValue(r.Context(), ChannelIDKey, claims.ChannelID)
		ctx = context.WithValue(ctx, ChannelKey, claims.Channel)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetChannelID gets the channel adapter ID from context
func GetChannelID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ChannelIDKey).(string)
	return id, ok
}

// GetChannel gets the channel platform name from context
func GetChannel(ctx context.Context) (string, bool) {
	channel, ok := ctx.Value(ChannelKey).(string)
	return channel, ok
}
