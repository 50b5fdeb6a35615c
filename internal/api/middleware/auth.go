package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/court-opinions/engine/internal/api/types"
	"github.com/court-opinions/engine/internal/policy"
	"github.com/court-opinions/engine/pkg/logger"
	"go.uber.org/zap"
)

type actorKeyType struct{}

// TokenParser resolves a bearer token to the calling actor.
type TokenParser interface {
	ParseToken(token string) (policy.Actor, error)
}

// Auth validates the Bearer token and stores the actor in the request context.
func Auth(parser TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ah := r.Header.Get("Authorization")
			if len(ah) < len("Bearer ") || !strings.EqualFold(ah[:len("Bearer ")], "bearer ") {
				unauthorized(w, "missing bearer token")
				return
			}
			actor, err := parser.ParseToken(strings.TrimSpace(ah[len("Bearer "):]))
			if err != nil {
				unauthorized(w, "invalid or expired token")
				return
			}
			ctx := WithActor(r.Context(), actor)
			l := logger.FromContext(ctx).With(zap.String("user_id", actor.ID.String()), zap.String("role", string(actor.Role)))
			ctx = logger.WithContext(ctx, l)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithActor returns ctx carrying actor.
func WithActor(ctx context.Context, actor policy.Actor) context.Context {
	return context.WithValue(ctx, actorKeyType{}, actor)
}

// GetActor returns the authenticated actor, if any.
func GetActor(ctx context.Context) (policy.Actor, bool) {
	a, ok := ctx.Value(actorKeyType{}).(policy.Actor)
	return a, ok
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(types.APIResponse{
		Success: false,
		Error:   &types.APIError{Code: "unauthorized", Message: msg},
	})
}
