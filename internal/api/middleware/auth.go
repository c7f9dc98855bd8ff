package middleware

import (
	"context"
	"errors"
	"net/http"

	"igress/internal/common"
	"igress/internal/common/security"
	"igress/internal/platform/cache"
	"igress/internal/platform/logger"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/go-chi/jwtauth/v5"
	"go.uber.org/zap"
)

type contextKey string

const (
	UserIDCtxKey   contextKey = "userID"
	IdentityCtxKey contextKey = "identity"
)

// Identity is attached once the caller's roles have been resolved.
type Identity struct {
	UserID string
	Roles  []string
}

// PrincipalResolver loads the current role set and active flag of a user.
type PrincipalResolver interface {
	Resolve(ctx context.Context, userID string) (*cache.Principal, error)
}

// Authenticator turns the jwtauth.Verifier result into a caller id. Expired tokens
// get 498 so clients can tell them apart from bad signatures.
func Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context())

		switch {
		case errors.Is(err, jwtauth.ErrNoTokenFound):
			common.RespondWithError(w, http.StatusUnauthorized, "Authorization token required")
			return
		case errors.Is(err, jwtauth.ErrExpired):
			common.RespondWithError(w, common.StatusTokenExpired, common.ErrTokenExpired.Error())
			return
		case err != nil || token == nil:
			common.RespondWithError(w, http.StatusUnauthorized, "Authentication failed")
			return
		}

		userID, err := security.GetUserIDFromClaims(claims)
		if err != nil {
			common.RespondWithError(w, http.StatusUnauthorized, "Authentication failed")
			return
		}

		ctx := context.WithValue(r.Context(), UserIDCtxKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRoles admits active callers holding at least one of roles. With no roles
// any active caller passes. Must run after Authenticator.
func RequireRoles(resolver PrincipalResolver, roles ...string) func(http.Handler) http.Handler {
	allowed := mapset.NewSet(roles...)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := GetUserIDFromContext(r.Context())
			if !ok {
				common.RespondWithError(w, http.StatusUnauthorized, "Authorization token required")
				return
			}

			p, err := resolver.Resolve(r.Context(), userID)
			if err != nil {
				if errors.Is(err, common.ErrNotFound) {
					common.RespondWithError(w, http.StatusUnauthorized, "Authentication failed")
					return
				}
				logger.Log.Error("resolve principal", zap.String("user_id", userID), zap.Error(err))
				common.RespondWithError(w, http.StatusInternalServerError, "Internal Server Error")
				return
			}
			if !p.IsActive {
				common.RespondWithError(w, http.StatusForbidden, common.ErrAccountBlocked.Error())
				return
			}
			if allowed.Cardinality() > 0 && !allowed.ContainsAny(p.Roles...) {
				common.RespondWithError(w, http.StatusForbidden, "Access denied")
				return
			}

			ctx := context.WithValue(r.Context(), IdentityCtxKey, Identity{UserID: userID, Roles: p.Roles})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDCtxKey).(string)
	return userID, ok
}

func GetIdentity(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(IdentityCtxKey).(Identity)
	return id, ok
}

// HasRole reports whether the resolved caller holds role.
func (i Identity) HasRole(role string) bool {
	for _, r := range i.Roles {
		if r == role {
			return true
		}
	}
	return false
}
