package middleware

import (
	"context"
	"net/http"

	"finance_users/internal/common"
	"finance_users/internal/common/security"

	"github.com/go-chi/jwtauth/v5"
	"github.com/sirupsen/logrus"
)

type contextKey string

const (
	UserIDCtxKey   contextKey = "userID"
	UserRoleCtxKey contextKey = "userRole"
)

// Route identifies an endpoint by method and exact path.
type Route struct {
	Method string
	Path   string
}

// PublicRoutes is the set of endpoints reachable without a bearer token.
type PublicRoutes map[Route]struct{}

func NewPublicRoutes(routes ...Route) PublicRoutes {
	p := make(PublicRoutes, len(routes))
	for _, r := range routes {
		p[r] = struct{}{}
	}
	return p
}

func (p PublicRoutes) Allows(r *http.Request) bool {
	_, ok := p[Route{Method: r.Method, Path: r.URL.Path}]
	return ok
}

// Authenticator gates every request not listed in public. On success the
// token subject and role are attached to the request context.
func Authenticator(issuer *security.TokenIssuer, public PublicRoutes, logger *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if public.Allows(r) {
				next.ServeHTTP(w, r)
				return
			}

			tokenString := jwtauth.TokenFromHeader(r)
			if tokenString == "" {
				common.RespondWithError(w, http.StatusUnauthorized, "Authorization token required")
				return
			}

			claims, err := issuer.Verify(tokenString)
			if err != nil {
				logger.WithError(err).WithField("path", r.URL.Path).Debug("Rejected bearer token")
				common.RespondWithError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), UserIDCtxKey, claims.Subject)
			ctx = context.WithValue(ctx, UserRoleCtxKey, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Helper to get user ID from context
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDCtxKey).(string)
	return userID, ok
}

// Helper to get user role from context
func GetUserRoleFromContext(ctx context.Context) (string, bool) {
	userRole, ok := ctx.Value(UserRoleCtxKey).(string)
	return userRole, ok
}
