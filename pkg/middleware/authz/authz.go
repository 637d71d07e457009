// Package authz guards routes behind a bearer token.
package authz

import (
	"context"
	"strings"

	"github.com/nimburion/taskboard/pkg/auth"
	"github.com/nimburion/taskboard/pkg/controller"
	"github.com/nimburion/taskboard/pkg/middleware"
	"github.com/nimburion/taskboard/pkg/observability/logger"
	"github.com/nimburion/taskboard/pkg/server/router"
)

// ClaimsKey is the router context key for the validated claims.
const ClaimsKey = "claims"

// Messages returned with 401 responses.
const (
	MsgHeaderRequired = "Authorization header is required"
	MsgUnauthorized   = "Unauthorized"
	MsgInvalidToken   = "Token is not valid"
)

// Authenticate validates the Bearer token in the Authorization header and
// stores the claims in both the router context and the request context,
// along with the user id for request logging.
func Authenticate(validator auth.JWTValidator, log logger.Logger) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			header := c.Request().Header.Get("Authorization")
			if header == "" {
				return controller.Error(c, controller.NewUnauthorizedError(MsgHeaderRequired))
			}

			token, ok := bearerToken(header)
			if !ok {
				return controller.Error(c, controller.NewUnauthorizedError(MsgUnauthorized))
			}

			claims, err := validator.Validate(c.Request().Context(), token)
			if err != nil {
				log.WithContext(c.Request().Context()).Debug("token rejected", "error", err)
				return controller.Error(c, controller.NewUnauthorizedError(MsgInvalidToken))
			}

			c.Set(ClaimsKey, claims)
			ctx := auth.WithClaims(c.Request().Context(), claims)
			ctx = context.WithValue(ctx, middleware.UserIDKey, claims.UserID)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// Claims returns the claims stored by Authenticate, or nil when the route is unauthenticated.
func Claims(c router.Context) *auth.Claims {
	if claims, ok := c.Get(ClaimsKey).(*auth.Claims); ok {
		return claims
	}
	return auth.GetClaims(c.Request().Context())
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
