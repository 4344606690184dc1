package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// claimsContextKey is where middleware stores the verified claims on the
// echo context.
const claimsContextKey = "auth.claims"

// Middleware returns an echo middleware that requires a valid bearer access
// token and stores the verified claims on the request context.
func Middleware(verifier JWT) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			header := ctx.Request().Header.Get(echo.HeaderAuthorization)
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}

			claims, err := verifier.Verify(token, TokenTypeAccess)
			if err != nil {
				slog.Debug("auth: token rejected", "error", err)
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}

			ctx.Set(claimsContextKey, claims)
			return next(ctx)
		}
	}
}

// CurrentUser returns the verified claims set by Middleware. The boolean is
// false on routes that never passed through the middleware.
func CurrentUser(ctx echo.Context) (Claims, bool) {
	claims, ok := ctx.Get(claimsContextKey).(Claims)
	return claims, ok
}
