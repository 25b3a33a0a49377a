package webserver

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/bjo163/storefront/internal/app"
	"github.com/bjo163/storefront/internal/auth"
)

const appContextKey = "appctx"

func appContextMiddleware(appCtx app.AppContext) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(appContextKey, appCtx)
			return next(c)
		}
	}
}

// GetAppContext returns the application bound to the request
func GetAppContext(c echo.Context) app.AppContext {
	appCtx, _ := c.Get(appContextKey).(app.AppContext)
	return appCtx
}

// GetIdentity returns the verified caller, or nil for anonymous requests
func GetIdentity(c echo.Context) *auth.Identity {
	id, _ := c.Get(auth.ContextKey).(*auth.Identity)
	return id
}

// jwtMiddleware verifies bearer tokens. Requests without an Authorization
// header pass through anonymously; a present but invalid token is rejected.
func jwtMiddleware(secret string) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		SigningKey:    []byte(secret),
		SigningMethod: echojwt.AlgorithmHS256,
		ContextKey:    auth.TokenContextKey,
		NewClaimsFunc: func(c echo.Context) jwt.Claims { return new(auth.Claims) },
		Skipper: func(c echo.Context) bool {
			return strings.TrimSpace(c.Request().Header.Get(echo.HeaderAuthorization)) == ""
		},
		ErrorHandler: func(c echo.Context, err error) error {
			zap.L().Debug("bearer token rejected", zap.Error(err))
			return Fail(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token", nil)
		},
	})
}

func identityMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := c.Get(auth.TokenContextKey).(*jwt.Token)
		if !ok {
			return next(c)
		}
		claims, _ := token.Claims.(*auth.Claims)
		id, err := auth.IdentityFromClaims(claims)
		if err != nil {
			return Fail(c, http.StatusUnauthorized, "INVALID_TOKEN", "Token has no subject", nil)
		}
		c.Set(auth.ContextKey, id)
		c.SetRequest(c.Request().WithContext(auth.WithIdentity(c.Request().Context(), id)))
		return next(c)
	}
}

func requireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if GetIdentity(c) == nil {
			return Fail(c, http.StatusUnauthorized, "UNAUTHORIZED", "Please sign in to continue",
				map[string]string{"redirect": "/auth"})
		}
		return next(c)
	}
}

// adminGate applies the role gate decision on every admin request
func adminGate(appCtx app.AppContext) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			d, err := appCtx.Gate().Check(c.Request().Context(), GetIdentity(c))
			if err != nil {
				zap.L().Error("role check failed", zap.Error(err))
				return Fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to check access", nil)
			}
			if !d.Allowed {
				status, code := http.StatusForbidden, "FORBIDDEN"
				if !d.Authenticated {
					status, code = http.StatusUnauthorized, "UNAUTHORIZED"
				}
				return Fail(c, status, code, d.Message, map[string]string{"redirect": d.Redirect})
			}
			return next(c)
		}
	}
}
