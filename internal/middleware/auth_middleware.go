package middleware

import (
	"crypto/subtle"
	"net/http"

	"mailtriage/internal/handler"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// AuthMiddleware resolves the session user and stores it on the context
func AuthMiddleware(authHandler *handler.AuthHandler) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, err := authHandler.GetCurrentUser(c)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"error": "Unauthorized",
				})
			}

			c.Set(handler.UserContextKey, user)
			return next(c)
		}
	}
}

// WebhookAuth guards the inbound webhook with basic auth. An empty user
// leaves the endpoint open.
func WebhookAuth(user, password string) echo.MiddlewareFunc {
	return echomw.BasicAuthWithConfig(echomw.BasicAuthConfig{
		Skipper: func(echo.Context) bool { return user == "" },
		Validator: func(u, p string, c echo.Context) (bool, error) {
			userOK := subtle.ConstantTimeCompare([]byte(u), []byte(user)) == 1
			passOK := subtle.ConstantTimeCompare([]byte(p), []byte(password)) == 1
			return userOK && passOK, nil
		},
		Realm: "webhook",
	})
}
