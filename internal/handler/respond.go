package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"mailtriage/internal/model"
	"mailtriage/internal/service"
)

// UserContextKey holds the *model.User set by the auth middleware.
const UserContextKey = "user"

func currentUser(c echo.Context) (*model.User, bool) {
	user, ok := c.Get(UserContextKey).(*model.User)
	return user, ok && user != nil
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, map[string]string{
		"error": "Unauthorized",
	})
}

// serviceError maps service errors to responses. Anything unexpected is
// logged and answered with fallback.
func serviceError(c echo.Context, err error, fallback string) error {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		body := map[string]string{"error": verr.Message}
		if verr.Details != "" {
			body["details"] = verr.Details
		}
		return c.JSON(http.StatusBadRequest, body)
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{
			"error": "Not found",
		})
	}
	c.Logger().Error(fallback+": ", err)
	return c.JSON(http.StatusInternalServerError, map[string]string{
		"error": fallback,
	})
}
