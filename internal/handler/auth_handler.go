package handler

import (
	"errors"
	"fmt"
	"net/http"

	"mailtriage/internal/config"
	"mailtriage/internal/model"
	"mailtriage/internal/service"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/google"
)

var errNotAuthenticated = errors.New("user not authenticated")

type AuthHandler struct {
	authService service.AuthService
	store       sessions.Store
	config      *config.Config
	logger      echo.Logger
}

func NewAuthHandler(authService service.AuthService, store sessions.Store, config *config.Config, logger echo.Logger) *AuthHandler {
	// Set up goth with Google provider
	gothic.Store = store

	goth.UseProviders(
		google.New(
			config.GoogleClientID,
			config.GoogleClientSecret,
			config.BaseURL+"/auth/google/callback",
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
			"https://www.googleapis.com/auth/gmail.readonly",
		),
	)

	return &AuthHandler{
		authService: authService,
		store:       store,
		config:      config,
		logger:      logger,
	}
}

// withProvider sets the provider query parameter goth reads.
func withProvider(c echo.Context) *http.Request {
	req := c.Request()
	q := req.URL.Query()
	q.Set("provider", "google")
	req.URL.RawQuery = q.Encode()
	return req
}

// BeginAuthHandler initiates the OAuth flow
func (h *AuthHandler) BeginAuthHandler(c echo.Context) error {
	if c.Param("provider") != "google" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid provider",
		})
	}

	gothic.BeginAuthHandler(c.Response(), withProvider(c))
	return nil
}

// CallbackHandler handles the OAuth callback
func (h *AuthHandler) CallbackHandler(c echo.Context) error {
	req := withProvider(c)

	googleUser, err := gothic.CompleteUserAuth(c.Response(), req)
	if err != nil {
		h.logger.Error("Failed to complete user auth:", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Authentication failed",
		})
	}

	user, err := h.authService.GetOrCreateUser(req.Context(), service.Profile{
		GoogleID:     googleUser.Provider + "_" + googleUser.UserID,
		Email:        googleUser.Email,
		Name:         googleUser.Name,
		AvatarURL:    googleUser.AvatarURL,
		AccessToken:  googleUser.AccessToken,
		RefreshToken: googleUser.RefreshToken,
		TokenExpiry:  googleUser.ExpiresAt,
	})
	if err != nil {
		h.logger.Error("Failed to get or create user:", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Failed to process user",
		})
	}

	if err := h.SaveUserSession(c, user.ID); err != nil {
		h.logger.Error("Failed to save session:", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Failed to save session",
		})
	}

	return c.Redirect(http.StatusTemporaryRedirect, "/")
}

// LogoutHandler logs out the user
func (h *AuthHandler) LogoutHandler(c echo.Context) error {
	req := withProvider(c)
	if err := gothic.Logout(c.Response(), req); err != nil {
		h.logger.Warn("Failed to clear provider session:", err)
	}

	session, _ := h.store.Get(req, sessionName)
	delete(session.Values, "user_id")
	session.Options.MaxAge = -1
	if err := session.Save(req, c.Response()); err != nil {
		h.logger.Warn("Failed to clear session:", err)
	}

	return c.Redirect(http.StatusTemporaryRedirect, "/")
}

// Me returns the signed-in user.
func (h *AuthHandler) Me(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	return c.JSON(http.StatusOK, user)
}

// SaveUserSession stores userID in the session cookie.
func (h *AuthHandler) SaveUserSession(c echo.Context, userID string) error {
	session, _ := h.store.Get(c.Request(), sessionName)
	session.Values["user_id"] = userID
	return session.Save(c.Request(), c.Response())
}

// GetCurrentUser returns the current authenticated user
func (h *AuthHandler) GetCurrentUser(c echo.Context) (*model.User, error) {
	session, err := h.store.Get(c.Request(), sessionName)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	userID, ok := session.Values["user_id"].(string)
	if !ok || userID == "" {
		return nil, errNotAuthenticated
	}

	user, err := h.authService.GetUser(c.Request().Context(), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user from database: %w", err)
	}

	return user, nil
}
