package router

import (
	"net/http"

	"mailtriage/internal/handler"
	"mailtriage/internal/metrics"
	"mailtriage/internal/middleware"

	"github.com/labstack/echo/v4"
)

type Handlers struct {
	Auth    *handler.AuthHandler
	Labels  *handler.LabelHandler
	Emails  *handler.EmailHandler
	Webhook *handler.WebhookHandler
	Import  *handler.ImportHandler
}

func SetupRoutes(e *echo.Echo, h Handlers, webhookUser, webhookPassword string) {
	e.Use(middleware.MetricsMiddleware())

	// Public routes
	e.GET("/auth/:provider", h.Auth.BeginAuthHandler)
	e.GET("/auth/:provider/callback", h.Auth.CallbackHandler)
	e.GET("/auth/logout", h.Auth.LogoutHandler)

	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	// Inbound mail
	hook := e.Group("/api/hook")
	hook.GET("", h.Webhook.Health)
	hook.POST("", h.Webhook.ReceiveInbound, middleware.WebhookAuth(webhookUser, webhookPassword))

	// Protected API routes
	protected := e.Group("/api")
	protected.Use(middleware.AuthMiddleware(h.Auth))

	protected.GET("/me", h.Auth.Me)

	protected.GET("/labels", h.Labels.GetLabels)
	protected.POST("/labels", h.Labels.CreateLabel)
	protected.PUT("/labels/:id", h.Labels.UpdateLabel)
	protected.DELETE("/labels/:id", h.Labels.DeleteLabel)
	protected.POST("/rules/validate", h.Labels.ValidateRule)

	protected.GET("/emails", h.Emails.GetEmails)
	protected.GET("/emails/:id", h.Emails.GetEmail)
	protected.PUT("/emails/:id", h.Emails.UpdateEmail)
	protected.POST("/import/gmail", h.Import.ImportGmail)

	// Real-time board updates via Server-Sent Events (SSE)
	protected.GET("/events", h.Emails.BoardEvents)
}
