package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"mailtriage/internal/model"
	"mailtriage/internal/service"
	"mailtriage/internal/sse"

	"github.com/labstack/echo/v4"
	"github.com/microcosm-cc/bluemonday"
)

type EmailHandler struct {
	emailService service.EmailService
	sseManager   *sse.SSEManager
	policy       *bluemonday.Policy
	logger       echo.Logger
}

func NewEmailHandler(emailService service.EmailService, sseManager *sse.SSEManager, logger echo.Logger) *EmailHandler {
	return &EmailHandler{
		emailService: emailService,
		sseManager:   sseManager,
		policy:       bluemonday.UGCPolicy(),
		logger:       logger,
	}
}

// sanitize strips scripts and handlers from stored HTML before it reaches
// the browser.
func (h *EmailHandler) sanitize(email *model.Email) *model.Email {
	if email.HTMLBody != "" {
		email.HTMLBody = h.policy.Sanitize(email.HTMLBody)
	}
	return email
}

// GetEmails lists the board, optionally filtered by status, label or
// archived flag
func (h *EmailHandler) GetEmails(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}

	filter := service.EmailFilter{
		Status:  model.EmailStatus(c.QueryParam("status")),
		LabelID: c.QueryParam("label"),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid status",
		})
	}
	if raw := c.QueryParam("archived"); raw != "" {
		archived, err := strconv.ParseBool(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{
				"error": "Invalid archived flag",
			})
		}
		filter.Archived = &archived
	}

	emails, err := h.emailService.ListEmails(c.Request().Context(), user.ID, filter)
	if err != nil {
		return serviceError(c, err, "Failed to get emails")
	}
	for _, email := range emails {
		h.sanitize(email)
	}
	return c.JSON(http.StatusOK, emails)
}

func (h *EmailHandler) GetEmail(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}

	email, err := h.emailService.GetEmail(c.Request().Context(), user.ID, c.Param("id"))
	if err != nil {
		return serviceError(c, err, "Failed to get email")
	}
	return c.JSON(http.StatusOK, h.sanitize(email))
}

// UpdateEmail moves a card between columns, archives it or replaces its labels
func (h *EmailHandler) UpdateEmail(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}

	var req service.EmailUpdate
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid request body",
		})
	}

	email, err := h.emailService.UpdateEmail(c.Request().Context(), user.ID, c.Param("id"), req)
	if err != nil {
		return serviceError(c, err, "Failed to update email")
	}
	return c.JSON(http.StatusOK, h.sanitize(email))
}

// BoardEvents provides Server-Sent Events for real-time board updates
func (h *EmailHandler) BoardEvents(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}

	// Set response headers for SSE
	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().WriteHeader(http.StatusOK)

	clientChannel := h.sseManager.AddClient(user.ID)
	defer h.sseManager.RemoveClient(user.ID, clientChannel)

	// Send initial connection confirmation
	initJSON, _ := json.Marshal(sse.Event{
		Type: "connection",
		Data: map[string]string{"userId": user.ID},
		Time: time.Now().Unix(),
	})
	fmt.Fprintf(c.Response(), "data: %s\n\n", initJSON)
	c.Response().Flush()

	for {
		select {
		case eventData, open := <-clientChannel:
			if !open {
				return nil
			}
			fmt.Fprintf(c.Response(), "data: %s\n\n", eventData)
			c.Response().Flush()
		case <-c.Request().Context().Done():
			// Client disconnected
			return nil
		}
	}
}
