package handler

import (
	"errors"
	"net/http"

	"mailtriage/internal/service"

	"github.com/labstack/echo/v4"
)

type LabelHandler struct {
	labelService service.LabelService
	logger       echo.Logger
}

func NewLabelHandler(labelService service.LabelService, logger echo.Logger) *LabelHandler {
	return &LabelHandler{
		labelService: labelService,
		logger:       logger,
	}
}

// GetLabels lists the user's labels in creation order
func (h *LabelHandler) GetLabels(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}

	labels, err := h.labelService.ListLabels(c.Request().Context(), user.ID)
	if err != nil {
		return serviceError(c, err, "Failed to get labels")
	}
	return c.JSON(http.StatusOK, labels)
}

// CreateLabel stores a label and applies its rule to existing mail
func (h *LabelHandler) CreateLabel(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}

	var req service.LabelInput
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid request body",
		})
	}

	result, err := h.labelService.CreateLabel(c.Request().Context(), user.ID, req)
	if err != nil {
		return serviceError(c, err, "Failed to create label")
	}
	return c.JSON(http.StatusCreated, result)
}

// UpdateLabel edits a label; a changed rule re-evaluates its assignments
func (h *LabelHandler) UpdateLabel(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}

	var req service.LabelInput
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid request body",
		})
	}

	result, err := h.labelService.UpdateLabel(c.Request().Context(), user.ID, c.Param("id"), req)
	if err != nil {
		return serviceError(c, err, "Failed to update label")
	}
	return c.JSON(http.StatusOK, result)
}

func (h *LabelHandler) DeleteLabel(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}

	if err := h.labelService.DeleteLabel(c.Request().Context(), user.ID, c.Param("id")); err != nil {
		return serviceError(c, err, "Failed to delete label")
	}
	return c.JSON(http.StatusOK, map[string]string{
		"message": "Label deleted",
	})
}

// ValidateRule checks rule text without saving anything
func (h *LabelHandler) ValidateRule(c echo.Context) error {
	var req struct {
		Rule string `json:"rule"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid request body",
		})
	}

	err := h.labelService.ValidateRule(req.Rule)
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"valid": false,
			"error": verr.Details,
		})
	}
	if err != nil {
		return serviceError(c, err, "Failed to validate rule")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"valid": true,
	})
}
