package handler

import (
	"net/http"

	"mailtriage/internal/service"

	"github.com/labstack/echo/v4"
)

type ImportHandler struct {
	importer service.MailImporter
	logger   echo.Logger
}

func NewImportHandler(importer service.MailImporter, logger echo.Logger) *ImportHandler {
	return &ImportHandler{
		importer: importer,
		logger:   logger,
	}
}

// ImportGmail pulls the signed-in user's recent inbox into the board
func (h *ImportHandler) ImportGmail(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}

	result, err := h.importer.Import(c.Request().Context(), user)
	if err != nil {
		return serviceError(c, err, "Failed to import mail")
	}
	return c.JSON(http.StatusOK, result)
}
