package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func serve(mw echo.MiddlewareFunc, req *http.Request) *httptest.ResponseRecorder {
	e := echo.New()
	e.POST("/api/hook", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}, mw)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestWebhookAuth(t *testing.T) {
	mw := WebhookAuth("postmark", "s3cret")

	req := httptest.NewRequest(http.MethodPost, "/api/hook", nil)
	assert.Equal(t, http.StatusUnauthorized, serve(mw, req).Code)

	req = httptest.NewRequest(http.MethodPost, "/api/hook", nil)
	req.SetBasicAuth("postmark", "wrong")
	assert.Equal(t, http.StatusUnauthorized, serve(mw, req).Code)

	req = httptest.NewRequest(http.MethodPost, "/api/hook", nil)
	req.SetBasicAuth("postmark", "s3cret")
	assert.Equal(t, http.StatusOK, serve(mw, req).Code)
}

func TestWebhookAuthDisabled(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/hook", nil)
	assert.Equal(t, http.StatusOK, serve(WebhookAuth("", ""), req).Code)
}

func TestMetricsMiddlewarePassesThrough(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/hook", nil)
	rec := serve(MetricsMiddleware(), req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
