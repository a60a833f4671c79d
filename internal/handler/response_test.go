package handler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func newTestContext(t *testing.T) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/message", nil)
	return c, w
}

func TestErrorResponseHidesBackendDetail(t *testing.T) {
	c, w := newTestContext(t)

	errorResponse(c, fmt.Errorf("failed to connect database: host=10.0.0.5 password=secret123"))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	body := w.Body.String()
	if strings.Contains(body, "secret123") || strings.Contains(body, "10.0.0.5") {
		t.Errorf("backend detail leaked to client: %s", body)
	}
	if !strings.Contains(body, "internal server error") {
		t.Errorf("expected generic message, got %s", body)
	}
}

func TestErrorResponseNotFound(t *testing.T) {
	c, w := newTestContext(t)

	errorResponse(c, fmt.Errorf("conversation conv-1: %w", gorm.ErrRecordNotFound))

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "record not found") {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}
