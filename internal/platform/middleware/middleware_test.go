package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func newTestServer(buf *bytes.Buffer, handler echo.HandlerFunc) *echo.Echo {
	logger := zerolog.New(buf)
	e := echo.New()
	e.Use(RequestID(), Recovery(logger), Logger(logger))
	e.GET("/test", handler)
	return e
}

func TestRecoveryConvertsPanicTo500(t *testing.T) {
	var buf bytes.Buffer
	e := newTestServer(&buf, func(c echo.Context) error {
		panic("kaboom")
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	if !strings.Contains(buf.String(), "kaboom") {
		t.Error("panic value must be logged")
	}
	if !strings.Contains(buf.String(), "handler panicked") {
		t.Error("panic event must be logged")
	}
}

func TestLoggerEmitsRequestFields(t *testing.T) {
	var buf bytes.Buffer
	e := newTestServer(&buf, func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))

	out := buf.String()
	for _, want := range []string{`"method":"GET"`, `"status":200`, `"request_id"`, "request handled"} {
		if !strings.Contains(out, want) {
			t.Errorf("log line missing %s: %s", want, out)
		}
	}
}

func TestRequestIDHonorsIncomingHeader(t *testing.T) {
	var buf bytes.Buffer
	e := newTestServer(&buf, func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(echo.HeaderXRequestID, "upstream-id-42")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if got := rec.Header().Get(echo.HeaderXRequestID); got != "upstream-id-42" {
		t.Errorf("incoming request id must be echoed back, got %q", got)
	}
	if !strings.Contains(buf.String(), "upstream-id-42") {
		t.Error("log line must carry the propagated request id")
	}
}
