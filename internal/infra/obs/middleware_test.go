package obs

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newTestRouter(logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	mw := Middleware{Logger: logger}
	router := gin.New()
	router.Use(mw.RequestID())
	router.Use(mw.LoggerMiddleware())
	router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, RequestIDFromContext(c.Request.Context()))
	})
	return router
}

func TestRequestID(t *testing.T) {
	t.Run("generates an id and exposes it in the response", func(t *testing.T) {
		router := newTestRouter(slog.New(slog.NewTextHandler(io.Discard, nil)))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

		id := rec.Header().Get("X-Request-ID")
		if id == "" {
			t.Fatal("no request id issued")
		}
		if rec.Body.String() != id {
			t.Fatalf("context id %q does not match header %q", rec.Body.String(), id)
		}
	})

	t.Run("keeps a caller-provided id", func(t *testing.T) {
		router := newTestRouter(slog.New(slog.NewTextHandler(io.Discard, nil)))
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("X-Request-ID", "given-id")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if got := rec.Header().Get("X-Request-ID"); got != "given-id" {
			t.Fatalf("request id = %q, want given-id", got)
		}
	})
}

func TestLoggerMiddleware(t *testing.T) {
	t.Run("logs the matched route", func(t *testing.T) {
		var logged bytes.Buffer
		router := newTestRouter(slog.New(slog.NewTextHandler(&logged, nil)))
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))

		if !bytes.Contains(logged.Bytes(), []byte("/ping")) {
			t.Fatalf("log line missing path: %s", logged.String())
		}
		if !bytes.Contains(logged.Bytes(), []byte("status=200")) {
			t.Fatalf("log line missing status: %s", logged.String())
		}
	})

	t.Run("unmatched routes log the raw path", func(t *testing.T) {
		var logged bytes.Buffer
		router := newTestRouter(slog.New(slog.NewTextHandler(&logged, nil)))
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

		if !bytes.Contains(logged.Bytes(), []byte("/nope")) {
			t.Fatalf("404 not attributable: %s", logged.String())
		}
	})
}
