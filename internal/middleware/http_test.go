package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"rollout/internal/service"

	"github.com/gin-gonic/gin"
)

func TestHttpMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(HttpMiddleware())
	r.GET("/test", func(c *gin.Context) {
		c.Status(200)
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/test", nil)
	r.ServeHTTP(w, req)

	if w.Code != 200 {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestTraceMiddleware_PropagatesInboundID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(TraceMiddleware())
	r.GET("/test", func(c *gin.Context) {
		if traceID := service.TraceID(c.Request.Context()); traceID != "abc-123" {
			t.Errorf("request context trace id: got %q", traceID)
		}
		c.Status(200)
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/test", nil)
	req.Header.Set("X-Trace-ID", "abc-123")
	r.ServeHTTP(w, req)

	if got := w.Header().Get("X-Trace-ID"); got != "abc-123" {
		t.Errorf("response trace header: got %q", got)
	}
}

func TestTraceMiddleware_MintsID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(TraceMiddleware())
	r.GET("/test", func(c *gin.Context) { c.Status(200) })

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/test", nil)
	r.ServeHTTP(w, req)

	if w.Header().Get("X-Trace-ID") == "" {
		t.Error("expected a generated trace id")
	}
}
