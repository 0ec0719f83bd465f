package middleware

import (
	"rollout/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TraceMiddleware propagates an inbound X-Trace-ID or mints one, and makes it
// visible both to handlers and to the request context the service layer reads.
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader("X-Trace-ID")
		if traceID == "" {
			traceID = uuid.New().String()
		}
		c.Set("TraceID", traceID)
		c.Request = c.Request.WithContext(service.WithTraceID(c.Request.Context(), traceID))
		c.Writer.Header().Set("X-Trace-ID", traceID)
		c.Next()
	}
}
