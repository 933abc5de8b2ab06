package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// TraceIDHeader carries the correlation id of every response.
	TraceIDHeader = "X-Trace-ID"
	// TraceIDKey is the gin context key for the trace id.
	TraceIDKey = "trace_id"

	requestContextKey = "request_context"
)

// RequestContext holds request-scoped metadata.
type RequestContext struct {
	TraceID   string
	AccountID string
	IP        string
	UserAgent string
}

// ErrorResponse is the body of every response aborted by a middleware.
type ErrorResponse struct {
	Message string `json:"message"`
}

func abortWithMessage(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Message: message})
}

// EnrichContext assigns a trace id to each request and echoes it in the
// X-Trace-ID header. An id set by the tracing middleware wins over a new one.
func EnrichContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := GetTraceID(c)
		if traceID == "" {
			traceID = c.GetHeader(TraceIDHeader)
		}
		if traceID == "" {
			traceID = uuid.NewString()
		}

		c.Set(TraceIDKey, traceID)
		c.Header(TraceIDHeader, traceID)

		c.Set(requestContextKey, &RequestContext{
			TraceID:   traceID,
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		})

		c.Next()
	}
}

// GetTraceID returns the trace id of the request, if any.
func GetTraceID(c *gin.Context) string {
	if v, ok := c.Get(TraceIDKey); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// GetRequestContext returns the request metadata. It never returns nil.
func GetRequestContext(c *gin.Context) *RequestContext {
	if v, ok := c.Get(requestContextKey); ok {
		if reqCtx, ok := v.(*RequestContext); ok {
			return reqCtx
		}
	}
	return &RequestContext{IP: c.ClientIP(), UserAgent: c.Request.UserAgent()}
}

// NoRoute answers unknown paths in the API error shape.
func NoRoute() gin.HandlerFunc {
	return func(c *gin.Context) {
		abortWithMessage(c, http.StatusNotFound, "route not found")
	}
}
