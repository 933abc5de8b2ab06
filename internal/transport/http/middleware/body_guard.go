package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const defaultMaxJSONBytes = 1 << 20

// JSONBodyGuard rejects JSON requests whose body is not well-formed JSON
// before any handler runs. Bodies larger than maxBytes are rejected with 413.
func JSONBodyGuard(maxBytes int64) gin.HandlerFunc {
	if maxBytes <= 0 {
		maxBytes = defaultMaxJSONBytes
	}

	return func(c *gin.Context) {
		if c.Request.Body == nil || !isJSONRequest(c.Request) {
			c.Next()
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				abortWithMessage(c, http.StatusRequestEntityTooLarge, "payload too large")
				return
			}
			abortWithMessage(c, http.StatusBadRequest, "invalid payload")
			return
		}

		if len(bytes.TrimSpace(body)) > 0 && !json.Valid(body) {
			abortWithMessage(c, http.StatusBadRequest, "invalid payload")
			return
		}

		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		c.Next()
	}
}

func isJSONRequest(r *http.Request) bool {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
	default:
		return false
	}
	return strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), "application/json")
}
