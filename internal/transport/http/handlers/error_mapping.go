package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/DrynaaCode/vegedex-v2-tsc/internal/transport/http/middleware"
	"github.com/DrynaaCode/vegedex-v2-tsc/internal/usecase"
)

const serverErrorMessage = "server error"

// ErrorCase maps a sentinel error to a status and message.
type ErrorCase struct {
	Err     error
	Status  int
	Message string
}

// RespondWithMappedError answers err with the first matching case.
// Validation errors always answer 400 with their field details; anything
// unmapped is logged and answered with a generic 500.
func RespondWithMappedError(c *gin.Context, log *zap.Logger, err error, cases []ErrorCase) {
	var verr *usecase.ValidationError
	if errors.As(err, &verr) {
		details := make([]FieldErrorPayload, 0, len(verr.Fields))
		for _, f := range verr.Fields {
			details = append(details, FieldErrorPayload{Field: f.Field, Message: f.Message})
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: usecase.ErrInvalidInput.Error(), Details: details})
		return
	}

	for _, cs := range cases {
		if cs.Err != nil && errors.Is(err, cs.Err) {
			c.JSON(cs.Status, ErrorResponse{Message: cs.Message})
			return
		}
	}

	if log != nil {
		log.Error("request failed",
			zap.String("trace_id", middleware.GetTraceID(c)),
			zap.String("route", c.FullPath()),
			zap.Error(err),
		)
	}
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Message: serverErrorMessage})
}

// respondInvalidPayload answers a body that could not be decoded.
func respondInvalidPayload(c *gin.Context) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid payload"})
}
