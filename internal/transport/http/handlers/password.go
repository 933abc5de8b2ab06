package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/DrynaaCode/vegedex-v2-tsc/internal/usecase"
)

const forgotPasswordMessage = "if an account exists for this email, a reset link has been sent"

// PasswordResetService issues and consumes reset tokens.
type PasswordResetService interface {
	RequestReset(ctx context.Context, input usecase.RequestResetInput) (*usecase.ResetRequestResult, error)
	ResetPassword(ctx context.Context, input usecase.ResetPasswordInput) error
}

var passwordErrorCases = []ErrorCase{
	{Err: usecase.ErrInvalidOrExpiredResetToken, Status: http.StatusBadRequest, Message: "invalid or expired link"},
}

// PasswordHandler exposes the forgot/reset password flow.
type PasswordHandler struct {
	reset       PasswordResetService
	exposeToken bool
	logger      *zap.Logger
}

// NewPasswordHandler constructs PasswordHandler. exposeToken returns the raw
// reset token in the response body and must only be set in the test environment.
func NewPasswordHandler(reset PasswordResetService, exposeToken bool, log *zap.Logger) *PasswordHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &PasswordHandler{reset: reset, exposeToken: exposeToken, logger: log}
}

// ForgotPassword godoc
// @Summary Request a password reset
// @Description Answers the same message whether or not the email belongs to an account.
// @Tags Password
// @Accept json
// @Produce json
// @Param request body ForgotPasswordRequest true "Account email"
// @Success 200 {object} ForgotPasswordResponse
// @Failure 429 {object} middleware.ProblemDetails
// @Failure 500 {object} ErrorResponse
// @Router /api/auth/forgot-password [post]
func (h *PasswordHandler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	_ = c.ShouldBindJSON(&req)

	result, err := h.reset.RequestReset(c.Request.Context(), usecase.RequestResetInput{
		Email: req.Email,
		IP:    c.ClientIP(),
	})
	if err != nil {
		RespondWithMappedError(c, h.logger, err, nil)
		return
	}

	resp := ForgotPasswordResponse{Message: forgotPasswordMessage}
	if h.exposeToken {
		resp.ResetToken = result.Token
	}
	c.JSON(http.StatusOK, resp)
}

// ResetPassword godoc
// @Summary Reset a password
// @Description Consumes a single-use reset token and sets the new password.
// @Tags Password
// @Accept json
// @Produce json
// @Param request body ResetPasswordRequest true "Reset payload"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 429 {object} middleware.ProblemDetails
// @Failure 500 {object} ErrorResponse
// @Router /api/auth/reset-password [post]
func (h *PasswordHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidPayload(c)
		return
	}

	err := h.reset.ResetPassword(c.Request.Context(), usecase.ResetPasswordInput{
		Token:       req.Token,
		NewPassword: req.NewPassword,
		IP:          c.ClientIP(),
	})
	if err != nil {
		RespondWithMappedError(c, h.logger, err, passwordErrorCases)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "your password has been reset"})
}
