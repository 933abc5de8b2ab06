package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/DrynaaCode/vegedex-v2-tsc/internal/core/domain"
	"github.com/DrynaaCode/vegedex-v2-tsc/internal/transport/http/middleware"
	"github.com/DrynaaCode/vegedex-v2-tsc/internal/usecase"
)

// AuthService is the credential lifecycle used by AuthHandler.
type AuthService interface {
	Register(ctx context.Context, input usecase.RegisterInput) (*domain.Account, error)
	Login(ctx context.Context, input usecase.LoginInput) (*usecase.LoginResult, error)
	Logout(ctx context.Context, refreshToken, ip string) error
	Refresh(ctx context.Context, refreshToken, ip string) (*usecase.RefreshResult, error)
}

var authErrorCases = []ErrorCase{
	{Err: usecase.ErrAccountConflict, Status: http.StatusConflict, Message: "username or email already in use"},
	{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "incorrect credentials"},
	{Err: usecase.ErrRefreshTokenMissing, Status: http.StatusUnauthorized, Message: "refresh token missing"},
	{Err: usecase.ErrRefreshTokenInvalid, Status: http.StatusForbidden, Message: "invalid refresh token"},
}

// AuthHandler exposes sign-up, sign-in and session endpoints.
type AuthHandler struct {
	auth    AuthService
	cookies CookiePolicy
	logger  *zap.Logger
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(auth AuthService, cookies CookiePolicy, log *zap.Logger) *AuthHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthHandler{auth: auth, cookies: cookies, logger: log}
}

// Register godoc
// @Summary Register a new account
// @Description Creates a standard account. Username and email must be unused.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration payload"
// @Success 201 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 429 {object} middleware.ProblemDetails
// @Failure 500 {object} ErrorResponse
// @Router /api/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidPayload(c)
		return
	}

	_, err := h.auth.Register(c.Request.Context(), usecase.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		IP:       c.ClientIP(),
	})
	if err != nil {
		RespondWithMappedError(c, h.logger, err, authErrorCases)
		return
	}

	c.JSON(http.StatusCreated, MessageResponse{Message: "registration successful"})
}

// Login godoc
// @Summary Sign in
// @Description Verifies credentials and sets the token and refreshToken cookies. Every failure answers the same 401.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login payload"
// @Success 200 {object} LoginResponse
// @Failure 401 {object} ErrorResponse
// @Failure 429 {object} middleware.ProblemDetails
// @Failure 500 {object} ErrorResponse
// @Router /api/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	// Syntax errors stop at the body guard. A body of the wrong shape leaves the
	// credentials empty or partial and fails the login.
	_ = c.ShouldBindJSON(&req)

	result, err := h.auth.Login(c.Request.Context(), usecase.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		IP:       c.ClientIP(),
	})
	if err != nil {
		RespondWithMappedError(c, h.logger, err, authErrorCases)
		return
	}

	h.cookies.setAccess(c, result.AccessToken)
	h.cookies.setRefresh(c, result.RefreshToken)
	c.JSON(http.StatusOK, LoginResponse{
		Message: "login successful",
		User:    newUserSummary(result.Account),
	})
}

// Logout godoc
// @Summary Sign out
// @Description Drops the refresh token if still bound and clears both cookies. Always succeeds.
// @Tags Authentication
// @Produce json
// @Success 200 {object} MessageResponse
// @Router /api/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	refresh, _ := c.Cookie(middleware.RefreshCookieName)
	if err := h.auth.Logout(c.Request.Context(), refresh, c.ClientIP()); err != nil {
		h.logger.Warn("logout cleanup failed",
			zap.String("trace_id", middleware.GetTraceID(c)),
			zap.Error(err),
		)
	}

	h.cookies.clear(c)
	c.JSON(http.StatusOK, MessageResponse{Message: "logout successful"})
}

// Refresh godoc
// @Summary Refresh the access token
// @Description Issues a new token cookie for the active account holding the refreshToken cookie.
// @Tags Authentication
// @Produce json
// @Success 200 {object} MessageResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/auth/refresh-token [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	refresh, _ := c.Cookie(middleware.RefreshCookieName)

	result, err := h.auth.Refresh(c.Request.Context(), refresh, c.ClientIP())
	if err != nil {
		RespondWithMappedError(c, h.logger, err, authErrorCases)
		return
	}

	h.cookies.setAccess(c, result.AccessToken)
	c.JSON(http.StatusOK, MessageResponse{Message: "token refreshed"})
}
