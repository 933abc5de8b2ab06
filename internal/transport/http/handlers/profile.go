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

// ProfileService reads and edits the caller's own account.
type ProfileService interface {
	GetMe(ctx context.Context, accountID string) (*domain.Account, error)
	UpdateMe(ctx context.Context, accountID string, input usecase.UpdateProfileInput) (*domain.Account, error)
	UpdateSettings(ctx context.Context, accountID string, settings domain.Settings) (domain.Settings, error)
}

var profileErrorCases = []ErrorCase{
	{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "user not found"},
	{Err: usecase.ErrAccountConflict, Status: http.StatusConflict, Message: "username or email already in use"},
}

// ProfileHandler exposes /api/user endpoints.
type ProfileHandler struct {
	profiles ProfileService
	logger   *zap.Logger
}

// NewProfileHandler constructs ProfileHandler.
func NewProfileHandler(profiles ProfileService, log *zap.Logger) *ProfileHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProfileHandler{profiles: profiles, logger: log}
}

// Me godoc
// @Summary Current account
// @Tags User
// @Produce json
// @Success 200 {object} ProfileResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/user/me [get]
func (h *ProfileHandler) Me(c *gin.Context) {
	id, ok := h.accountID(c)
	if !ok {
		return
	}

	account, err := h.profiles.GetMe(c.Request.Context(), id)
	if err != nil {
		RespondWithMappedError(c, h.logger, err, profileErrorCases)
		return
	}
	c.JSON(http.StatusOK, newProfileResponse(*account))
}

// UpdateMe godoc
// @Summary Update the current account
// @Description Changes only the supplied fields. Username and email stay unique.
// @Tags User
// @Accept json
// @Produce json
// @Param request body UpdateProfileRequest true "Fields to change"
// @Success 200 {object} ProfileResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/user/me [patch]
func (h *ProfileHandler) UpdateMe(c *gin.Context) {
	id, ok := h.accountID(c)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidPayload(c)
		return
	}

	account, err := h.profiles.UpdateMe(c.Request.Context(), id, usecase.UpdateProfileInput{
		Username:       req.Username,
		Email:          req.Email,
		ProfilePicture: req.ProfilePicture,
		Bio:            req.Bio,
		IP:             c.ClientIP(),
	})
	if err != nil {
		RespondWithMappedError(c, h.logger, err, profileErrorCases)
		return
	}
	c.JSON(http.StatusOK, newProfileResponse(*account))
}

// UpdateSettings godoc
// @Summary Merge preferences
// @Description Shallow-merges the supplied keys into the stored settings.
// @Tags User
// @Accept json
// @Produce json
// @Param request body SettingsRequest true "Settings to merge"
// @Success 200 {object} SettingsResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/user/settings [patch]
func (h *ProfileHandler) UpdateSettings(c *gin.Context) {
	id, ok := h.accountID(c)
	if !ok {
		return
	}

	var req SettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidPayload(c)
		return
	}

	settings, err := h.profiles.UpdateSettings(c.Request.Context(), id, req.Settings)
	if err != nil {
		RespondWithMappedError(c, h.logger, err, profileErrorCases)
		return
	}
	c.JSON(http.StatusOK, SettingsResponse{Message: "settings updated", Settings: settings})
}

// accountID prefers the liveness-checked identity and falls back to the
// token subject on routes that only require authentication.
func (h *ProfileHandler) accountID(c *gin.Context) (string, bool) {
	if identity, ok := middleware.GetEffectiveIdentity(c); ok {
		return identity.AccountID(), true
	}
	if token, ok := middleware.GetTokenIdentity(c); ok {
		return token.SubjectID, true
	}
	c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "not authenticated"})
	return "", false
}
