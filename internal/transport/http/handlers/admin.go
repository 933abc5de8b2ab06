package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/DrynaaCode/vegedex-v2-tsc/internal/core/domain"
	"github.com/DrynaaCode/vegedex-v2-tsc/internal/transport/http/middleware"
	"github.com/DrynaaCode/vegedex-v2-tsc/internal/usecase"
)

const defaultUserPageLimit = 20

// AdminService moderates accounts.
type AdminService interface {
	ListUsers(ctx context.Context, input usecase.ListUsersInput) (*usecase.UserPage, error)
	Ban(ctx context.Context, actor usecase.Actor, targetID string) (*domain.Account, error)
	Unban(ctx context.Context, actor usecase.Actor, targetID string) (*domain.Account, error)
	ChangeRole(ctx context.Context, actor usecase.Actor, targetID string, input usecase.ChangeRoleInput) (*domain.Account, error)
}

var adminErrorCases = []ErrorCase{
	{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "user not found"},
	{Err: usecase.ErrSelfModeration, Status: http.StatusBadRequest, Message: "cannot perform this action on your own account"},
	{Err: usecase.ErrNotBanned, Status: http.StatusBadRequest, Message: "user is not banned"},
}

// AdminHandler exposes /api/admin endpoints.
type AdminHandler struct {
	admin  AdminService
	logger *zap.Logger
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(admin AdminService, log *zap.Logger) *AdminHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AdminHandler{admin: admin, logger: log}
}

// ListUsers godoc
// @Summary List accounts
// @Description Newest first. Filters by role and active flag.
// @Tags Admin
// @Produce json
// @Param page query int false "Page, from 1"
// @Param limit query int false "Page size, 1 to 100"
// @Param role query string false "user, moderator or admin"
// @Param isActive query bool false "Active flag"
// @Success 200 {object} UserListResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /api/admin/user [get]
func (h *AdminHandler) ListUsers(c *gin.Context) {
	input, err := parseListUsersQuery(c)
	if err != nil {
		RespondWithMappedError(c, h.logger, err, nil)
		return
	}

	page, err := h.admin.ListUsers(c.Request.Context(), input)
	if err != nil {
		RespondWithMappedError(c, h.logger, err, adminErrorCases)
		return
	}

	users := make([]ProfileResponse, 0, len(page.Users))
	for _, account := range page.Users {
		users = append(users, newProfileResponse(account))
	}
	c.JSON(http.StatusOK, UserListResponse{Users: users, Pagination: newPaginationPayload(page.Pagination)})
}

// Ban godoc
// @Summary Ban an account
// @Description Deactivates the account and revokes its refresh token.
// @Tags Admin
// @Produce json
// @Param id path string true "Account id"
// @Success 200 {object} ModerationResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/admin/user/{id}/ban [patch]
func (h *AdminHandler) Ban(c *gin.Context) {
	account, err := h.admin.Ban(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		RespondWithMappedError(c, h.logger, err, adminErrorCases)
		return
	}
	c.JSON(http.StatusOK, ModerationResponse{Message: "user deactivated", User: newProfileResponse(*account)})
}

// Unban godoc
// @Summary Reinstate an account
// @Tags Admin
// @Produce json
// @Param id path string true "Account id"
// @Success 200 {object} ModerationResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/admin/user/{id}/unban [patch]
func (h *AdminHandler) Unban(c *gin.Context) {
	account, err := h.admin.Unban(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		RespondWithMappedError(c, h.logger, err, adminErrorCases)
		return
	}
	c.JSON(http.StatusOK, ModerationResponse{Message: "user reactivated", User: newProfileResponse(*account)})
}

// ChangeRole godoc
// @Summary Change an account's role
// @Description Takes effect on the target's next request.
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Account id"
// @Param request body ChangeRoleRequest true "New role"
// @Success 200 {object} ModerationResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/admin/user/{id}/role [patch]
func (h *AdminHandler) ChangeRole(c *gin.Context) {
	var req ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidPayload(c)
		return
	}

	account, err := h.admin.ChangeRole(c.Request.Context(), actorFrom(c), c.Param("id"), usecase.ChangeRoleInput{Role: req.Role})
	if err != nil {
		RespondWithMappedError(c, h.logger, err, adminErrorCases)
		return
	}
	c.JSON(http.StatusOK, ModerationResponse{Message: "role updated", User: newProfileResponse(*account)})
}

func actorFrom(c *gin.Context) usecase.Actor {
	actor := usecase.Actor{IP: c.ClientIP()}
	if identity, ok := middleware.GetEffectiveIdentity(c); ok {
		actor.ID = identity.AccountID()
		actor.Role = identity.Role()
	}
	return actor
}

func parseListUsersQuery(c *gin.Context) (usecase.ListUsersInput, error) {
	input := usecase.ListUsersInput{
		Page:  1,
		Limit: defaultUserPageLimit,
		Role:  strings.TrimSpace(c.Query("role")),
	}

	var fields []usecase.FieldError
	if raw := c.Query("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			fields = append(fields, usecase.FieldError{Field: "page", Message: "must be a number"})
		}
		input.Page = page
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			fields = append(fields, usecase.FieldError{Field: "limit", Message: "must be a number"})
		}
		input.Limit = limit
	}
	if raw := c.Query("isActive"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			fields = append(fields, usecase.FieldError{Field: "isActive", Message: "must be a boolean"})
		} else {
			input.IsActive = &active
		}
	}

	if len(fields) > 0 {
		return input, &usecase.ValidationError{Fields: fields}
	}
	return input, nil
}
