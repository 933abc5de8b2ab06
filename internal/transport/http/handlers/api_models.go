package handlers

import (
	"time"

	"github.com/DrynaaCode/vegedex-v2-tsc/internal/core/domain"
	"github.com/DrynaaCode/vegedex-v2-tsc/internal/usecase"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Message string              `json:"message"`
	Details []FieldErrorPayload `json:"details,omitempty"`
}

// FieldErrorPayload names one rejected input field.
type FieldErrorPayload struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// MessageResponse is a bare confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}

// RegisterRequest is the sign-up payload.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the sign-in payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserSummary is the public view returned at login.
type UserSummary struct {
	Username       string `json:"username"`
	Email          string `json:"email"`
	Role           string `json:"role"`
	ProfilePicture string `json:"profilePicture"`
	Bio            string `json:"bio"`
}

// LoginResponse is returned by a successful login. Tokens travel in cookies only.
type LoginResponse struct {
	Message string      `json:"message"`
	User    UserSummary `json:"user"`
}

// ForgotPasswordRequest asks for a reset link.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPasswordResponse is identical for known and unknown emails. ResetToken
// is only filled in the test environment.
type ForgotPasswordResponse struct {
	Message    string `json:"message"`
	ResetToken string `json:"resetToken,omitempty"`
}

// ResetPasswordRequest consumes a reset token.
type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// ProfileResponse is the signed-in account's own view.
type ProfileResponse struct {
	ID             string          `json:"id"`
	Username       string          `json:"username"`
	Email          string          `json:"email"`
	Role           string          `json:"role"`
	ProfilePicture string          `json:"profilePicture"`
	Bio            string          `json:"bio"`
	IsActive       bool            `json:"isActive"`
	Settings       domain.Settings `json:"settings"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// UpdateProfileRequest carries the fields to change; absent fields are kept.
type UpdateProfileRequest struct {
	Username       *string `json:"username"`
	Email          *string `json:"email"`
	ProfilePicture *string `json:"profilePicture"`
	Bio            *string `json:"bio"`
}

// SettingsRequest merges keys into the stored preferences.
type SettingsRequest struct {
	Settings domain.Settings `json:"settings"`
}

// SettingsResponse returns the merged preferences.
type SettingsResponse struct {
	Message  string          `json:"message"`
	Settings domain.Settings `json:"settings"`
}

// PaginationPayload describes one page of a listing.
type PaginationPayload struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

// UserListResponse is one page of accounts.
type UserListResponse struct {
	Users      []ProfileResponse `json:"users"`
	Pagination PaginationPayload `json:"pagination"`
}

// ModerationResponse confirms a moderation action.
type ModerationResponse struct {
	Message string          `json:"message"`
	User    ProfileResponse `json:"user"`
}

// ChangeRoleRequest assigns a role.
type ChangeRoleRequest struct {
	Role string `json:"role"`
}

// PlantPayload is a catalog record on the wire.
type PlantPayload struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	LatinName   string    `json:"latinName"`
	Description string    `json:"description"`
	Images      []string  `json:"images"`
	Family      string    `json:"family"`
	EdibleParts []string  `json:"edibleParts"`
	Toxic       bool      `json:"toxic"`
	Habitats    []string  `json:"habitats"`
	Seasons     []string  `json:"seasons"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// PlantListResponse is one page of the catalog.
type PlantListResponse struct {
	Plants     []PlantPayload    `json:"plants"`
	Pagination PaginationPayload `json:"pagination"`
	Notice     string            `json:"notice,omitempty"`
}

// BulkPlantResponse lists the created plants.
type BulkPlantResponse struct {
	Message string         `json:"message"`
	Count   int            `json:"count"`
	Plants  []PlantPayload `json:"plants"`
}

// HealthResponse is the liveness payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"startedAt"`
}

// ReadinessResponse reports each dependency.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func newUserSummary(account domain.Account) UserSummary {
	return UserSummary{
		Username:       account.Username,
		Email:          account.Email,
		Role:           string(account.Role),
		ProfilePicture: account.ProfilePicture,
		Bio:            account.Bio,
	}
}

func newProfileResponse(account domain.Account) ProfileResponse {
	settings := account.Settings
	if settings == nil {
		settings = domain.Settings{}
	}
	return ProfileResponse{
		ID:             account.ID,
		Username:       account.Username,
		Email:          account.Email,
		Role:           string(account.Role),
		ProfilePicture: account.ProfilePicture,
		Bio:            account.Bio,
		IsActive:       account.IsActive,
		Settings:       settings,
		CreatedAt:      account.CreatedAt,
		UpdatedAt:      account.UpdatedAt,
	}
}

func newPaginationPayload(p usecase.Pagination) PaginationPayload {
	return PaginationPayload{Total: p.Total, Page: p.Page, Limit: p.Limit, Pages: p.Pages}
}

func newPlantPayload(plant domain.Plant) PlantPayload {
	return PlantPayload{
		ID:          plant.ID,
		Name:        plant.Name,
		LatinName:   plant.LatinName,
		Description: plant.Description,
		Images:      nonNil(plant.Images),
		Family:      plant.Family,
		EdibleParts: nonNil(plant.EdibleParts),
		Toxic:       plant.Toxic,
		Habitats:    nonNil(plant.Habitats),
		Seasons:     nonNil(plant.Seasons),
		CreatedAt:   plant.CreatedAt,
		UpdatedAt:   plant.UpdatedAt,
	}
}

func newPlantPayloads(plants []domain.Plant) []PlantPayload {
	out := make([]PlantPayload, 0, len(plants))
	for _, p := range plants {
		out = append(out, newPlantPayload(p))
	}
	return out
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
