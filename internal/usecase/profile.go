package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/DrynaaCode/vegedex-v2-tsc/internal/core/domain"
	"github.com/DrynaaCode/vegedex-v2-tsc/internal/core/port"
	"github.com/DrynaaCode/vegedex-v2-tsc/internal/repository"
)

const maxSettingsKeys = 50

// ProfileService serves the signed-in account's own profile and preferences.
type ProfileService struct {
	accounts port.AccountRepository
	audit    port.AuditSink
	logger   *zap.Logger
	now      func() time.Time
}

// NewProfileService constructs a ProfileService.
func NewProfileService(accounts port.AccountRepository, audit port.AuditSink, log *zap.Logger) *ProfileService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProfileService{accounts: accounts, audit: audit, logger: log, now: time.Now}
}

// WithClock overrides the time source.
func (s *ProfileService) WithClock(clock func() time.Time) *ProfileService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// GetMe returns the account of accountID.
func (s *ProfileService) GetMe(ctx context.Context, accountID string) (*domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}
	return account, nil
}

// UpdateProfileInput carries the optional fields of a profile patch.
type UpdateProfileInput struct {
	Username       *string `json:"username" validate:"omitempty,alphanum,min=3,max=32"`
	Email          *string `json:"email" validate:"omitempty,email,max=254"`
	ProfilePicture *string `json:"profilePicture" validate:"omitempty,url,max=2048"`
	Bio            *string `json:"bio" validate:"omitempty,max=255"`
	IP             string  `json:"-"`
}

// UpdateMe applies a partial profile update. Username and email stay unique.
func (s *ProfileService) UpdateMe(ctx context.Context, accountID string, input UpdateProfileInput) (*domain.Account, error) {
	if input.Username != nil {
		trimmed := strings.TrimSpace(*input.Username)
		input.Username = &trimmed
	}
	if input.Email != nil {
		normalized := domain.NormalizeEmail(*input.Email)
		input.Email = &normalized
	}

	if err := validateStruct(input, ""); err != nil {
		return nil, err
	}
	if input.Username != nil && *input.Username == "" {
		return nil, invalidField("username", "is required")
	}
	if input.Email != nil && *input.Email == "" {
		return nil, invalidField("email", "is required")
	}

	update := domain.ProfileUpdate{
		Username:       input.Username,
		Email:          input.Email,
		ProfilePicture: input.ProfilePicture,
		Bio:            input.Bio,
	}
	if update.Empty() {
		return nil, invalidField("body", "at least one field is required")
	}

	account, err := s.accounts.UpdateProfile(ctx, accountID, update, s.now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrAccountNotFound
		case errors.Is(err, repository.ErrConflict):
			return nil, ErrAccountConflict
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}

	recordAudit(ctx, s.audit, s.logger, userEntry(domain.AuditUpdateProfile, accountID, accountID, map[string]any{
		"fields": changedFields(update),
		"ip":     input.IP,
	}))

	return account, nil
}

func changedFields(update domain.ProfileUpdate) []string {
	fields := make([]string, 0, 4)
	if update.Username != nil {
		fields = append(fields, "username")
	}
	if update.Email != nil {
		fields = append(fields, "email")
	}
	if update.ProfilePicture != nil {
		fields = append(fields, "profilePicture")
	}
	if update.Bio != nil {
		fields = append(fields, "bio")
	}
	return fields
}

// UpdateSettings merges settings into the stored preferences and returns the result.
func (s *ProfileService) UpdateSettings(ctx context.Context, accountID string, settings domain.Settings) (domain.Settings, error) {
	if len(settings) == 0 {
		return nil, invalidField("settings", "must be a non-empty object")
	}
	if len(settings) > maxSettingsKeys {
		return nil, invalidField("settings", fmt.Sprintf("must contain at most %d keys", maxSettingsKeys))
	}

	for key := range settings {
		if strings.TrimSpace(key) == "" {
			return nil, invalidField("settings", "keys must not be blank")
		}
	}

	merged, err := s.accounts.MergeSettings(ctx, accountID, settings, s.now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("merge settings: %w", err)
	}
	return merged, nil
}
