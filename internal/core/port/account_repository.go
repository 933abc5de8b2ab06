package port

import (
	"context"
	"time"

	"github.com/DrynaaCode/vegedex-v2-tsc/internal/core/domain"
)

// AccountFilter narrows administrative account listings.
type AccountFilter struct {
	Role     *domain.Role
	IsActive *bool
	Offset   int
	Limit    int
}

// AccountRepository is the credential store.
// Reads that return domain.Account never expose secret columns.
type AccountRepository interface {
	Create(ctx context.Context, account domain.Account, passwordHash string) error
	ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error)
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetActiveByEmail(ctx context.Context, email string) (*domain.Account, error)
	GetCredentialsByEmail(ctx context.Context, email string) (*domain.AccountCredentials, error)
	GetActiveByRefreshToken(ctx context.Context, tokenHash string) (*domain.Account, error)
	SetRefreshToken(ctx context.Context, id, tokenHash string, at time.Time) error
	ClearRefreshToken(ctx context.Context, tokenHash string, at time.Time) (bool, error)
	SetResetToken(ctx context.Context, id, tokenHash string, expiresAt, at time.Time) error
	ConsumeResetToken(ctx context.Context, tokenHash, passwordHash string, at time.Time) (*domain.Account, error)
	UpdateProfile(ctx context.Context, id string, update domain.ProfileUpdate, at time.Time) (*domain.Account, error)
	MergeSettings(ctx context.Context, id string, settings domain.Settings, at time.Time) (domain.Settings, error)
	SetActive(ctx context.Context, id string, active bool, at time.Time) error
	SetRole(ctx context.Context, id string, role domain.Role, at time.Time) error
	List(ctx context.Context, filter AccountFilter) ([]domain.Account, int, error)
}
