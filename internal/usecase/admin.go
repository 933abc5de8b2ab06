package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DrynaaCode/vegedex-v2-tsc/internal/core/domain"
	"github.com/DrynaaCode/vegedex-v2-tsc/internal/core/port"
	"github.com/DrynaaCode/vegedex-v2-tsc/internal/repository"
)

const (
	defaultUserPageLimit = 20
	maxUserPageLimit     = 100
)

// Actor identifies the account performing a moderation action.
type Actor struct {
	ID   string
	Role domain.Role
	IP   string
}

// AdminService implements account moderation.
type AdminService struct {
	accounts port.AccountRepository
	audit    port.AuditSink
	logger   *zap.Logger
	now      func() time.Time
}

// NewAdminService constructs an AdminService.
func NewAdminService(accounts port.AccountRepository, audit port.AuditSink, log *zap.Logger) *AdminService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AdminService{accounts: accounts, audit: audit, logger: log, now: time.Now}
}

// WithClock overrides the time source.
func (s *AdminService) WithClock(clock func() time.Time) *AdminService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// ListUsersInput filters and paginates the account listing.
type ListUsersInput struct {
	Page     int    `json:"page" validate:"gte=1"`
	Limit    int    `json:"limit" validate:"gte=1,lte=100"`
	Role     string `json:"role" validate:"omitempty,oneof=user moderator admin"`
	IsActive *bool  `json:"isActive"`
}

// Pagination describes one page of a listing.
type Pagination struct {
	Total int
	Page  int
	Limit int
	Pages int
}

// UserPage is one page of accounts.
type UserPage struct {
	Users      []domain.Account
	Pagination Pagination
}

// ListUsers returns accounts newest first.
func (s *AdminService) ListUsers(ctx context.Context, input ListUsersInput) (*UserPage, error) {
	if err := validateStruct(input, ""); err != nil {
		return nil, err
	}

	filter := port.AccountFilter{
		IsActive: input.IsActive,
		Offset:   (input.Page - 1) * input.Limit,
		Limit:    input.Limit,
	}
	if input.Role != "" {
		role := domain.Role(input.Role)
		filter.Role = &role
	}

	accounts, total, err := s.accounts.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	return &UserPage{
		Users: accounts,
		Pagination: Pagination{
			Total: total,
			Page:  input.Page,
			Limit: input.Limit,
			Pages: pageCount(total, input.Limit),
		},
	}, nil
}

// Ban suspends the target account and drops its refresh token. Suspended
// accounts fail every authentication lookup from then on.
func (s *AdminService) Ban(ctx context.Context, actor Actor, targetID string) (*domain.Account, error) {
	target, err := s.loadTarget(ctx, actor, targetID)
	if err != nil {
		return nil, err
	}

	if err := s.accounts.SetActive(ctx, target.ID, false, s.now().UTC()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("suspend account: %w", err)
	}
	target.IsActive = false

	recordAudit(ctx, s.audit, s.logger, userEntry(domain.AuditBanUser, actor.ID, target.ID, map[string]any{
		"bannedUser": target.Email,
		"by":         actor.ID,
		"ip":         actor.IP,
	}))

	s.logger.Info("account banned",
		zap.String("account_id", target.ID),
		zap.String("by", actor.ID),
	)
	return target, nil
}

// Unban reinstates a suspended account.
func (s *AdminService) Unban(ctx context.Context, actor Actor, targetID string) (*domain.Account, error) {
	target, err := s.loadTarget(ctx, actor, targetID)
	if err != nil {
		return nil, err
	}
	if target.IsActive {
		return nil, ErrNotBanned
	}

	if err := s.accounts.SetActive(ctx, target.ID, true, s.now().UTC()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("reinstate account: %w", err)
	}
	target.IsActive = true

	recordAudit(ctx, s.audit, s.logger, userEntry(domain.AuditUnbanUser, actor.ID, target.ID, map[string]any{
		"unbannedUser": target.Email,
		"by":           actor.ID,
		"ip":           actor.IP,
	}))

	s.logger.Info("account unbanned",
		zap.String("account_id", target.ID),
		zap.String("by", actor.ID),
	)
	return target, nil
}

// ChangeRoleInput is the payload of a role change.
type ChangeRoleInput struct {
	Role string `json:"role" validate:"required,oneof=user moderator admin"`
}

// ChangeRole assigns a new role to the target account. The new role is
// effective on the target's next request because the role gate re-reads it.
func (s *AdminService) ChangeRole(ctx context.Context, actor Actor, targetID string, input ChangeRoleInput) (*domain.Account, error) {
	if err := validateStruct(input, ""); err != nil {
		return nil, err
	}
	role := domain.Role(input.Role)

	target, err := s.loadTarget(ctx, actor, targetID)
	if err != nil {
		return nil, err
	}

	previous := target.Role
	if previous != role {
		if err := s.accounts.SetRole(ctx, target.ID, role, s.now().UTC()); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrAccountNotFound
			}
			return nil, fmt.Errorf("set role: %w", err)
		}
		target.Role = role
	}

	recordAudit(ctx, s.audit, s.logger, userEntry(domain.AuditChangeRole, actor.ID, target.ID, map[string]any{
		"from": string(previous),
		"to":   string(role),
		"by":   actor.ID,
		"ip":   actor.IP,
	}))

	return target, nil
}

func (s *AdminService) loadTarget(ctx context.Context, actor Actor, targetID string) (*domain.Account, error) {
	if targetID == actor.ID {
		return nil, ErrSelfModeration
	}
	if _, err := uuid.Parse(targetID); err != nil {
		return nil, ErrAccountNotFound
	}

	target, err := s.accounts.GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}
	return target, nil
}

func pageCount(total, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}
