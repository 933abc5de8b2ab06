package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/DrynaaCode/vegedex-v2-tsc/internal/core/domain"
	"github.com/DrynaaCode/vegedex-v2-tsc/internal/core/port"
	"github.com/DrynaaCode/vegedex-v2-tsc/internal/infra/logger"
	"github.com/DrynaaCode/vegedex-v2-tsc/internal/infra/security"
	"github.com/DrynaaCode/vegedex-v2-tsc/internal/repository"
)

const resetTokenBytes = 32

// PasswordResetOptions tunes the reset flow.
type PasswordResetOptions struct {
	TokenTTL time.Duration
	// UnknownAccountDelay is waited out when no active account matches, so
	// the response time does not reveal whether the email is registered.
	UnknownAccountDelay time.Duration
}

// PasswordResetService implements forgot-password and reset-password.
type PasswordResetService struct {
	accounts port.AccountRepository
	hasher   port.PasswordHasher
	audit    port.AuditSink
	logger   *zap.Logger
	opts     PasswordResetOptions

	now           func() time.Time
	sleep         func(ctx context.Context, d time.Duration) error
	generateToken func() (string, error)
}

// NewPasswordResetService wires the reset flow.
func NewPasswordResetService(accounts port.AccountRepository, hasher port.PasswordHasher, audit port.AuditSink, opts PasswordResetOptions, log *zap.Logger) *PasswordResetService {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = time.Hour
	}
	return &PasswordResetService{
		accounts: accounts,
		hasher:   hasher,
		audit:    audit,
		logger:   log,
		opts:     opts,
		now:      time.Now,
		sleep:    sleepContext,
		generateToken: func() (string, error) {
			return security.GenerateHexToken(resetTokenBytes)
		},
	}
}

// WithClock overrides the time source.
func (s *PasswordResetService) WithClock(clock func() time.Time) *PasswordResetService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// WithSleeper overrides how the unknown-account delay is waited out.
func (s *PasswordResetService) WithSleeper(sleep func(ctx context.Context, d time.Duration) error) *PasswordResetService {
	if sleep != nil {
		s.sleep = sleep
	}
	return s
}

// RequestResetInput is the payload of a forgot-password request.
type RequestResetInput struct {
	Email string `json:"email"`
	IP    string `json:"-"`
}

// ResetRequestResult holds the raw reset token. Token is empty when no
// active account matched; callers must answer identically either way.
type ResetRequestResult struct {
	Token     string
	ExpiresAt time.Time
}

// RequestReset issues a single-use reset token for an active account. Only
// its hash is stored.
func (s *PasswordResetService) RequestReset(ctx context.Context, input RequestResetInput) (*ResetRequestResult, error) {
	email := domain.NormalizeEmail(input.Email)

	var account *domain.Account
	if email != "" {
		found, err := s.accounts.GetActiveByEmail(ctx, email)
		switch {
		case err == nil:
			account = found
		case errors.Is(err, repository.ErrNotFound):
		default:
			return nil, fmt.Errorf("lookup account: %w", err)
		}
	}

	if account == nil {
		s.logger.Info("password reset requested for unknown account",
			zap.String("email", logger.MaskEmail(email)),
			zap.String("ip", logger.MaskIP(input.IP)),
		)
		if err := s.sleep(ctx, s.opts.UnknownAccountDelay); err != nil {
			return nil, err
		}
		return &ResetRequestResult{}, nil
	}

	token, err := s.generateToken()
	if err != nil {
		return nil, fmt.Errorf("generate reset token: %w", err)
	}

	now := s.now().UTC()
	expiresAt := now.Add(s.opts.TokenTTL)
	if err := s.accounts.SetResetToken(ctx, account.ID, security.HashToken(token), expiresAt, now); err != nil {
		return nil, fmt.Errorf("store reset token: %w", err)
	}

	recordAudit(ctx, s.audit, s.logger, userEntry(domain.AuditForgotPasswordRequested, account.ID, account.ID, map[string]any{
		"ip": input.IP,
	}))

	return &ResetRequestResult{Token: token, ExpiresAt: expiresAt}, nil
}

// ResetPasswordInput is the payload of a reset-password request.
type ResetPasswordInput struct {
	Token       string `json:"token" validate:"required,max=256"`
	NewPassword string `json:"newPassword" validate:"required,min=8,max=128"`
	IP          string `json:"-"`
}

// ResetPassword consumes the token and sets the new password in one atomic
// write. The refresh token is dropped with it.
func (s *PasswordResetService) ResetPassword(ctx context.Context, input ResetPasswordInput) error {
	if err := validateStruct(input, ""); err != nil {
		return err
	}

	passwordHash, err := s.hasher.Hash(input.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	account, err := s.accounts.ConsumeResetToken(ctx, security.HashToken(input.Token), passwordHash, s.now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidOrExpiredResetToken
		}
		return fmt.Errorf("consume reset token: %w", err)
	}

	recordAudit(ctx, s.audit, s.logger, userEntry(domain.AuditPasswordResetSuccess, account.ID, account.ID, map[string]any{
		"ip": input.IP,
	}))

	s.logger.Info("password reset completed", zap.String("account_id", account.ID))
	return nil
}
