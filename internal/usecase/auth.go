package usecase

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DrynaaCode/vegedex-v2-tsc/internal/core/domain"
	"github.com/DrynaaCode/vegedex-v2-tsc/internal/core/port"
	"github.com/DrynaaCode/vegedex-v2-tsc/internal/infra/logger"
	"github.com/DrynaaCode/vegedex-v2-tsc/internal/infra/security"
	"github.com/DrynaaCode/vegedex-v2-tsc/internal/repository"
)

const (
	loginReasonInvalidPayload = "invalid_payload"
	loginReasonUserNotFound   = "user_not_found"
	loginReasonWrongPassword  = "wrong_password"
	loginOutcomeSuccess       = "success"
)

// LoginMetrics counts login outcomes.
type LoginMetrics interface {
	ObserveLogin(outcome string)
}

// AuthOptions tunes timing equalisation for failed logins.
type AuthOptions struct {
	LoginFailureMinDelay time.Duration
	LoginFailureMaxDelay time.Duration
}

// AuthService implements registration, login, logout and access token refresh.
type AuthService struct {
	accounts port.AccountRepository
	hasher   port.PasswordHasher
	tokens   port.TokenIssuer
	strength port.PasswordStrengthChecker
	audit    port.AuditSink
	logger   *zap.Logger
	metrics  LoginMetrics
	opts     AuthOptions

	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func(n int64) int64
}

// NewAuthService wires the authentication flows. strength may be nil.
func NewAuthService(
	accounts port.AccountRepository,
	hasher port.PasswordHasher,
	tokens port.TokenIssuer,
	strength port.PasswordStrengthChecker,
	audit port.AuditSink,
	opts AuthOptions,
	log *zap.Logger,
) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.LoginFailureMaxDelay < opts.LoginFailureMinDelay {
		opts.LoginFailureMaxDelay = opts.LoginFailureMinDelay
	}
	return &AuthService{
		accounts: accounts,
		hasher:   hasher,
		tokens:   tokens,
		strength: strength,
		audit:    audit,
		logger:   log,
		opts:     opts,
		now:      time.Now,
		sleep:    sleepContext,
		jitter:   rand.Int63n,
	}
}

// WithClock overrides the time source.
func (s *AuthService) WithClock(clock func() time.Time) *AuthService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// WithSleeper overrides how failure delays are waited out.
func (s *AuthService) WithSleeper(sleep func(ctx context.Context, d time.Duration) error) *AuthService {
	if sleep != nil {
		s.sleep = sleep
	}
	return s
}

// WithMetrics attaches login counters.
func (s *AuthService) WithMetrics(metrics LoginMetrics) *AuthService {
	s.metrics = metrics
	return s
}

// RegisterInput is the payload of a sign-up request.
type RegisterInput struct {
	Username string `json:"username" validate:"required,alphanum,min=3,max=32"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=128"`
	IP       string `json:"-"`
}

// Register creates a standard account.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.Account, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = domain.NormalizeEmail(input.Email)

	if err := validateStruct(input, ""); err != nil {
		return nil, err
	}
	if s.strength != nil {
		if err := s.strength.Check(input.Password, input.Username, input.Email); err != nil {
			var perr *security.PasswordValidationError
			if errors.As(err, &perr) {
				return nil, invalidField("password", perr.Message)
			}
			return nil, fmt.Errorf("check password strength: %w", err)
		}
	}

	taken, err := s.accounts.ExistsByEmailOrUsername(ctx, input.Email, input.Username)
	if err != nil {
		return nil, fmt.Errorf("check existing account: %w", err)
	}
	if taken {
		return nil, ErrAccountConflict
	}

	passwordHash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	account := domain.Account{
		ID:        uuid.NewString(),
		Username:  input.Username,
		Email:     input.Email,
		Role:      domain.RoleStandard,
		IsActive:  true,
		Settings:  domain.Settings{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.accounts.Create(ctx, account, passwordHash); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrAccountConflict
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	recordAudit(ctx, s.audit, s.logger, userEntry(domain.AuditRegister, account.ID, account.ID, map[string]any{
		"ip": input.IP,
	}))

	s.logger.Info("account registered",
		zap.String("account_id", account.ID),
		zap.String("email", logger.MaskEmail(account.Email)),
	)

	return &account, nil
}

// LoginInput is the payload of a sign-in request.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,max=128"`
	IP       string `json:"-"`
}

// LoginResult carries the issued credentials and the public account view.
type LoginResult struct {
	Account         domain.Account
	AccessToken     string
	AccessExpiresAt time.Time
	RefreshToken    string
}

// Login verifies credentials and issues an access and a refresh token. Every
// failure returns ErrInvalidCredentials after a random delay.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	input.Email = domain.NormalizeEmail(input.Email)

	if err := validateStruct(input, ""); err != nil {
		return nil, s.failLogin(ctx, input, "", loginReasonInvalidPayload)
	}

	creds, err := s.accounts.GetCredentialsByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, s.failLogin(ctx, input, "", loginReasonUserNotFound)
		}
		return nil, fmt.Errorf("lookup credentials: %w", err)
	}

	ok, err := s.hasher.Verify(input.Password, creds.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, s.failLogin(ctx, input, creds.ID, loginReasonWrongPassword)
	}

	access, expiresAt, err := s.tokens.IssueAccess(creds.ID, string(creds.Role))
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.tokens.IssueRefresh()
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}
	if err := s.accounts.SetRefreshToken(ctx, creds.ID, security.HashToken(refresh), s.now().UTC()); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	recordAudit(ctx, s.audit, s.logger, userEntry(domain.AuditLoginSuccess, creds.ID, creds.ID, map[string]any{
		"ip": input.IP,
	}))
	s.observe(loginOutcomeSuccess)

	return &LoginResult{
		Account:         creds.Account,
		AccessToken:     access,
		AccessExpiresAt: expiresAt,
		RefreshToken:    refresh,
	}, nil
}

func (s *AuthService) failLogin(ctx context.Context, input LoginInput, accountID, reason string) error {
	recordAudit(ctx, s.audit, s.logger, userEntry(domain.AuditLoginFailed, "", accountID, map[string]any{
		"email":  input.Email,
		"reason": reason,
		"ip":     input.IP,
	}))
	s.observe(reason)

	s.logger.Info("login failed",
		zap.String("reason", reason),
		zap.String("email", logger.MaskEmail(input.Email)),
		zap.String("ip", logger.MaskIP(input.IP)),
	)

	if err := s.sleep(ctx, s.failureDelay()); err != nil {
		return err
	}
	return ErrInvalidCredentials
}

// failureDelay picks a uniform delay in [min, max).
func (s *AuthService) failureDelay() time.Duration {
	lo, hi := s.opts.LoginFailureMinDelay, s.opts.LoginFailureMaxDelay
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(s.jitter(int64(hi-lo)))
}

func (s *AuthService) observe(outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveLogin(outcome)
	}
}

// Logout drops the refresh token if it is still bound to an account. An
// unknown token is not an error.
func (s *AuthService) Logout(ctx context.Context, refreshToken, ip string) error {
	if refreshToken == "" {
		return nil
	}

	hash := security.HashToken(refreshToken)
	account, err := s.accounts.GetActiveByRefreshToken(ctx, hash)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.logger.Warn("logout lookup failed", zap.Error(err))
	}

	cleared, err := s.accounts.ClearRefreshToken(ctx, hash, s.now().UTC())
	if err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}

	if cleared && account != nil {
		recordAudit(ctx, s.audit, s.logger, userEntry(domain.AuditLogout, account.ID, account.ID, map[string]any{
			"ip": ip,
		}))
	}
	return nil
}

// RefreshResult carries a freshly issued access token.
type RefreshResult struct {
	AccessToken string
	ExpiresAt   time.Time
}

// Refresh issues a new access token for the active account holding refreshToken.
// The refresh token itself is not rotated.
func (s *AuthService) Refresh(ctx context.Context, refreshToken, ip string) (*RefreshResult, error) {
	if refreshToken == "" {
		return nil, ErrRefreshTokenMissing
	}

	account, err := s.accounts.GetActiveByRefreshToken(ctx, security.HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRefreshTokenInvalid
		}
		return nil, fmt.Errorf("lookup refresh token: %w", err)
	}

	access, expiresAt, err := s.tokens.IssueAccess(account.ID, string(account.Role))
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	recordAudit(ctx, s.audit, s.logger, userEntry(domain.AuditRefreshToken, account.ID, account.ID, map[string]any{
		"ip": ip,
	}))

	return &RefreshResult{AccessToken: access, ExpiresAt: expiresAt}, nil
}
