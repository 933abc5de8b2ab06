package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/DrynaaCode/vegedex-v2-tsc/internal/core/domain"
	"github.com/DrynaaCode/vegedex-v2-tsc/internal/repository"
)

const effectiveIdentityKey = "effective_identity"

// AccountLookup reads the current state of an account.
type AccountLookup interface {
	GetByID(ctx context.Context, id string) (*domain.Account, error)
}

// EffectiveIdentity is the identity of an active account with its current
// role, read from storage on this request. Only the liveness gate builds it.
type EffectiveIdentity struct {
	accountID string
	username  string
	role      domain.Role
}

// AccountID returns the id of the active account.
func (e EffectiveIdentity) AccountID() string { return e.accountID }

// Username returns the current username.
func (e EffectiveIdentity) Username() string { return e.username }

// Role returns the role stored for the account at request time.
func (e EffectiveIdentity) Role() domain.Role { return e.role }

// RequireActive re-reads the authenticated account and rejects it when it is
// missing or suspended.
func RequireActive(accounts AccountLookup, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		token, ok := GetTokenIdentity(c)
		if !ok {
			abortWithMessage(c, http.StatusUnauthorized, "not authenticated")
			return
		}

		identity, err := loadEffective(c.Request.Context(), accounts, token.SubjectID)
		switch {
		case err == nil:
		case errors.Is(err, errAccountUnavailable):
			abortWithMessage(c, http.StatusUnauthorized, "account disabled, contact support")
			return
		default:
			log.Error("liveness lookup failed", zap.String("trace_id", GetTraceID(c)), zap.Error(err))
			abortWithMessage(c, http.StatusInternalServerError, "server error")
			return
		}

		c.Set(effectiveIdentityKey, identity)
		c.Next()
	}
}

// OptionalActive is RequireActive for routes that also serve anonymous
// callers: a token whose account is missing or suspended is treated as
// anonymous instead of rejected.
func OptionalActive(accounts AccountLookup, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		token, ok := GetTokenIdentity(c)
		if !ok {
			c.Next()
			return
		}

		identity, err := loadEffective(c.Request.Context(), accounts, token.SubjectID)
		switch {
		case err == nil:
			c.Set(effectiveIdentityKey, identity)
		case errors.Is(err, errAccountUnavailable):
			c.Set(tokenIdentityKey, nil)
			GetRequestContext(c).AccountID = ""
		default:
			log.Error("liveness lookup failed", zap.String("trace_id", GetTraceID(c)), zap.Error(err))
			abortWithMessage(c, http.StatusInternalServerError, "server error")
			return
		}
		c.Next()
	}
}

var errAccountUnavailable = errors.New("account missing or inactive")

func loadEffective(ctx context.Context, accounts AccountLookup, id string) (EffectiveIdentity, error) {
	account, err := accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return EffectiveIdentity{}, errAccountUnavailable
		}
		return EffectiveIdentity{}, err
	}
	if !account.IsActive {
		return EffectiveIdentity{}, errAccountUnavailable
	}
	return EffectiveIdentity{accountID: account.ID, username: account.Username, role: account.Role}, nil
}

// GetEffectiveIdentity returns the identity attached by the liveness gate.
func GetEffectiveIdentity(c *gin.Context) (EffectiveIdentity, bool) {
	v, ok := c.Get(effectiveIdentityKey)
	if !ok {
		return EffectiveIdentity{}, false
	}
	identity, ok := v.(EffectiveIdentity)
	return identity, ok
}

// RequireRole admits accounts whose current role is one of roles. It must
// run after RequireActive; without an effective identity it answers 401.
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	allowed := make(map[domain.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(c *gin.Context) {
		identity, ok := GetEffectiveIdentity(c)
		if !ok {
			abortWithMessage(c, http.StatusUnauthorized, "not authenticated")
			return
		}
		if _, ok := allowed[identity.Role()]; !ok {
			abortWithMessage(c, http.StatusForbidden, "access denied")
			return
		}
		c.Next()
	}
}
