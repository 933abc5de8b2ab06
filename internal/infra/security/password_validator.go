package security

import (
	"fmt"
	"unicode/utf8"

	zxcvbn "github.com/nbutton23/zxcvbn-go"

	"github.com/DrynaaCode/vegedex-v2-tsc/internal/core/port"
)

const (
	// MinPasswordLength and MaxPasswordLength bound accepted passwords.
	MinPasswordLength = 8
	MaxPasswordLength = 128
)

// PasswordValidationError represents a single password policy violation.
type PasswordValidationError struct {
	Code    string
	Message string
}

// Error implements error for PasswordValidationError.
func (e *PasswordValidationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// PasswordRule validates a password. userInputs holds account data
// (username, email) the password should not be derived from.
type PasswordRule interface {
	Validate(password string, userInputs []string) error
}

// PasswordRuleFunc adapts a function to be used as a PasswordRule.
type PasswordRuleFunc func(password string, userInputs []string) error

// Validate executes the underlying rule function.
func (f PasswordRuleFunc) Validate(password string, userInputs []string) error {
	return f(password, userInputs)
}

// PasswordValidator applies a sequence of password rules.
type PasswordValidator struct {
	rules []PasswordRule
}

// NewPasswordValidator constructs a validator with the provided rules.
func NewPasswordValidator(rules ...PasswordRule) *PasswordValidator {
	copied := make([]PasswordRule, len(rules))
	copy(copied, rules)
	return &PasswordValidator{rules: copied}
}

// NewAccountPasswordValidator enforces the account length bounds and, when
// minScore is positive, a zxcvbn strength floor.
func NewAccountPasswordValidator(minScore int) *PasswordValidator {
	return NewPasswordValidator(
		LengthRule(MinPasswordLength, MaxPasswordLength),
		StrengthRule(minScore),
	)
}

// Check executes all rules and returns the first encountered violation.
func (v *PasswordValidator) Check(password string, userInputs ...string) error {
	if v == nil {
		return fmt.Errorf("password validator not configured")
	}
	for _, rule := range v.rules {
		if err := rule.Validate(password, userInputs); err != nil {
			return err
		}
	}
	return nil
}

// LengthRule bounds the password length in characters.
func LengthRule(min, max int) PasswordRule {
	return PasswordRuleFunc(func(password string, _ []string) error {
		n := utf8.RuneCountInString(password)
		if n < min {
			return &PasswordValidationError{
				Code:    "min_length",
				Message: fmt.Sprintf("password must be at least %d characters long", min),
			}
		}
		if max > 0 && n > max {
			return &PasswordValidationError{
				Code:    "max_length",
				Message: fmt.Sprintf("password must be at most %d characters long", max),
			}
		}
		return nil
	})
}

// StrengthRule enforces a minimum zxcvbn score. A score of zero disables the rule.
func StrengthRule(minScore int) PasswordRule {
	if minScore > 4 {
		minScore = 4
	}
	return PasswordRuleFunc(func(password string, userInputs []string) error {
		if minScore <= 0 {
			return nil
		}

		result := zxcvbn.PasswordStrength(password, userInputs)
		if result.Score >= minScore {
			return nil
		}

		return &PasswordValidationError{
			Code:    "weak_password",
			Message: "password is too easy to guess",
		}
	})
}

var _ port.PasswordStrengthChecker = (*PasswordValidator)(nil)
