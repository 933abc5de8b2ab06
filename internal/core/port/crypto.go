package port

import "time"

// PasswordHasher hashes and verifies secrets using the configured algorithm.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password string, encoded string) (bool, error)
}

// PasswordStrengthChecker rejects guessable passwords.
type PasswordStrengthChecker interface {
	Check(password string, userInputs ...string) error
}

// AccessClaims is the identity carried by a verified access token.
type AccessClaims struct {
	SubjectID string
	Role      string
	ExpiresAt time.Time
}

// TokenIssuer issues and verifies access tokens and mints opaque refresh tokens.
type TokenIssuer interface {
	IssueAccess(subjectID, role string) (string, time.Time, error)
	VerifyAccess(token string) (AccessClaims, error)
	IssueRefresh() (string, error)
}
