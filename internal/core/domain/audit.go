package domain

import "time"

// AuditAction names a security-relevant event.
type AuditAction string

const (
	AuditRegister                AuditAction = "register"
	AuditLoginSuccess            AuditAction = "login_success"
	AuditLoginFailed             AuditAction = "login_failed"
	AuditLogout                  AuditAction = "logout"
	AuditRefreshToken            AuditAction = "refresh_token"
	AuditForgotPasswordRequested AuditAction = "forgot_password_requested"
	AuditPasswordResetSuccess    AuditAction = "password_reset_success"
	AuditBanUser                 AuditAction = "ban_user"
	AuditUnbanUser               AuditAction = "unban_user"
	AuditChangeRole              AuditAction = "change_role"
	AuditUpdateProfile           AuditAction = "update_profile"
)

// AuditTargetUser is the target kind for account-related entries.
const AuditTargetUser = "User"

// AuditEntry is an immutable record of a security-relevant event.
// ActorID is nil for anonymous or pre-authentication actions.
type AuditEntry struct {
	ID        string
	ActorID   *string
	Action    AuditAction
	Target    string
	TargetID  string
	Details   map[string]any
	CreatedAt time.Time
}
