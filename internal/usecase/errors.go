package usecase

import "errors"

var (
	// ErrInvalidCredentials is returned for every login failure so callers cannot
	// tell an unknown email from a wrong password.
	ErrInvalidCredentials = errors.New("incorrect credentials")
	// ErrAccountConflict indicates the username or email is already taken.
	ErrAccountConflict = errors.New("username or email already in use")
	// ErrAccountNotFound indicates the referenced account does not exist.
	ErrAccountNotFound = errors.New("user not found")
	// ErrRefreshTokenMissing indicates no refresh token was presented.
	ErrRefreshTokenMissing = errors.New("refresh token missing")
	// ErrRefreshTokenInvalid indicates the refresh token matches no active account.
	ErrRefreshTokenInvalid = errors.New("invalid refresh token")
	// ErrInvalidOrExpiredResetToken covers unknown, consumed and expired reset tokens alike.
	ErrInvalidOrExpiredResetToken = errors.New("invalid or expired link")
	// ErrSelfModeration blocks moderators from banning or re-roling themselves.
	ErrSelfModeration = errors.New("cannot perform this action on your own account")
	// ErrNotBanned is returned when unbanning an account that is already active.
	ErrNotBanned = errors.New("user is not banned")
	// ErrPlantNotFound indicates the referenced plant does not exist.
	ErrPlantNotFound = errors.New("plant not found")
	// ErrImageTooLarge indicates the upload exceeds the configured size limit.
	ErrImageTooLarge = errors.New("image too large")
	// ErrUnsupportedImage indicates the upload is not an image.
	ErrUnsupportedImage = errors.New("file must be an image")
)
