package services

import "errors"

// Service-level errors. Handlers map these to HTTP status codes; auth
// failures deliberately collapse into single errors so responses carry no
// user-enumeration signal.
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrUsernameTaken       = errors.New("username taken")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
	ErrDuplicateDate       = errors.New("an entry already exists for this date")
)
