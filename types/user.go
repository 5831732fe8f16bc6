package types

import (
	"time"

	"github.com/google/uuid"
)

// User represents an account in the system.
// It contains identity, role, and session metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID uuid.UUID `json:"id" db:"id"`

	// Username is the unique login name chosen by the user.
	// Matching is case-sensitive.
	Username string `json:"username" db:"username"`

	// PasswordHash stores the hashed representation of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// Role indicates the user's authorization level within the
	// system (e.g., "Admin", "User").
	Role string `json:"role" db:"role"`

	// RefreshToken is the currently active refresh token, or nil when the
	// user has no session. It is set together with RefreshTokenExpiry.
	RefreshToken *string `json:"-" db:"refresh_token"`

	// RefreshTokenExpiry is the moment the refresh token stops being
	// accepted. Logout sets it to the logout time rather than clearing it.
	RefreshTokenExpiry *time.Time `json:"-" db:"refresh_token_expiry"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// DefaultUserRole is assigned to accounts created through registration.
const DefaultUserRole = "User"

// AdminRole grants unscoped read access to listing endpoints.
const AdminRole = "Admin"

// TokenPair is the session contract returned to the client on login and
// refresh: a signed access token and an opaque refresh token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
