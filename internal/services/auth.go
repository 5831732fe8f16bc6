package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/daybook/apiserver/config"
	"github.com/daybook/apiserver/internal/store"
	"github.com/daybook/apiserver/types"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	accessTokenTTL  = 24 * time.Hour
	refreshTokenTTL = 7 * 24 * time.Hour

	minUsernameLength = 3
	minPasswordLength = 6
)

// Register error codes returned by RegisterWithResult.
const (
	RegisterErrorEmptyFields  = "empty_fields"
	RegisterErrorInvalidInput = "invalid_input"
	RegisterErrorUserExists   = "user_exists"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, passwordHash string) error
	SetRefreshToken(ctx context.Context, id uuid.UUID, token string, expiry time.Time) error
	RotateRefreshToken(ctx context.Context, id uuid.UUID, oldToken, newToken string, expiry time.Time) error
	ClearRefreshToken(ctx context.Context, id uuid.UUID, now time.Time) error
}

// AccessClaims is the payload of an access token: name, id (subject) and role.
type AccessClaims struct {
	Username string `json:"name"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// AuthService owns the account and session lifecycle: registration,
// credential verification, token issuance and rotation, logout and
// password changes.
type AuthService struct {
	repo   UserRepository
	jwt    config.JWTConfig
	events *EventPublisher
}

func NewAuthService(repo UserRepository, jwtConfig config.JWTConfig, events *EventPublisher) *AuthService {
	return &AuthService{repo: repo, jwt: jwtConfig, events: events}
}

// Register creates an account with the default role. Blank fields are
// rejected with ErrInvalidInput and taken usernames with ErrUsernameTaken;
// use RegisterWithResult for field-level feedback.
func (s *AuthService) Register(ctx context.Context, username, password string) (types.User, error) {
	if strings.TrimSpace(username) == "" || strings.TrimSpace(password) == "" {
		return types.User{}, ErrInvalidInput
	}

	if _, err := s.repo.GetByUsername(ctx, username); err == nil {
		return types.User{}, ErrUsernameTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return types.User{}, err
	}

	user, err := s.repo.Create(ctx, types.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: string(hash),
		Role:         types.DefaultUserRole,
	})
	if err != nil {
		// A concurrent registration can win the uniqueness race after the
		// existence check above.
		if errors.Is(err, store.ErrConflict) {
			return types.User{}, ErrUsernameTaken
		}
		return types.User{}, err
	}

	s.events.UserRegistered(ctx, user.ID, user.Username)
	return user, nil
}

// RegisterResult is the structured outcome of RegisterWithResult.
type RegisterResult struct {
	Success      bool        `json:"success"`
	ErrorCode    string      `json:"error_code,omitempty"`
	ErrorMessage string      `json:"error_message,omitempty"`
	User         *types.User `json:"user,omitempty"`
}

// RegisterWithResult is the form-facing variant of Register. It applies the
// length constraints and reports each failure with a code and a
// human-readable message instead of an error value.
func (s *AuthService) RegisterWithResult(ctx context.Context, username, password string) (RegisterResult, error) {
	if strings.TrimSpace(username) == "" || strings.TrimSpace(password) == "" {
		return RegisterResult{
			ErrorCode:    RegisterErrorEmptyFields,
			ErrorMessage: "Username and password must not be empty.",
		}, nil
	}
	if len(username) < minUsernameLength {
		return RegisterResult{
			ErrorCode:    RegisterErrorInvalidInput,
			ErrorMessage: "Username must be at least 3 characters long.",
		}, nil
	}
	if len(password) < minPasswordLength {
		return RegisterResult{
			ErrorCode:    RegisterErrorInvalidInput,
			ErrorMessage: "Password must be at least 6 characters long.",
		}, nil
	}

	user, err := s.Register(ctx, username, password)
	if err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			return RegisterResult{
				ErrorCode:    RegisterErrorUserExists,
				ErrorMessage: "Username is already taken. Please choose a different one.",
			}, nil
		}
		return RegisterResult{}, err
	}
	return RegisterResult{Success: true, User: &user}, nil
}

// Login verifies the credentials and issues a token pair. Unknown usernames
// and wrong passwords produce the same ErrInvalidCredentials. The new
// refresh token overwrites any previously stored one.
func (s *AuthService) Login(ctx context.Context, username, password string) (types.TokenPair, error) {
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.TokenPair{}, ErrInvalidCredentials
		}
		return types.TokenPair{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return types.TokenPair{}, ErrInvalidCredentials
	}

	refreshToken, err := generateRefreshToken()
	if err != nil {
		return types.TokenPair{}, err
	}
	if err := s.repo.SetRefreshToken(ctx, user.ID, refreshToken, time.Now().Add(refreshTokenTTL)); err != nil {
		return types.TokenPair{}, err
	}

	accessToken, err := s.createAccessToken(user)
	if err != nil {
		return types.TokenPair{}, err
	}
	return types.TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// Refresh exchanges a valid refresh token for a new token pair. The stored
// token must match exactly and its expiry must be strictly in the future.
// Rotation is a compare-and-swap on the stored token, so the presented
// token is single-use even when two refresh calls race: the loser fails
// with ErrInvalidRefreshToken.
func (s *AuthService) Refresh(ctx context.Context, userID uuid.UUID, refreshToken string) (types.TokenPair, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.TokenPair{}, ErrInvalidRefreshToken
		}
		return types.TokenPair{}, err
	}

	if user.RefreshToken == nil || *user.RefreshToken != refreshToken {
		return types.TokenPair{}, ErrInvalidRefreshToken
	}
	if user.RefreshTokenExpiry == nil || !user.RefreshTokenExpiry.After(time.Now()) {
		return types.TokenPair{}, ErrInvalidRefreshToken
	}

	newRefreshToken, err := generateRefreshToken()
	if err != nil {
		return types.TokenPair{}, err
	}
	err = s.repo.RotateRefreshToken(ctx, user.ID, refreshToken, newRefreshToken, time.Now().Add(refreshTokenTTL))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.TokenPair{}, ErrInvalidRefreshToken
		}
		return types.TokenPair{}, err
	}

	accessToken, err := s.createAccessToken(user)
	if err != nil {
		return types.TokenPair{}, err
	}
	return types.TokenPair{AccessToken: accessToken, RefreshToken: newRefreshToken}, nil
}

// Logout invalidates the user's session by clearing the refresh token and
// stamping its expiry to now. Unknown user ids are treated as success, so
// repeated or racing logout calls are always safe.
func (s *AuthService) Logout(ctx context.Context, userID uuid.UUID) error {
	return s.repo.ClearRefreshToken(ctx, userID, time.Now())
}

// ChangePasswordResult is the structured outcome of ChangePassword.
type ChangePasswordResult struct {
	Success      bool   `json:"success"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// ChangePassword verifies the current password and replaces the stored hash.
// Each rejection carries its own message; only unexpected store failures
// surface as errors.
func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, current, newPassword, confirm string) (ChangePasswordResult, error) {
	if strings.TrimSpace(current) == "" || strings.TrimSpace(newPassword) == "" || strings.TrimSpace(confirm) == "" {
		return ChangePasswordResult{ErrorMessage: "Fill in all fields."}, nil
	}
	if newPassword != confirm {
		return ChangePasswordResult{ErrorMessage: "New password and confirmation do not match."}, nil
	}
	if len(newPassword) < minPasswordLength {
		return ChangePasswordResult{ErrorMessage: "New password must be at least 6 characters long."}, nil
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ChangePasswordResult{ErrorMessage: "User not found."}, nil
		}
		return ChangePasswordResult{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return ChangePasswordResult{ErrorMessage: "Current password is incorrect."}, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return ChangePasswordResult{}, err
	}
	if err := s.repo.UpdatePasswordHash(ctx, user.ID, string(hash)); err != nil {
		return ChangePasswordResult{}, err
	}
	return ChangePasswordResult{Success: true}, nil
}

// GetUser loads a user by id.
func (s *AuthService) GetUser(ctx context.Context, userID uuid.UUID) (types.User, error) {
	return s.repo.GetByID(ctx, userID)
}

// ParseAccessToken validates an access token's signature, lifetime, issuer
// and audience, and returns its claims.
func (s *AuthService) ParseAccessToken(tokenString string) (AccessClaims, error) {
	claims := AccessClaims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		&claims,
		func(token *jwt.Token) (any, error) {
			return []byte(s.jwt.Secret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.jwt.Issuer),
		jwt.WithAudience(s.jwt.Audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return AccessClaims{}, err
	}
	if !token.Valid {
		return AccessClaims{}, errors.New("invalid token")
	}
	return claims, nil
}

func (s *AuthService) createAccessToken(user types.User) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			Issuer:    s.jwt.Issuer,
			Audience:  jwt.ClaimStrings{s.jwt.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(accessTokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwt.Secret))
}

// generateRefreshToken returns 256 bits of cryptographic randomness,
// base64-encoded. The value is opaque to the client.
func generateRefreshToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}
