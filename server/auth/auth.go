// Package auth verifies credentials and issues access and refresh tokens.
// Signed-in sessions are cached so handlers can resolve a user without a
// round trip to the system of record.
package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/hrygo/mindmap/store"
)

const (
	// AccessTokenDuration is the lifetime of an access token.
	AccessTokenDuration = time.Hour
	// RefreshTokenDuration is the lifetime of a refresh token.
	RefreshTokenDuration = 30 * 24 * time.Hour

	issuer = "mindmap"

	// TokenTypeAccess marks short-lived tokens accepted on API calls.
	TokenTypeAccess = "access"
	// TokenTypeRefresh marks long-lived tokens accepted only on refresh.
	TokenTypeRefresh = "refresh"
)

// Claims are the JWT claims carried by both token types.
type Claims struct {
	UserID    int32  `json:"user_id"`
	Username  string `json:"username,omitempty"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// Authenticator signs tokens and verifies credentials.
type Authenticator struct {
	store  *store.Store
	secret []byte
}

// New creates an authenticator signing with the given secret.
func New(st *store.Store, secret string) *Authenticator {
	return &Authenticator{store: st, secret: []byte(secret)}
}

// HashPassword hashes a password with bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Wrap(err, "failed to hash password")
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches the stored hash.
func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// SignIn verifies the credentials and returns a new token pair. The session
// is cached under the user's ID for the access token's lifetime.
func (a *Authenticator) SignIn(ctx context.Context, username, password string) (accessToken, refreshToken string, user *store.User, err error) {
	user, err = a.store.GetUser(ctx, &store.FindUser{Username: &username})
	if err != nil {
		return "", "", nil, errors.Wrap(err, "failed to find user")
	}
	if user == nil || !VerifyPassword(password, user.PasswordHash) {
		return "", "", nil, errors.New("invalid username or password")
	}

	accessToken, refreshToken, err = a.GenerateTokens(user.ID, user.Username)
	if err != nil {
		return "", "", nil, err
	}

	now := time.Now()
	if err := a.store.UpdateUserLastLogin(ctx, user.ID, now.Unix()); err != nil {
		return "", "", nil, errors.Wrap(err, "failed to update last login")
	}

	// Best effort; a failed cache write only costs a lookup later.
	a.store.Cache().SetUserData(ctx, user.ID, map[string]any{
		"username":     user.Username,
		"signed_in_at": now.Unix(),
	}, AccessTokenDuration)

	return accessToken, refreshToken, user, nil
}

// SignOut drops every cached entry belonging to the user.
func (a *Authenticator) SignOut(ctx context.Context, userID int32) {
	a.store.Invalidator().InvalidateUserData(ctx, userID)
}

// GenerateTokens returns a signed access and refresh token pair.
func (a *Authenticator) GenerateTokens(userID int32, username string) (accessToken, refreshToken string, err error) {
	now := time.Now()

	accessToken, err = a.sign(&Claims{
		UserID:    userID,
		Username:  username,
		TokenType: TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(AccessTokenDuration)),
		},
	})
	if err != nil {
		return "", "", errors.Wrap(err, "failed to sign access token")
	}

	refreshToken, err = a.sign(&Claims{
		UserID:    userID,
		TokenType: TokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        shortuuid.New(),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(RefreshTokenDuration)),
		},
	})
	if err != nil {
		return "", "", errors.Wrap(err, "failed to sign refresh token")
	}

	return accessToken, refreshToken, nil
}

// VerifyToken parses and validates a token of the expected type.
func (a *Authenticator) VerifyToken(tokenString, expectedType string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "invalid token")
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.TokenType != expectedType {
		return nil, errors.Errorf("expected %s token, got %s", expectedType, claims.TokenType)
	}
	return claims, nil
}

// RefreshAccessToken exchanges a valid refresh token for a new access token.
func (a *Authenticator) RefreshAccessToken(ctx context.Context, refreshToken string) (string, error) {
	claims, err := a.VerifyToken(refreshToken, TokenTypeRefresh)
	if err != nil {
		return "", err
	}

	user, err := a.store.GetUser(ctx, &store.FindUser{ID: &claims.UserID})
	if err != nil {
		return "", errors.Wrap(err, "failed to find user")
	}
	if user == nil {
		return "", errors.New("user no longer exists")
	}

	accessToken, _, err := a.GenerateTokens(user.ID, user.Username)
	return accessToken, err
}

func (a *Authenticator) sign(claims *Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// CachedSession returns the cached session data for a user, if present.
func (a *Authenticator) CachedSession(ctx context.Context, userID int32) (map[string]any, bool) {
	return a.store.Cache().GetUserData(ctx, userID)
}
