package v1

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/mindmap/server/auth"
	"github.com/hrygo/mindmap/store"
)

type SignUpRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type SignInRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	UserID       int32  `json:"user_id"`
	Username     string `json:"username"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// SignUp creates an account.
// POST /api/v1/auth/signup
func (s *APIV1Service) SignUp(c echo.Context) error {
	var request SignUpRequest
	if err := c.Bind(&request); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "malformed request"})
	}
	if request.Username == "" || len(request.Password) < 6 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "username and a password of at least 6 characters are required"})
	}

	passwordHash, err := auth.HashPassword(request.Password)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to create user"})
	}

	user, err := s.Store.CreateUser(c.Request().Context(), &store.User{
		Username:     request.Username,
		PasswordHash: passwordHash,
		CreatedTs:    time.Now().Unix(),
	})
	if err != nil {
		return c.JSON(http.StatusConflict, map[string]string{"error": "username already taken"})
	}

	accessToken, refreshToken, err := s.Authenticator.GenerateTokens(user.ID, user.Username)
	if err != nil {
		slog.Error("failed to generate tokens", "user_id", user.ID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to issue tokens"})
	}

	return c.JSON(http.StatusOK, TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		UserID:       user.ID,
		Username:     user.Username,
	})
}

// SignIn verifies credentials and issues a token pair.
// POST /api/v1/auth/signin
func (s *APIV1Service) SignIn(c echo.Context) error {
	var request SignInRequest
	if err := c.Bind(&request); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "malformed request"})
	}

	accessToken, refreshToken, user, err := s.Authenticator.SignIn(c.Request().Context(), request.Username, request.Password)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
	}

	return c.JSON(http.StatusOK, TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		UserID:       user.ID,
		Username:     user.Username,
	})
}

// RefreshToken exchanges a refresh token for a new access token.
// POST /api/v1/auth/refresh
func (s *APIV1Service) RefreshToken(c echo.Context) error {
	var request RefreshRequest
	if err := c.Bind(&request); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "malformed request"})
	}

	accessToken, err := s.Authenticator.RefreshAccessToken(c.Request().Context(), request.RefreshToken)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid refresh token"})
	}

	return c.JSON(http.StatusOK, map[string]string{"access_token": accessToken})
}

// SignOut drops the user's cached session.
// POST /api/v1/auth/signout
func (s *APIV1Service) SignOut(c echo.Context) error {
	s.Authenticator.SignOut(c.Request().Context(), currentUserID(c))
	return c.NoContent(http.StatusNoContent)
}

// GetSession returns the cached session data for the current user.
// GET /api/v1/auth/session
func (s *APIV1Service) GetSession(c echo.Context) error {
	session, ok := s.Authenticator.CachedSession(c.Request().Context(), currentUserID(c))
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "no cached session"})
	}
	return c.JSON(http.StatusOK, session)
}
