package handler

import (
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"farmersmarket/internal/auth"
	"farmersmarket/internal/errors"
	"farmersmarket/internal/model"
	"farmersmarket/internal/service"
)

// AuthHandler serves sign-up and the token lifecycle.
type AuthHandler struct {
	authService service.AuthService
	jwtService  *auth.JWTService
}

func NewAuthHandler(authService service.AuthService, jwtService *auth.JWTService) *AuthHandler {
	return &AuthHandler{authService: authService, jwtService: jwtService}
}

// RegisterRequest signs up a customer or farmer. An empty role means customer.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"omitempty,oneof=customer farmer"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest carries a refresh token for /auth/refresh and /auth/logout.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// LogoutRequest is the logout body.
type LogoutRequest = RefreshRequest

// RegisterResponse echoes the stored account.
type RegisterResponse struct {
	Message string      `json:"message"`
	User    *model.User `json:"user"`
}

// AuthResponse holds issued tokens. Refresh only returns a new access token.
type AuthResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token,omitempty"`
	User         *model.User `json:"user,omitempty"`
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// authFailures lists the auth errors a client can act on.
var authFailures = []struct {
	err    error
	status int
	code   string
}{
	{service.ErrUserAlreadyExists, http.StatusConflict, "USER_ALREADY_EXISTS"},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
	{service.ErrInvalidRefreshToken, http.StatusUnauthorized, "INVALID_REFRESH_TOKEN"},
}

// authError maps err through authFailures; anything else is a 500 with code.
func authError(err error, code string) *echo.HTTPError {
	for _, f := range authFailures {
		if stderrors.Is(err, f.err) {
			return echo.NewHTTPError(f.status, errors.ErrorResponse{Error: f.err.Error(), Code: f.code})
		}
	}
	return echo.NewHTTPError(http.StatusInternalServerError, errors.ErrorResponse{
		Error: "internal server error",
		Code:  code,
	})
}

// Register godoc
// @Summary Create a customer or farmer account
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "New account"
// @Success 201 {object} RegisterResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}

	user, err := h.authService.Register(c.Request().Context(), req.Username, req.Email, req.Password, req.Role)
	if err != nil {
		return authError(err, "REGISTRATION_FAILED")
	}
	return c.JSON(http.StatusCreated, RegisterResponse{Message: "user registered successfully", User: user})
}

// Login godoc
// @Summary Exchange username and password for tokens
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}

	access, refresh, user, err := h.authService.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return authError(err, "LOGIN_FAILED")
	}
	return c.JSON(http.StatusOK, AuthResponse{AccessToken: access, RefreshToken: refresh, User: user})
}

// Refresh godoc
// @Summary Issue a new access token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RefreshRequest true "Refresh token"
// @Success 200 {object} AuthResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req RefreshRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}

	access, err := h.authService.RefreshToken(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return authError(err, "REFRESH_FAILED")
	}
	return c.JSON(http.StatusOK, AuthResponse{AccessToken: access})
}

// Logout godoc
// @Summary Revoke a refresh token and, if sent, the bearer access token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LogoutRequest true "Refresh token"
// @Param Authorization header string false "Bearer access token"
// @Success 200 {object} MessageResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	var req LogoutRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}

	if err := h.authService.Logout(c.Request().Context(), req.RefreshToken, h.bearerClaims(c)); err != nil {
		return authError(err, "LOGOUT_FAILED")
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "logged out successfully"})
}

// bearerClaims returns the claims of a valid Authorization bearer token, or nil.
func (h *AuthHandler) bearerClaims(c echo.Context) *auth.Claims {
	token, ok := strings.CutPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
	if !ok {
		return nil
	}
	claims, err := h.jwtService.ValidateToken(token)
	if err != nil {
		return nil
	}
	return claims
}
