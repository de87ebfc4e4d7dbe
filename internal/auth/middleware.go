package auth

import (
	"errors"
	"fmt"
	"net/http"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	apperrors "farmersmarket/internal/errors"
	"farmersmarket/internal/model"
)

// ContextKey is where the middleware stores the validated *Claims.
const ContextKey = "user"

var errTokenRevoked = errors.New("token revoked")

// Principal is the authenticated caller.
type Principal struct {
	UserID   uint       `json:"user_id"`
	Username string     `json:"username"`
	Role     model.Role `json:"role"`
}

// JWTMiddleware authenticates requests with a bearer access token. Refresh tokens
// and blacklisted access tokens are rejected.
func JWTMiddleware(jwtService *JWTService, tokens TokenStoreInterface) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:  ContextKey,
		TokenLookup: "header:" + echo.HeaderAuthorization + ":Bearer ",
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			claims, err := jwtService.ValidateToken(token)
			if err != nil {
				return nil, err
			}
			if claims.Type != TokenTypeAccess {
				return nil, fmt.Errorf("unexpected token type %q", claims.Type)
			}
			if claims.ID != "" {
				revoked, _ := tokens.IsAccessTokenBlacklisted(c.Request().Context(), claims.ID)
				if revoked {
					return nil, errTokenRevoked
				}
			}
			return claims, nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusUnauthorized, apperrors.ErrorResponse{
				Error: "invalid or missing access token",
				Code:  "INVALID_TOKEN",
			})
		},
	})
}

// ClaimsFromContext returns the claims stored by JWTMiddleware.
func ClaimsFromContext(c echo.Context) (*Claims, bool) {
	claims, ok := c.Get(ContextKey).(*Claims)
	return claims, ok
}

// PrincipalFromContext returns the authenticated caller.
func PrincipalFromContext(c echo.Context) (Principal, bool) {
	claims, ok := ClaimsFromContext(c)
	if !ok {
		return Principal{}, false
	}
	return claims.Principal(), true
}

// RequireRole rejects callers whose role is not in roles.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			principal, ok := PrincipalFromContext(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, apperrors.ErrorResponse{
					Error: "invalid or missing access token",
					Code:  "INVALID_TOKEN",
				})
			}
			for _, role := range roles {
				if principal.Role == role {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden, apperrors.ErrorResponse{
				Error: fmt.Sprintf("role %s is not allowed to perform this action", principal.Role),
				Code:  "UNAUTHORIZED",
			})
		}
	}
}
