package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"farmersmarket/internal/auth"
	"farmersmarket/internal/errors"
)

// errorResponse converts a service error into an echo HTTP error.
func errorResponse(err error) *echo.HTTPError {
	httpErr := errors.MapErrorToHTTP(err)
	return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
}

func badRequest(message string) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
		Error: message,
		Code:  "INVALID_REQUEST",
	})
}

// bindValid decodes the body into req and runs its validate tags.
func bindValid(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return badRequest("invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return badRequest(err.Error())
	}
	return nil
}

// principal returns the authenticated caller or a 401.
func principal(c echo.Context) (auth.Principal, error) {
	p, ok := auth.PrincipalFromContext(c)
	if !ok {
		return auth.Principal{}, echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
			Error: "invalid or missing access token",
			Code:  "INVALID_TOKEN",
		})
	}
	return p, nil
}
