package handler

import (
	stderrors "errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"farmersmarket/internal/errors"
	"farmersmarket/internal/service"
)

// UserHandler bundles HTTP handlers.
type UserHandler struct {
	svc service.UserService
}

// NewUserHandler creates a handler layer.
func NewUserHandler(svc service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// Me godoc
// @Summary Current user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.User
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /me [get]
func (h *UserHandler) Me(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	user, err := h.svc.GetUser(c.Request().Context(), p.UserID)
	if err != nil {
		if stderrors.Is(err, service.ErrUserNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, errors.ErrorResponse{
				Error: err.Error(),
				Code:  "USER_NOT_FOUND",
			})
		}
		return echo.NewHTTPError(http.StatusInternalServerError, errors.ErrorResponse{
			Error: "internal server error",
			Code:  "INTERNAL_ERROR",
		})
	}
	return c.JSON(http.StatusOK, user)
}

// Activity godoc
// @Summary Recent actions of the current user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param limit query int false "At most this many entries (default 20, max 100)"
// @Success 200 {array} model.ActionLog
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /me/activity [get]
func (h *UserHandler) Activity(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return badRequest("limit must be a positive integer")
		}
	}
	logs, err := h.svc.RecentActivity(c.Request().Context(), p.UserID, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, errors.ErrorResponse{
			Error: "internal server error",
			Code:  "INTERNAL_ERROR",
		})
	}
	return c.JSON(http.StatusOK, logs)
}
