package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	apierrors "github.com/salespipehq/salespipe/pkg/api/errors"
	"github.com/salespipehq/salespipe/pkg/domain"
	"github.com/salespipehq/salespipe/pkg/models"
)

// UserHandler handles user listing operations
type UserHandler struct {
	users domain.UserRepository
}

// NewUserHandler creates a new user handler
func NewUserHandler(users domain.UserRepository) *UserHandler {
	return &UserHandler{users: users}
}

// ListUsers returns users, optionally filtered by role
func (h *UserHandler) ListUsers(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	role := c.QueryParam("role")
	switch role {
	case "", models.RoleSalesExecutive, models.RoleManager, models.RoleSuperadmin:
	default:
		return apierrors.ValidationMessage(c, "unknown role: "+role)
	}

	users, err := h.users.List(ctx, role)
	if err != nil {
		return apierrors.DatabaseError(c, err)
	}
	if users == nil {
		users = []models.User{}
	}
	return c.JSON(http.StatusOK, users)
}

// GetUser returns a single user by ID
func (h *UserHandler) GetUser(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return apierrors.ValidationMessage(c, "User ID must be a valid number")
	}

	user, err := h.users.GetByID(ctx, id)
	if err != nil {
		if domain.IsNotFound(err) {
			return apierrors.NotFoundError(c, "user")
		}
		return apierrors.DatabaseError(c, err)
	}
	return c.JSON(http.StatusOK, user)
}
