package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	apierrors "github.com/salespipehq/salespipe/pkg/api/errors"
	"github.com/salespipehq/salespipe/pkg/audit"
	"github.com/salespipehq/salespipe/pkg/domain"
	"github.com/salespipehq/salespipe/pkg/models"
)

// ActivityHandler handles the append-only activity log
type ActivityHandler struct {
	audit *audit.Service
}

// NewActivityHandler creates a new activity handler
func NewActivityHandler(auditSvc *audit.Service) *ActivityHandler {
	return &ActivityHandler{audit: auditSvc}
}

// CreateActivity records a manual activity (call, email, meeting, note)
// against a lead
func (h *ActivityHandler) CreateActivity(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	var req models.CreateActivityRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.ValidationError(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return apierrors.ValidationError(c, err)
	}

	activity, err := h.audit.Record(ctx, actorID(c), req)
	if err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.JSON(http.StatusCreated, activity)
}

// ListLeadActivities returns the activity history for a lead, newest first
func (h *ActivityHandler) ListLeadActivities(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return apierrors.ValidationMessage(c, "Lead ID must be a valid number")
	}

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return apierrors.ValidationMessage(c, "limit must be a non-negative number")
		}
	}

	activities, err := h.audit.ListByLead(ctx, id, limit)
	if err != nil {
		if domain.IsNotFound(err) {
			return apierrors.NotFoundError(c, "lead")
		}
		return apierrors.DatabaseError(c, err)
	}
	if activities == nil {
		activities = []models.Activity{}
	}
	return c.JSON(http.StatusOK, activities)
}
