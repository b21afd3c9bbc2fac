package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	apierrors "github.com/salespipehq/salespipe/pkg/api/errors"
	"github.com/salespipehq/salespipe/pkg/assignment"
	"github.com/salespipehq/salespipe/pkg/cache"
	"github.com/salespipehq/salespipe/pkg/domain"
	"github.com/salespipehq/salespipe/pkg/logger"
	"github.com/salespipehq/salespipe/pkg/metrics"
	"github.com/salespipehq/salespipe/pkg/models"
)

const leadListCacheTTL = 5 * time.Minute

// LeadHandler handles lead and pipeline operations
type LeadHandler struct {
	service *assignment.Service
	leads   domain.LeadRepository
	cache   domain.CacheRepository
	metrics *metrics.Metrics
	log     logger.Logger
}

// NewLeadHandler creates a new lead handler
func NewLeadHandler(service *assignment.Service, leads domain.LeadRepository, cacheRepo domain.CacheRepository, m *metrics.Metrics, log logger.Logger) *LeadHandler {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &LeadHandler{
		service: service,
		leads:   leads,
		cache:   cacheRepo,
		metrics: m,
		log:     log,
	}
}

// actorID resolves the acting user from the X-User-ID header. Requests
// without the header act as the system user (0).
func actorID(c echo.Context) int {
	if raw := c.Request().Header.Get("X-User-ID"); raw != "" {
		if id, err := strconv.Atoi(raw); err == nil {
			return id
		}
	}
	return 0
}

func leadID(c echo.Context) (int, error) {
	return strconv.Atoi(c.Param("id"))
}

// ListLeads returns leads matching the optional stage/assignee filters.
// Unfiltered listings are served from the Redis cache when possible.
func (h *LeadHandler) ListLeads(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	var filter models.LeadFilter
	if err := c.Bind(&filter); err != nil {
		return apierrors.ValidationError(c, err)
	}

	key := leadListCacheKey(filter)
	if h.cache != nil {
		if cached, err := h.cache.Get(ctx, key); err == nil {
			if h.metrics != nil {
				h.metrics.CacheHits.WithLabelValues("leads").Inc()
			}
			return c.JSONBlob(http.StatusOK, []byte(cached))
		} else if cache.IsMiss(err) && h.metrics != nil {
			h.metrics.CacheMisses.WithLabelValues("leads").Inc()
		}
	}

	leads, err := h.leads.List(ctx, filter)
	if err != nil {
		return apierrors.DatabaseError(c, err)
	}
	if leads == nil {
		leads = []models.Lead{}
	}

	if h.cache != nil {
		if body, err := json.Marshal(leads); err == nil {
			if err := h.cache.Set(ctx, key, body, leadListCacheTTL); err != nil {
				h.log.Error("failed to cache lead listing", "error", err)
			}
		}
	}

	return c.JSON(http.StatusOK, leads)
}

func leadListCacheKey(f models.LeadFilter) string {
	assigned := ""
	if f.AssignedTo != nil {
		assigned = strconv.Itoa(*f.AssignedTo)
	}
	return fmt.Sprintf("leads:list:%s:%s:%t:%d", f.Stage, assigned, f.Unassigned, f.Limit)
}

// GetLead returns a single lead by ID
func (h *LeadHandler) GetLead(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	id, err := leadID(c)
	if err != nil {
		return apierrors.ValidationMessage(c, "Lead ID must be a valid number")
	}

	lead, err := h.leads.GetByID(ctx, id)
	if err != nil {
		if domain.IsNotFound(err) {
			return apierrors.NotFoundError(c, "lead")
		}
		return apierrors.DatabaseError(c, err)
	}
	return c.JSON(http.StatusOK, lead)
}

// CreateLead creates a lead in the first pipeline stage
func (h *LeadHandler) CreateLead(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	var req models.CreateLeadRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.ValidationError(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return apierrors.ValidationError(c, err)
	}

	lead, err := h.service.CreateLead(ctx, req)
	if err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.JSON(http.StatusCreated, lead)
}

// AutoAssign distributes all unassigned leads across active sales executives
// in round-robin order and returns the assignment report.
func (h *LeadHandler) AutoAssign(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	report, err := h.service.AutoAssignAll(ctx, actorID(c))
	if err != nil {
		return apierrors.FromDomain(c, err)
	}
	if h.metrics != nil && report.Assigned > 0 {
		h.metrics.LeadsAssigned.WithLabelValues("auto").Add(float64(report.Assigned))
	}
	return c.JSON(http.StatusOK, report)
}

// AssignLead manually assigns a lead to a user. A null user_id clears the
// assignment.
func (h *LeadHandler) AssignLead(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	id, err := leadID(c)
	if err != nil {
		return apierrors.ValidationMessage(c, "Lead ID must be a valid number")
	}

	var req models.AssignLeadRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.ValidationError(c, err)
	}

	lead, err := h.service.Assign(ctx, id, req.UserID, actorID(c))
	if err != nil {
		return apierrors.FromDomain(c, err)
	}
	if h.metrics != nil && req.UserID != nil {
		h.metrics.LeadsAssigned.WithLabelValues("manual").Inc()
	}
	return c.JSON(http.StatusOK, lead)
}

// ChangeStage moves a lead to another pipeline stage. Any stage can move to
// any other stage; moving to the current stage is a no-op.
func (h *LeadHandler) ChangeStage(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	id, err := leadID(c)
	if err != nil {
		return apierrors.ValidationMessage(c, "Lead ID must be a valid number")
	}

	var req models.ChangeStageRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.ValidationError(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return apierrors.ValidationError(c, err)
	}

	lead, err := h.service.ChangeStage(ctx, id, req.Stage, actorID(c))
	if err != nil {
		return apierrors.FromDomain(c, err)
	}
	if h.metrics != nil {
		h.metrics.StageTransitions.WithLabelValues(req.Stage).Inc()
	}
	return c.JSON(http.StatusOK, lead)
}

// ScheduleFollowUp sets the next follow-up date for a lead
func (h *LeadHandler) ScheduleFollowUp(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	id, err := leadID(c)
	if err != nil {
		return apierrors.ValidationMessage(c, "Lead ID must be a valid number")
	}

	var req models.ScheduleFollowUpRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.ValidationError(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return apierrors.ValidationError(c, err)
	}

	lead, err := h.service.ScheduleFollowUp(ctx, id, req.Date, req.Time)
	if err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, lead)
}

// Stages returns the pipeline stage definitions in board order
func (h *LeadHandler) Stages(c echo.Context) error {
	return c.JSON(http.StatusOK, h.service.Stages())
}
