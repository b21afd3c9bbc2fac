package assignment

import (
	"context"
	"fmt"
	"time"

	"github.com/salespipehq/salespipe/pkg/audit"
	"github.com/salespipehq/salespipe/pkg/domain"
	"github.com/salespipehq/salespipe/pkg/logger"
	"github.com/salespipehq/salespipe/pkg/models"
	"github.com/salespipehq/salespipe/pkg/pipeline"
)

// leadCachePattern matches every cached lead listing
const leadCachePattern = "leads:*"

// Service distributes leads across sales agents and records pipeline
// movements as auditable activity entries.
type Service struct {
	leads    domain.LeadRepository
	users    domain.UserRepository
	audit    *audit.Service
	pipeline *pipeline.Pipeline
	cache    domain.CacheRepository
	log      logger.Logger
}

// NewService creates an assignment service
func NewService(leads domain.LeadRepository, users domain.UserRepository, auditSvc *audit.Service, p *pipeline.Pipeline, cache domain.CacheRepository, log logger.Logger) *Service {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Service{
		leads:    leads,
		users:    users,
		audit:    auditSvc,
		pipeline: p,
		cache:    cache,
		log:      log,
	}
}

// Report accounts one auto-assignment run. Lead updates are independent
// persistence calls, so a run can partially complete; every failed lead is
// listed so the caller can retry explicitly.
type Report struct {
	Assigned int      `json:"assigned"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors"`
}

// AutoAssignAll distributes every unassigned lead across eligible agents
// using modulo round-robin: the k-th lead (input order) goes to
// agents[k mod len(agents)]. The rotation starts at index 0 on every
// invocation. With no eligible agents the run is a no-op, not an error.
func (s *Service) AutoAssignAll(ctx context.Context, actorID int) (*Report, error) {
	unassigned, err := s.leads.ListUnassigned(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list unassigned leads: %w", err)
	}

	agents, err := s.users.ListEligibleAgents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list eligible agents: %w", err)
	}

	report := &Report{Errors: []string{}}
	if len(agents) == 0 || len(unassigned) == 0 {
		return report, nil
	}

	for k, lead := range unassigned {
		agent := agents[k%len(agents)]

		if err := s.leads.UpdateAssignee(ctx, lead.ID, &agent.ID); err != nil {
			report.Failed++
			report.Errors = append(report.Errors, fmt.Sprintf("lead %d: %v", lead.ID, err))
			continue
		}

		report.Assigned++
		s.audit.RecordAssignment(ctx, lead.ID, actorID,
			fmt.Sprintf("auto-assigned to %s (round-robin)", agent.Name))
	}

	if report.Assigned > 0 {
		s.invalidateLeadCache(ctx)
	}

	s.log.Info("auto-assignment run completed",
		"leads", len(unassigned), "agents", len(agents),
		"assigned", report.Assigned, "failed", report.Failed)

	return report, nil
}

// Assign overwrites a lead's assignee. A nil userID clears the assignment;
// a non-nil target must be an active sales executive.
func (s *Service) Assign(ctx context.Context, leadID int, userID *int, actorID int) (*models.Lead, error) {
	lead, err := s.leads.GetByID(ctx, leadID)
	if err != nil {
		return nil, err
	}

	note := "assignment cleared"
	if userID != nil {
		user, err := s.users.GetByID(ctx, *userID)
		if err != nil {
			return nil, err
		}
		if !user.IsEligibleAgent() {
			return nil, domain.NewValidationError(
				fmt.Sprintf("user %d is not an active sales executive", user.ID))
		}
		note = fmt.Sprintf("assigned to %s", user.Name)
	}

	if err := s.leads.UpdateAssignee(ctx, lead.ID, userID); err != nil {
		return nil, fmt.Errorf("failed to update assignee: %w", err)
	}

	s.audit.RecordAssignment(ctx, lead.ID, actorID, note)
	s.invalidateLeadCache(ctx)

	lead.AssignedTo = userID
	return lead, nil
}

// ChangeStage moves a lead to a configured stage. Transitions are not
// constrained to be sequential: any stage may move to any other. Moving to
// the current stage is an idempotent no-op.
func (s *Service) ChangeStage(ctx context.Context, leadID int, destStageID string, actorID int) (*models.Lead, error) {
	if !s.pipeline.Valid(destStageID) {
		return nil, domain.NewValidationError(fmt.Sprintf("unknown stage %q", destStageID))
	}

	lead, err := s.leads.GetByID(ctx, leadID)
	if err != nil {
		return nil, err
	}

	if lead.Stage == destStageID {
		return lead, nil
	}

	if err := s.leads.UpdateStage(ctx, lead.ID, destStageID); err != nil {
		return nil, fmt.Errorf("failed to update stage: %w", err)
	}

	s.audit.RecordStageChange(ctx, lead.ID, actorID, lead.Stage, destStageID)
	s.invalidateLeadCache(ctx)

	lead.Stage = destStageID
	return lead, nil
}

// ScheduleFollowUp combines a date and optional time of day into the lead's
// next follow-up timestamp. Date only implies midnight local time. Past
// dates are accepted here; the UI applies its own minimum.
func (s *Service) ScheduleFollowUp(ctx context.Context, leadID int, date, timeOfDay string) (*models.Lead, error) {
	at, err := CombineDateTime(date, timeOfDay)
	if err != nil {
		return nil, domain.NewValidationError(err.Error())
	}

	lead, err := s.leads.GetByID(ctx, leadID)
	if err != nil {
		return nil, err
	}

	if err := s.leads.UpdateFollowUp(ctx, lead.ID, at); err != nil {
		return nil, fmt.Errorf("failed to schedule follow-up: %w", err)
	}
	s.invalidateLeadCache(ctx)

	lead.NextFollowUp = &at
	return lead, nil
}

// CreateLead persists a new lead. The stage is always the pipeline's entry
// stage regardless of input; an explicit assignee must be eligible.
func (s *Service) CreateLead(ctx context.Context, req models.CreateLeadRequest) (*models.Lead, error) {
	if req.Value < 0 {
		return nil, domain.NewValidationError("lead value must be non-negative")
	}

	if req.AssignedTo != nil {
		user, err := s.users.GetByID(ctx, *req.AssignedTo)
		if err != nil {
			return nil, err
		}
		if !user.IsEligibleAgent() {
			return nil, domain.NewValidationError(
				fmt.Sprintf("user %d is not an active sales executive", user.ID))
		}
	}

	lead := &models.Lead{
		Name:       req.Name,
		Company:    req.Company,
		Email:      req.Email,
		Phone:      req.Phone,
		Value:      req.Value,
		Source:     req.Source,
		Stage:      s.pipeline.First().ID,
		AssignedTo: req.AssignedTo,
	}
	if err := s.leads.Create(ctx, lead); err != nil {
		return nil, fmt.Errorf("failed to create lead: %w", err)
	}
	s.invalidateLeadCache(ctx)

	return lead, nil
}

// Stages exposes the configured pipeline for board rendering
func (s *Service) Stages() []models.Stage {
	return s.pipeline.Stages()
}

func (s *Service) invalidateLeadCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeletePattern(ctx, leadCachePattern); err != nil {
		s.log.Warn("failed to invalidate lead cache", "error", err)
	}
}

// CombineDateTime merges a "2006-01-02" date and an optional "15:04" time
// of day into a local timestamp.
func CombineDateTime(date, timeOfDay string) (time.Time, error) {
	if timeOfDay == "" {
		at, err := time.ParseInLocation("2006-01-02", date, time.Local)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", date)
		}
		return at, nil
	}

	at, err := time.ParseInLocation("2006-01-02 15:04", date+" "+timeOfDay, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date/time %q %q: expected YYYY-MM-DD and HH:MM", date, timeOfDay)
	}
	return at, nil
}
