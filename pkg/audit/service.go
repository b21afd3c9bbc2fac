package audit

import (
	"context"
	"fmt"

	"github.com/salespipehq/salespipe/pkg/domain"
	"github.com/salespipehq/salespipe/pkg/logger"
	"github.com/salespipehq/salespipe/pkg/models"
)

// Service writes the append-only activity trail. Stage changes and
// assignments record through here alongside the lead mutation; a failed
// activity write is logged but never rolls the mutation back.
type Service struct {
	activities domain.ActivityRepository
	log        logger.Logger
}

// NewService creates an audit service
func NewService(activities domain.ActivityRepository, log logger.Logger) *Service {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Service{activities: activities, log: log}
}

// Record appends a free-form activity entry
func (s *Service) Record(ctx context.Context, userID int, req models.CreateActivityRequest) (*models.Activity, error) {
	activity := &models.Activity{
		LeadID:   req.LeadID,
		UserID:   userID,
		Type:     req.Type,
		Notes:    req.Notes,
		Duration: req.Duration,
		Outcome:  req.Outcome,
	}
	if err := s.activities.Create(ctx, activity); err != nil {
		return nil, fmt.Errorf("failed to record activity: %w", err)
	}
	return activity, nil
}

// RecordStageChange appends a stage_change entry holding both stages
func (s *Service) RecordStageChange(ctx context.Context, leadID, userID int, oldStage, newStage string) {
	activity := &models.Activity{
		LeadID: leadID,
		UserID: userID,
		Type:   models.ActivityStageChange,
		Notes:  fmt.Sprintf("stage changed from %s to %s", oldStage, newStage),
	}
	if err := s.activities.Create(ctx, activity); err != nil {
		s.log.Error("failed to record stage change activity", "lead_id", leadID, "error", err)
	}
}

// RecordAssignment appends an assignment entry
func (s *Service) RecordAssignment(ctx context.Context, leadID, actorID int, note string) {
	activity := &models.Activity{
		LeadID: leadID,
		UserID: actorID,
		Type:   models.ActivityAssignment,
		Notes:  note,
	}
	if err := s.activities.Create(ctx, activity); err != nil {
		s.log.Error("failed to record assignment activity", "lead_id", leadID, "error", err)
	}
}

// ListByLead returns the newest activity entries for a lead
func (s *Service) ListByLead(ctx context.Context, leadID, limit int) ([]models.Activity, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.activities.ListByLead(ctx, leadID, limit)
}
