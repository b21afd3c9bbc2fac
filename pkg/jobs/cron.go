package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/salespipehq/salespipe/pkg/dispatch"
	"github.com/salespipehq/salespipe/pkg/domain"
	"github.com/salespipehq/salespipe/pkg/logger"
)

// Scheduler runs recurring background jobs
type Scheduler struct {
	cron       *cron.Cron
	leads      domain.LeadRepository
	users      domain.UserRepository
	dispatcher *dispatch.Dispatcher
	log        logger.Logger
}

// NewScheduler creates a scheduler with all jobs unregistered
func NewScheduler(leads domain.LeadRepository, users domain.UserRepository, dispatcher *dispatch.Dispatcher, log logger.Logger) *Scheduler {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Scheduler{
		cron:       cron.New(),
		leads:      leads,
		users:      users,
		dispatcher: dispatcher,
		log:        log,
	}
}

// RegisterFollowUpReminders schedules the follow-up reminder job with the
// given cron expression
func (s *Scheduler) RegisterFollowUpReminders(spec string) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := s.SendFollowUpReminders(ctx); err != nil {
			s.log.Error("follow-up reminder job failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to register follow-up reminder job: %w", err)
	}
	return nil
}

// Start begins running registered jobs
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// SendFollowUpReminders emails each assigned agent the leads whose follow-up
// is due by the end of today. Reminders are grouped per agent so an agent
// with several due leads receives a single email.
func (s *Scheduler) SendFollowUpReminders(ctx context.Context) error {
	endOfDay := time.Now().Truncate(24 * time.Hour).Add(24*time.Hour - time.Second)

	due, err := s.leads.ListFollowUpsDue(ctx, endOfDay)
	if err != nil {
		return fmt.Errorf("failed to list due follow-ups: %w", err)
	}
	if len(due) == 0 {
		return nil
	}

	byAgent := make(map[int][]string)
	for _, lead := range due {
		if lead.AssignedTo == nil {
			continue
		}
		line := fmt.Sprintf("%s (%s) - follow up %s", lead.Name, lead.Stage, lead.NextFollowUp.Format("2006-01-02 15:04"))
		byAgent[*lead.AssignedTo] = append(byAgent[*lead.AssignedTo], line)
	}

	for agentID, lines := range byAgent {
		agent, err := s.users.GetByID(ctx, agentID)
		if err != nil {
			s.log.Error("failed to load agent for reminder", "user_id", agentID, "error", err)
			continue
		}

		body := "The following leads are due for follow-up today:\n\n"
		for _, line := range lines {
			body += "- " + line + "\n"
		}

		subject := fmt.Sprintf("Follow-up reminder: %d lead(s) due today", len(lines))
		if err := s.dispatcher.SendEmail(ctx, agent.Email, subject, "", body); err != nil {
			s.log.Error("failed to send reminder email", "user_id", agentID, "error", err)
			continue
		}
		s.log.Info("sent follow-up reminder", "user_id", agentID, "leads", len(lines))
	}

	return nil
}
