package domain

import (
	"context"
	"time"

	"github.com/salespipehq/salespipe/pkg/models"
)

// LeadRepository defines data access operations for leads
type LeadRepository interface {
	List(ctx context.Context, filter models.LeadFilter) ([]models.Lead, error)
	GetByID(ctx context.Context, id int) (*models.Lead, error)
	Create(ctx context.Context, lead *models.Lead) error
	UpdateAssignee(ctx context.Context, leadID int, userID *int) error
	UpdateStage(ctx context.Context, leadID int, stage string) error
	UpdateFollowUp(ctx context.Context, leadID int, at time.Time) error
	ListUnassigned(ctx context.Context) ([]models.Lead, error)
	ListFollowUpsDue(ctx context.Context, by time.Time) ([]models.Lead, error)
}

// UserRepository defines data access operations for users
type UserRepository interface {
	List(ctx context.Context, role string) ([]models.User, error)
	GetByID(ctx context.Context, id int) (*models.User, error)
	// ListEligibleAgents returns active sales executives ordered by ID.
	// Round-robin distribution depends on this ordering being stable.
	ListEligibleAgents(ctx context.Context) ([]models.User, error)
}

// ActivityRepository defines data access operations for the append-only
// activity log. Records are never updated or deleted.
type ActivityRepository interface {
	Create(ctx context.Context, activity *models.Activity) error
	ListByLead(ctx context.Context, leadID, limit int) ([]models.Activity, error)
}

// CacheRepository defines caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeletePattern(ctx context.Context, pattern string) error
}
