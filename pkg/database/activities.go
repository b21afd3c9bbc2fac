package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/salespipehq/salespipe/pkg/domain"
	"github.com/salespipehq/salespipe/pkg/models"
)

// ActivityRepository is the Postgres implementation of
// domain.ActivityRepository. Inserts only; the activity log is append-only.
type ActivityRepository struct {
	db *sql.DB
}

// NewActivityRepository creates an activity repository
func NewActivityRepository(client *Client) *ActivityRepository {
	return &ActivityRepository{db: client.DB}
}

var _ domain.ActivityRepository = (*ActivityRepository)(nil)

// Create appends one activity entry
func (r *ActivityRepository) Create(ctx context.Context, a *models.Activity) error {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO activities (lead_id, user_id, type, notes, duration, outcome)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		a.LeadID, a.UserID, a.Type, a.Notes, a.Duration, a.Outcome)

	if err := row.Scan(&a.ID, &a.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert activity: %w", err)
	}
	return nil
}

// ListByLead returns the newest entries for a lead
func (r *ActivityRepository) ListByLead(ctx context.Context, leadID, limit int) ([]models.Activity, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, lead_id, user_id, type, notes, duration, outcome, created_at
		FROM activities WHERE lead_id = $1
		ORDER BY created_at DESC, id DESC LIMIT $2`, leadID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	defer rows.Close()

	activities := []models.Activity{}
	for rows.Next() {
		var a models.Activity
		if err := rows.Scan(&a.ID, &a.LeadID, &a.UserID, &a.Type, &a.Notes, &a.Duration, &a.Outcome, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate activities: %w", err)
	}
	return activities, nil
}
