package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/salespipehq/salespipe/pkg/domain"
	"github.com/salespipehq/salespipe/pkg/models"
)

// LeadRepository is the Postgres implementation of domain.LeadRepository
type LeadRepository struct {
	db *sql.DB
}

// NewLeadRepository creates a lead repository
func NewLeadRepository(client *Client) *LeadRepository {
	return &LeadRepository{db: client.DB}
}

var _ domain.LeadRepository = (*LeadRepository)(nil)

const leadColumns = `id, name, company, email, phone, value, source, stage, assigned_to, next_follow_up, created_at, updated_at`

func scanLead(row interface{ Scan(...any) error }) (*models.Lead, error) {
	var l models.Lead
	var assignedTo sql.NullInt64
	var followUp sql.NullTime

	err := row.Scan(&l.ID, &l.Name, &l.Company, &l.Email, &l.Phone, &l.Value, &l.Source,
		&l.Stage, &assignedTo, &followUp, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if assignedTo.Valid {
		id := int(assignedTo.Int64)
		l.AssignedTo = &id
	}
	if followUp.Valid {
		t := followUp.Time
		l.NextFollowUp = &t
	}
	return &l, nil
}

// List returns leads matching the filter, oldest first
func (r *LeadRepository) List(ctx context.Context, filter models.LeadFilter) ([]models.Lead, error) {
	var (
		where []string
		args  []any
	)
	if filter.Stage != "" {
		args = append(args, filter.Stage)
		where = append(where, "stage = $"+strconv.Itoa(len(args)))
	}
	if filter.Unassigned {
		where = append(where, "assigned_to IS NULL")
	} else if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		where = append(where, "assigned_to = $"+strconv.Itoa(len(args)))
	}

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 200
	}

	query := "SELECT " + leadColumns + " FROM leads"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, limit)
	query += " ORDER BY created_at, id LIMIT $" + strconv.Itoa(len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	defer rows.Close()

	return collectLeads(rows)
}

// GetByID returns one lead
func (r *LeadRepository) GetByID(ctx context.Context, id int) (*models.Lead, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+leadColumns+" FROM leads WHERE id = $1", id)

	lead, err := scanLead(row)
	if err == sql.ErrNoRows {
		return nil, domain.NewNotFoundError("lead")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}
	return lead, nil
}

// Create inserts a lead and populates its generated fields
func (r *LeadRepository) Create(ctx context.Context, lead *models.Lead) error {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO leads (name, company, email, phone, value, source, stage, assigned_to)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`,
		lead.Name, lead.Company, lead.Email, lead.Phone, lead.Value, lead.Source,
		lead.Stage, nullableInt(lead.AssignedTo))

	if err := row.Scan(&lead.ID, &lead.CreatedAt, &lead.UpdatedAt); err != nil {
		return fmt.Errorf("failed to insert lead: %w", err)
	}
	return nil
}

// UpdateAssignee overwrites assigned_to, NULL when userID is nil
func (r *LeadRepository) UpdateAssignee(ctx context.Context, leadID int, userID *int) error {
	return r.update(ctx, leadID,
		"UPDATE leads SET assigned_to = $2, updated_at = now() WHERE id = $1",
		nullableInt(userID))
}

// UpdateStage overwrites the pipeline stage
func (r *LeadRepository) UpdateStage(ctx context.Context, leadID int, stage string) error {
	return r.update(ctx, leadID,
		"UPDATE leads SET stage = $2, updated_at = now() WHERE id = $1", stage)
}

// UpdateFollowUp overwrites the next follow-up timestamp
func (r *LeadRepository) UpdateFollowUp(ctx context.Context, leadID int, at time.Time) error {
	return r.update(ctx, leadID,
		"UPDATE leads SET next_follow_up = $2, updated_at = now() WHERE id = $1", at)
}

// ListUnassigned returns unassigned leads in creation order. Round-robin
// distribution depends on this ordering being stable.
func (r *LeadRepository) ListUnassigned(ctx context.Context) ([]models.Lead, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+leadColumns+" FROM leads WHERE assigned_to IS NULL ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("failed to list unassigned leads: %w", err)
	}
	defer rows.Close()

	return collectLeads(rows)
}

// ListFollowUpsDue returns assigned leads whose follow-up is due at or
// before the given time
func (r *LeadRepository) ListFollowUpsDue(ctx context.Context, by time.Time) ([]models.Lead, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+leadColumns+` FROM leads
		 WHERE next_follow_up IS NOT NULL AND next_follow_up <= $1 AND assigned_to IS NOT NULL
		 ORDER BY next_follow_up`, by)
	if err != nil {
		return nil, fmt.Errorf("failed to list due follow-ups: %w", err)
	}
	defer rows.Close()

	return collectLeads(rows)
}

func (r *LeadRepository) update(ctx context.Context, leadID int, query string, arg any) error {
	res, err := r.db.ExecContext(ctx, query, leadID, arg)
	if err != nil {
		return fmt.Errorf("failed to update lead: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		return domain.NewNotFoundError("lead")
	}
	return nil
}

func collectLeads(rows *sql.Rows) ([]models.Lead, error) {
	leads := []models.Lead{}
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lead: %w", err)
		}
		leads = append(leads, *lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate leads: %w", err)
	}
	return leads, nil
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
