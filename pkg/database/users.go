package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/salespipehq/salespipe/pkg/domain"
	"github.com/salespipehq/salespipe/pkg/models"
)

// UserRepository is the Postgres implementation of domain.UserRepository
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a user repository
func NewUserRepository(client *Client) *UserRepository {
	return &UserRepository{db: client.DB}
}

var _ domain.UserRepository = (*UserRepository)(nil)

const userColumns = `id, name, email, role, team, active, created_at`

// List returns users, optionally filtered by role
func (r *UserRepository) List(ctx context.Context, role string) ([]models.User, error) {
	query := "SELECT " + userColumns + " FROM users"
	var args []any
	if role != "" {
		query += " WHERE role = $1"
		args = append(args, role)
	}
	query += " ORDER BY id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	return collectUsers(rows)
}

// GetByID returns one user
func (r *UserRepository) GetByID(ctx context.Context, id int) (*models.User, error) {
	var u models.User
	err := r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = $1", id).
		Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.Team, &u.Active, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.NewNotFoundError("user")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// ListEligibleAgents returns active sales executives ordered by id
func (r *UserRepository) ListEligibleAgents(ctx context.Context) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE role = $1 AND active ORDER BY id",
		models.RoleSalesExecutive)
	if err != nil {
		return nil, fmt.Errorf("failed to list eligible agents: %w", err)
	}
	defer rows.Close()

	return collectUsers(rows)
}

// Create inserts a user (used by seeding and tests)
func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO users (name, email, role, team, active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		u.Name, u.Email, u.Role, u.Team, u.Active)

	if err := row.Scan(&u.ID, &u.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func collectUsers(rows *sql.Rows) ([]models.User, error) {
	users := []models.User{}
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.Team, &u.Active, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}
