package models

import "time"

// Activity types
const (
	ActivityCall        = "call"
	ActivityEmail       = "email"
	ActivityMeeting     = "meeting"
	ActivityNote        = "note"
	ActivityStageChange = "stage_change"
	ActivityAssignment  = "assignment"
)

// Activity is an append-only log entry referencing a lead and a user.
// Never mutated after creation.
type Activity struct {
	ID        int       `json:"id"`
	LeadID    int       `json:"lead_id"`
	UserID    int       `json:"user_id"`
	Type      string    `json:"type"`
	Notes     string    `json:"notes,omitempty"`
	Duration  int       `json:"duration,omitempty"` // minutes
	Outcome   string    `json:"outcome,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateActivityRequest represents a manual activity log request
type CreateActivityRequest struct {
	LeadID   int    `json:"lead_id" validate:"required"`
	Type     string `json:"type" validate:"required,oneof=call email meeting note stage_change assignment"`
	Notes    string `json:"notes"`
	Duration int    `json:"duration" validate:"min=0"`
	Outcome  string `json:"outcome"`
}
