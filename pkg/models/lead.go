package models

import "time"

// Lead represents a prospective customer tracked through the sales pipeline
type Lead struct {
	ID           int        `json:"id"`
	Name         string     `json:"name"`
	Company      string     `json:"company,omitempty"`
	Email        string     `json:"email,omitempty"`
	Phone        string     `json:"phone,omitempty"`
	Value        float64    `json:"value"`
	Source       string     `json:"source,omitempty"`
	Stage        string     `json:"stage"`
	AssignedTo   *int       `json:"assigned_to,omitempty"`
	NextFollowUp *time.Time `json:"next_follow_up,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// LeadFilter narrows lead listings
type LeadFilter struct {
	Stage      string `query:"stage"`
	AssignedTo *int   `query:"assigned_to"`
	Unassigned bool   `query:"unassigned"`
	Limit      int    `query:"limit" validate:"omitempty,min=1,max=500"`
}

// CreateLeadRequest represents a lead creation request. The stage is always
// forced to the first pipeline stage, regardless of input.
type CreateLeadRequest struct {
	Name       string  `json:"name" validate:"required"`
	Company    string  `json:"company"`
	Email      string  `json:"email" validate:"omitempty,email"`
	Phone      string  `json:"phone"`
	Value      float64 `json:"value" validate:"min=0"`
	Source     string  `json:"source"`
	AssignedTo *int    `json:"assigned_to"`
}

// AssignLeadRequest represents a manual assignment request. A null user_id
// clears the assignment.
type AssignLeadRequest struct {
	UserID *int `json:"user_id"`
}

// ChangeStageRequest represents a Kanban drag-drop stage change
type ChangeStageRequest struct {
	Stage string `json:"stage" validate:"required"`
}

// ScheduleFollowUpRequest combines a date and an optional time of day.
// Date only implies midnight local time.
type ScheduleFollowUpRequest struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
	Time string `json:"time" validate:"omitempty,datetime=15:04"`
}

// Stage is one discrete step of the sales pipeline
type Stage struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Color    string `json:"color"`
	Position int    `json:"position"`
}
