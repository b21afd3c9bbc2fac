// Package testdata generates realistic fake leads and users for local
// development and seeding.
package testdata

import (
	"fmt"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/salespipehq/salespipe/pkg/models"
)

var leadSources = []string{"website", "referral", "cold_call", "trade_show", "linkedin"}

// Lead generates one fake lead in the given stage
func Lead(stage string) models.Lead {
	return models.Lead{
		Name:    gofakeit.Name(),
		Company: gofakeit.Company(),
		Email:   gofakeit.Email(),
		Phone:   fmt.Sprintf("9%09d", gofakeit.Number(0, 999999999)),
		Value:   float64(gofakeit.Number(500, 500000)),
		Source:  leadSources[gofakeit.Number(0, len(leadSources)-1)],
		Stage:   stage,
	}
}

// Leads generates n fake leads in the given stage
func Leads(n int, stage string) []models.Lead {
	out := make([]models.Lead, n)
	for i := range out {
		out[i] = Lead(stage)
	}
	return out
}

// SalesExecutive generates one active sales executive
func SalesExecutive() models.User {
	return models.User{
		Name:   gofakeit.Name(),
		Email:  gofakeit.Email(),
		Role:   models.RoleSalesExecutive,
		Team:   gofakeit.RandomString([]string{"inbound", "outbound", "enterprise"}),
		Active: true,
	}
}

// SalesTeam generates n active sales executives
func SalesTeam(n int) []models.User {
	out := make([]models.User, n)
	for i := range out {
		out[i] = SalesExecutive()
	}
	return out
}
