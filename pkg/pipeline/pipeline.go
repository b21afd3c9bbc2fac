package pipeline

import (
	"fmt"
	"strings"

	"github.com/salespipehq/salespipe/pkg/models"
)

// Pipeline holds the ordered, configurable list of sales stages. Order
// matters for funnel reporting; transitions themselves are not constrained
// to be sequential — any configured stage can move to any other.
type Pipeline struct {
	stages []models.Stage
	byID   map[string]models.Stage
}

// Default returns the standard six-stage pipeline.
func Default() *Pipeline {
	p, _ := New([]models.Stage{
		{ID: "new", Label: "New", Color: "#64748b"},
		{ID: "contacted", Label: "Contacted", Color: "#3b82f6"},
		{ID: "qualified", Label: "Qualified", Color: "#8b5cf6"},
		{ID: "proposal", Label: "Proposal", Color: "#f59e0b"},
		{ID: "won", Label: "Won", Color: "#22c55e"},
		{ID: "lost", Label: "Lost", Color: "#ef4444"},
	})
	return p
}

// New builds a pipeline from an ordered stage list.
func New(stages []models.Stage) (*Pipeline, error) {
	if len(stages) == 0 {
		return nil, fmt.Errorf("pipeline requires at least one stage")
	}

	byID := make(map[string]models.Stage, len(stages))
	ordered := make([]models.Stage, len(stages))
	for i, s := range stages {
		if s.ID == "" {
			return nil, fmt.Errorf("stage at position %d has empty id", i)
		}
		if _, dup := byID[s.ID]; dup {
			return nil, fmt.Errorf("duplicate stage id %q", s.ID)
		}
		s.Position = i
		byID[s.ID] = s
		ordered[i] = s
	}

	return &Pipeline{stages: ordered, byID: byID}, nil
}

// Parse builds a pipeline from the "id:Label:#color,id:Label:#color"
// configuration format. An empty spec yields the default pipeline.
func Parse(spec string) (*Pipeline, error) {
	if strings.TrimSpace(spec) == "" {
		return Default(), nil
	}

	var stages []models.Stage
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.SplitN(part, ":", 3)
		stage := models.Stage{ID: strings.TrimSpace(fields[0])}
		if len(fields) > 1 {
			stage.Label = strings.TrimSpace(fields[1])
		}
		if stage.Label == "" {
			stage.Label = stage.ID
		}
		if len(fields) > 2 {
			stage.Color = strings.TrimSpace(fields[2])
		}
		stages = append(stages, stage)
	}

	return New(stages)
}

// Stages returns all stages in pipeline order.
func (p *Pipeline) Stages() []models.Stage {
	out := make([]models.Stage, len(p.stages))
	copy(out, p.stages)
	return out
}

// First returns the entry stage. New leads always start here.
func (p *Pipeline) First() models.Stage {
	return p.stages[0]
}

// Valid reports whether id is a configured stage.
func (p *Pipeline) Valid(id string) bool {
	_, ok := p.byID[id]
	return ok
}

// Get returns a stage by id.
func (p *Pipeline) Get(id string) (models.Stage, bool) {
	s, ok := p.byID[id]
	return s, ok
}
