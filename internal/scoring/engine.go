package scoring

import (
	"context"

	"github.com/shopspring/decimal"
)

type Decision string

const (
	DecisionAdvance Decision = "advance"
	DecisionRevise  Decision = "revise"
	DecisionBlock   Decision = "block"
)

// Input is the proposal material handed to the screening engine.
type Input struct {
	Title          string          `json:"title"`
	Summary        string          `json:"summary"`
	Category       string          `json:"category"`
	BudgetCurrency string          `json:"budget_currency"`
	BudgetAmount   decimal.Decimal `json:"budget_amount"`
}

// Evaluation is the screening verdict. Scores are in [0,1].
type Evaluation struct {
	Decision         Decision `json:"decision"`
	AlignmentScore   float64  `json:"alignment_score"`
	FeasibilityScore float64  `json:"feasibility_score"`
	CompositeScore   float64  `json:"composite_score"`
	Rationale        string   `json:"rationale,omitempty"`
}

// Engine screens proposals before governance routing. cfg carries the
// active scoring weights; engines may ignore it.
type Engine interface {
	Evaluate(ctx context.Context, input Input, cfg map[string]interface{}) (*Evaluation, error)
}

// StaticEngine advances everything with neutral scores. Used when no
// scoring endpoint is configured, and in tests.
type StaticEngine struct{}

func NewStaticEngine() *StaticEngine {
	return &StaticEngine{}
}

func (e *StaticEngine) Evaluate(_ context.Context, _ Input, _ map[string]interface{}) (*Evaluation, error) {
	return &Evaluation{
		Decision:         DecisionAdvance,
		AlignmentScore:   0.5,
		FeasibilityScore: 0.5,
		CompositeScore:   0.5,
	}, nil
}
