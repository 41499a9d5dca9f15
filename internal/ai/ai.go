// Package ai defines the boundary contracts towards external model
// providers. The matching core consumes these interfaces; all
// non-deterministic generation stays outside the decision path.
package ai

import "context"

// Embedder produces a fixed-dimension vector for a text. The core never
// computes embeddings itself.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// RateRequest carries the context for a rate suggestion. It is only issued
// after the decision policy has approved an apply.
type RateRequest struct {
	Title         string
	Description   string
	ClientName    string
	BudgetMin     float64
	BudgetMax     float64
	CandidateName string
	CandidateRole string
	MinRate       float64
	Score         int
}

// RateSuggestion is the proposed hourly rate with its reasoning.
type RateSuggestion struct {
	Rate      float64
	Reasoning string
	Raw       string
}

// RateSuggester proposes an hourly rate for an approved application. Failures
// degrade to the candidate's minimum rate; they never block the decision.
type RateSuggester interface {
	SuggestRate(ctx context.Context, req RateRequest) (*RateSuggestion, error)
}
