package opportunity

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Research carries the upstream research output for an opportunity. The
// matching engine treats it as an opaque, already-fetched input: it never
// calls the research agent itself.
type Research struct {
	ProjectType          string   `json:"project_type" yaml:"project-type"`
	EstimatedBudgetRange string   `json:"estimated_budget_range" yaml:"estimated-budget-range"`
	EstimatedBudgetMax   float64  `json:"estimated_budget_max" yaml:"estimated-budget-max"`
	RedFlags             []string `json:"red_flags" yaml:"red-flags"`
	Opportunities        []string `json:"opportunities" yaml:"opportunities"`
	Recommendation       string   `json:"recommendation" yaml:"recommendation"`

	// Tender fit facts extracted from the tender documents.
	RequiresSecurityClearance bool  `json:"requires_security_clearance" yaml:"requires-security-clearance"`
	ConsortiumAllowed         *bool `json:"consortium_allowed" yaml:"consortium-allowed"`
	MinTeamSize               int   `json:"min_team_size" yaml:"min-team-size"`
	DeadlineDays              int   `json:"deadline_days" yaml:"deadline-days"`
}

// DecodeResearch converts a loosely-typed research payload, as produced by
// the external research agent, into a Research struct. Unknown keys are
// ignored so agent output can evolve without breaking the pipeline.
func DecodeResearch(payload map[string]any) (*Research, error) {
	if payload == nil {
		return nil, nil
	}

	var research Research
	cfg := &mapstructure.DecoderConfig{
		Result:           &research,
		TagName:          "json",
		WeaklyTypedInput: true,
	}

	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return nil, fmt.Errorf("building research decoder: %w", err)
	}

	if err := decoder.Decode(payload); err != nil {
		return nil, fmt.Errorf("decoding research payload: %w", err)
	}

	return &research, nil
}
