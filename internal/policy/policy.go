// Package policy maps a match score to a tri-state decision using configured
// cutoffs and owns the fixed set of rejection reason codes.
package policy

import (
	"fmt"

	"github.com/teamwerk/akquise-pilot/internal/opportunity"
	"github.com/teamwerk/akquise-pilot/internal/scoring"
)

// Decision is the terminal outcome for an opportunity.
type Decision string

const (
	DecisionReject Decision = "reject"
	DecisionReview Decision = "review"
	DecisionApply  Decision = "apply"
)

// ReasonCode is the enumerated, auditable ground for a rejection. Every
// reject resolves to one of these; "no matching code" is not representable.
type ReasonCode string

const (
	ReasonTechStackMismatch      ReasonCode = "TECH_STACK_MISMATCH"
	ReasonExperienceInsufficient ReasonCode = "EXPERIENCE_INSUFFICIENT"
	ReasonBudgetTooLow           ReasonCode = "BUDGET_TOO_LOW"
	ReasonBudgetTooHigh          ReasonCode = "BUDGET_TOO_HIGH"
	ReasonTimelineConflict       ReasonCode = "TIMELINE_CONFLICT"
	ReasonKeywordReject          ReasonCode = "KEYWORD_REJECT"
	ReasonProjectTypeMismatch    ReasonCode = "PROJECT_TYPE_MISMATCH"
	ReasonSecurityClearance      ReasonCode = "SECURITY_CLEARANCE"
	ReasonConsortiumNotAllowed   ReasonCode = "CONSORTIUM_NOT_ALLOWED"
	ReasonTeamSizeMismatch       ReasonCode = "TEAM_SIZE_MISMATCH"
	ReasonParallelLimitReached   ReasonCode = "PARALLEL_LIMIT_REACHED"
	ReasonLowSuccessProbability  ReasonCode = "LOW_SUCCESS_PROBABILITY"
)

var knownCodes = map[ReasonCode]bool{
	ReasonTechStackMismatch:      true,
	ReasonExperienceInsufficient: true,
	ReasonBudgetTooLow:           true,
	ReasonBudgetTooHigh:          true,
	ReasonTimelineConflict:       true,
	ReasonKeywordReject:          true,
	ReasonProjectTypeMismatch:    true,
	ReasonSecurityClearance:      true,
	ReasonConsortiumNotAllowed:   true,
	ReasonTeamSizeMismatch:       true,
	ReasonParallelLimitReached:   true,
	ReasonLowSuccessProbability:  true,
}

// Valid reports whether the code belongs to the fixed enum.
func (c ReasonCode) Valid() bool { return knownCodes[c] }

var blockerCodes = map[string]ReasonCode{
	scoring.BlockerRejectKeywords:    ReasonKeywordReject,
	scoring.BlockerProjectType:       ReasonProjectTypeMismatch,
	scoring.BlockerSecurityClearance: ReasonSecurityClearance,
	scoring.BlockerConsortium:        ReasonConsortiumNotAllowed,
	scoring.BlockerBudgetHardLimit:   ReasonBudgetTooHigh,
	scoring.BlockerTeamSize:          ReasonTeamSizeMismatch,
}

// CodeForBlocker resolves a triggered blocker to its reason code. Unknown
// blocker names fall back to LOW_SUCCESS_PROBABILITY so a reject always
// carries a code from the enum.
func CodeForBlocker(name string) ReasonCode {
	if code, ok := blockerCodes[name]; ok {
		return code
	}
	return ReasonLowSuccessProbability
}

// Thresholds are the decision cutoffs for one pipeline. Lower bounds are
// inclusive: a score exactly at a cutoff resolves to the higher band.
type Thresholds struct {
	Review int `mapstructure:"review"`
	Apply  int `mapstructure:"apply"`
}

// Config holds the cutoffs for both pipelines. Values come from the config
// file; there are no hardcoded fallbacks.
type Config struct {
	Freelance Thresholds `mapstructure:"freelance"`
	Tender    Thresholds `mapstructure:"tender"`
}

// DefaultConfig returns the shipped cutoffs (freelance 60/75, tender 50/70).
func DefaultConfig() Config {
	return Config{
		Freelance: Thresholds{Review: 60, Apply: 75},
		Tender:    Thresholds{Review: 50, Apply: 70},
	}
}

// Validate rejects missing or inverted cutoffs. Like the weight tables, a
// bad threshold configuration is fatal at startup.
func (c Config) Validate() error {
	if err := c.Freelance.validate("freelance"); err != nil {
		return err
	}
	return c.Tender.validate("tender")
}

func (t Thresholds) validate(pipeline string) error {
	if t.Review <= 0 || t.Apply <= 0 {
		return fmt.Errorf("policy: %s thresholds are not configured", pipeline)
	}
	if t.Review >= t.Apply {
		return fmt.Errorf("policy: %s review threshold %d must be below apply threshold %d", pipeline, t.Review, t.Apply)
	}
	if t.Apply > scoring.MaxScore {
		return fmt.Errorf("policy: %s apply threshold %d exceeds maximum score %d", pipeline, t.Apply, scoring.MaxScore)
	}
	return nil
}

// Policy decides outcomes from scores.
type Policy struct {
	cfg Config
}

// New validates the cutoffs and builds a policy.
func New(cfg Config) (*Policy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Policy{cfg: cfg}, nil
}

// Decide maps a score to reject/review/apply for the given pipeline.
func (p *Policy) Decide(score int, pipeline opportunity.Pipeline) (Decision, error) {
	var t Thresholds
	switch pipeline {
	case opportunity.PipelineFreelance:
		t = p.cfg.Freelance
	case opportunity.PipelineTender:
		t = p.cfg.Tender
	default:
		return "", fmt.Errorf("policy: unknown pipeline %q", pipeline)
	}

	switch {
	case score >= t.Apply:
		return DecisionApply, nil
	case score >= t.Review:
		return DecisionReview, nil
	default:
		return DecisionReject, nil
	}
}

// SuccessProbability derives the estimated success probability recorded with
// a decision. Blocked evaluations carry a small non-zero floor so they stay
// distinguishable from unscored records.
func SuccessProbability(score int, blocked bool) float64 {
	if blocked {
		return 0.05
	}
	p := float64(score) / float64(scoring.MaxScore)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
