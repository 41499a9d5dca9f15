package scoring

import (
	"fmt"
)

// Criterion names. Weight tables in the configuration must cover exactly the
// names required by their pipeline profile.
const (
	CriterionSkillMatch     = "skill_match"
	CriterionExperience     = "experience"
	CriterionEmbedding      = "embedding"
	CriterionMarketFit      = "market_fit"
	CriterionRiskFactors    = "risk_factors"
	CriterionClientHistory  = "client_history"
	CriterionBudgetCorridor = "budget_corridor"
	CriterionDeadline       = "deadline"
	CriterionPublicSector   = "public_sector"
)

// Blocker names. A triggered blocker short-circuits scoring to zero.
const (
	BlockerRejectKeywords    = "reject_keywords"
	BlockerProjectType       = "project_type"
	BlockerSecurityClearance = "security_clearance"
	BlockerConsortium        = "consortium_not_allowed"
	BlockerBudgetHardLimit   = "budget_hard_limit"
	BlockerTeamSize          = "team_size"
)

var (
	freelanceCriteria = []string{
		CriterionSkillMatch,
		CriterionExperience,
		CriterionEmbedding,
		CriterionMarketFit,
		CriterionRiskFactors,
		CriterionClientHistory,
	}
	tenderCriteria = []string{
		CriterionSkillMatch,
		CriterionExperience,
		CriterionEmbedding,
		CriterionBudgetCorridor,
		CriterionDeadline,
		CriterionRiskFactors,
	}
)

// Config declares the immutable criterion tables for both pipelines. It is
// loaded once at startup; the engine never re-derives weights per call.
type Config struct {
	Freelance         ProfileConfig `mapstructure:"freelance"`
	Tender            ProfileConfig `mapstructure:"tender"`
	PublicSectorBonus int           `mapstructure:"public-sector-bonus"`
}

// ProfileConfig is the criterion table for one pipeline.
type ProfileConfig struct {
	// Weights maps criterion name to its maximum points.
	Weights map[string]int `mapstructure:"weights"`

	// RejectKeywords trigger the reject_keywords blocker when found in the
	// opportunity text.
	RejectKeywords []string `mapstructure:"reject-keywords"`

	// AvoidProjectTypes trigger the project_type blocker against the
	// researched project type.
	AvoidProjectTypes []string `mapstructure:"avoid-project-types"`

	// Budget is the target corridor for the budget_corridor criterion.
	Budget BudgetCorridor `mapstructure:"budget"`

	// BudgetHardLimit triggers the budget_hard_limit blocker when the
	// estimated budget exceeds it. Zero disables the blocker.
	BudgetHardLimit float64 `mapstructure:"budget-hard-limit"`

	// DeadlineMinDays is the minimum acceptable runway for tenders.
	DeadlineMinDays int `mapstructure:"deadline-min-days"`

	// MaxTeamSize triggers the team_size blocker when a tender requires a
	// bigger team. Zero disables the blocker.
	MaxTeamSize int `mapstructure:"max-team-size"`
}

// BudgetCorridor is the inclusive budget range considered a fit.
type BudgetCorridor struct {
	Min float64 `mapstructure:"min"`
	Max float64 `mapstructure:"max"`
}

// DefaultConfig returns the shipped criterion tables. It exists for tests and
// for generating an initial config file; the run command always requires an
// explicit, validated configuration.
func DefaultConfig() Config {
	return Config{
		Freelance: ProfileConfig{
			Weights: map[string]int{
				CriterionSkillMatch:    60,
				CriterionExperience:    12,
				CriterionEmbedding:     8,
				CriterionMarketFit:     5,
				CriterionRiskFactors:   5,
				CriterionClientHistory: 10,
			},
			RejectKeywords: []string{"sap", "abap", "cobol", "mainframe", "provision", "commission only"},
			AvoidProjectTypes: []string{
				"seo", "marketing", "data-entry", "support-only",
			},
		},
		Tender: ProfileConfig{
			Weights: map[string]int{
				CriterionSkillMatch:     50,
				CriterionExperience:     10,
				CriterionEmbedding:      8,
				CriterionBudgetCorridor: 15,
				CriterionDeadline:       10,
				CriterionRiskFactors:    7,
			},
			RejectKeywords:  []string{"hardware", "druckerei", "gebäudereinigung"},
			Budget:          BudgetCorridor{Min: 50000, Max: 250000},
			BudgetHardLimit: 300000,
			DeadlineMinDays: 14,
			MaxTeamSize:     5,
		},
		PublicSectorBonus: 10,
	}
}

// Validate rejects incomplete or inconsistent criterion tables. A failing
// configuration is fatal at startup: running with silently patched weights
// would change audit semantics.
func (c Config) Validate() error {
	if err := c.Freelance.validate("freelance", freelanceCriteria); err != nil {
		return err
	}
	if err := c.Tender.validate("tender", tenderCriteria); err != nil {
		return err
	}
	if c.PublicSectorBonus < 0 || c.PublicSectorBonus > 20 {
		return fmt.Errorf("scoring: public-sector-bonus %d out of range [0, 20]", c.PublicSectorBonus)
	}
	return nil
}

func (p ProfileConfig) validate(pipeline string, required []string) error {
	if len(p.Weights) == 0 {
		return fmt.Errorf("scoring: %s weight table is missing", pipeline)
	}

	known := make(map[string]bool, len(required))
	for _, name := range required {
		known[name] = true
		points, ok := p.Weights[name]
		if !ok {
			return fmt.Errorf("scoring: %s weight table is missing criterion %q", pipeline, name)
		}
		if points <= 0 || points > 100 {
			return fmt.Errorf("scoring: %s criterion %q has invalid max points %d", pipeline, name, points)
		}
	}
	for name := range p.Weights {
		if !known[name] {
			return fmt.Errorf("scoring: %s weight table has unknown criterion %q", pipeline, name)
		}
	}

	if p.Budget.Min < 0 || p.Budget.Max < 0 || (p.Budget.Max > 0 && p.Budget.Min > p.Budget.Max) {
		return fmt.Errorf("scoring: %s budget corridor [%.0f, %.0f] is invalid", pipeline, p.Budget.Min, p.Budget.Max)
	}
	if p.BudgetHardLimit > 0 && p.BudgetHardLimit < p.Budget.Max {
		return fmt.Errorf("scoring: %s budget hard limit %.0f is below corridor max %.0f", pipeline, p.BudgetHardLimit, p.Budget.Max)
	}
	if p.DeadlineMinDays < 0 {
		return fmt.Errorf("scoring: %s deadline-min-days must not be negative", pipeline)
	}
	if p.MaxTeamSize < 0 {
		return fmt.Errorf("scoring: %s max-team-size must not be negative", pipeline)
	}

	return nil
}
