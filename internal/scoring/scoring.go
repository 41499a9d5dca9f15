// Package scoring computes a bounded match score for one (opportunity,
// candidate) pair from a fixed table of weighted criteria. The engine is a
// pure function of its inputs and configuration: identical inputs always
// produce identical scores and breakdowns.
package scoring

import (
	"fmt"
	"math"
	"strings"

	"github.com/teamwerk/akquise-pilot/internal/opportunity"
	"github.com/teamwerk/akquise-pilot/internal/profile"
)

// MaxScore is the upper bound of the total score.
const MaxScore = 100

// Award is one criterion's contribution to the total.
type Award struct {
	Name      string
	Points    int
	Max       int
	Rationale string
}

// Result is the scored outcome for one (opportunity, candidate) pair.
type Result struct {
	Score     int
	Breakdown []Award
	Blocked   bool
	BlockedBy string
}

// Input bundles everything a scoring call may read.
type Input struct {
	Opportunity *opportunity.Opportunity
	Candidate   *profile.Candidate

	// Similarity is the embedding similarity reported by the index for this
	// candidate.
	Similarity float64

	// Priors is the read-only outcome history; nil means no history.
	Priors *Priors
}

// Priors carries pre-aggregated outcome statistics. They are recomputed by an
// external job; the engine never mutates them.
type Priors struct {
	// ClientHistory maps normalized client names to win statistics.
	ClientHistory map[string]ClientStats

	// PoolSize is the number of active candidates, used by the tender
	// team-size blocker.
	PoolSize int
}

// ClientStats is the historical record for one client.
type ClientStats struct {
	Applications int
	Wins         int
}

type blocker struct {
	name  string
	check func(e *Engine, p ProfileConfig, in Input) (bool, string)
}

type criterion struct {
	name string
	eval func(e *Engine, p ProfileConfig, in Input, max int) (int, string)
}

// Engine evaluates the configured criterion tables. Construct once at
// startup; Score is safe for concurrent use.
type Engine struct {
	cfg Config
}

// NewEngine validates the configuration and builds a scorer.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg}, nil
}

// Score evaluates one pair. Blockers run first: a triggered blocker
// short-circuits to score zero with a single "blocked by" breakdown entry.
// Otherwise each criterion contributes min(points, max) and the total is
// clamped to [0, MaxScore]. Missing optional fields award zero points for
// their criterion; they never abort the evaluation.
func (e *Engine) Score(in Input) (Result, error) {
	if in.Opportunity == nil {
		return Result{}, fmt.Errorf("scoring: opportunity is required")
	}
	if in.Candidate == nil {
		return Result{}, fmt.Errorf("scoring: candidate is required")
	}

	var p ProfileConfig
	var criteria []criterion
	var blockers []blocker
	switch in.Opportunity.Pipeline {
	case opportunity.PipelineFreelance:
		p = e.cfg.Freelance
		criteria = freelanceEvaluators
		blockers = freelanceBlockers
	case opportunity.PipelineTender:
		p = e.cfg.Tender
		criteria = tenderEvaluators
		blockers = tenderBlockers
	default:
		return Result{}, fmt.Errorf("scoring: unknown pipeline %q", in.Opportunity.Pipeline)
	}

	for _, b := range blockers {
		triggered, rationale := b.check(e, p, in)
		if !triggered {
			continue
		}
		return Result{
			Score:     0,
			Blocked:   true,
			BlockedBy: b.name,
			Breakdown: []Award{{
				Name:      b.name,
				Points:    0,
				Max:       0,
				Rationale: "blocked by " + b.name + ": " + rationale,
			}},
		}, nil
	}

	total := 0
	breakdown := make([]Award, 0, len(criteria)+1)
	for _, c := range criteria {
		max := p.Weights[c.name]
		points, rationale := c.eval(e, p, in, max)
		if points > max {
			points = max
		}
		if points < 0 {
			points = 0
		}
		total += points
		breakdown = append(breakdown, Award{Name: c.name, Points: points, Max: max, Rationale: rationale})
	}

	if in.Opportunity.PublicSector && e.cfg.PublicSectorBonus > 0 {
		bonus := e.cfg.PublicSectorBonus
		total += bonus
		breakdown = append(breakdown, Award{
			Name:      CriterionPublicSector,
			Points:    bonus,
			Max:       bonus,
			Rationale: "public-sector client preference",
		})
	}

	if total > MaxScore {
		total = MaxScore
	}

	return Result{Score: total, Breakdown: breakdown}, nil
}

var freelanceEvaluators = []criterion{
	{CriterionSkillMatch, evalSkillMatch},
	{CriterionExperience, evalExperience},
	{CriterionEmbedding, evalEmbedding},
	{CriterionMarketFit, evalMarketFit},
	{CriterionRiskFactors, evalRiskFactors},
	{CriterionClientHistory, evalClientHistory},
}

var tenderEvaluators = []criterion{
	{CriterionSkillMatch, evalSkillMatch},
	{CriterionExperience, evalExperience},
	{CriterionEmbedding, evalEmbedding},
	{CriterionBudgetCorridor, evalBudgetCorridor},
	{CriterionDeadline, evalDeadline},
	{CriterionRiskFactors, evalRiskFactors},
}

var freelanceBlockers = []blocker{
	{BlockerRejectKeywords, checkRejectKeywords},
	{BlockerProjectType, checkProjectType},
}

var tenderBlockers = []blocker{
	{BlockerRejectKeywords, checkRejectKeywords},
	{BlockerSecurityClearance, checkSecurityClearance},
	{BlockerConsortium, checkConsortium},
	{BlockerBudgetHardLimit, checkBudgetHardLimit},
	{BlockerTeamSize, checkTeamSize},
}

func evalSkillMatch(_ *Engine, _ ProfileConfig, in Input, max int) (int, string) {
	candidateSkills := normalizeSkillSet(in.Candidate.Skills)
	if len(candidateSkills) == 0 {
		return 0, "candidate lists no skills"
	}

	wanted := normalizeSkillSet(in.Opportunity.Skills)
	if len(wanted) > 0 {
		matched := 0
		for skill := range wanted {
			if candidateSkills[skill] {
				matched++
			}
		}
		ratio := float64(matched) / float64(len(wanted))
		return roundPoints(ratio, max), fmt.Sprintf("%d of %d required skills covered", matched, len(wanted))
	}

	// No explicit skill list: fall back to scanning the opportunity text for
	// candidate skills.
	text := strings.ToLower(in.Opportunity.Text())
	if strings.TrimSpace(text) == "" {
		return 0, "opportunity lists no skills and has no description"
	}
	matched := 0
	for skill := range candidateSkills {
		if strings.Contains(text, skill) {
			matched++
		}
	}
	ratio := float64(matched) / float64(len(candidateSkills))
	return roundPoints(ratio, max), fmt.Sprintf("%d of %d candidate skills found in description", matched, len(candidateSkills))
}

var seniorityLevels = map[string]int{
	"junior":    1,
	"mid":       2,
	"senior":    3,
	"lead":      4,
	"principal": 5,
}

func evalExperience(_ *Engine, _ ProfileConfig, in Input, max int) (int, string) {
	level, ok := seniorityLevels[strings.ToLower(strings.TrimSpace(in.Candidate.Seniority))]
	if !ok {
		return 0, "candidate seniority not specified"
	}
	switch {
	case level >= 3:
		return max, in.Candidate.Seniority + " level"
	case level == 2:
		return roundPoints(2.0/3.0, max), "mid level"
	default:
		return roundPoints(1.0/3.0, max), "junior level"
	}
}

func evalEmbedding(_ *Engine, _ ProfileConfig, in Input, max int) (int, string) {
	sim := in.Similarity
	if sim <= 0 {
		return 0, fmt.Sprintf("profile similarity %.3f", sim)
	}
	if sim > 1 {
		sim = 1
	}
	return roundPoints(sim, max), fmt.Sprintf("profile similarity %.3f", in.Similarity)
}

func evalMarketFit(_ *Engine, _ ProfileConfig, in Input, max int) (int, string) {
	budgetMax := in.Opportunity.BudgetMax
	if budgetMax <= 0 {
		return 0, "no budget information"
	}
	minRate := in.Candidate.MinRate
	if minRate <= 0 {
		return max, fmt.Sprintf("budget up to %.0f, candidate has no minimum rate", budgetMax)
	}
	switch {
	case budgetMax >= minRate:
		return max, fmt.Sprintf("budget up to %.0f covers minimum rate %.0f", budgetMax, minRate)
	case budgetMax >= minRate*0.8:
		return roundPoints(0.5, max), fmt.Sprintf("budget up to %.0f is close to minimum rate %.0f", budgetMax, minRate)
	default:
		return 0, fmt.Sprintf("budget up to %.0f is below minimum rate %.0f", budgetMax, minRate)
	}
}

func evalRiskFactors(_ *Engine, _ ProfileConfig, in Input, max int) (int, string) {
	research := in.Opportunity.Research
	if research == nil {
		return 0, "no research notes"
	}
	flags := len(research.RedFlags)
	points := max - 2*flags
	if points < 0 {
		points = 0
	}
	if flags == 0 {
		return points, "no red flags reported"
	}
	return points, fmt.Sprintf("%d red flags: %s", flags, strings.Join(research.RedFlags, "; "))
}

func evalClientHistory(_ *Engine, _ ProfileConfig, in Input, max int) (int, string) {
	client := NormalizeClient(in.Opportunity.ClientName)
	if client == "" {
		return 0, "client name unknown"
	}
	if in.Priors == nil {
		return 0, "no outcome history available"
	}
	stats, ok := in.Priors.ClientHistory[client]
	if !ok || stats.Applications == 0 {
		return 0, "no prior outcomes for this client"
	}
	rate := float64(stats.Wins) / float64(stats.Applications)
	return roundPoints(rate, max), fmt.Sprintf("won %d of %d prior applications", stats.Wins, stats.Applications)
}

func evalBudgetCorridor(_ *Engine, p ProfileConfig, in Input, max int) (int, string) {
	budget := estimatedBudget(in.Opportunity)
	if budget <= 0 {
		return 0, "no budget estimate"
	}
	switch {
	case budget < p.Budget.Min:
		return 0, fmt.Sprintf("budget %.0f below corridor minimum %.0f", budget, p.Budget.Min)
	case p.Budget.Max > 0 && budget > p.Budget.Max:
		return 0, fmt.Sprintf("budget %.0f above corridor maximum %.0f", budget, p.Budget.Max)
	default:
		return max, fmt.Sprintf("budget %.0f inside target corridor", budget)
	}
}

func evalDeadline(_ *Engine, p ProfileConfig, in Input, max int) (int, string) {
	research := in.Opportunity.Research
	if research == nil || research.DeadlineDays <= 0 {
		return 0, "no deadline information"
	}
	days := research.DeadlineDays
	switch {
	case p.DeadlineMinDays == 0 || days >= p.DeadlineMinDays:
		return max, fmt.Sprintf("%d days until deadline", days)
	case days*2 >= p.DeadlineMinDays:
		return roundPoints(0.5, max), fmt.Sprintf("only %d days until deadline", days)
	default:
		return 0, fmt.Sprintf("deadline in %d days is too close", days)
	}
}

func checkRejectKeywords(_ *Engine, p ProfileConfig, in Input) (bool, string) {
	if len(p.RejectKeywords) == 0 {
		return false, ""
	}
	text := strings.ToLower(in.Opportunity.Text() + " " + strings.Join(in.Opportunity.Skills, " "))
	var found []string
	for _, kw := range p.RejectKeywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(text, kw) {
			found = append(found, kw)
		}
	}
	if len(found) == 0 {
		return false, ""
	}
	return true, "reject keywords found: " + strings.Join(found, ", ")
}

func checkProjectType(_ *Engine, p ProfileConfig, in Input) (bool, string) {
	research := in.Opportunity.Research
	if research == nil || len(p.AvoidProjectTypes) == 0 {
		return false, ""
	}
	projectType := strings.ToLower(strings.TrimSpace(research.ProjectType))
	for _, avoid := range p.AvoidProjectTypes {
		if projectType == strings.ToLower(strings.TrimSpace(avoid)) {
			return true, fmt.Sprintf("project type %q does not fit the team profile", research.ProjectType)
		}
	}
	return false, ""
}

func checkSecurityClearance(_ *Engine, _ ProfileConfig, in Input) (bool, string) {
	research := in.Opportunity.Research
	if research == nil || !research.RequiresSecurityClearance {
		return false, ""
	}
	return true, "security clearance required, team holds none"
}

func checkConsortium(_ *Engine, _ ProfileConfig, in Input) (bool, string) {
	research := in.Opportunity.Research
	if research == nil || research.ConsortiumAllowed == nil || *research.ConsortiumAllowed {
		return false, ""
	}
	return true, "bidding consortium not permitted, single bidders only"
}

func checkBudgetHardLimit(_ *Engine, p ProfileConfig, in Input) (bool, string) {
	if p.BudgetHardLimit <= 0 {
		return false, ""
	}
	budget := estimatedBudget(in.Opportunity)
	if budget <= p.BudgetHardLimit {
		return false, ""
	}
	return true, fmt.Sprintf("estimated budget %.0f exceeds hard limit %.0f", budget, p.BudgetHardLimit)
}

func checkTeamSize(_ *Engine, p ProfileConfig, in Input) (bool, string) {
	research := in.Opportunity.Research
	if research == nil || p.MaxTeamSize <= 0 || research.MinTeamSize <= p.MaxTeamSize {
		return false, ""
	}
	return true, fmt.Sprintf("requires a team of %d, pool supports at most %d", research.MinTeamSize, p.MaxTeamSize)
}

func estimatedBudget(o *opportunity.Opportunity) float64 {
	if o.Research != nil && o.Research.EstimatedBudgetMax > 0 {
		return o.Research.EstimatedBudgetMax
	}
	return o.BudgetMax
}

func roundPoints(ratio float64, max int) int {
	if ratio <= 0 {
		return 0
	}
	if ratio >= 1 {
		return max
	}
	return int(math.Round(ratio * float64(max)))
}
