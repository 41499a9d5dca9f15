// Package match ties retrieval, scoring, decisioning and admission together
// for one opportunity at a time and emits the structured outcome record.
package match

import (
	"context"
	"errors"
	"fmt"

	"github.com/teamwerk/akquise-pilot/internal/admission"
	"github.com/teamwerk/akquise-pilot/internal/ai"
	"github.com/teamwerk/akquise-pilot/internal/index"
	"github.com/teamwerk/akquise-pilot/internal/opportunity"
	"github.com/teamwerk/akquise-pilot/internal/policy"
	"github.com/teamwerk/akquise-pilot/internal/profile"
	"github.com/teamwerk/akquise-pilot/internal/scoring"

	"go.uber.org/zap"
)

// DefaultTopK is the number of candidates retrieved per opportunity.
const DefaultTopK = 3

// ErrAlreadyDecided is returned when the caller hands in an opportunity that
// already carries a terminal decision. The orchestrator does not silently
// re-score; callers must check the status first.
var ErrAlreadyDecided = errors.New("opportunity already carries a terminal decision")

// Result is the match outcome for one opportunity.
type Result struct {
	BestCandidateID   int
	BestCandidateName string
	Score             int
	Decision          policy.Decision
	Breakdown         []scoring.Award
	ReasonCode        policy.ReasonCode
	ReasonText        string
	Probability       float64
	ProposedRate      float64
	RateReasoning     string
}

// Orchestrator evaluates opportunities against the candidate pool snapshot.
// All collaborators are injected; the orchestrator holds no mutable state of
// its own and is safe for concurrent use.
type Orchestrator struct {
	embedder  ai.Embedder
	querier   index.Querier
	pool      *profile.Pool
	engine    *scoring.Engine
	policy    *policy.Policy
	admission admission.Controller
	bump      admission.BumpPolicy
	rates     ai.RateSuggester
	priors    *scoring.Priors
	topK      int
	logger    *zap.Logger
}

// Deps bundles the orchestrator collaborators. Embedder, Querier, Pool,
// Engine, Policy and Admission are required; Bump, Rates and Priors are
// optional.
type Deps struct {
	Embedder  ai.Embedder
	Querier   index.Querier
	Pool      *profile.Pool
	Engine    *scoring.Engine
	Policy    *policy.Policy
	Admission admission.Controller
	Bump      admission.BumpPolicy
	Rates     ai.RateSuggester
	Priors    *scoring.Priors
	TopK      int
	Logger    *zap.Logger
}

// New validates the dependencies and builds an orchestrator.
func New(deps Deps) (*Orchestrator, error) {
	switch {
	case deps.Embedder == nil:
		return nil, errors.New("match: embedder is required")
	case deps.Querier == nil:
		return nil, errors.New("match: index querier is required")
	case deps.Pool == nil:
		return nil, errors.New("match: candidate pool is required")
	case deps.Engine == nil:
		return nil, errors.New("match: scoring engine is required")
	case deps.Policy == nil:
		return nil, errors.New("match: decision policy is required")
	case deps.Admission == nil:
		return nil, errors.New("match: admission controller is required")
	}

	topK := deps.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Orchestrator{
		embedder:  deps.Embedder,
		querier:   deps.Querier,
		pool:      deps.Pool,
		engine:    deps.Engine,
		policy:    deps.Policy,
		admission: deps.Admission,
		bump:      deps.Bump,
		rates:     deps.Rates,
		priors:    deps.Priors,
		topK:      topK,
		logger:    log,
	}, nil
}

// Match evaluates one opportunity and returns its outcome. The evaluation is
// idempotent for a fixed pool snapshot and admission state; it mutates
// nothing except the admission count on a granted apply.
func (o *Orchestrator) Match(ctx context.Context, opp *opportunity.Opportunity) (*Result, error) {
	if err := opp.Validate(); err != nil {
		return nil, fmt.Errorf("validating %s: %w", opp.Key(), err)
	}
	if opp.Status.Terminal() {
		return nil, fmt.Errorf("%s has status %q: %w", opp.Key(), opp.Status, ErrAlreadyDecided)
	}

	vector, err := o.embedder.Embed(ctx, opp.Text())
	if err != nil {
		return nil, fmt.Errorf("embedding %s: %w", opp.Key(), err)
	}

	hits, err := o.querier.Query(vector, o.topK)
	if errors.Is(err, index.ErrEmptyIndex) {
		// An empty pool is an operational condition, not a verdict on the
		// opportunity: park it for a human instead of rejecting.
		o.logger.Warn("no active candidates, deferring to review", zap.String("opportunity", opp.Key()))
		return &Result{
			Decision:    policy.DecisionReview,
			ReasonText:  "no active candidates",
			Probability: 0,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying index for %s: %w", opp.Key(), err)
	}

	best, bestResult, err := o.scoreCandidates(opp, hits)
	if err != nil {
		return nil, err
	}

	decision, err := o.policy.Decide(bestResult.Score, opp.Pipeline)
	if err != nil {
		return nil, err
	}

	result := &Result{
		BestCandidateID:   best.ID,
		BestCandidateName: best.Name,
		Score:             bestResult.Score,
		Decision:          decision,
		Breakdown:         bestResult.Breakdown,
		Probability:       policy.SuccessProbability(bestResult.Score, bestResult.Blocked),
	}

	switch decision {
	case policy.DecisionReject:
		result.ReasonCode, result.ReasonText = o.rejectionReason(bestResult)
	case policy.DecisionApply:
		if err := o.admit(ctx, opp, result); err != nil {
			return nil, err
		}
	}

	if result.Decision == policy.DecisionApply && opp.Pipeline == opportunity.PipelineFreelance {
		o.proposeRate(ctx, opp, best, result)
	}

	o.logger.Info("match decided",
		zap.String("opportunity", opp.Key()),
		zap.String("pipeline", string(opp.Pipeline)),
		zap.Int("score", result.Score),
		zap.String("decision", string(result.Decision)),
		zap.Int("candidate_id", result.BestCandidateID),
		zap.String("reason_code", string(result.ReasonCode)),
	)

	return result, nil
}

// scoreCandidates scores every retrieved candidate and picks the maximum,
// ties broken by the lower candidate id.
func (o *Orchestrator) scoreCandidates(opp *opportunity.Opportunity, hits []index.Hit) (*profile.Candidate, scoring.Result, error) {
	var best *profile.Candidate
	var bestResult scoring.Result

	for _, hit := range hits {
		candidate := o.pool.ByID(hit.CandidateID)
		if candidate == nil {
			return nil, scoring.Result{}, fmt.Errorf("index returned unknown candidate id %d", hit.CandidateID)
		}

		result, err := o.engine.Score(scoring.Input{
			Opportunity: opp,
			Candidate:   candidate,
			Similarity:  hit.Similarity,
			Priors:      o.priors,
		})
		if err != nil {
			return nil, scoring.Result{}, fmt.Errorf("scoring %s against candidate %d: %w", opp.Key(), candidate.ID, err)
		}

		o.logger.Debug("candidate scored",
			zap.String("opportunity", opp.Key()),
			zap.Int("candidate_id", candidate.ID),
			zap.Int("score", result.Score),
			zap.Bool("blocked", result.Blocked),
		)

		if best == nil ||
			result.Score > bestResult.Score ||
			(result.Score == bestResult.Score && candidate.ID < best.ID) {
			best = candidate
			bestResult = result
		}
	}

	if best == nil {
		return nil, scoring.Result{}, errors.New("index returned no candidates")
	}

	return best, bestResult, nil
}

// rejectionReason resolves the mandatory reason code for a reject. Blockers
// map to their dedicated codes; plain low scores fall back to
// LOW_SUCCESS_PROBABILITY.
func (o *Orchestrator) rejectionReason(result scoring.Result) (policy.ReasonCode, string) {
	if result.Blocked {
		text := ""
		if len(result.Breakdown) > 0 {
			text = result.Breakdown[0].Rationale
		}
		return policy.CodeForBlocker(result.BlockedBy), text
	}
	return policy.ReasonLowSuccessProbability, fmt.Sprintf("score %d below threshold", result.Score)
}

// admit consults the admission controller for an approved apply. A denial is
// a deterministic downgrade, never an error: reject with
// PARALLEL_LIMIT_REACHED, or review when the opportunity is public-sector and
// the bump policy allows it.
func (o *Orchestrator) admit(ctx context.Context, opp *opportunity.Opportunity, result *Result) error {
	grant, err := o.admission.TryAdmit(ctx, opp.Pipeline)
	if err != nil {
		return fmt.Errorf("admission check for %s: %w", opp.Key(), err)
	}
	if grant.Granted {
		return nil
	}

	o.logger.Info("admission denied, downgrading decision",
		zap.String("opportunity", opp.Key()),
		zap.Int("active", grant.Active),
		zap.Int("cap", grant.Cap),
		zap.Bool("public_sector", opp.PublicSector),
	)

	if opp.PublicSector && o.bump != nil && o.bump.Eligible(opp) {
		result.Decision = policy.DecisionReview
		result.ReasonText = fmt.Sprintf("capacity reached (%d/%d), public-sector bump candidate", grant.Active, grant.Cap)
		return nil
	}

	result.Decision = policy.DecisionReject
	result.ReasonCode = policy.ReasonParallelLimitReached
	result.ReasonText = fmt.Sprintf("capacity reached (%d/%d)", grant.Active, grant.Cap)
	return nil
}

// ReleaseSlot frees the admission slot claimed for an approved apply. Batch
// processing calls it when persisting the outcome fails, so the retry of the
// same opportunity cannot occupy a second slot.
func (o *Orchestrator) ReleaseSlot(ctx context.Context, opp *opportunity.Opportunity) error {
	return o.admission.Release(ctx, opp.Pipeline)
}

// proposeRate invokes the optional rate-suggestion hook. Failures fall back
// to the candidate's minimum rate; the decision is already made at this
// point and is never revisited.
func (o *Orchestrator) proposeRate(ctx context.Context, opp *opportunity.Opportunity, candidate *profile.Candidate, result *Result) {
	result.ProposedRate = candidate.MinRate
	result.RateReasoning = "candidate minimum rate"

	if o.rates == nil {
		return
	}

	suggestion, err := o.rates.SuggestRate(ctx, ai.RateRequest{
		Title:         opp.Title,
		Description:   opp.Description,
		ClientName:    opp.ClientName,
		BudgetMin:     opp.BudgetMin,
		BudgetMax:     opp.BudgetMax,
		CandidateName: candidate.Name,
		CandidateRole: candidate.Role,
		MinRate:       candidate.MinRate,
		Score:         result.Score,
	})
	if err != nil {
		o.logger.Warn("rate suggestion failed, using minimum rate",
			zap.String("opportunity", opp.Key()),
			zap.Error(err),
		)
		return
	}

	result.ProposedRate = suggestion.Rate
	result.RateReasoning = suggestion.Reasoning
}
