package scoring

import (
	"reflect"
	"testing"

	"github.com/teamwerk/akquise-pilot/internal/opportunity"
	"github.com/teamwerk/akquise-pilot/internal/profile"
)

func testCandidate() *profile.Candidate {
	return &profile.Candidate{
		ID:        1,
		Name:      "Anna",
		Role:      "Fullstack Developer",
		Seniority: "senior",
		Skills:    []string{"Go", "Vue.js", "PostgreSQL", "Docker"},
		MinRate:   700,
		Active:    true,
	}
}

func freelanceOpp() *opportunity.Opportunity {
	return &opportunity.Opportunity{
		Source:      "freelancermap",
		ExternalID:  "fm-1",
		Title:       "Go developer for booking platform",
		Description: "Backend services in Go with a Vue frontend",
		ClientName:  "Acme GmbH",
		Skills:      []string{"go", "vue", "postgresql", "docker"},
		BudgetMax:   800,
		Pipeline:    opportunity.PipelineFreelance,
		Status:      opportunity.StatusNew,
		Research:    &opportunity.Research{},
	}
}

func tenderOpp() *opportunity.Opportunity {
	return &opportunity.Opportunity{
		Source:       "evergabe",
		ExternalID:   "ev-1",
		Title:        "Digitalization portal for a municipality",
		ClientName:   "Stadt Musterstadt",
		Skills:       []string{"go", "vue"},
		PublicSector: true,
		Pipeline:     opportunity.PipelineTender,
		Status:       opportunity.StatusNew,
		Research: &opportunity.Research{
			EstimatedBudgetMax: 120000,
			DeadlineDays:       30,
		},
	}
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine(DefaultConfig())
	if err != nil {
		t.Fatalf("building engine: %v", err)
	}
	return engine
}

func TestScoreFreelanceFullMatch(t *testing.T) {
	engine := newTestEngine(t)

	in := Input{
		Opportunity: freelanceOpp(),
		Candidate:   testCandidate(),
		Similarity:  0.9,
		Priors: &Priors{
			ClientHistory: map[string]ClientStats{
				"acme gmbh": {Applications: 4, Wins: 2},
			},
			PoolSize: 3,
		},
	}

	result, err := engine.Score(in)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if result.Blocked {
		t.Fatalf("expected no blocker, got %q", result.BlockedBy)
	}

	// skill 60 + experience 12 + embedding 7 + market fit 5 + risk 5 +
	// client history 5.
	if result.Score != 94 {
		t.Fatalf("expected score 94, got %d (breakdown %+v)", result.Score, result.Breakdown)
	}
	if len(result.Breakdown) != 6 {
		t.Fatalf("expected 6 breakdown entries, got %d", len(result.Breakdown))
	}

	sum := 0
	for _, award := range result.Breakdown {
		if award.Points > award.Max {
			t.Fatalf("criterion %q awarded %d over max %d", award.Name, award.Points, award.Max)
		}
		if award.Rationale == "" {
			t.Fatalf("criterion %q has no rationale", award.Name)
		}
		sum += award.Points
	}
	if sum != result.Score {
		t.Fatalf("breakdown sums to %d, score is %d", sum, result.Score)
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	engine := newTestEngine(t)

	in := Input{
		Opportunity: tenderOpp(),
		Candidate:   testCandidate(),
		Similarity:  0.7321,
		Priors:      &Priors{PoolSize: 3},
	}

	first, err := engine.Score(in)
	if err != nil {
		t.Fatalf("score: %v", err)
	}

	for i := 0; i < 10; i++ {
		again, err := engine.Score(in)
		if err != nil {
			t.Fatalf("score run %d: %v", i, err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d diverged:\nfirst %+v\nagain %+v", i, first, again)
		}
	}
}

func TestScoreSimilarityIsMonotonic(t *testing.T) {
	engine := newTestEngine(t)

	prev := -1
	for _, sim := range []float64{0, 0.2, 0.4, 0.6, 0.8, 1.0} {
		in := Input{Opportunity: freelanceOpp(), Candidate: testCandidate(), Similarity: sim}
		result, err := engine.Score(in)
		if err != nil {
			t.Fatalf("score at similarity %.1f: %v", sim, err)
		}
		if result.Score < prev {
			t.Fatalf("score dropped from %d to %d when similarity rose to %.1f", prev, result.Score, sim)
		}
		prev = result.Score
	}
}

func TestScoreBlockerShortCircuits(t *testing.T) {
	engine := newTestEngine(t)

	cases := []struct {
		name    string
		mutate  func(o *opportunity.Opportunity)
		blocker string
	}{
		{
			name: "security clearance",
			mutate: func(o *opportunity.Opportunity) {
				o.Research.RequiresSecurityClearance = true
			},
			blocker: BlockerSecurityClearance,
		},
		{
			name: "consortium not allowed",
			mutate: func(o *opportunity.Opportunity) {
				allowed := false
				o.Research.ConsortiumAllowed = &allowed
			},
			blocker: BlockerConsortium,
		},
		{
			name: "budget hard limit",
			mutate: func(o *opportunity.Opportunity) {
				o.Research.EstimatedBudgetMax = 350000
			},
			blocker: BlockerBudgetHardLimit,
		},
		{
			name: "team size",
			mutate: func(o *opportunity.Opportunity) {
				o.Research.MinTeamSize = 8
			},
			blocker: BlockerTeamSize,
		},
		{
			name: "reject keyword",
			mutate: func(o *opportunity.Opportunity) {
				o.Description = "Procurement of hardware for the data center"
			},
			blocker: BlockerRejectKeywords,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opp := tenderOpp()
			tc.mutate(opp)

			result, err := engine.Score(Input{Opportunity: opp, Candidate: testCandidate(), Similarity: 0.9})
			if err != nil {
				t.Fatalf("score: %v", err)
			}
			if !result.Blocked {
				t.Fatalf("expected blocked result, got score %d", result.Score)
			}
			if result.BlockedBy != tc.blocker {
				t.Fatalf("expected blocker %q, got %q", tc.blocker, result.BlockedBy)
			}
			if result.Score != 0 {
				t.Fatalf("blocked result must score 0, got %d", result.Score)
			}
			if len(result.Breakdown) != 1 {
				t.Fatalf("blocked result must carry a single breakdown entry, got %d", len(result.Breakdown))
			}
		})
	}
}

func TestScoreFreelanceProjectTypeBlocker(t *testing.T) {
	engine := newTestEngine(t)

	opp := freelanceOpp()
	opp.Research.ProjectType = "SEO"

	result, err := engine.Score(Input{Opportunity: opp, Candidate: testCandidate()})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if !result.Blocked || result.BlockedBy != BlockerProjectType {
		t.Fatalf("expected project_type blocker, got %+v", result)
	}
}

func TestScoreMissingFieldsDegradeToZeroPoints(t *testing.T) {
	engine := newTestEngine(t)

	opp := freelanceOpp()
	opp.Research = nil
	opp.BudgetMax = 0
	opp.ClientName = ""

	result, err := engine.Score(Input{Opportunity: opp, Candidate: testCandidate(), Similarity: 0.5})
	if err != nil {
		t.Fatalf("missing optional fields must not error: %v", err)
	}
	if result.Blocked {
		t.Fatalf("missing fields must not block, got %q", result.BlockedBy)
	}

	for _, award := range result.Breakdown {
		switch award.Name {
		case CriterionRiskFactors, CriterionMarketFit, CriterionClientHistory:
			if award.Points != 0 {
				t.Fatalf("criterion %q should award 0 without data, got %d", award.Name, award.Points)
			}
		}
	}
}

func TestScorePublicSectorBonusIsClamped(t *testing.T) {
	engine := newTestEngine(t)

	opp := tenderOpp()
	result, err := engine.Score(Input{
		Opportunity: opp,
		Candidate:   testCandidate(),
		Similarity:  1.0,
	})
	if err != nil {
		t.Fatalf("score: %v", err)
	}

	found := false
	for _, award := range result.Breakdown {
		if award.Name == CriterionPublicSector {
			found = true
			if award.Points != DefaultConfig().PublicSectorBonus {
				t.Fatalf("expected bonus %d, got %d", DefaultConfig().PublicSectorBonus, award.Points)
			}
		}
	}
	if !found {
		t.Fatalf("expected a public sector bonus entry in %+v", result.Breakdown)
	}
	if result.Score > MaxScore {
		t.Fatalf("score %d exceeds maximum %d", result.Score, MaxScore)
	}
}

func TestScoreSkillAliasesMatch(t *testing.T) {
	engine := newTestEngine(t)

	opp := freelanceOpp()
	opp.Skills = []string{"Vue 3", "Postgres", "K8s"}

	candidate := testCandidate()
	candidate.Skills = []string{"vue.js", "postgresql", "kubernetes"}

	result, err := engine.Score(Input{Opportunity: opp, Candidate: candidate})
	if err != nil {
		t.Fatalf("score: %v", err)
	}

	for _, award := range result.Breakdown {
		if award.Name == CriterionSkillMatch {
			if award.Points != award.Max {
				t.Fatalf("aliases should yield full overlap, got %d of %d (%s)", award.Points, award.Max, award.Rationale)
			}
			return
		}
	}
	t.Fatalf("no skill_match entry in %+v", result.Breakdown)
}

func TestScoreRejectsUnknownPipeline(t *testing.T) {
	engine := newTestEngine(t)

	opp := freelanceOpp()
	opp.Pipeline = "consulting"

	if _, err := engine.Score(Input{Opportunity: opp, Candidate: testCandidate()}); err == nil {
		t.Fatalf("expected error for unknown pipeline")
	}
}

func TestScoreRequiresInputs(t *testing.T) {
	engine := newTestEngine(t)

	if _, err := engine.Score(Input{Candidate: testCandidate()}); err == nil {
		t.Fatalf("expected error without opportunity")
	}
	if _, err := engine.Score(Input{Opportunity: freelanceOpp()}); err == nil {
		t.Fatalf("expected error without candidate")
	}
}
