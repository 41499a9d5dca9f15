package admission

import (
	"context"
	"sync"
	"testing"

	"github.com/teamwerk/akquise-pilot/internal/opportunity"
)

func testCaps() Caps {
	return Caps{Freelance: 5, Tender: 2}
}

func TestTryAdmitStopsAtCap(t *testing.T) {
	ctrl, err := NewMemoryController(testCaps(), nil)
	if err != nil {
		t.Fatalf("building controller: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		grant, err := ctrl.TryAdmit(ctx, opportunity.PipelineFreelance)
		if err != nil {
			t.Fatalf("admit %d: %v", i, err)
		}
		if !grant.Granted {
			t.Fatalf("admit %d should be granted, active %d of %d", i, grant.Active, grant.Cap)
		}
	}

	grant, err := ctrl.TryAdmit(ctx, opportunity.PipelineFreelance)
	if err != nil {
		t.Fatalf("admit at cap: %v", err)
	}
	if grant.Granted {
		t.Fatalf("admit beyond cap must be denied")
	}
	if grant.Active != 5 || grant.Cap != 5 {
		t.Fatalf("denial must report active %d cap %d, got %d/%d", 5, 5, grant.Active, grant.Cap)
	}
}

func TestTryAdmitIsAtomicUnderContention(t *testing.T) {
	caps := Caps{Freelance: 7, Tender: 2}
	initial := map[opportunity.Pipeline]int{opportunity.PipelineFreelance: 3}

	ctrl, err := NewMemoryController(caps, initial)
	if err != nil {
		t.Fatalf("building controller: %v", err)
	}

	const attempts = 50
	var wg sync.WaitGroup
	results := make(chan bool, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			grant, err := ctrl.TryAdmit(context.Background(), opportunity.PipelineFreelance)
			if err != nil {
				t.Errorf("admit: %v", err)
				return
			}
			results <- grant.Granted
		}()
	}
	wg.Wait()
	close(results)

	granted := 0
	for ok := range results {
		if ok {
			granted++
		}
	}

	// cap 7 minus 3 already active.
	if granted != 4 {
		t.Fatalf("expected exactly 4 grants, got %d", granted)
	}
	if active := ctrl.Active(opportunity.PipelineFreelance); active != 7 {
		t.Fatalf("expected active count 7, got %d", active)
	}
}

func TestPipelinesAreIndependent(t *testing.T) {
	ctrl, err := NewMemoryController(Caps{Freelance: 1, Tender: 1}, nil)
	if err != nil {
		t.Fatalf("building controller: %v", err)
	}

	ctx := context.Background()
	if grant, _ := ctrl.TryAdmit(ctx, opportunity.PipelineFreelance); !grant.Granted {
		t.Fatalf("freelance slot should be free")
	}
	if grant, _ := ctrl.TryAdmit(ctx, opportunity.PipelineFreelance); grant.Granted {
		t.Fatalf("freelance pipeline should be full")
	}
	if grant, _ := ctrl.TryAdmit(ctx, opportunity.PipelineTender); !grant.Granted {
		t.Fatalf("tender slot must not be consumed by freelance admissions")
	}
}

func TestReleaseFreesSlot(t *testing.T) {
	ctrl, err := NewMemoryController(Caps{Freelance: 1, Tender: 1}, nil)
	if err != nil {
		t.Fatalf("building controller: %v", err)
	}

	ctx := context.Background()
	if grant, _ := ctrl.TryAdmit(ctx, opportunity.PipelineTender); !grant.Granted {
		t.Fatalf("first admit should succeed")
	}
	if err := ctrl.Release(ctx, opportunity.PipelineTender); err != nil {
		t.Fatalf("release: %v", err)
	}
	if grant, _ := ctrl.TryAdmit(ctx, opportunity.PipelineTender); !grant.Granted {
		t.Fatalf("slot should be free again after release")
	}
}

func TestReleaseBelowZeroFails(t *testing.T) {
	ctrl, err := NewMemoryController(testCaps(), nil)
	if err != nil {
		t.Fatalf("building controller: %v", err)
	}

	if err := ctrl.Release(context.Background(), opportunity.PipelineFreelance); err == nil {
		t.Fatalf("release without admit must fail")
	}
}

func TestCapsValidation(t *testing.T) {
	if _, err := NewMemoryController(Caps{Freelance: 0, Tender: 5}, nil); err == nil {
		t.Fatalf("zero freelance cap must be rejected")
	}
	if _, err := NewMemoryController(Caps{Freelance: 5, Tender: -1}, nil); err == nil {
		t.Fatalf("negative tender cap must be rejected")
	}
	if _, err := NewMemoryController(testCaps(), map[opportunity.Pipeline]int{opportunity.PipelineTender: -2}); err == nil {
		t.Fatalf("negative initial count must be rejected")
	}
}

func TestPublicSectorBump(t *testing.T) {
	bump := PublicSectorBump{}

	if !bump.Eligible(&opportunity.Opportunity{PublicSector: true}) {
		t.Fatalf("public-sector opportunity should be eligible")
	}
	if bump.Eligible(&opportunity.Opportunity{}) {
		t.Fatalf("private opportunity should not be eligible")
	}
}
