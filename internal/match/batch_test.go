package match

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/teamwerk/akquise-pilot/internal/admission"
	"github.com/teamwerk/akquise-pilot/internal/opportunity"
)

type recorderStub struct {
	mu       sync.Mutex
	recorded []string
	err      error
}

func (r *recorderStub) RecordOutcome(_ context.Context, opp *opportunity.Opportunity, _ *Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recorded = append(r.recorded, opp.Key())
	return r.err
}

type failureSinkStub struct {
	mu     sync.Mutex
	marked []string
}

func (f *failureSinkStub) MarkError(_ context.Context, opp *opportunity.Opportunity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked = append(f.marked, opp.Key())
	return nil
}

func batchOpportunities(n int) []*opportunity.Opportunity {
	opps := make([]*opportunity.Opportunity, 0, n)
	for i := 0; i < n; i++ {
		opp := matchOpp()
		opp.ExternalID = fmt.Sprintf("fm-%d", i)
		opps = append(opps, opp)
	}
	return opps
}

func TestBatchRunCountsDecisions(t *testing.T) {
	orchestrator := newTestOrchestrator(t, orchestratorOptions{})
	recorder := &recorderStub{}

	batch := NewBatch(orchestrator, recorder, nil, 2, nil)
	stats, err := batch.Run(context.Background(), batchOpportunities(5))
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if stats.Analyzed != 5 {
		t.Fatalf("expected 5 analyzed, got %d", stats.Analyzed)
	}
	if stats.Applied != 5 {
		t.Fatalf("expected 5 applies, got %d (stats %+v)", stats.Applied, stats)
	}
	if len(recorder.recorded) != 5 {
		t.Fatalf("expected 5 recorded outcomes, got %d", len(recorder.recorded))
	}
}

func TestBatchRunIsolatesFailures(t *testing.T) {
	orchestrator := newTestOrchestrator(t, orchestratorOptions{})
	recorder := &recorderStub{}
	failures := &failureSinkStub{}

	opps := batchOpportunities(3)
	opps[1].ExternalID = "" // fails validation inside Match

	batch := NewBatch(orchestrator, recorder, failures, 1, nil)
	stats, err := batch.Run(context.Background(), opps)
	if err != nil {
		t.Fatalf("per-opportunity failures must not fail the run: %v", err)
	}

	if stats.Errors != 1 {
		t.Fatalf("expected 1 error, got %d", stats.Errors)
	}
	if stats.Analyzed != 2 {
		t.Fatalf("expected 2 analyzed, got %d", stats.Analyzed)
	}
	if len(failures.marked) != 1 {
		t.Fatalf("failed opportunity must be marked for retry, got %v", failures.marked)
	}
}

func TestBatchRunCountsRecorderErrors(t *testing.T) {
	orchestrator := newTestOrchestrator(t, orchestratorOptions{})
	recorder := &recorderStub{err: errors.New("database unavailable")}

	batch := NewBatch(orchestrator, recorder, nil, 2, nil)
	stats, err := batch.Run(context.Background(), batchOpportunities(2))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats.Errors != 2 {
		t.Fatalf("recorder failures must be counted, got %d errors", stats.Errors)
	}
}

func TestBatchRunReleasesSlotWhenRecordingFails(t *testing.T) {
	ctrl, err := admission.NewMemoryController(admission.Caps{Freelance: 1, Tender: 1}, nil)
	if err != nil {
		t.Fatalf("building controller: %v", err)
	}
	orchestrator := newTestOrchestrator(t, orchestratorOptions{admission: ctrl})
	recorder := &recorderStub{err: errors.New("database unavailable")}
	failures := &failureSinkStub{}

	batch := NewBatch(orchestrator, recorder, failures, 1, nil)
	stats, err := batch.Run(context.Background(), batchOpportunities(1))
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if stats.Errors != 1 || stats.Applied != 0 {
		t.Fatalf("unrecorded apply must count as error only, got %+v", stats)
	}
	if active := ctrl.Active(opportunity.PipelineFreelance); active != 0 {
		t.Fatalf("slot claimed by the failed apply must be released, got %d active", active)
	}

	// The marked opportunity is retried with a working recorder and must be
	// admitted into the slot the failed run gave back.
	recorder.err = nil
	stats, err = batch.Run(context.Background(), batchOpportunities(1))
	if err != nil {
		t.Fatalf("retry run: %v", err)
	}
	if stats.Applied != 1 {
		t.Fatalf("retry must reclaim the released slot, got %+v", stats)
	}
}

func TestBatchRunRespectsAdmissionUnderParallelism(t *testing.T) {
	ctrl, err := admission.NewMemoryController(admission.Caps{Freelance: 3, Tender: 1}, nil)
	if err != nil {
		t.Fatalf("building controller: %v", err)
	}
	orchestrator := newTestOrchestrator(t, orchestratorOptions{admission: ctrl})

	batch := NewBatch(orchestrator, nil, nil, 8, nil)
	stats, err := batch.Run(context.Background(), batchOpportunities(10))
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if stats.Applied != 3 {
		t.Fatalf("parallel runs must not exceed the cap: %d applies", stats.Applied)
	}
	if stats.Rejected != 7 {
		t.Fatalf("expected 7 capacity rejects, got %d", stats.Rejected)
	}
}
