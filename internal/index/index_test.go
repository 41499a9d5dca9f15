package index

import (
	"errors"
	"math"
	"testing"

	"github.com/teamwerk/akquise-pilot/internal/profile"
)

func testPool() *profile.Pool {
	return &profile.Pool{
		Candidates: []*profile.Candidate{
			{ID: 1, Name: "Anna", Embedding: []float32{1, 0, 0}, Active: true},
			{ID: 2, Name: "Ben", Embedding: []float32{0, 1, 0}, Active: true},
			{ID: 3, Name: "Cara", Embedding: []float32{0.7, 0.7, 0}, Active: true},
		},
	}
}

func TestQueryOrdersByDescendingSimilarity(t *testing.T) {
	idx := New(testPool())

	hits, err := idx.Query([]float32{1, 0, 0}, 3)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(hits) != 3 {
		t.Fatalf("expected 3 hits, got %d", len(hits))
	}
	if hits[0].CandidateID != 1 {
		t.Fatalf("expected candidate 1 first, got %d", hits[0].CandidateID)
	}
	if math.Abs(hits[0].Similarity-1) > 1e-9 {
		t.Fatalf("expected similarity 1 for identical vector, got %f", hits[0].Similarity)
	}
	for i := 1; i < len(hits); i++ {
		if hits[i].Similarity > hits[i-1].Similarity {
			t.Fatalf("hits not sorted: %f before %f", hits[i-1].Similarity, hits[i].Similarity)
		}
	}
}

func TestQueryLimitsToK(t *testing.T) {
	idx := New(testPool())

	hits, err := idx.Query([]float32{1, 1, 0}, 2)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
}

func TestQueryTiesKeepInsertionOrder(t *testing.T) {
	pool := &profile.Pool{
		Candidates: []*profile.Candidate{
			{ID: 7, Embedding: []float32{1, 0}, Active: true},
			{ID: 3, Embedding: []float32{1, 0}, Active: true},
			{ID: 9, Embedding: []float32{1, 0}, Active: true},
		},
	}
	idx := New(pool)

	hits, err := idx.Query([]float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("query: %v", err)
	}

	want := []int{7, 3, 9}
	for i, id := range want {
		if hits[i].CandidateID != id {
			t.Fatalf("tie order broken at %d: got %d, want %d", i, hits[i].CandidateID, id)
		}
	}
}

func TestQueryEmptyIndex(t *testing.T) {
	idx := New(&profile.Pool{})

	if _, err := idx.Query([]float32{1, 0, 0}, 3); !errors.Is(err, ErrEmptyIndex) {
		t.Fatalf("expected ErrEmptyIndex, got %v", err)
	}
}

func TestQuerySkipsInactiveAndUnembedded(t *testing.T) {
	pool := testPool()
	pool.Candidates[0].Active = false
	pool.Candidates[1].Embedding = nil

	idx := New(pool)
	if idx.Len() != 1 {
		t.Fatalf("expected 1 indexed candidate, got %d", idx.Len())
	}

	hits, err := idx.Query([]float32{1, 0, 0}, 3)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(hits) != 1 || hits[0].CandidateID != 3 {
		t.Fatalf("expected only candidate 3, got %+v", hits)
	}
}

func TestQueryDimensionMismatch(t *testing.T) {
	idx := New(testPool())

	if _, err := idx.Query([]float32{1, 0}, 3); err == nil {
		t.Fatalf("expected dimension mismatch error")
	}
}

func TestQueryRejectsNonPositiveK(t *testing.T) {
	idx := New(testPool())

	if _, err := idx.Query([]float32{1, 0, 0}, 0); err == nil {
		t.Fatalf("expected error for k = 0")
	}
}

func TestRebuildReplacesSnapshot(t *testing.T) {
	pool := testPool()
	idx := New(pool)

	if idx.Len() != 3 {
		t.Fatalf("expected 3 indexed candidates, got %d", idx.Len())
	}

	idx.Rebuild(&profile.Pool{
		Candidates: []*profile.Candidate{
			{ID: 42, Embedding: []float32{0, 0, 1}, Active: true},
		},
	})

	hits, err := idx.Query([]float32{0, 0, 1}, 3)
	if err != nil {
		t.Fatalf("query after rebuild: %v", err)
	}
	if len(hits) != 1 || hits[0].CandidateID != 42 {
		t.Fatalf("expected only candidate 42 after rebuild, got %+v", hits)
	}
}

func TestRebuildCopiesVectors(t *testing.T) {
	pool := testPool()
	idx := New(pool)

	// Mutating the pool after the rebuild must not change query results.
	pool.Candidates[0].Embedding[0] = 0

	hits, err := idx.Query([]float32{1, 0, 0}, 1)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if hits[0].CandidateID != 1 || math.Abs(hits[0].Similarity-1) > 1e-9 {
		t.Fatalf("snapshot shares memory with the pool: %+v", hits[0])
	}
}
