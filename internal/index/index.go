// Package index answers nearest-candidate similarity queries over the
// candidate pool embeddings. The pool is tiny, so a full linear scan per
// query is both correct and fast; the Querier interface keeps the door open
// for an ANN-backed implementation later.
package index

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync/atomic"

	"github.com/teamwerk/akquise-pilot/internal/profile"
)

// ErrEmptyIndex is returned when no active candidate carries an embedding.
var ErrEmptyIndex = errors.New("no active candidates in the index")

// Hit is one similarity result. Similarity is cosine similarity in [-1, 1].
type Hit struct {
	CandidateID int
	Similarity  float64
}

// Querier is the retrieval contract consumed by the orchestrator.
type Querier interface {
	Query(vector []float32, k int) ([]Hit, error)
}

type snapshot struct {
	dimension int
	entries   []entry
}

type entry struct {
	id     int
	vector []float32
	norm   float64
}

// Index holds one vector per active candidate. Rebuilds replace the whole
// snapshot atomically, so a concurrent query never observes a half-updated
// vector set.
type Index struct {
	current atomic.Pointer[snapshot]
}

// New builds an index from the given pool. Candidates without an embedding
// or marked inactive are skipped.
func New(pool *profile.Pool) *Index {
	idx := &Index{}
	idx.Rebuild(pool)
	return idx
}

// Rebuild swaps in a fresh snapshot built from the pool. Insertion order of
// the pool is preserved, which keeps tie-breaking stable.
func (idx *Index) Rebuild(pool *profile.Pool) {
	snap := &snapshot{}
	if pool != nil {
		for _, c := range pool.Active() {
			if len(c.Embedding) == 0 {
				continue
			}
			if snap.dimension == 0 {
				snap.dimension = len(c.Embedding)
			}
			vec := make([]float32, len(c.Embedding))
			copy(vec, c.Embedding)
			snap.entries = append(snap.entries, entry{
				id:     c.ID,
				vector: vec,
				norm:   vectorNorm(vec),
			})
		}
	}
	idx.current.Store(snap)
}

// Len returns the number of indexed candidates.
func (idx *Index) Len() int {
	snap := idx.current.Load()
	if snap == nil {
		return 0
	}
	return len(snap.entries)
}

// Query returns up to k candidates ordered by descending cosine similarity.
// Ties keep the candidates' insertion order. Fails with ErrEmptyIndex when
// no active candidate is indexed.
func (idx *Index) Query(vector []float32, k int) ([]Hit, error) {
	snap := idx.current.Load()
	if snap == nil || len(snap.entries) == 0 {
		return nil, ErrEmptyIndex
	}
	if len(vector) != snap.dimension {
		return nil, fmt.Errorf("query vector dimension %d does not match index dimension %d", len(vector), snap.dimension)
	}
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}

	queryNorm := vectorNorm(vector)

	hits := make([]Hit, 0, len(snap.entries))
	for _, e := range snap.entries {
		hits = append(hits, Hit{
			CandidateID: e.id,
			Similarity:  cosine(vector, queryNorm, e.vector, e.norm),
		})
	}

	// SliceStable keeps insertion order for equal similarities.
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Similarity > hits[j].Similarity
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func cosine(a []float32, aNorm float64, b []float32, bNorm float64) float64 {
	if aNorm == 0 || bNorm == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (aNorm * bNorm)
}

func vectorNorm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
