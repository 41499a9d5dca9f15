// Package admission enforces the hard cap on concurrently active
// applications per pipeline. The active count is the only shared mutable
// resource in the matching core; every check-and-increment is serialized so
// two concurrent callers can never both take the last slot.
package admission

import (
	"context"
	"fmt"
	"sync"

	"github.com/teamwerk/akquise-pilot/internal/opportunity"
)

// Default per-pipeline slot limits.
const (
	DefaultFreelanceCap = 40
	DefaultTenderCap    = 15
)

// Grant is the outcome of one admission attempt. Denial is expected
// steady-state behavior, not an error.
type Grant struct {
	Granted bool
	Active  int
	Cap     int
}

// Controller arbitrates admission slots. TryAdmit atomically checks the cap
// and increments the active count in one step; Release is the hook callers
// invoke when an application leaves the active set (won/lost/withdrawn).
type Controller interface {
	TryAdmit(ctx context.Context, pipeline opportunity.Pipeline) (Grant, error)
	Release(ctx context.Context, pipeline opportunity.Pipeline) error
}

// BumpPolicy decides whether a public-sector opportunity may displace a
// lower-priority active slot when the cap is reached. The default is nil:
// plain rejection. Concrete bump rules are an extension point.
type BumpPolicy interface {
	Eligible(o *opportunity.Opportunity) bool
}

// PublicSectorBump marks public-sector opportunities as eligible for human
// review instead of a hard capacity rejection.
type PublicSectorBump struct{}

// Eligible reports whether the opportunity should be parked for review when
// its pipeline is full.
func (PublicSectorBump) Eligible(o *opportunity.Opportunity) bool {
	return o.PublicSector
}

// Caps configures the per-pipeline slot limits.
type Caps struct {
	Freelance int `mapstructure:"freelance-cap"`
	Tender    int `mapstructure:"tender-cap"`
}

// Validate rejects missing or non-positive caps.
func (c Caps) Validate() error {
	if c.Freelance <= 0 {
		return fmt.Errorf("admission: freelance-cap must be positive, got %d", c.Freelance)
	}
	if c.Tender <= 0 {
		return fmt.Errorf("admission: tender-cap must be positive, got %d", c.Tender)
	}
	return nil
}

// CapFor returns the limit for a pipeline.
func (c Caps) CapFor(pipeline opportunity.Pipeline) (int, error) {
	switch pipeline {
	case opportunity.PipelineFreelance:
		return c.Freelance, nil
	case opportunity.PipelineTender:
		return c.Tender, nil
	default:
		return 0, fmt.Errorf("admission: unknown pipeline %q", pipeline)
	}
}

// MemoryController keeps the counts in process memory behind a single mutex.
// It backs tests and single-process runs; multi-process deployments use the
// store-backed controller, which serializes through a row lock instead.
type MemoryController struct {
	mu     sync.Mutex
	caps   Caps
	active map[opportunity.Pipeline]int
}

// NewMemoryController builds an in-memory controller with the given caps and
// initial active counts.
func NewMemoryController(caps Caps, initial map[opportunity.Pipeline]int) (*MemoryController, error) {
	if err := caps.Validate(); err != nil {
		return nil, err
	}
	active := map[opportunity.Pipeline]int{
		opportunity.PipelineFreelance: 0,
		opportunity.PipelineTender:    0,
	}
	for pipeline, count := range initial {
		if count < 0 {
			return nil, fmt.Errorf("admission: initial active count for %s must not be negative", pipeline)
		}
		active[pipeline] = count
	}
	return &MemoryController{caps: caps, active: active}, nil
}

// TryAdmit grants a slot iff the active count is below the cap, incrementing
// the count under the same lock.
func (m *MemoryController) TryAdmit(_ context.Context, pipeline opportunity.Pipeline) (Grant, error) {
	cap, err := m.caps.CapFor(pipeline)
	if err != nil {
		return Grant{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	active := m.active[pipeline]
	if active >= cap {
		return Grant{Granted: false, Active: active, Cap: cap}, nil
	}
	m.active[pipeline] = active + 1
	return Grant{Granted: true, Active: active + 1, Cap: cap}, nil
}

// Release frees one slot. Releasing below zero indicates a caller bug and is
// reported as an error rather than silently clamped.
func (m *MemoryController) Release(_ context.Context, pipeline opportunity.Pipeline) error {
	if _, err := m.caps.CapFor(pipeline); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active[pipeline] <= 0 {
		return fmt.Errorf("admission: release without matching admit for %s", pipeline)
	}
	m.active[pipeline]--
	return nil
}

// Active returns the current count for inspection and logging.
func (m *MemoryController) Active(pipeline opportunity.Pipeline) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active[pipeline]
}
