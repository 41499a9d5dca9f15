// Package profile holds the fixed candidate pool the matcher evaluates
// opportunities against. The pool is small (a handful of team members), so
// all lookups are linear.
package profile

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// Candidate is one team member's structured profile. The embedding vector is
// recomputed only when the profile text changes; TextHash tracks that.
type Candidate struct {
	ID         int
	Name       string
	Role       string
	Seniority  string
	Skills     []string
	Industries []string
	Languages  []string
	MinRate    float64
	CVPath     string

	ProfileText string
	TextHash    string
	Embedding   []float32
	Active      bool
}

// HashText returns the canonical hash of a profile text, used to decide
// whether an embedding must be recomputed.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(text)))
	return fmt.Sprintf("%x", sum[:])
}

// Pool is the current candidate pool snapshot handed to the matcher.
type Pool struct {
	Candidates []*Candidate
}

// Active returns the active candidates in insertion order.
func (p *Pool) Active() []*Candidate {
	active := make([]*Candidate, 0, len(p.Candidates))
	for _, c := range p.Candidates {
		if c.Active {
			active = append(active, c)
		}
	}
	return active
}

// ByID returns the candidate with the given id, or nil.
func (p *Pool) ByID(id int) *Candidate {
	for _, c := range p.Candidates {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// Len returns the pool size.
func (p *Pool) Len() int { return len(p.Candidates) }
