package profile

import (
	"os"
	"path/filepath"
	"testing"
)

const teamYAML = `team:
  - id: 1
    name: Anna
    role: Fullstack Developer
    seniority: senior
    skills: [go, vue, postgresql]
    min-rate: 700
    profile: |
      Senior fullstack developer with ten years of Go and Vue experience.
  - id: 2
    name: Ben
    role: Backend Developer
    seniority: mid
    profile: Backend developer focused on APIs.
    active: false
`

func writeTeamFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "team.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing team file: %v", err)
	}
	return path
}

func TestLoadTeamFile(t *testing.T) {
	candidates, err := LoadTeamFile(writeTeamFile(t, teamYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}

	anna := candidates[0]
	if anna.ID != 1 || anna.Name != "Anna" || !anna.Active {
		t.Fatalf("first candidate parsed wrong: %+v", anna)
	}
	if anna.TextHash == "" || anna.TextHash != HashText(anna.ProfileText) {
		t.Fatalf("text hash not derived from profile text")
	}
	if len(anna.Embedding) != 0 {
		t.Fatalf("loading must not fabricate embeddings")
	}

	if candidates[1].Active {
		t.Fatalf("explicit active: false must be honored")
	}
}

func TestLoadTeamFileRejectsDuplicateIDs(t *testing.T) {
	dup := `team:
  - id: 1
    name: Anna
    profile: a
  - id: 1
    name: Ben
    profile: b
`
	if _, err := LoadTeamFile(writeTeamFile(t, dup)); err == nil {
		t.Fatalf("duplicate ids must fail")
	}
}

func TestLoadTeamFileRejectsNonPositiveID(t *testing.T) {
	bad := `team:
  - id: 0
    name: Anna
    profile: a
`
	if _, err := LoadTeamFile(writeTeamFile(t, bad)); err == nil {
		t.Fatalf("non-positive id must fail")
	}
}

func TestLoadTeamFileRejectsEmptyTeam(t *testing.T) {
	if _, err := LoadTeamFile(writeTeamFile(t, "team: []\n")); err == nil {
		t.Fatalf("empty team must fail")
	}
}

func TestHashTextIsStable(t *testing.T) {
	if HashText("profile text") != HashText("  profile text \n") {
		t.Fatalf("hash must ignore surrounding whitespace")
	}
	if HashText("a") == HashText("b") {
		t.Fatalf("different texts must hash differently")
	}
}

func TestPoolLookups(t *testing.T) {
	pool := &Pool{Candidates: []*Candidate{
		{ID: 1, Active: true},
		{ID: 2, Active: false},
		{ID: 3, Active: true},
	}}

	active := pool.Active()
	if len(active) != 2 || active[0].ID != 1 || active[1].ID != 3 {
		t.Fatalf("active pool wrong: %+v", active)
	}
	if pool.ByID(2) == nil || pool.ByID(2).ID != 2 {
		t.Fatalf("ByID(2) failed")
	}
	if pool.ByID(99) != nil {
		t.Fatalf("ByID must return nil for unknown ids")
	}
	if pool.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", pool.Len())
	}
}
