package cmd

import "testing"

// Bumping public-sector opportunities into review at capacity is opt-in;
// the shipped default is a plain capacity rejection.
func TestPublicSectorReviewIsOptIn(t *testing.T) {
	flag := runCmd.Flags().Lookup("public-sector-review")
	if flag == nil {
		t.Fatal("public-sector-review flag is not registered")
	}
	if flag.DefValue != "false" {
		t.Fatalf("public-sector review must be opt-in, default is %q", flag.DefValue)
	}
}
