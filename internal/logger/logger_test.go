package logger

import "testing"

func TestNew(t *testing.T) {
	for _, json := range []bool{true, false} {
		for _, debug := range []bool{true, false} {
			logger, err := New(json, debug)
			if err != nil {
				t.Fatalf("New(%v, %v): %v", json, debug, err)
			}
			if logger == nil {
				t.Fatalf("New(%v, %v) returned nil logger", json, debug)
			}
		}
	}
}

func TestTruncateForLog(t *testing.T) {
	cases := []struct {
		input string
		limit int
		want  string
	}{
		{"short", 10, "short"},
		{"  padded  ", 10, "padded"},
		{"truncate me", 8, "truncate..."},
		{"anything", 0, ""},
		{"ümläüts ünd mehr", 7, "ümläüts..."},
	}

	for _, tc := range cases {
		if got := TruncateForLog(tc.input, tc.limit); got != tc.want {
			t.Fatalf("TruncateForLog(%q, %d) = %q, want %q", tc.input, tc.limit, got, tc.want)
		}
	}
}
