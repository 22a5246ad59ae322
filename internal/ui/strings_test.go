package ui

import "testing"

func TestTruncate(t *testing.T) {
	cases := []struct {
		in    string
		limit int
		want  string
	}{
		{"  short  ", 10, "short"},
		{"abcdef", 0, "abcdef"},
		{"abcdef", 3, "abc"},
		{"abcdefgh", 6, "abc..."},
		{"héllo wörld", 8, "héllo..."},
	}
	for _, tc := range cases {
		if got := truncate(tc.in, tc.limit); got != tc.want {
			t.Fatalf("truncate(%q, %d) = %q, want %q", tc.in, tc.limit, got, tc.want)
		}
	}
}

func TestTruncateMiddle(t *testing.T) {
	if got := truncateMiddle("  ", 10); got != "" {
		t.Fatalf("truncateMiddle blank = %q, want empty", got)
	}
	if got := truncateMiddle("abcdefgh", 4); got != "abcd" {
		t.Fatalf("truncateMiddle small limit = %q, want abcd", got)
	}
	got := truncateMiddle("/home/user/.local/state/beacon/beacon.log", 20)
	if len([]rune(got)) != 20 {
		t.Fatalf("truncateMiddle length = %d, want 20 (%q)", len([]rune(got)), got)
	}
	if got[len(got)-10:] != "beacon.log" {
		t.Fatalf("truncateMiddle dropped the file name: %q", got)
	}
}
