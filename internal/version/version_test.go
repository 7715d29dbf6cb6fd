package version

import "testing"

func TestString(t *testing.T) {
	Version, Commit, BuildDate = "1.2.0", "abc123", "2025-06-01"
	t.Cleanup(func() { Version, Commit, BuildDate = "dev", "unknown", "unknown" })

	want := "1.2.0 (commit: abc123, built: 2025-06-01)"
	if got := String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
