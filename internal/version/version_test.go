package version

import "testing"

func stamp(t *testing.T, version, commit, built string) {
	t.Helper()
	prev := [3]string{Version, GitCommit, BuildTime}
	Version, GitCommit, BuildTime = version, commit, built
	t.Cleanup(func() { Version, GitCommit, BuildTime = prev[0], prev[1], prev[2] })
}

func TestStringUnstamped(t *testing.T) {
	stamp(t, "dev", "", "")
	if got := String(); got != "mdconvert dev" {
		t.Errorf("String() = %q", got)
	}
}

func TestStringStamped(t *testing.T) {
	stamp(t, "v0.3.0", "1a2b3c4", "2026-10-16T08:00:00Z")
	want := "mdconvert v0.3.0 (commit 1a2b3c4, built 2026-10-16T08:00:00Z)"
	if got := String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestStringCommitOnly(t *testing.T) {
	stamp(t, "v0.3.0", "1a2b3c4", "")
	if got := String(); got != "mdconvert v0.3.0 (commit 1a2b3c4)" {
		t.Errorf("String() = %q", got)
	}
}
