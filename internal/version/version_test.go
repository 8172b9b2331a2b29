package version

import (
	"testing"

	"github.com/fatih/color"
)

func withPlainOutput(t *testing.T) {
	t.Helper()
	orig := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = orig })
}

func override(t *testing.T, version, commit, date string) {
	t.Helper()
	ov, oc, od := Version, GitCommit, BuildDate
	Version, GitCommit, BuildDate = version, commit, date
	t.Cleanup(func() { Version, GitCommit, BuildDate = ov, oc, od })
}

func TestColored_PlainKeepsText(t *testing.T) {
	withPlainOutput(t)
	for _, v := range []string{"0.1.0-dev", "1.2.3", "1.2.3-rc.1+build.123", "nightly"} {
		override(t, v, "", "")
		if got := Colored(); got != v {
			t.Errorf("Colored() = %q, want %q", got, v)
		}
	}
}

func TestColored_AddsEscapes(t *testing.T) {
	orig := color.NoColor
	color.NoColor = false
	t.Cleanup(func() { color.NoColor = orig })
	override(t, "1.2.3", "", "")
	if got := Colored(); got == "1.2.3" {
		t.Fatal("expected ANSI colors")
	}
}

func TestLine(t *testing.T) {
	withPlainOutput(t)
	tests := []struct {
		commit, date, want string
	}{
		{"", "", "expander 1.0.0"},
		{"1234567890abcdef", "", "expander 1.0.0 (1234567890ab)"},
		{"abc123", "2024-01-15", "expander 1.0.0 (abc123) built 2024-01-15"},
	}
	for _, tt := range tests {
		override(t, "1.0.0", tt.commit, tt.date)
		if got := Line(); got != tt.want {
			t.Errorf("Line() = %q, want %q", got, tt.want)
		}
	}
}
