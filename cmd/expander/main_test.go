package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"expander/internal/config"
	"expander/internal/format"
	"expander/internal/outfile"
)

func TestReadUIMode(t *testing.T) {
	cases := []struct {
		in   string
		want uiMode
		ok   bool
	}{
		{"", uiModeAuto, true},
		{"AUTO", uiModeAuto, true},
		{" on ", uiModeOn, true},
		{"off", uiModeOff, true},
		{"sometimes", "", false},
	}
	for _, tc := range cases {
		got, err := readUIMode(tc.in)
		if (err == nil) != tc.ok {
			t.Fatalf("readUIMode(%q) error = %v, want ok=%v", tc.in, err, tc.ok)
		}
		if got != tc.want {
			t.Fatalf("readUIMode(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
	if !shouldUseTUI(uiModeOn) || shouldUseTUI(uiModeOff) {
		t.Fatal("explicit ui modes must win over terminal detection")
	}
}

func TestNameFromPath(t *testing.T) {
	cases := map[string]string{
		"":               "",
		"-":              "",
		"foo.rs":         "foo",
		"gen/bar.tokens": "bar",
		"dir/noext":      "noext",
		"dir/a.b.rs":     "a.b",
	}
	for in, want := range cases {
		if got := nameFromPath(in); got != want {
			t.Fatalf("nameFromPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestApplyOutputFlagsOnlyChanged(t *testing.T) {
	cmd := &cobra.Command{Use: "x"}
	addOutputFlags(cmd)
	if err := cmd.ParseFlags([]string{"--ext", ".txt", "--mode", "inplace", "--edition", "2021", "--comment", "hi"}); err != nil {
		t.Fatal(err)
	}
	base := config.Defaults()
	base.Dir = "/from/config"
	base.Config.Format = format.Policy{Enabled: true, Channel: format.ChannelNightly, AllowFailure: true}

	got, err := applyOutputFlags(cmd, base)
	if err != nil {
		t.Fatal(err)
	}
	if got.Dir != "/from/config" {
		t.Fatalf("dir overridden without --out-dir: %q", got.Dir)
	}
	if got.Config.Ext != "txt" {
		t.Fatalf("ext = %q, want txt", got.Config.Ext)
	}
	if got.Config.WriteMode != outfile.ModeInPlace {
		t.Fatalf("mode = %v, want inplace", got.Config.WriteMode)
	}
	if got.Config.Comment == nil || *got.Config.Comment != "hi" {
		t.Fatalf("comment = %v", got.Config.Comment)
	}
	p := got.Config.Format
	if !p.Enabled || p.Channel != format.ChannelNightly || !p.AllowFailure || p.Edition != format.Edition2021 {
		t.Fatalf("policy = %+v", p)
	}
}

func TestApplyOutputFlagsRejectsBadValues(t *testing.T) {
	for _, args := range [][]string{
		{"--mode", "sideways"},
		{"--channel", "canary"},
		{"--edition", "1999"},
	} {
		cmd := &cobra.Command{Use: "x"}
		addOutputFlags(cmd)
		if err := cmd.ParseFlags(args); err != nil {
			t.Fatal(err)
		}
		if _, err := applyOutputFlags(cmd, config.Defaults()); err == nil {
			t.Fatalf("%v: expected error", args)
		}
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestMaterializeAndDigestAgree(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")
	if err := os.Mkdir(outDir, 0o755); err != nil {
		t.Fatal(err)
	}
	cfgPath := filepath.Join(dir, config.FileName)
	if err := os.WriteFile(cfgPath, []byte("[output]\ndir = \"out\"\ncomment = \"generated\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	input := filepath.Join(dir, "widget.rs")
	if err := os.WriteFile(input, []byte("struct Widget;"), 0o644); err != nil {
		t.Fatal(err)
	}

	ref, err := execute(t, "--config", cfgPath, "--color", "off", "materialize", input)
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	ref = strings.TrimSpace(ref)
	if !strings.HasPrefix(ref, `include!("`) || !strings.Contains(ref, outDir) {
		t.Fatalf("unexpected reference %q", ref)
	}
	entries, err := os.ReadDir(outDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("want 1 file, got %d", len(entries))
	}
	written := entries[0].Name()
	data, err := os.ReadFile(filepath.Join(outDir, written))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "/* generated */\nstruct Widget;" {
		t.Fatalf("file contents = %q", data)
	}

	line, err := execute(t, "--config", cfgPath, "--color", "off", "digest", input)
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	fields := strings.Fields(line)
	if len(fields) != 2 || fields[0] != written {
		t.Fatalf("digest printed %q, materialize wrote %q", line, written)
	}

	// An empty extension falls back to the default, as materialize does.
	line, err = execute(t, "--config", cfgPath, "--color", "off", "digest", "--ext", "", input)
	if err != nil {
		t.Fatalf("digest --ext '': %v", err)
	}
	if fields := strings.Fields(line); len(fields) != 2 || fields[0] != written {
		t.Fatalf("digest --ext '' printed %q, materialize wrote %q", line, written)
	}

	if _, err := execute(t, "--config", cfgPath, "--color", "off", "digest", "--verify", strings.Repeat("0", 64), input); err == nil {
		t.Fatal("digest --verify accepted a wrong digest")
	}
}

func TestVersionJSON(t *testing.T) {
	out, err := execute(t, "--color", "off", "version", "--format", "json")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"tool": "expander"`) {
		t.Fatalf("unexpected output %q", out)
	}
}
