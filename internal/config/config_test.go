package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"expander/internal/config"
	"expander/internal/format"
	"expander/internal/outfile"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, config.FileName)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

const fullConfig = `
[output]
dir = "gen"
ext = ".rs"
comment = "This is generated code!"
mode = "inplace"

[format]
enabled = true
channel = "stable"
edition = "2021"
allow_failure = true
formatter = "rustfmt"

[batch]
jobs = 3
`

func TestLoad_Full(t *testing.T) {
	root := t.TempDir()
	path := writeConfig(t, root, fullConfig)

	s, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Path != path || s.Dir != filepath.Join(root, "gen") || s.Jobs != 3 {
		t.Fatalf("settings = %+v", s)
	}
	cfg := s.Config
	if cfg.Ext != "rs" || cfg.Comment == nil || *cfg.Comment != "This is generated code!" || cfg.WriteMode != outfile.ModeInPlace {
		t.Fatalf("output config = %+v", cfg)
	}
	want := format.Policy{Enabled: true, Channel: format.ChannelStable, Edition: format.Edition2021, AllowFailure: true, Formatter: "rustfmt"}
	if cfg.Format != want {
		t.Fatalf("format policy = %+v, want %+v", cfg.Format, want)
	}
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name, body, want string
	}{
		{"unknown key", "[output]\ndirr = \"x\"\n", "unknown keys: output.dirr"},
		{"unknown section", "[lint]\nstrict = true\n", "unknown keys"},
		{"bad edition", "[format]\nedition = \"2024\"\n", "[format].edition"},
		{"bad channel", "[format]\nchannel = \"canary\"\n", "[format].channel"},
		{"bad mode", "[output]\nmode = \"copy\"\n", "[output].mode"},
		{"negative jobs", "[batch]\njobs = -1\n", "[batch].jobs"},
		{"syntax", "[output\n", "failed to parse TOML"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), tt.body)
			_, err := config.Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestDiscover_WalksUp(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "[batch]\njobs = 2\n")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	s, ok, err := config.Discover(nested)
	if err != nil || !ok {
		t.Fatalf("Discover: ok=%v err=%v", ok, err)
	}
	if s.Jobs != 2 || s.Path != filepath.Join(root, config.FileName) {
		t.Fatalf("settings = %+v", s)
	}
}

func TestDiscover_NoFile(t *testing.T) {
	t.Setenv("OUT_DIR", "/tmp/out")
	s, ok, err := config.Discover(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Skip("an expander.toml exists above the temp dir")
	}
	if s.Dir != "/tmp/out" || s.Config.Ext != "rs" || s.Jobs < 1 {
		t.Fatalf("defaults = %+v", s)
	}
}
