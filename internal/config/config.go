// Package config loads expander.toml, the per-project defaults for the CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"

	"expander"
	"expander/internal/format"
	"expander/internal/outfile"
)

// FileName is the config file looked up from the working directory upwards.
const FileName = "expander.toml"

// File mirrors the TOML layout.
type File struct {
	Output OutputSection `toml:"output"`
	Format FormatSection `toml:"format"`
	Batch  BatchSection  `toml:"batch"`
}

type OutputSection struct {
	Dir     string  `toml:"dir"`
	Ext     string  `toml:"ext"`
	Comment *string `toml:"comment"`
	Mode    string  `toml:"mode"`
}

type FormatSection struct {
	Enabled      bool   `toml:"enabled"`
	Channel      string `toml:"channel"`
	Edition      string `toml:"edition"`
	AllowFailure bool   `toml:"allow_failure"`
	Formatter    string `toml:"formatter"`
}

type BatchSection struct {
	Jobs int `toml:"jobs"`
}

// Settings is a validated configuration ready for the library.
type Settings struct {
	Path   string // config file, empty when none was found
	Dir    string // output directory, absolute when set from a file
	Jobs   int
	Config expander.Config
}

// Defaults returns the settings used when no file is present.
func Defaults() Settings {
	return Settings{
		Dir:    os.Getenv("OUT_DIR"),
		Jobs:   runtime.GOMAXPROCS(0),
		Config: expander.Config{Ext: expander.DefaultExt},
	}
}

// Find walks up from startDir looking for FileName.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Discover finds and loads the nearest config file. Without one it
// returns Defaults and false.
func Discover(startDir string) (Settings, bool, error) {
	path, ok, err := Find(startDir)
	if err != nil || !ok {
		return Defaults(), false, err
	}
	s, err := Load(path)
	return s, true, err
}

// Load decodes and validates the file at path. Unknown keys are an error.
func Load(path string) (Settings, error) {
	var f File
	meta, err := toml.DecodeFile(path, &f)
	if err != nil {
		return Settings{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return Settings{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	s, err := f.Resolve(filepath.Dir(path))
	if err != nil {
		return Settings{}, fmt.Errorf("%s: %w", path, err)
	}
	s.Path = path
	return s, nil
}

// Resolve validates f and turns it into Settings. Relative output
// directories are taken relative to root.
func (f File) Resolve(root string) (Settings, error) {
	s := Defaults()
	if dir := strings.TrimSpace(f.Output.Dir); dir != "" {
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(root, filepath.FromSlash(dir))
		}
		s.Dir = dir
	}
	if f.Output.Ext != "" {
		s.Config.Ext = strings.TrimPrefix(f.Output.Ext, ".")
	}
	s.Config.Comment = f.Output.Comment

	mode, err := outfile.ParseMode(f.Output.Mode)
	if err != nil {
		return Settings{}, fmt.Errorf("[output].mode: %w", err)
	}
	s.Config.WriteMode = mode

	channel, err := format.ParseChannel(f.Format.Channel)
	if err != nil {
		return Settings{}, fmt.Errorf("[format].channel: %w", err)
	}
	edition, err := format.ParseEdition(f.Format.Edition)
	if err != nil {
		return Settings{}, fmt.Errorf("[format].edition: %w", err)
	}
	s.Config.Format = format.Policy{
		Enabled:      f.Format.Enabled,
		Channel:      channel,
		Edition:      edition,
		AllowFailure: f.Format.AllowFailure,
		Formatter:    strings.TrimSpace(f.Format.Formatter),
	}

	switch {
	case f.Batch.Jobs < 0:
		return Settings{}, fmt.Errorf("[batch].jobs must be >= 0, got %d", f.Batch.Jobs)
	case f.Batch.Jobs > 0:
		s.Jobs = f.Batch.Jobs
	}
	return s, nil
}
