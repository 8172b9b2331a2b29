package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"expander/internal/config"
	"expander/internal/format"
	"expander/internal/outfile"
)

// readInput reads the single positional argument, or stdin for "-" or no
// argument.
func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	return data, nil
}

// nameFromPath derives a request name from an input file: "gen/foo.rs"
// becomes "foo".
func nameFromPath(path string) string {
	if path == "" || path == "-" {
		return ""
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// loadSettings loads --config, or the nearest expander.toml, or defaults.
func loadSettings(cmd *cobra.Command) (config.Settings, error) {
	path, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return config.Settings{}, err
	}
	var s config.Settings
	if path != "" {
		s, err = config.Load(path)
	} else {
		s, _, err = config.Discover(".")
	}
	if err != nil {
		return config.Settings{}, err
	}
	verbose, err := cmd.Root().PersistentFlags().GetBool("verbose")
	if err != nil {
		return config.Settings{}, err
	}
	s.Config.Verbose = verbose
	return s, nil
}

func addFormatFlags(cmd *cobra.Command) {
	cmd.Flags().String("channel", "default", "formatter toolchain channel (default|stable|beta|nightly)")
	cmd.Flags().String("edition", "", "language edition passed to the formatter (2015|2018|2021)")
	cmd.Flags().Bool("allow-fmt-failure", false, "keep unformatted text when every formatter fails")
	cmd.Flags().String("formatter", "", "external formatter binary (default: rustfmt)")
}

// applyFormatFlags overrides policy fields whose flags were set explicitly.
func applyFormatFlags(cmd *cobra.Command, p format.Policy) (format.Policy, error) {
	flags := cmd.Flags()
	if flags.Changed("channel") {
		v, _ := flags.GetString("channel")
		ch, err := format.ParseChannel(v)
		if err != nil {
			return p, err
		}
		p.Channel = ch
	}
	if flags.Changed("edition") {
		v, _ := flags.GetString("edition")
		ed, err := format.ParseEdition(v)
		if err != nil {
			return p, err
		}
		p.Edition = ed
	}
	if flags.Changed("allow-fmt-failure") {
		p.AllowFailure, _ = flags.GetBool("allow-fmt-failure")
	}
	if flags.Changed("formatter") {
		p.Formatter, _ = flags.GetString("formatter")
	}
	return p, nil
}

func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().String("out-dir", "", "output directory (default: [output].dir or $OUT_DIR)")
	cmd.Flags().String("ext", "", "output file extension (default: rs)")
	cmd.Flags().String("comment", "", "header comment written above the text")
	cmd.Flags().Bool("fmt", false, "format the text before writing")
	cmd.Flags().String("mode", "", "write mode (atomic|inplace)")
	addFormatFlags(cmd)
}

// applyOutputFlags merges explicitly set output flags into s.
func applyOutputFlags(cmd *cobra.Command, s config.Settings) (config.Settings, error) {
	flags := cmd.Flags()
	if flags.Changed("out-dir") {
		s.Dir, _ = flags.GetString("out-dir")
	}
	if flags.Changed("ext") {
		ext, _ := flags.GetString("ext")
		s.Config.Ext = strings.TrimPrefix(ext, ".")
	}
	if flags.Changed("comment") {
		c, _ := flags.GetString("comment")
		s.Config = s.Config.WithComment(c)
	}
	if flags.Changed("fmt") {
		s.Config.Format.Enabled, _ = flags.GetBool("fmt")
	}
	if flags.Changed("mode") {
		v, _ := flags.GetString("mode")
		m, err := outfile.ParseMode(v)
		if err != nil {
			return s, err
		}
		s.Config.WriteMode = m
	}
	p, err := applyFormatFlags(cmd, s.Config.Format)
	if err != nil {
		return s, err
	}
	s.Config.Format = p
	return s, nil
}
