package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"expander/internal/config"
	"expander/internal/digest"
)

var digestCmd = &cobra.Command{
	Use:   "digest [flags] [file|-]",
	Short: "Print the content digest and file name text would be written under",
	Long: `digest hashes the input exactly as given (no formatting) together with the
optional header comment and prints the resulting file name and full digest.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDigest,
}

func init() {
	digestCmd.Flags().String("name", "", "logical base name (default: input file name)")
	digestCmd.Flags().String("comment", "", "header comment included in the digest")
	digestCmd.Flags().String("ext", "", "file extension (default: rs)")
	digestCmd.Flags().String("verify", "", "fail unless the digest equals this 64-character hex value")
}

func runDigest(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	settings = applyDigestFlags(cmd, settings)

	name, err := cmd.Flags().GetString("name")
	if err != nil {
		return err
	}
	if name == "" && len(args) > 0 {
		name = nameFromPath(args[0])
	}
	if name == "" {
		return errors.New("digest: --name is required when reading stdin")
	}
	base, err := digest.CleanBase(name)
	if err != nil {
		return err
	}

	text, err := readInput(cmd, args)
	if err != nil {
		return err
	}
	d := digest.Sum(settings.Config.Header(), text)

	if want, _ := cmd.Flags().GetString("verify"); want != "" {
		expected, err := digest.Parse(strings.ToLower(strings.TrimSpace(want)))
		if err != nil {
			return fmt.Errorf("digest: --verify: %w", err)
		}
		if expected != d {
			return fmt.Errorf("digest: mismatch: got %s, want %s", digest.Format(d), digest.Format(expected))
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", digest.Name(base, d, settings.Config.Extension()), digest.Format(d))
	return nil
}

func applyDigestFlags(cmd *cobra.Command, s config.Settings) config.Settings {
	flags := cmd.Flags()
	if flags.Changed("comment") {
		c, _ := flags.GetString("comment")
		s.Config = s.Config.WithComment(c)
	}
	if flags.Changed("ext") {
		ext, _ := flags.GetString("ext")
		s.Config.Ext = strings.TrimPrefix(ext, ".")
	}
	return s
}
