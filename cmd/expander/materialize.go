package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"expander"
)

var materializeCmd = &cobra.Command{
	Use:   "materialize [flags] [file|-]",
	Short: "Write generated text to a content-addressed file and print its reference",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runMaterialize,
}

func init() {
	materializeCmd.Flags().String("name", "", "logical base name (default: input file name)")
	materializeCmd.Flags().Bool("dry", false, "print the text itself instead of writing it")
	addOutputFlags(materializeCmd)
}

func runMaterialize(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	settings, err = applyOutputFlags(cmd, settings)
	if err != nil {
		return err
	}
	settings.Config.Dry, err = cmd.Flags().GetBool("dry")
	if err != nil {
		return err
	}

	name, err := cmd.Flags().GetString("name")
	if err != nil {
		return err
	}
	if name == "" && len(args) > 0 {
		name = nameFromPath(args[0])
	}
	if name == "" && !settings.Config.Dry {
		return errors.New("materialize: --name is required when reading stdin")
	}
	if settings.Dir == "" && !settings.Config.Dry {
		return &expander.Error{Op: expander.OpWrite, Err: expander.ErrNoOutDir}
	}

	text, err := readInput(cmd, args)
	if err != nil {
		return err
	}

	res, err := expander.Materialize(cmd.Context(), settings.Dir, expander.Request{Name: name, Text: text}, settings.Config)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), res.Reference)
	if settings.Config.Verbose && !settings.Config.Dry {
		printResult(cmd, res)
	}
	return nil
}

func printResult(cmd *cobra.Command, res expander.Result) {
	out := cmd.ErrOrStderr()
	state := color.GreenString("wrote")
	if res.Waited {
		state = color.YellowString("waited")
	}
	fmt.Fprintf(out, "%s %s (formatter: %s)\n", state, res.Path, res.Formatter)
	fmt.Fprint(out, res.Timings.String())
}
