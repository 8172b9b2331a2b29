package main

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"expander/internal/format"
)

// errNotFormatted is returned by fmt --check when formatting would change the input.
var errNotFormatted = errors.New("fmt: input is not formatted")

var fmtCmd = &cobra.Command{
	Use:   "fmt [flags] [file|-]",
	Short: "Run the format pipeline on generated text and print the result",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runFmt,
}

func init() {
	fmtCmd.Flags().Bool("check", false, "report whether the input is already formatted instead of printing it")
	addFormatFlags(fmtCmd)
}

func runFmt(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	policy := settings.Config.Format
	policy.Enabled = true
	policy, err = applyFormatFlags(cmd, policy)
	if err != nil {
		return err
	}
	check, err := cmd.Flags().GetBool("check")
	if err != nil {
		return err
	}

	src, err := readInput(cmd, args)
	if err != nil {
		return err
	}
	out, err := format.Run(cmd.Context(), src, policy)
	if settings.Config.Verbose {
		printAttempts(cmd, out.Attempts, err)
	}
	if err != nil {
		return err
	}

	if check {
		if out.Fallback || !bytes.Equal(out.Text, src) {
			return errNotFormatted
		}
		return nil
	}
	_, err = cmd.OutOrStdout().Write(out.Text)
	return err
}

func printAttempts(cmd *cobra.Command, attempts []format.Attempt, runErr error) {
	var fe *format.Error
	if errors.As(runErr, &fe) {
		attempts = fe.Attempts
	}
	out := cmd.ErrOrStderr()
	for _, a := range attempts {
		if a.Err == nil {
			fmt.Fprintf(out, "%s %-8s %v\n", color.GreenString("ok"), a.Strategy, a.Duration)
			continue
		}
		fmt.Fprintf(out, "%s %-8s %v: %v\n", color.RedString("fail"), a.Strategy, a.Duration, a.Err)
	}
}
