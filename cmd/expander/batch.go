package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"fortio.org/safecast"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"expander/internal/batch"
)

var batchCmd = &cobra.Command{
	Use:   "batch [flags] [frames|-]",
	Short: "Materialize a msgpack stream of requests and emit a stream of replies",
	Long: `batch reads msgpack-encoded frames {id, name, text, error} and writes one
msgpack reply {id, reference, path, written, waited, formatter, error} per
frame, in input order. A frame that fails is reported in its reply.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().Uint("jobs", 0, "parallel requests (default: [batch].jobs or GOMAXPROCS)")
	batchCmd.Flags().StringP("output", "o", "-", "reply stream destination (- for stdout)")
	batchCmd.Flags().String("ui", "auto", "progress UI on stderr (auto|on|off)")
	addOutputFlags(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	settings, err = applyOutputFlags(cmd, settings)
	if err != nil {
		return err
	}
	if settings.Dir == "" {
		return fmt.Errorf("batch: no output directory (set --out-dir, [output].dir or OUT_DIR)")
	}
	if cmd.Flags().Changed("jobs") {
		jobs, _ := cmd.Flags().GetUint("jobs")
		n, err := safecast.Conv[int](jobs)
		if err != nil {
			return fmt.Errorf("batch: --jobs: %w", err)
		}
		settings.Jobs = n
	}
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return err
	}
	mode, err := readUIMode(uiValue)
	if err != nil {
		return err
	}
	outPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	var in io.Reader = cmd.InOrStdin()
	if len(args) > 0 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}
	frames, err := batch.ReadFrames(bufio.NewReader(in))
	if err != nil {
		return fmt.Errorf("batch: %w", err)
	}

	opt := batch.Options{Dir: settings.Dir, Jobs: settings.Jobs, Config: settings.Config}
	// the UI owns stderr, so per-call verbose tracing is off while it runs
	useUI := shouldUseTUI(mode) && len(frames) > 0
	if useUI {
		opt.Config.Verbose = false
	}
	var replies []batch.Reply
	if useUI {
		replies, err = runBatchWithUI(cmd.Context(), fmt.Sprintf("materializing %d requests", len(frames)), frames, opt)
	} else {
		replies, err = batch.Run(cmd.Context(), frames, opt)
	}
	if err != nil {
		return err
	}

	if err := writeReplies(cmd, outPath, replies); err != nil {
		return err
	}
	failed := 0
	for i := range replies {
		if replies[i].Error == "" {
			continue
		}
		failed++
		if !useUI {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %s: %s\n", color.RedString("failed"), frames[i].Name, replies[i].Error)
		}
	}
	if failed > 0 {
		return fmt.Errorf("batch: %d of %d requests failed", failed, len(replies))
	}
	return nil
}

func writeReplies(cmd *cobra.Command, path string, replies []batch.Reply) error {
	if path == "" || path == "-" {
		w := bufio.NewWriter(cmd.OutOrStdout())
		if err := batch.WriteReplies(w, replies); err != nil {
			return err
		}
		return w.Flush()
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := batch.WriteReplies(w, replies); err != nil {
		_ = f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
