package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// replayCmd represents the replay command
var replayCmd = &cobra.Command{
	Use:   "replay <fixture.jsonl>",
	Short: "Re-run the pipeline over a captured evidence fixture",
	Long: `Replay runs the pipeline over a captured raw-evidence fixture with
network collection disabled. Given the same scope, config, and fixed run
time, replay produces byte-identical signals, findings, and manifest to
the original run; the manifest hashes make the comparison mechanical.

Example:
  osprey replay captures/run1.jsonl --scope clients/example.yaml --now 2026-03-01T00:00:00Z`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().StringVar(&scopePath, "scope", "", "client scope file (YAML)")
	replayCmd.Flags().BoolVar(&demoMode, "demo", false, "replay under the offline-only safety floor")
	replayCmd.Flags().StringVar(&formatName, "format", "jsonl", "output format (json, jsonl, md, csv)")
	replayCmd.Flags().StringVar(&outDir, "out", "out", "output directory")
	replayCmd.Flags().StringVar(&storePath, "store", "data/history.json", "run history store path")
	replayCmd.Flags().DurationVar(&windowDur, "window", 24*time.Hour, "observation window ending at the run time")
	replayCmd.Flags().StringVar(&nowFlag, "now", "", "fixed run time (RFC3339); required for byte-identical output")
}

func runReplay(cmd *cobra.Command, args []string) error {
	fixturePath = args[0]
	landing = false
	noNetwork = true

	if nowFlag == "" && verbose {
		fmt.Fprintln(cmd.ErrOrStderr(), "Note: no --now given; output will differ across replays by run time")
	}

	cfg := buildConfig()
	return executeRun(cfg)
}
