package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/osprey-sec/osprey/internal/model"
	"github.com/osprey-sec/osprey/internal/report"
	"github.com/osprey-sec/osprey/internal/store"
)

var (
	trendStorePath string
	trendWindow    time.Duration
	trendFormat    string
	trendOut       string
	trendNow       string
)

// trendCmd represents the trend command
var trendCmd = &cobra.Command{
	Use:   "trend",
	Short: "Aggregate run history into a trend report",
	Long: `Trend aggregates persisted run history over a window and compares it
against the window immediately before, to surface new subjects and signal
volume changes.

Example:
  osprey trend --store data/history.json --window 168h --format md`,
	RunE: runTrend,
}

func init() {
	rootCmd.AddCommand(trendCmd)

	trendCmd.Flags().StringVar(&trendStorePath, "store", "data/history.json", "history store file")
	trendCmd.Flags().DurationVar(&trendWindow, "window", 7*24*time.Hour, "trend window")
	trendCmd.Flags().StringVar(&trendFormat, "format", "md", "output format (json, jsonl, md, csv)")
	trendCmd.Flags().StringVar(&trendOut, "out", "out", "output directory")
	trendCmd.Flags().StringVar(&trendNow, "now", "", "fixed end time (RFC3339) for reproducible reports")
}

func runTrend(cmd *cobra.Command, args []string) error {
	format, ok := model.ParseOutputFormat(trendFormat)
	if !ok {
		return fmt.Errorf("unknown format: %s", trendFormat)
	}
	now, _, err := resolveNow(trendNow)
	if err != nil {
		return err
	}

	history, err := store.OpenFile(trendStorePath)
	if err != nil {
		return err
	}

	trendReport, err := report.BuildTrend(history, now.Add(-trendWindow), now)
	if err != nil {
		return err
	}

	writer := report.NewWriter(trendOut, format)
	path, err := writer.WriteTrend(trendReport)
	if err != nil {
		return err
	}

	for _, line := range trendReport.Summary {
		fmt.Fprintln(os.Stderr, line)
	}
	fmt.Fprintf(os.Stderr, "Trend report written to %s\n", path)
	return nil
}
