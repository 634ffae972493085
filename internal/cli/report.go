package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/osprey-sec/osprey/internal/llm"
	"github.com/osprey-sec/osprey/internal/model"
	"github.com/osprey-sec/osprey/internal/report"
)

var (
	reportDir    string
	reportFormat string
	llmEnabled   bool
	llmModel     string
	llmBaseURL   string
)

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Re-render a completed run's artifacts",
	Long: `Report reads a run's canonical JSONL artifacts and re-renders them in
another format, optionally with an LLM analyst narrative. Rendering never
recomputes scores or dispositions; the narrative cites only evidence URLs
the run itself produced.

Example:
  osprey report --in out --format md
  osprey report --in out --format md --llm --llm-model gpt-4o-mini`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVar(&reportDir, "in", "out", "run output directory containing the JSONL artifacts")
	reportCmd.Flags().StringVar(&reportFormat, "format", "md", "target format (json, jsonl, md, csv)")
	reportCmd.Flags().BoolVar(&llmEnabled, "llm", false, "append an LLM analyst narrative")
	reportCmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model name")
	reportCmd.Flags().StringVar(&llmBaseURL, "llm-base-url", "", "OpenAI-compatible endpoint base URL")
}

func runReport(cmd *cobra.Command, args []string) error {
	format, ok := model.ParseOutputFormat(reportFormat)
	if !ok {
		return fmt.Errorf("unknown format: %s", reportFormat)
	}

	var signals []model.Signal
	if err := readJSONL(filepath.Join(reportDir, "signals.jsonl"), func(data []byte) error {
		var s model.Signal
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		signals = append(signals, s)
		return nil
	}); err != nil {
		return err
	}
	var findings []model.Finding
	if err := readJSONL(filepath.Join(reportDir, "findings.jsonl"), func(data []byte) error {
		var f model.Finding
		if err := json.Unmarshal(data, &f); err != nil {
			return err
		}
		findings = append(findings, f)
		return nil
	}); err != nil {
		return err
	}
	var evidence []model.Evidence
	if err := readJSONL(filepath.Join(reportDir, "evidence.jsonl"), func(data []byte) error {
		var e model.Evidence
		if err := json.Unmarshal(data, &e); err != nil {
			return err
		}
		evidence = append(evidence, e)
		return nil
	}); err != nil {
		return err
	}

	writer := report.NewWriter(reportDir, format)
	if _, err := writer.WriteRun(report.RunArtifacts{Signals: signals, Findings: findings, Evidence: evidence}); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Rendered %d signals, %d findings as %s in %s\n",
		len(signals), len(findings), format, reportDir)

	if llmEnabled {
		return printNarrative(findings, evidence)
	}
	return nil
}

func printNarrative(findings []model.Finding, evidence []model.Evidence) error {
	config := llm.Config{
		Provider:  "openai",
		Model:     llmModel,
		APIKey:    os.Getenv("OPENAI_API_KEY"),
		BaseURL:   llmBaseURL,
		TimeoutS:  30,
		MaxTokens: 1000,
	}
	if config.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}
	summarizer, err := llm.NewSummarizer(config)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	resp, err := summarizer.Summarize(ctx, findings, evidence, nil)
	if err != nil {
		return err
	}
	fmt.Println(resp.Summary)
	return nil
}

// readJSONL invokes handle for every non-empty line. A missing file is not an
// error: a run with no findings writes an empty artifact.
func readJSONL(path string, handle func([]byte) error) error {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := handle(line); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return scanner.Err()
}
