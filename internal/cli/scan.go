package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/osprey-sec/osprey/internal/cache"
	"github.com/osprey-sec/osprey/internal/detect"
	"github.com/osprey-sec/osprey/internal/identity"
	"github.com/osprey-sec/osprey/internal/model"
	"github.com/osprey-sec/osprey/internal/pipeline"
	"github.com/osprey-sec/osprey/internal/report"
	"github.com/osprey-sec/osprey/internal/scope"
	"github.com/osprey-sec/osprey/internal/source"
	"github.com/osprey-sec/osprey/internal/store"
)

var (
	scopePath   string
	demoMode    bool
	noNetwork   bool
	formatName  string
	outDir      string
	storePath   string
	fixturePath string
	landing     bool
	cacheDir    string
	windowDur   time.Duration
	nowFlag     string
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run the monitoring pipeline for one client scope",
	Long: `Scan runs the full pipeline for one authorized client scope:
collect raw evidence, normalize it into signals with stable identities,
dedupe against run history, score, correlate into findings, apply policy
escalation, and write the artifacts plus the run manifest.

Example:
  osprey scan --scope clients/example.yaml
  osprey scan --scope clients/example.yaml --landing --format md
  osprey scan --demo
  osprey scan --scope clients/example.yaml --fixture captures/run1.jsonl --no-network`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVar(&scopePath, "scope", "", "client scope file (YAML)")
	scanCmd.Flags().BoolVar(&demoMode, "demo", false, "run without a scope file under the offline-only safety floor")
	scanCmd.Flags().BoolVar(&noNetwork, "no-network", false, "refuse all network sources")
	scanCmd.Flags().StringVar(&formatName, "format", "jsonl", "output format (json, jsonl, md, csv)")
	scanCmd.Flags().StringVar(&outDir, "out", "out", "output directory")
	scanCmd.Flags().StringVar(&storePath, "store", "data/history.json", "run history store path")
	scanCmd.Flags().StringVar(&fixturePath, "fixture", "", "raw evidence fixture (JSONL) to replay as a source")
	scanCmd.Flags().BoolVar(&landing, "landing", false, "probe typosquat candidates for live landing pages")
	scanCmd.Flags().StringVar(&cacheDir, "cache-dir", "", "persist probe responses under this directory")
	scanCmd.Flags().DurationVar(&windowDur, "window", 24*time.Hour, "observation window ending at the run time")
	scanCmd.Flags().StringVar(&nowFlag, "now", "", "fixed run time (RFC3339) for reproducible output")
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg := buildConfig()
	return executeRun(cfg)
}

func buildConfig() *model.Config {
	cfg := model.DefaultConfig()
	cfg.ScopePath = scopePath
	cfg.DemoSafe = demoMode
	cfg.NoNetwork = noNetwork
	cfg.OutputDir = outDir
	cfg.StorePath = storePath
	cfg.Verbose = verbose
	cfg.HTTP.CacheDir = cacheDir
	if format, ok := model.ParseOutputFormat(formatName); ok {
		cfg.Format = format
	}
	return cfg
}

func executeRun(cfg *model.Config) error {
	now, fixed, err := resolveNow(nowFlag)
	if err != nil {
		return err
	}
	window := model.RunWindow{Start: now.Add(-windowDur), End: now}

	registry := detect.NewRegistry()
	sc, err := loadScope(cfg, registry)
	if err != nil {
		return err
	}

	sources, err := buildSources(cfg, sc)
	if err != nil {
		return err
	}
	collector := source.NewCollector(registry,
		source.WithSources(sources...),
		source.WithSourceTimeout(cfg.HTTP.Timeout),
		source.WithNoNetwork(cfg.NoNetwork),
		source.WithLogf(cfg.Verbose, func(format string, a ...interface{}) {
			fmt.Fprintf(os.Stderr, format, a...)
		}),
	)

	history, err := store.OpenFile(cfg.StorePath)
	if err != nil {
		return err
	}

	started := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.Timeout*2)
	defer cancel()

	collected, err := collector.Collect(ctx, sc, window)
	if err != nil {
		return fmt.Errorf("collect: %w", err)
	}
	if cfg.Verbose {
		fmt.Fprintf(os.Stderr, "Collected %d raw evidence records (%d sources degraded)\n",
			len(collected.Raw), len(collected.Degraded))
	}

	scopeHash, err := sc.Hash()
	if err != nil {
		return err
	}
	configHash, err := identity.HashCanonical(cfg)
	if err != nil {
		return &model.HashingError{Err: err}
	}

	durationMS := int64(0)
	if !fixed {
		durationMS = time.Since(started).Milliseconds()
	}

	p := pipeline.NewPipeline(sc, history)
	result, err := p.Run(collected, window, now, scopeHash, configHash, durationMS)
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}

	writer := report.NewWriter(cfg.OutputDir, cfg.Format)
	outputHashes, err := writer.WriteRun(report.RunArtifacts{
		Signals:  result.Signals,
		Findings: result.Findings,
		Evidence: result.Evidence,
	})
	if err != nil {
		return err
	}
	result.Manifest.OutputHashes = outputHashes

	runID, err := identity.RunID(result.Manifest)
	if err != nil {
		return err
	}
	if _, err := writer.WriteManifest(result.Manifest); err != nil {
		return err
	}

	if err := history.SaveRun(result.Summary(runID, now, window), result.SignalRecords(runID)); err != nil {
		// The run's artifacts are already on disk; a store failure must
		// not discard them.
		fmt.Fprintf(os.Stderr, "Warning: history store write failed: %v\n", err)
	} else if sc.Privacy.RetentionDays > 0 {
		cutoff := now.AddDate(0, 0, -sc.Privacy.RetentionDays)
		if removed, err := history.PurgeOlderThan(cutoff); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: retention purge failed: %v\n", err)
		} else if cfg.Verbose && removed > 0 {
			fmt.Fprintf(os.Stderr, "Purged %d record(s) past retention\n", removed)
		}
	}

	printRunSummary(runID, result)
	return nil
}

func loadScope(cfg *model.Config, registry *detect.Registry) (*scope.Scope, error) {
	if cfg.ScopePath == "" {
		if !cfg.DemoSafe {
			return nil, &model.ScopeError{Reason: "no scope file given; pass --scope or use --demo"}
		}
		return scope.Demo(), nil
	}
	sc, err := scope.Load(cfg.ScopePath)
	if err != nil {
		return nil, err
	}
	if cfg.DemoSafe {
		sc = sc.SanitizeForDemo()
	}
	if err := sc.Validate(detect.KnownDetectorNames()); err != nil {
		return nil, err
	}
	return sc, nil
}

func buildSources(cfg *model.Config, sc *scope.Scope) ([]source.Source, error) {
	var sources []source.Source
	if fixturePath != "" {
		sources = append(sources, source.NewFixtureSource(fixturePath))
	}
	if landing {
		prober := source.NewProber(cfg.HTTP.Timeout, cfg.HTTP.UserAgent, cfg.HTTP.MaxBodyBytes)
		if cfg.HTTP.CacheDir != "" {
			prober = prober.WithCache(cache.NewLayered(10*time.Minute, cfg.HTTP.CacheDir, 24*time.Hour))
		}
		robots := source.NewRobotsChecker(cfg.HTTP.UserAgent, cfg.HTTP.Timeout)
		limiter := source.NewLimiter(sc)
		sources = append(sources, source.NewLandingSource(prober, robots, limiter))
	}
	return sources, nil
}

func printRunSummary(runID string, result *pipeline.RunResult) {
	alerts := 0
	for _, f := range result.Findings {
		if f.Disposition == model.DispositionAlert {
			alerts++
		}
	}
	fmt.Fprintf(os.Stderr, "Run %s\n", runID)
	fmt.Fprintf(os.Stderr, "  signals: %d (%d new, %d repeat)\n",
		len(result.Signals), result.SignalsNew, result.SignalsRepeat)
	fmt.Fprintf(os.Stderr, "  findings: %d (%d alert)\n", len(result.Findings), alerts)
	fmt.Fprintf(os.Stderr, "  raw: %d considered, %d suppressed, %d malformed\n",
		result.Manifest.RawConsidered, result.Manifest.RawSuppressed, result.Manifest.RawMalformed)
	for _, d := range result.Manifest.DegradedSources {
		fmt.Fprintf(os.Stderr, "  degraded: %s (%s)\n", d.Source, d.Reason)
	}
}
