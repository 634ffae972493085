package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/osprey-sec/osprey/internal/identity"
	"github.com/osprey-sec/osprey/internal/model"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "osprey",
	Short: "Osprey - deterministic brand-monitoring signal pipeline",
	Long: `Osprey turns publicly observable indicators (lookalike domains,
certificate issuance, code and paste leaks, social mentions) into
deterministic, explainable findings for a single authorized client.

Every run is scope-bounded and auditable: identical inputs produce
byte-identical signals, findings, and manifest, and the manifest hashes
every artifact so a run can be independently verified on replay.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("osprey v%s (%s)\n", model.Version, identity.BuildID())
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.osprey/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(home + "/.osprey")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("OSPREY")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// resolveNow returns the run's reference time: the --now flag, then the
// OSPREY_FIXED_TIME env var, then the wall clock. A fixed clock makes replay
// output byte-identical, including temporal decay and the manifest duration
// (reported as zero so timing never leaks into the hashes).
func resolveNow(nowFlag string) (time.Time, bool, error) {
	if nowFlag != "" {
		t, err := time.Parse(time.RFC3339, nowFlag)
		if err != nil {
			return time.Time{}, false, fmt.Errorf("parse --now: %w", err)
		}
		return t.UTC(), true, nil
	}
	if env := os.Getenv("OSPREY_FIXED_TIME"); env != "" {
		t, err := time.Parse(time.RFC3339, env)
		if err != nil {
			return time.Time{}, false, fmt.Errorf("parse OSPREY_FIXED_TIME: %w", err)
		}
		return t.UTC(), true, nil
	}
	return time.Now().UTC(), false, nil
}
