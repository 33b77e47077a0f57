// internal/commands/run.go
package llmeval

import (
	"time"

	"github.com/spf13/cobra"
)

var runFlags runOptions

// runCmd implements 'run <suite>', which asks every configured model every
// question of a suite and writes one transcript per model plus a manifest.
var runCmd = &cobra.Command{
	Use:   "run <suite>",
	Short: "Generate transcripts for a test suite",
	Long: `Load test_suites/<suite>/config.yaml and its questions, ask each configured model
every question in order, and write results_<model>.txt files and resultset.json into a
new timestamped directory under the output directory.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := runFlags
		if len(args) == 1 {
			opts.suiteName = args[0]
		}
		opts.overrideTemperature = cmd.Flags().Changed("temperature")
		return runSuite(cmd.Context(), cmd.OutOrStdout(), opts)
	},
}

func init() {
	runCmd.Flags().StringVar(&runFlags.suitesDir, "suites-dir", defaultSuitesDir, "directory containing test suites")
	runCmd.Flags().StringVar(&runFlags.outputDir, "output-dir", defaultOutputDir, "directory that receives run directories")
	runCmd.Flags().StringVar(&runFlags.model, "model", "", "run a single model instead of the configured list")
	runCmd.Flags().Float64Var(&runFlags.temperature, "temperature", 0, "temperature for --model (or for every configured model)")
	runCmd.Flags().StringVar(&runFlags.endpoint, "endpoint", "", "override api.base_url from the suite config")
	runCmd.Flags().DurationVar(&runFlags.timeout, "timeout", 0, "deadline for the whole run (0 = none)")
	runCmd.Flags().DurationVar(&runFlags.requestTimeout, "request-timeout", 0, "deadline for one model call (0 = provider default)")
	rootCmd.AddCommand(runCmd)
}

type runOptions struct {
	suiteName           string
	suitesDir           string
	outputDir           string
	model               string
	temperature         float64
	overrideTemperature bool
	endpoint            string
	timeout             time.Duration
	requestTimeout      time.Duration
}
