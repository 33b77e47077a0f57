// internal/commands/score.go
package llmeval

import (
	"github.com/mwiater/llmeval/internal/appconfig"
	"github.com/spf13/cobra"
)

var scoreFlags scoreOptions

// scoreCmd implements 'score <results-file>', which has a judge model grade
// one transcript several times and writes <stem>_scores.json beside it.
var scoreCmd = &cobra.Command{
	Use:   "score <results-file>",
	Short: "Score a transcript with an LLM judge",
	Long: `Send the transcript to the judge configured in scoring_config.yaml once per repetition,
parse "N out of M" from each verdict and write the runs and their summary to
<transcript stem>_scores.json. Ctrl+C stops scoring with exit status 130.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := scoreFlags
		opts.resultsFile = args[0]
		opts.overrideRepetitions = cmd.Flags().Changed("repetitions")
		return scoreResults(cmd.Context(), cmd.OutOrStdout(), opts)
	},
}

func init() {
	scoreCmd.Flags().StringVar(&scoreFlags.configPath, "scoring-config", appconfig.DefaultConfigPath, "scoring configuration file")
	scoreCmd.Flags().IntVarP(&scoreFlags.repetitions, "repetitions", "r", 0, "number of judge runs (overrides the config file)")
	scoreCmd.Flags().StringVar(&scoreFlags.model, "scoring-model", "", "judge model (overrides the config file)")
	scoreCmd.Flags().StringVar(&scoreFlags.endpoint, "scoring-endpoint", "", "judge endpoint for the local api (overrides the config file)")
	scoreCmd.Flags().BoolVar(&scoreFlags.buffered, "no-stream", false, "request complete responses instead of streaming")
	scoreCmd.Flags().BoolVarP(&scoreFlags.quiet, "quiet", "q", false, "do not echo judge output while it streams")
	rootCmd.AddCommand(scoreCmd)
}

type scoreOptions struct {
	resultsFile         string
	configPath          string
	repetitions         int
	overrideRepetitions bool
	model               string
	endpoint            string
	buffered            bool
	quiet               bool
}
