// internal/commands/serve.go
package llmeval

import (
	"time"

	"github.com/mwiater/llmeval/internal/appconfig"
	"github.com/spf13/cobra"
)

var serveFlags serveOptions

// serveCmd implements 'serve', which exposes the evaluation pipeline to MCP
// clients over stdin and stdout.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve llmeval as MCP tools over stdio",
	Long: `Speak the Model Context Protocol (JSON-RPC 2.0) on stdin and stdout so an MCP
client can call these tools:

  list_test_suites  list the suites under --suites-dir
  run_test_suite    generate transcripts for a suite
  score_results     score one transcript or every transcript of a run
  get_results       list stored runs or return one run with its scores

Messages are newline-delimited JSON; Content-Length framed input is also accepted.
Diagnostics go to the log file (and to stderr with --debug), never to stdout.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), serveFlags)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveFlags.suitesDir, "suites-dir", defaultSuitesDir, "directory containing test suites")
	serveCmd.Flags().StringVar(&serveFlags.outputDir, "output-dir", defaultOutputDir, "directory that receives run directories")
	serveCmd.Flags().StringVar(&serveFlags.scoringConfig, "scoring-config", appconfig.DefaultConfigPath, "scoring configuration file")
	serveCmd.Flags().DurationVar(&serveFlags.requestTimeout, "request-timeout", 0, "deadline for one model call (0 = provider default)")
	rootCmd.AddCommand(serveCmd)
}

type serveOptions struct {
	suitesDir      string
	outputDir      string
	scoringConfig  string
	requestTimeout time.Duration
}
