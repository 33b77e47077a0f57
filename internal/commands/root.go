// internal/commands/root.go
package llmeval

import (
	"errors"
	"fmt"

	"github.com/mwiater/llmeval/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// ErrInterrupted is returned when a command is stopped by SIGINT or SIGTERM.
var ErrInterrupted = errors.New("interrupted")

const (
	exitOK          = 0
	exitError       = 1
	exitInterrupted = 130
)

var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "llmeval",
	Short: "Generate model transcripts from a question suite and score them with an LLM judge",
	// Errors are printed once by Execute.
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logging.Init(viper.GetString("logFile"), viper.GetBool("debug")); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

// Execute runs the root command and returns the process exit status:
// 0 on success, 130 when interrupted, 1 for any other error.
func Execute() int {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", appVersion, appCommit, appDate)

	defer logging.Close()
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
	}
	return exitCode(err)
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, ErrInterrupted):
		return exitInterrupted
	default:
		return exitError
	}
}

func init() {
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging to stderr")
	rootCmd.PersistentFlags().String("logFile", "", "path to the log file")

	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("logFile", rootCmd.PersistentFlags().Lookup("logFile"))
}

// DebugEnabled returns true if debug mode is enabled.
func DebugEnabled() bool { return viper.GetBool("debug") }

// SetVersionInfo allows the main package to inject build-time variables.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}
