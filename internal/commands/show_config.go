// internal/commands/show_config.go
package llmeval

import (
	"io"

	"github.com/mwiater/llmeval/internal/appconfig"
	"github.com/spf13/cobra"
)

var showConfigPath string

// showConfigCmd implements 'show config', which loads the scoring
// configuration the way 'score' would and prints the result.
var showConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Show scoring config settings",
	Long:  `Load the scoring configuration with defaults applied and print it. With --debug the full decoded structure is dumped as well.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runShowConfig(cmd.OutOrStdout(), showConfigPath, DebugEnabled())
	},
}

func init() {
	showConfigCmd.Flags().StringVar(&showConfigPath, "scoring-config", appconfig.DefaultConfigPath, "scoring configuration file")
	showCmd.AddCommand(showConfigCmd)
}

func runShowConfig(out io.Writer, path string, dump bool) error {
	cfg, err := appconfig.Load(path)
	if err != nil {
		return err
	}
	appconfig.ShowConfig(out, cfg)
	if dump {
		appconfig.DumpConfig(out, cfg)
	}
	return nil
}
