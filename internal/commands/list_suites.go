// internal/commands/list_suites.go
package llmeval

import (
	"fmt"
	"io"

	"github.com/mwiater/llmeval/internal/suite"
	"github.com/spf13/cobra"
)

var listSuitesDir string

// suitesCmd implements 'list suites', which prints every suite directory with
// its description and question count.
var suitesCmd = &cobra.Command{
	Use:   "suites",
	Short: "List available test suites",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runListSuites(cmd.OutOrStdout(), listSuitesDir)
	},
}

func init() {
	suitesCmd.Flags().StringVar(&listSuitesDir, "suites-dir", defaultSuitesDir, "directory containing test suites")
	listCmd.AddCommand(suitesCmd)
}

// runListSuites prints one entry per suite. A suite that fails to load is
// listed with its error rather than aborting the listing.
func runListSuites(out io.Writer, dir string) error {
	names, err := suite.List(dir)
	if err != nil {
		return fmt.Errorf("failed to list test suites: %w", err)
	}
	if len(names) == 0 {
		fmt.Fprintf(out, "No test suites found in %s.\n", dir)
		return nil
	}

	fmt.Fprintf(out, "Available test suites:\n\n")
	for _, name := range names {
		s, err := suite.Load(dir, name)
		if err != nil {
			fmt.Fprintf(out, "  - %s (error loading: %v)\n", name, err)
			continue
		}
		fmt.Fprintf(out, "  - %s\n", name)
		if s.Name != name {
			fmt.Fprintf(out, "    Name: %s\n", s.Name)
		}
		if s.Description != "" {
			fmt.Fprintf(out, "    Description: %s\n", s.Description)
		}
		fmt.Fprintf(out, "    Models: %d\n", len(s.Models))
		fmt.Fprintf(out, "    Questions: %d\n\n", len(s.Questions))
	}
	return nil
}
