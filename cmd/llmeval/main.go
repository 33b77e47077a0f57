// cmd/llmeval/main.go
package main

import (
	"os"

	llmeval "github.com/mwiater/llmeval/internal/commands"
)

// Set by -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	setVersionInfo = llmeval.SetVersionInfo
	executeCmd     = llmeval.Execute
	exit           = os.Exit
)

// main injects build information and exits with the status returned by
// the llmeval root command.
func main() {
	setVersionInfo(version, commit, date)
	exit(executeCmd())
}
