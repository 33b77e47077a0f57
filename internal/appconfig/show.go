package appconfig

import (
	"fmt"
	"io"

	"github.com/k0kubun/pp"
)

// ShowConfig prints the current scoring configuration summary. The API key
// itself is never printed, only whether one was found.
func ShowConfig(out io.Writer, cfg Config) {
	if cfg.ConfigPath == "" {
		fmt.Fprintln(out, "No config file loaded.")
	} else {
		fmt.Fprintf(out, "Config file: %s\n\n", cfg.ConfigPath)
	}

	fmt.Fprintln(out, "Current configuration:")
	fmt.Fprintf(out, "  API:          %s\n", cfg.API)
	if cfg.API == APILocal {
		fmt.Fprintf(out, "  Endpoint:     %s\n", cfg.Endpoint)
	} else {
		fmt.Fprintf(out, "  API Key Env:  %s (set: %v)\n", cfg.APIKeyEnv, cfg.APIKey != "")
	}
	fmt.Fprintf(out, "  Model:        %s\n", cfg.Model)
	fmt.Fprintf(out, "  Repetitions:  %d\n", cfg.Repetitions)
	fmt.Fprintf(out, "  Max Tokens:   %d\n", cfg.MaxTokens)
	fmt.Fprintf(out, "  Temperature:  %g\n", cfg.Temperature)
	fmt.Fprintf(out, "  Timeout:      %s\n", cfg.RequestTimeout())
}

// DumpConfig pretty-prints the full decoded structure, with the key redacted.
func DumpConfig(out io.Writer, cfg Config) {
	if cfg.APIKey != "" {
		cfg.APIKey = "<redacted>"
	}
	pp.Fprintln(out, cfg)
}
