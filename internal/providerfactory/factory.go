// Package providerfactory selects and configures chat providers from
// configuration. Selection is a switch on configured values only.
package providerfactory

import (
	"fmt"
	"time"

	"github.com/mwiater/llmeval/internal/appconfig"
	"github.com/mwiater/llmeval/internal/logging"
	"github.com/mwiater/llmeval/internal/providers"
	"github.com/mwiater/llmeval/internal/providers/anthropic"
	"github.com/mwiater/llmeval/internal/providers/openai"
	"github.com/mwiater/llmeval/internal/suite"
)

// NewModelProvider returns the provider used to generate answers. Generation
// always talks to an OpenAI-compatible endpoint.
func NewModelProvider(api suite.API, timeout time.Duration) providers.ChatProvider {
	logging.LogEvent("generation provider: openai-compatible at %s", api.BaseURL)
	return openai.New(openai.Options{
		BaseURL: api.BaseURL,
		APIKey:  api.APIKey,
		Timeout: timeout,
	})
}

// NewJudgeProvider returns the provider used for scoring, chosen by cfg.API.
func NewJudgeProvider(cfg *appconfig.Config) (providers.ChatProvider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config provided to provider factory")
	}

	switch cfg.API {
	case appconfig.APILocal:
		logging.LogEvent("judge provider: openai-compatible at %s", cfg.Endpoint)
		return openai.New(openai.Options{
			BaseURL: cfg.Endpoint,
			APIKey:  cfg.APIKey,
			Timeout: cfg.RequestTimeout(),
		}), nil
	case appconfig.APIAnthropic:
		p, err := anthropic.New(anthropic.Options{
			APIKey:  cfg.APIKey,
			Timeout: cfg.RequestTimeout(),
		})
		if err != nil {
			return nil, fmt.Errorf("%w: set the %s environment variable", err, cfg.APIKeyEnv)
		}
		logging.LogEvent("judge provider: anthropic")
		return p, nil
	default:
		return nil, fmt.Errorf("unsupported scoring api %q (supported: %s, %s)", cfg.API, appconfig.APILocal, appconfig.APIAnthropic)
	}
}
