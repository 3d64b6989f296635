package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/entrhq/formless/pkg/llm/openai"
)

// ErrNoAPIKey is returned by BuildProvider when no API key is configured
// anywhere. Callers treat it as "run without an LLM".
var ErrNoAPIKey = errors.New("config: no LLM API key configured")

// BuildProvider creates an LLM provider based on configuration precedence:
// CLI flags > Environment variables > Config file > Defaults
func BuildProvider(cliModel, cliBaseURL, cliAPIKey string) (*openai.Provider, error) {
	finalModel := cliModel
	finalBaseURL := cliBaseURL
	finalAPIKey := cliAPIKey

	if finalAPIKey == "" {
		finalAPIKey = os.Getenv("OPENAI_API_KEY")
	}
	if finalBaseURL == "" {
		finalBaseURL = os.Getenv("OPENAI_BASE_URL")
	}
	if finalModel == "" {
		finalModel = os.Getenv("FORMLESS_LLM_MODEL")
	}

	if fromFile := GetLLM(); fromFile != nil {
		if finalModel == "" {
			finalModel = fromFile.GetModel()
		}
		if finalBaseURL == "" {
			finalBaseURL = fromFile.GetBaseURL()
		}
		if finalAPIKey == "" {
			finalAPIKey = fromFile.GetAPIKey()
		}
	}

	if finalModel == "" {
		finalModel = openai.DefaultModel
	}
	if finalAPIKey == "" {
		return nil, ErrNoAPIKey
	}

	providerOpts := []openai.ProviderOption{
		openai.WithModel(finalModel),
	}
	if finalBaseURL != "" {
		providerOpts = append(providerOpts, openai.WithBaseURL(finalBaseURL))
	}

	provider, err := openai.NewProvider(finalAPIKey, providerOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM provider: %w", err)
	}
	return provider, nil
}
