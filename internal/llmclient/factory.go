// internal/llmclient/factory.go
package llmclient

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/agent-backend/api/schemas"
	"github.com/xkilldash9x/agent-backend/internal/config"
)

// NewClient is a factory that builds the tiered LLM router from configuration.
// The router satisfies schemas.LLMClient itself, so callers stay agnostic of
// the routing layer.
func NewClient(ctx context.Context, cfg config.AgentConfig, logger *zap.Logger) (schemas.LLMClient, error) {
	fastName := cfg.LLM.DefaultFastModel
	powerfulName := cfg.LLM.DefaultPowerfulModel

	if fastName == "" || powerfulName == "" {
		return nil, fmt.Errorf("both agent.llm.default_fast_model and agent.llm.default_powerful_model must be configured")
	}

	fastClient, err := newModelClient(ctx, cfg, fastName, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create fast tier client %q: %w", fastName, err)
	}

	var powerfulClient schemas.LLMClient
	if powerfulName == fastName {
		powerfulClient = fastClient
	} else {
		powerfulClient, err = newModelClient(ctx, cfg, powerfulName, logger)
		if err != nil {
			fastClient.Close()
			return nil, fmt.Errorf("failed to create powerful tier client %q: %w", powerfulName, err)
		}
	}

	return NewLLMRouter(logger, fastClient, powerfulClient)
}

// newModelClient resolves a model alias against the configured model map and
// instantiates the provider-specific client.
func newModelClient(ctx context.Context, cfg config.AgentConfig, name string, logger *zap.Logger) (schemas.LLMClient, error) {
	modelCfg, ok := cfg.LLM.Models[name]
	if !ok {
		return nil, fmt.Errorf("no model configuration found under agent.llm.models.%s", name)
	}

	// Default the provider for configurations that omit it.
	provider := modelCfg.Provider
	if provider == "" {
		provider = config.ProviderGoogle
	}

	switch provider {
	case config.ProviderGoogle:
		return NewGoogleClient(ctx, modelCfg, logger)
	default:
		return nil, fmt.Errorf("unknown or unsupported LLM provider configured: '%s'. Supported: [%s]", provider, config.ProviderGoogle)
	}
}
