// internal/llmclient/google_client.go
package llmclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/xkilldash9x/agent-backend/api/schemas"
	"github.com/xkilldash9x/agent-backend/internal/config"
)

// GoogleClient implements the schemas.LLMClient interface on top of the
// Google Gen AI SDK (Gemini API backend).
type GoogleClient struct {
	client  *genai.Client
	config  config.LLMModelConfig
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewGoogleClient initializes the SDK client for a single configured model.
func NewGoogleClient(ctx context.Context, cfg config.LLMModelConfig, logger *zap.Logger) (*GoogleClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("google API key is required (set AGENT_BACKEND_LLM_API_KEY)")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model name is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	// A nil limiter means unlimited; only construct one when configured.
	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), 1)
	}

	return &GoogleClient{
		client:  client,
		config:  cfg,
		limiter: limiter,
		logger:  logger.Named("llm_client.google"),
	}, nil
}

// Generate sends the prompts to the Gemini API and returns the generated
// content, retrying transient failures with exponential backoff.
func (c *GoogleClient) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limiter wait aborted: %w", err)
		}
	}

	genConfig := c.buildGenerationConfig(req)

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 2 * time.Minute
	b.MaxInterval = 30 * time.Second

	var responseContent string

	operation := func() error {
		callCtx := ctx
		if c.config.APITimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, c.config.APITimeout)
			defer cancel()
		}

		startTime := time.Now()
		resp, err := c.client.Models.GenerateContent(callCtx, c.config.Model, genai.Text(req.UserPrompt), genConfig)
		duration := time.Since(startTime)

		if err != nil {
			return c.classifyError(err)
		}

		text := resp.Text()
		if text == "" {
			// Empty candidates are occasionally transient; blocked prompts are not.
			if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
				return backoff.Permanent(fmt.Errorf("gemini API blocked the request (reason: %s)", resp.Candidates[0].FinishReason))
			}
			return fmt.Errorf("gemini API returned empty content")
		}

		if resp.UsageMetadata != nil {
			c.logger.Info("LLM generation complete",
				zap.Duration("duration", duration),
				zap.String("model", c.config.Model),
				zap.Int32("prompt_tokens", resp.UsageMetadata.PromptTokenCount),
				zap.Int32("total_tokens", resp.UsageMetadata.TotalTokenCount),
			)
		}

		responseContent = text
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return "", err
	}

	return responseContent, nil
}

// buildGenerationConfig translates the request and model config into SDK options.
func (c *GoogleClient) buildGenerationConfig(req schemas.GenerationRequest) *genai.GenerateContentConfig {
	genConfig := &genai.GenerateContentConfig{}

	temperature := c.config.Temperature
	if req.Options.Temperature > 0 {
		temperature = float32(req.Options.Temperature)
	}
	genConfig.Temperature = genai.Ptr(temperature)

	if c.config.TopP > 0 {
		genConfig.TopP = genai.Ptr(c.config.TopP)
	}
	if c.config.TopK > 0 {
		genConfig.TopK = genai.Ptr(float32(c.config.TopK))
	}
	if c.config.MaxTokens > 0 {
		genConfig.MaxOutputTokens = int32(c.config.MaxTokens)
	}
	if req.Options.ForceJSONFormat {
		genConfig.ResponseMIMEType = "application/json"
	}
	if req.SystemPrompt != "" {
		genConfig.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}
	return genConfig
}

// classifyError decides whether an API error is worth retrying.
func (c *GoogleClient) classifyError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		c.logger.Warn("Gemini API returned error status",
			zap.Int("status", apiErr.Code),
			zap.String("message", apiErr.Message),
		)
		switch apiErr.Code {
		case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusServiceUnavailable:
			return err // Transient, retry.
		default:
			return backoff.Permanent(err)
		}
	}

	// Network-level errors are retried.
	c.logger.Warn("Network error during LLM request, retrying...", zap.Error(err))
	return err
}

// Close releases client resources. The Gen AI SDK holds no persistent
// connections, so this is a no-op kept for interface symmetry.
func (c *GoogleClient) Close() error {
	return nil
}
