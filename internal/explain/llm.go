// Mercatus - Content-Based Product Recommendation Service
// Copyright 2026 Mercatus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mercatus-labs/mercatus

package explain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker/v2"

	"github.com/mercatus-labs/mercatus/internal/catalog"
	"github.com/mercatus-labs/mercatus/internal/metrics"
)

// LLMConfig holds LLM explainer settings.
type LLMConfig struct {
	// APIKey authenticates against the chat completion API.
	APIKey string

	// Model is the chat completion model. Default: gpt-4o-mini
	Model string

	// BaseURL overrides the API endpoint for OpenAI-compatible
	// providers. Empty uses the OpenAI default.
	BaseURL string

	// Timeout bounds a single explanation request. Default: 10s
	Timeout time.Duration
}

// LLMExplainer asks a chat completion model for explanation sentences.
//
// A circuit breaker guards the upstream API: after several consecutive
// failures the breaker opens and all requests short-circuit to the
// template fallback until the cool-down expires. The explainer never
// returns an error; the worst case is a template sentence.
type LLMExplainer struct {
	client   *openai.Client
	model    string
	timeout  time.Duration
	breaker  *gobreaker.CircuitBreaker[string]
	fallback *TemplateExplainer
	logger   zerolog.Logger
}

// NewLLMExplainer creates an LLM-backed explainer.
//
//nolint:gocritic // logger passed by value per zerolog convention
func NewLLMExplainer(cfg LLMConfig, logger zerolog.Logger) *LLMExplainer {
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	componentLogger := logger.With().Str("component", "explain").Logger()

	settings := gobreaker.Settings{
		Name:        "llm-explainer",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			componentLogger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Explanation circuit breaker state changed")
		},
	}

	return &LLMExplainer{
		client:   openai.NewClientWithConfig(clientConfig),
		model:    cfg.Model,
		timeout:  cfg.Timeout,
		breaker:  gobreaker.NewCircuitBreaker[string](settings),
		fallback: NewTemplateExplainer(),
		logger:   componentLogger,
	}
}

// Explain asks the model for a sentence and falls back to a template on
// any failure.
func (e *LLMExplainer) Explain(ctx context.Context, source, recommended catalog.Product) string {
	sentence, err := e.breaker.Execute(func() (string, error) {
		return e.complete(ctx, source, recommended)
	})
	if err != nil {
		e.logger.Debug().Err(err).
			Int("source_id", source.ID).
			Int("recommended_id", recommended.ID).
			Msg("LLM explanation failed, using template")
		metrics.ExplanationRequests.WithLabelValues("fallback").Inc()
		return templateSentence(source, recommended)
	}

	metrics.ExplanationRequests.WithLabelValues("llm").Inc()
	return sentence
}

func (e *LLMExplainer) complete(ctx context.Context, source, recommended catalog.Product) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	prompt := fmt.Sprintf(
		`A shopper liked the product %q (category: %s). We are recommending %q (category: %s).
Write exactly one short, friendly sentence explaining the recommendation.
The sentence must start with "Because you liked".`,
		source.Name, source.Category, recommended.Name, recommended.Category)

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     e.model,
		MaxTokens: 80,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: empty response")
	}

	sentence := strings.TrimSpace(resp.Choices[0].Message.Content)
	sentence = strings.Trim(sentence, `"`)
	if sentence == "" {
		return "", fmt.Errorf("chat completion: blank sentence")
	}

	// Keep the output on-script even when the model strays.
	if !strings.HasPrefix(sentence, "Because you liked") {
		sentence = fmt.Sprintf("Because you liked %s, %s", source.Name, lowerFirst(sentence))
	}
	return sentence, nil
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// Ensure interface compliance.
var _ Explainer = (*LLMExplainer)(nil)
