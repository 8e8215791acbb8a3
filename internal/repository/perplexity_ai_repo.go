package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strategy-lab/config"
	"strategy-lab/internal/dto"
	"strategy-lab/pkg/common"
	"strategy-lab/pkg/httpclient"
	"strategy-lab/pkg/logger"
	"strategy-lab/pkg/ratelimit"
	"strategy-lab/pkg/utils"

	"golang.org/x/time/rate"
)

type perplexityAIRepository struct {
	httpClient     httpclient.HTTPClient
	cfg            *config.Config
	logger         *logger.Logger
	requestLimiter *rate.Limiter
}

func NewPerplexityAIRepository(cfg *config.Config, log *logger.Logger) AIRepository {
	return newPerplexityAIRepository(cfg, log, httpclient.New(httpclient.Options{
		BaseURL:     cfg.Perplexity.BaseURL,
		Timeout:     cfg.Perplexity.Timeout,
		BearerToken: cfg.Perplexity.APIKey,
		RetryCount:  1,
	}))
}

func newPerplexityAIRepository(cfg *config.Config, log *logger.Logger, client httpclient.HTTPClient) *perplexityAIRepository {
	return &perplexityAIRepository{
		httpClient:     client,
		cfg:            cfg,
		logger:         log,
		requestLimiter: ratelimit.NewPerMinute(cfg.Perplexity.MaxRequestPerMinute),
	}
}

func (r *perplexityAIRepository) Name() string {
	return common.TRANSLATOR_PERPLEXITY
}

func (r *perplexityAIRepository) TranslateStrategy(ctx context.Context, prompt string) (json.RawMessage, error) {
	if r.cfg.Perplexity.APIKey == "" {
		return nil, ErrTranslatorDisabled
	}
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for request perplexity limit: %w", err)
	}

	payload := dto.ChatCompletionRequest{
		Model: r.cfg.Perplexity.Model,
		Messages: []dto.ChatMessage{
			{Role: "system", Content: strategySystemPrompt},
			{Role: "user", Content: strategyUserPrompt(prompt)},
		},
		Temperature: 0.1,
	}

	var completion dto.ChatCompletionResponse
	resp, err := r.httpClient.Post(ctx, "/chat/completions", payload, nil, &completion)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to send request to perplexity", logger.ErrorField(err))
		return nil, fmt.Errorf("failed to send request to perplexity: %w", err)
	}
	if !resp.IsSuccess() {
		r.logger.ErrorContext(ctx, "Perplexity API returned Non-OK status",
			logger.IntField("status_code", resp.StatusCode),
			logger.StringField("body", utils.Truncate(string(resp.Body), 500)),
		)
		return nil, fmt.Errorf("perplexity api returned status: %d", resp.StatusCode)
	}
	if completion.Error != nil {
		return nil, fmt.Errorf("perplexity api error: %s", completion.Error.Message)
	}
	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("invalid response from perplexity: no content found")
	}

	doc, err := decodeStrategyJSON(completion.Choices[0].Message.Content)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to parse response from perplexity", logger.ErrorField(err))
		return nil, fmt.Errorf("failed to parse response from perplexity: %w", err)
	}
	return doc, nil
}
