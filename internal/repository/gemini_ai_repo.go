package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strategy-lab/config"
	"strategy-lab/pkg/common"
	"strategy-lab/pkg/logger"
	"strategy-lab/pkg/ratelimit"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// AIRepository translates a free text strategy into a rule document.
type AIRepository interface {
	Name() string
	TranslateStrategy(ctx context.Context, prompt string) (json.RawMessage, error)
}

type geminiAIRepository struct {
	cfg            *config.Config
	logger         *logger.Logger
	tokenLimiter   *ratelimit.TokenLimiter
	requestLimiter *rate.Limiter
	genAiClient    *genai.Client
}

// NewGeminiAIRepository creates the Gemini translator. Without an API key the
// repository is built but every call returns ErrTranslatorDisabled.
func NewGeminiAIRepository(cfg *config.Config, log *logger.Logger) (AIRepository, error) {
	repo := &geminiAIRepository{
		cfg:            cfg,
		logger:         log,
		requestLimiter: ratelimit.NewPerMinute(cfg.Gemini.MaxRequestPerMinute),
		tokenLimiter:   ratelimit.NewTokenLimiter(cfg.Gemini.MaxTokenPerMinute),
	}
	if cfg.Gemini.APIKey == "" {
		return repo, nil
	}

	genAiClient, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  cfg.Gemini.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	repo.genAiClient = genAiClient
	return repo, nil
}

func (r *geminiAIRepository) Name() string {
	return common.TRANSLATOR_GEMINI
}

func (r *geminiAIRepository) TranslateStrategy(ctx context.Context, prompt string) (json.RawMessage, error) {
	if r.genAiClient == nil {
		return nil, ErrTranslatorDisabled
	}
	if r.cfg.Gemini.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Gemini.Timeout)
		defer cancel()
	}

	answer, err := r.sendRequest(ctx, strategyUserPrompt(prompt))
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to send request to gemini", logger.ErrorField(err))
		return nil, fmt.Errorf("failed to send request to gemini: %w", err)
	}

	doc, err := decodeStrategyJSON(answer)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to parse response from gemini", logger.ErrorField(err))
		return nil, fmt.Errorf("failed to parse response from gemini: %w", err)
	}
	return doc, nil
}

func (r *geminiAIRepository) sendRequest(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}
	generateConfig := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(strategySystemPrompt, genai.RoleUser),
		ResponseMIMEType:  "application/json",
	}

	geminiTokenResp, err := r.genAiClient.Models.CountTokens(ctx, r.cfg.Gemini.BaseModel, contents, nil)
	if err != nil {
		return "", fmt.Errorf("failed to count tokens: %w", err)
	}

	r.logger.DebugContext(ctx, "Gemini token count",
		logger.IntField("total_tokens", int(geminiTokenResp.TotalTokens)),
		logger.IntField("remaining", r.tokenLimiter.GetRemaining()),
	)
	if err := r.tokenLimiter.Wait(ctx, int(geminiTokenResp.TotalTokens)); err != nil {
		return "", fmt.Errorf("failed to wait for token gemini limit: %w", err)
	}
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("failed to wait for request gemini limit: %w", err)
	}

	resp, err := r.genAiClient.Models.GenerateContent(ctx, r.cfg.Gemini.BaseModel, contents, generateConfig)
	if err != nil {
		return "", err
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("invalid response from Gemini API: no content found")
	}
	return text, nil
}
