package service

import (
	"context"
	"errors"
	"fmt"
	"strategy-lab/internal/backtest"
	"strategy-lab/internal/dto"
	"strategy-lab/internal/repository"
	"strategy-lab/pkg/logger"
	"strategy-lab/pkg/metrics"
	"strings"
)

// ErrTranslationFailed is returned when no translator produced a usable rule document.
var ErrTranslationFailed = errors.New("failed to translate strategy")

// RuleTranslator turns a free text strategy into a rule document.
type RuleTranslator interface {
	Translate(ctx context.Context, prompt string) (*dto.ParsedStrategy, error)
}

type ruleTranslator struct {
	log         *logger.Logger
	metrics     *metrics.Registry
	translators []repository.AIRepository
}

// NewRuleTranslator tries translators in the given order and returns the first usable
// answer.
func NewRuleTranslator(log *logger.Logger, metricsRegistry *metrics.Registry, translators ...repository.AIRepository) RuleTranslator {
	return &ruleTranslator{
		log:         log,
		metrics:     metricsRegistry,
		translators: translators,
	}
}

func (t *ruleTranslator) Translate(ctx context.Context, prompt string) (*dto.ParsedStrategy, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("%w: empty prompt", ErrTranslationFailed)
	}

	var errs []error
	for _, translator := range t.translators {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		doc, err := translator.TranslateStrategy(ctx, prompt)
		if errors.Is(err, repository.ErrTranslatorDisabled) {
			continue
		}
		if err == nil {
			_, err = backtest.ParseRuleDocument(doc)
		}
		t.metrics.ObserveTranslator(translator.Name(), err)
		if err != nil {
			t.log.WarnContext(ctx, "Translator failed", logger.StringField("translator", translator.Name()), logger.ErrorField(err))
			errs = append(errs, fmt.Errorf("%s: %w", translator.Name(), err))
			continue
		}

		return &dto.ParsedStrategy{Document: doc, Translator: translator.Name()}, nil
	}

	if len(errs) == 0 {
		return nil, fmt.Errorf("%w: no translator configured", ErrTranslationFailed)
	}
	return nil, errors.Join(append([]error{ErrTranslationFailed}, errs...)...)
}
