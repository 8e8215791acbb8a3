package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strategy-lab/config"
	"strategy-lab/internal/backtest"
	"strategy-lab/internal/dto"
	"strategy-lab/internal/model"
	"strategy-lab/internal/repository"
	"strategy-lab/pkg/common"
	"strategy-lab/pkg/logger"
	"strategy-lab/pkg/utils"
	"strings"

	"gorm.io/datatypes"
)

const DefaultInitialCapital = 10000.0

var (
	ErrStrategyNotFound    = errors.New("strategy not found")
	ErrInvalidRuleDocument = errors.New("invalid rule document")
)

type StrategyService interface {
	Create(ctx context.Context, req dto.CreateStrategyRequest) (*model.Strategy, error)
	Get(ctx context.Context, id uint) (*model.Strategy, error)
	List(ctx context.Context) ([]model.Strategy, error)
	Parse(ctx context.Context, prompt string) (*dto.ParsedStrategy, error)
	Delete(ctx context.Context, id uint) error
	Seed(ctx context.Context) error
}

type strategyService struct {
	cfg          *config.Config
	log          *logger.Logger
	translator   RuleTranslator
	strategyRepo repository.StrategyRepository
	backtestRepo repository.BacktestRepository
	unitOfWork   repository.UnitOfWork
}

func NewStrategyService(
	cfg *config.Config,
	log *logger.Logger,
	translator RuleTranslator,
	strategyRepo repository.StrategyRepository,
	backtestRepo repository.BacktestRepository,
	unitOfWork repository.UnitOfWork,
) StrategyService {
	return &strategyService{
		cfg:          cfg,
		log:          log,
		translator:   translator,
		strategyRepo: strategyRepo,
		backtestRepo: backtestRepo,
		unitOfWork:   unitOfWork,
	}
}

// Create stores a strategy. Without a caller supplied rule document the free text is
// translated; if translation fails the default document is stored instead.
func (s *strategyService) Create(ctx context.Context, req dto.CreateStrategyRequest) (*model.Strategy, error) {
	var parsed json.RawMessage
	if req.HasParsedJSON() {
		if _, err := backtest.ParseRuleDocument(req.ParsedJSON); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRuleDocument, err)
		}
		parsed = req.ParsedJSON
	} else {
		parsed = s.translateOrDefault(ctx, req.NlpInput)
	}

	strategy := &model.Strategy{
		Name:           strings.TrimSpace(req.Name),
		Description:    req.Description,
		NlpInput:       req.NlpInput,
		ParsedJSON:     datatypes.JSON(parsed),
		AssetType:      strings.ToLower(req.AssetType),
		Symbol:         strings.ToUpper(strings.TrimSpace(req.Symbol)),
		Timeframe:      strings.ToLower(req.Timeframe),
		InitialCapital: req.InitialCapital,
	}
	if strategy.AssetType == "" {
		strategy.AssetType = common.ASSET_STOCK
	}
	if strategy.Timeframe == "" {
		strategy.Timeframe = dto.TimeframeDaily
	}
	if strategy.InitialCapital <= 0 {
		strategy.InitialCapital = DefaultInitialCapital
	}

	if err := s.strategyRepo.Create(ctx, strategy); err != nil {
		s.log.ErrorContext(ctx, "Failed to create strategy", logger.ErrorField(err))
		return nil, fmt.Errorf("failed to create strategy: %w", err)
	}
	s.log.InfoContext(ctx, "Strategy created",
		logger.StrategyField(fmt.Sprint(strategy.ID)),
		logger.StringField("symbol", strategy.Symbol),
	)
	return strategy, nil
}

func (s *strategyService) translateOrDefault(ctx context.Context, nlpInput string) json.RawMessage {
	parsed, err := s.translator.Translate(ctx, nlpInput)
	if err == nil {
		return parsed.Document
	}

	s.log.WarnContext(ctx, "Using fallback rule document", logger.ErrorField(err))
	fallback, _ := json.Marshal(backtest.DefaultRuleDocument())
	return fallback
}

func (s *strategyService) Get(ctx context.Context, id uint) (*model.Strategy, error) {
	strategy, err := s.strategyRepo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrStrategyNotFound
	}
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to get strategy", logger.ErrorField(err), logger.StrategyField(fmt.Sprint(id)))
		return nil, fmt.Errorf("failed to get strategy: %w", err)
	}
	return strategy, nil
}

func (s *strategyService) List(ctx context.Context) ([]model.Strategy, error) {
	strategies, err := s.strategyRepo.List(ctx)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to list strategies", logger.ErrorField(err))
		return nil, fmt.Errorf("failed to list strategies: %w", err)
	}
	return strategies, nil
}

func (s *strategyService) Parse(ctx context.Context, prompt string) (*dto.ParsedStrategy, error) {
	return s.translator.Translate(ctx, prompt)
}

// Delete removes a strategy together with its backtests.
func (s *strategyService) Delete(ctx context.Context, id uint) error {
	err := s.unitOfWork.Run(ctx, func(opts ...utils.DBOption) error {
		if err := s.backtestRepo.DeleteByStrategyID(ctx, id, opts...); err != nil {
			return fmt.Errorf("failed to delete backtests: %w", err)
		}
		return s.strategyRepo.Delete(ctx, id, opts...)
	})
	if errors.Is(err, repository.ErrNotFound) {
		return ErrStrategyNotFound
	}
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to delete strategy", logger.ErrorField(err), logger.StrategyField(fmt.Sprint(id)))
		return err
	}
	return nil
}

// Seed inserts the example strategy into an empty database.
func (s *strategyService) Seed(ctx context.Context) error {
	count, err := s.strategyRepo.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count strategies: %w", err)
	}
	if count > 0 {
		return nil
	}

	doc, err := json.Marshal(backtest.DefaultRuleDocument())
	if err != nil {
		return err
	}
	_, err = s.Create(ctx, dto.CreateStrategyRequest{
		Name:           "RSI Momentum Strategy",
		Description:    "Classic mean reversion strategy with profit targets and stop losses",
		NlpInput:       "Buy when RSI < 35, Sell at 10% profit or 5% loss",
		ParsedJSON:     doc,
		AssetType:      common.ASSET_STOCK,
		Symbol:         "SPY",
		Timeframe:      dto.TimeframeDaily,
		InitialCapital: DefaultInitialCapital,
	})
	if err != nil {
		return err
	}
	s.log.InfoContext(ctx, "Seeded example strategy")
	return nil
}
