package repository

import (
	"context"
	"errors"
	"strategy-lab/internal/model"
	"strategy-lab/pkg/utils"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type BacktestRepository interface {
	Create(ctx context.Context, backtest *model.Backtest, opts ...utils.DBOption) error
	FindByID(ctx context.Context, id uint, opts ...utils.DBOption) (*model.Backtest, error)
	Get(ctx context.Context, param model.GetBacktestsParam, opts ...utils.DBOption) ([]model.Backtest, error)
	Complete(ctx context.Context, id uint, result BacktestResult, opts ...utils.DBOption) error
	Fail(ctx context.Context, id uint, reason string, opts ...utils.DBOption) error
	FailStale(ctx context.Context, startedBefore time.Time, reason string, opts ...utils.DBOption) (int64, error)
	DeleteByStrategyID(ctx context.Context, strategyID uint, opts ...utils.DBOption) error
}

// BacktestResult is the serialized result bundle of a finished run.
type BacktestResult struct {
	Metrics     datatypes.JSON
	EquityCurve datatypes.JSON
	Trades      datatypes.JSON
	Liquidation datatypes.JSON
	CompletedAt time.Time
}

type backtestRepository struct {
	db *gorm.DB
}

func NewBacktestRepository(db *gorm.DB) BacktestRepository {
	return &backtestRepository{db: db}
}

func (r *backtestRepository) Create(ctx context.Context, backtest *model.Backtest, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Create(backtest).Error
}

func (r *backtestRepository) FindByID(ctx context.Context, id uint, opts ...utils.DBOption) (*model.Backtest, error) {
	var backtest model.Backtest
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).First(&backtest, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &backtest, nil
}

// Get lists backtests newest first.
func (r *backtestRepository) Get(ctx context.Context, param model.GetBacktestsParam, opts ...utils.DBOption) ([]model.Backtest, error) {
	filters := make([]utils.DBOption, 0, 6)
	if param.StrategyID != nil {
		filters = append(filters, utils.WithWhere("strategy_id = ?", *param.StrategyID))
	}
	if param.Status != nil {
		filters = append(filters, utils.WithWhere("status = ?", *param.Status))
	}
	if param.CreatedTo != nil {
		filters = append(filters, utils.WithWhere("created_at < ?", *param.CreatedTo))
	}
	if param.Limit != nil {
		filters = append(filters, utils.WithLimit(*param.Limit))
	}
	filters = append(filters, utils.WithOrder("created_at DESC"), utils.WithOrder("id DESC"))

	var backtests []model.Backtest
	db := utils.ApplyOptions(r.db.WithContext(ctx), opts...).Model(&model.Backtest{})
	if err := utils.ApplyOptions(db, filters...).Find(&backtests).Error; err != nil {
		return nil, err
	}
	return backtests, nil
}

// Complete stores the result bundle. Only a running row is updated, so a run the reaper
// already failed stays failed.
func (r *backtestRepository) Complete(ctx context.Context, id uint, result BacktestResult, opts ...utils.DBOption) error {
	updates := map[string]interface{}{
		"status":       model.BacktestStatusComplete,
		"metrics":      result.Metrics,
		"equity_curve": result.EquityCurve,
		"trades":       result.Trades,
		"liquidation":  result.Liquidation,
		"error":        nil,
		"completed_at": result.CompletedAt,
	}
	return r.settle(ctx, id, updates, opts...)
}

func (r *backtestRepository) Fail(ctx context.Context, id uint, reason string, opts ...utils.DBOption) error {
	updates := map[string]interface{}{
		"status":       model.BacktestStatusError,
		"error":        reason,
		"completed_at": utils.TimeNowUTC(),
	}
	return r.settle(ctx, id, updates, opts...)
}

func (r *backtestRepository) settle(ctx context.Context, id uint, updates map[string]interface{}, opts ...utils.DBOption) error {
	res := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Model(&model.Backtest{}).
		Where("id = ? AND status = ?", id, model.BacktestStatusRunning).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// FailStale marks every run still running since before startedBefore as failed.
func (r *backtestRepository) FailStale(ctx context.Context, startedBefore time.Time, reason string, opts ...utils.DBOption) (int64, error) {
	res := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Model(&model.Backtest{}).
		Where("status = ? AND created_at < ?", model.BacktestStatusRunning, startedBefore).
		Updates(map[string]interface{}{
			"status":       model.BacktestStatusError,
			"error":        reason,
			"completed_at": utils.TimeNowUTC(),
		})
	return res.RowsAffected, res.Error
}

func (r *backtestRepository) DeleteByStrategyID(ctx context.Context, strategyID uint, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Where("strategy_id = ?", strategyID).
		Delete(&model.Backtest{}).Error
}
