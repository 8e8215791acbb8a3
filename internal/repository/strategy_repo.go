package repository

import (
	"context"
	"errors"
	"strategy-lab/internal/model"
	"strategy-lab/pkg/utils"

	"gorm.io/gorm"
)

// ErrNotFound is returned by lookups by primary key.
var ErrNotFound = errors.New("record not found")

type StrategyRepository interface {
	Create(ctx context.Context, strategy *model.Strategy, opts ...utils.DBOption) error
	FindByID(ctx context.Context, id uint, opts ...utils.DBOption) (*model.Strategy, error)
	List(ctx context.Context, opts ...utils.DBOption) ([]model.Strategy, error)
	Count(ctx context.Context, opts ...utils.DBOption) (int64, error)
	Delete(ctx context.Context, id uint, opts ...utils.DBOption) error
}

type strategyRepository struct {
	db *gorm.DB
}

func NewStrategyRepository(db *gorm.DB) StrategyRepository {
	return &strategyRepository{db: db}
}

func (r *strategyRepository) Create(ctx context.Context, strategy *model.Strategy, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Create(strategy).Error
}

func (r *strategyRepository) FindByID(ctx context.Context, id uint, opts ...utils.DBOption) (*model.Strategy, error) {
	var strategy model.Strategy
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).First(&strategy, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &strategy, nil
}

// List returns strategies newest first.
func (r *strategyRepository) List(ctx context.Context, opts ...utils.DBOption) ([]model.Strategy, error) {
	var strategies []model.Strategy
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Order("created_at DESC").
		Order("id DESC").
		Find(&strategies).Error
	if err != nil {
		return nil, err
	}
	return strategies, nil
}

func (r *strategyRepository) Count(ctx context.Context, opts ...utils.DBOption) (int64, error) {
	var count int64
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).Model(&model.Strategy{}).Count(&count).Error
	return count, err
}

func (r *strategyRepository) Delete(ctx context.Context, id uint, opts ...utils.DBOption) error {
	res := utils.ApplyOptions(r.db.WithContext(ctx), opts...).Delete(&model.Strategy{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
