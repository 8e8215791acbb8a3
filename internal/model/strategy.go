package model

import (
	"time"

	"gorm.io/datatypes"
)

type Strategy struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	Name           string         `gorm:"type:text;not null" json:"name"`
	Description    string         `gorm:"type:text" json:"description"`
	NlpInput       string         `gorm:"type:text;not null" json:"nlpInput"`
	ParsedJSON     datatypes.JSON `gorm:"column:parsed_json;type:jsonb;not null" json:"parsedJson"`
	AssetType      string         `gorm:"type:text;not null;default:stock" json:"assetType"`
	Symbol         string         `gorm:"type:text;not null" json:"symbol"`
	Timeframe      string         `gorm:"type:text;not null;default:daily" json:"timeframe"`
	InitialCapital float64        `gorm:"type:double precision;not null;default:10000" json:"initialCapital"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"createdAt"`
}

func (Strategy) TableName() string {
	return "strategies"
}
