package dto

import (
	"encoding/json"
	"strings"
)

type CreateStrategyRequest struct {
	Name           string          `json:"name" validate:"required,max=200"`
	Description    string          `json:"description" validate:"max=2000"`
	NlpInput       string          `json:"nlpInput" validate:"required"`
	ParsedJSON     json.RawMessage `json:"parsedJson"`
	AssetType      string          `json:"assetType" validate:"omitempty,oneof=stock crypto"`
	Symbol         string          `json:"symbol" validate:"required,max=20"`
	Timeframe      string          `json:"timeframe" validate:"omitempty,oneof=hourly daily weekly"`
	InitialCapital float64         `json:"initialCapital" validate:"omitempty,gt=0"`
}

// HasParsedJSON reports a caller supplied rule document. A JSON null counts as absent.
func (r CreateStrategyRequest) HasParsedJSON() bool {
	trimmed := strings.TrimSpace(string(r.ParsedJSON))
	return trimmed != "" && trimmed != "null"
}

type ParseStrategyRequest struct {
	Prompt string `json:"prompt" validate:"required"`
}

// ParsedStrategy is the outcome of translating free text into a rule document.
type ParsedStrategy struct {
	Document   json.RawMessage `json:"document"`
	Translator string          `json:"translator"`
}
