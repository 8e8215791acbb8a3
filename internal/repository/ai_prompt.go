package repository

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strategy-lab/pkg/utils"
	"strings"
)

// ErrTranslatorDisabled is returned by a translator that has no API key configured.
var ErrTranslatorDisabled = errors.New("translator is not configured")

const strategySystemPrompt = `You convert a trading strategy written in plain language into a JSON rule document.

Answer with JSON only, no prose and no markdown. Use exactly this shape:
{
  "entry": {"indicators": [{"type": "RSI", "period": 14, "condition": "<", "value": 30}], "logic": "AND"},
  "exit": {"conditions": [{"type": "Profit", "value": 0.05}], "logic": "OR"},
  "timeframe": "daily",
  "riskLevel": "medium"
}

Entry indicator types and conditions:
- RSI: "<" or ">" with a numeric "value" between 0 and 100.
- MACD: "positive", "negative" or "cross_above".
- SMA: "cross_above" or "cross_below" (20 period average against the 50 period average).
- BollingerBands: "below_lower" or "above_upper".

Exit condition types:
- Profit: "value" is the gain that closes the position as a fraction, 0.10 means 10%.
- Loss: "value" is the loss that closes the position as a fraction, 0.05 means 5%.
- RSI: ">" with a numeric "value"; the position closes once RSI rises above it.
- BollingerBands: "above_upper".

"logic" is "AND" or "OR". "timeframe" is "hourly", "daily" or "weekly". "riskLevel" is
"low", "medium" or "high". Leave out anything the user did not ask for.`

func strategyUserPrompt(prompt string) string {
	var sb strings.Builder
	sb.WriteString("Strategy description:\n")
	sb.WriteString(strings.TrimSpace(prompt))
	sb.WriteString("\n\nReturn the JSON rule document.")
	return sb.String()
}

// decodeStrategyJSON extracts the JSON object from a model answer. Code fences and
// text around the object are dropped.
func decodeStrategyJSON(answer string) (json.RawMessage, error) {
	cleaned := utils.StripCodeFence(answer)
	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON object in answer: %q", utils.Truncate(cleaned, 200))
	}
	raw := []byte(cleaned[start : end+1])

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("invalid JSON in answer: %w", err)
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return nil, fmt.Errorf("invalid JSON in answer: %w", err)
	}
	return json.RawMessage(compact.Bytes()), nil
}
