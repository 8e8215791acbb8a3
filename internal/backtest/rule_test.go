package backtest

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRuleDocument(t *testing.T) {
	raw := []byte(`{
		"entry": {
			"indicators": [
				{"type": "RSI", "condition": "<", "value": 30, "period": 14},
				{"type": "macd", "condition": "crossover"},
				{"indicator": "Bollinger Bands", "condition": "below_lower"}
			],
			"logic": "or"
		},
		"exit": {
			"conditions": [
				{"type": "Profit", "value": "15%"},
				{"type": "StopLoss", "value": 0.05}
			],
			"logic": "OR"
		},
		"timeframe": "daily",
		"riskLevel": "high"
	}`)

	doc, err := ParseRuleDocument(raw)
	require.NoError(t, err)

	require.Len(t, doc.Entry.Indicators, 3)
	assert.Equal(t, LogicOr, doc.Entry.Logic)

	rsi := doc.Entry.Indicators[0]
	assert.Equal(t, KindRSI, rsi.Kind)
	assert.Equal(t, CmpLess, rsi.Comparator)
	assert.True(t, rsi.HasValue)
	assert.Equal(t, 30.0, rsi.Value)
	assert.Equal(t, 14, rsi.Period)

	assert.Equal(t, KindMACD, doc.Entry.Indicators[1].Kind)
	assert.Equal(t, CmpCrossAbove, doc.Entry.Indicators[1].Comparator)
	assert.False(t, doc.Entry.Indicators[1].HasValue)

	assert.Equal(t, KindBollinger, doc.Entry.Indicators[2].Kind)
	assert.Equal(t, CmpBelowLower, doc.Entry.Indicators[2].Comparator)

	require.Len(t, doc.Exit.Conditions, 2)
	assert.Equal(t, KindProfit, doc.Exit.Conditions[0].Kind)
	assert.Equal(t, 15.0, doc.Exit.Conditions[0].Value)
	assert.Equal(t, KindLoss, doc.Exit.Conditions[1].Kind)

	assert.Equal(t, "daily", doc.Timeframe)
	assert.Equal(t, "high", doc.RiskLevel)
}

func TestParseRuleDocument_Lenient(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantEntry int
		wantExit  int
	}{
		{name: "empty object", raw: `{}`, wantEntry: 0, wantExit: 0},
		{name: "indicators not a list", raw: `{"entry": {"indicators": "RSI < 30"}}`, wantEntry: 0, wantExit: 0},
		{name: "entry not an object", raw: `{"entry": 5, "exit": {"conditions": [{"type": "Loss", "value": 0.1}]}}`, wantEntry: 0, wantExit: 1},
		{name: "garbage condition kept as unknown", raw: `{"entry": {"indicators": [42, {"type": "Volume"}]}}`, wantEntry: 2, wantExit: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ParseRuleDocument([]byte(tt.raw))
			require.NoError(t, err)
			assert.Len(t, doc.Entry.Indicators, tt.wantEntry)
			assert.Len(t, doc.Exit.Conditions, tt.wantExit)
			for _, c := range doc.Entry.Indicators {
				assert.Equal(t, KindUnknown, c.Kind)
			}
		})
	}
}

func TestParseRuleDocument_NotAnObject(t *testing.T) {
	for _, raw := range []string{``, `[]`, `"RSI below 30"`, `{broken`} {
		_, err := ParseRuleDocument([]byte(raw))
		assert.Error(t, err, raw)
	}
}

func TestRuleDocument_Normalize(t *testing.T) {
	t.Run("empty sides get defaults", func(t *testing.T) {
		doc := RuleDocument{}.Normalize()
		assert.Equal(t, DefaultEntryRules(), doc.Entry)
		assert.Equal(t, DefaultExitRules(), doc.Exit)
	})

	t.Run("missing logic becomes AND", func(t *testing.T) {
		doc := RuleDocument{
			Entry: EntryRules{Indicators: []Condition{{Kind: KindRSI}}, Logic: "XOR"},
			Exit:  ExitRules{Conditions: []Condition{{Kind: KindLoss}}},
		}.Normalize()
		assert.Equal(t, LogicAnd, doc.Entry.Logic)
		assert.Equal(t, LogicAnd, doc.Exit.Logic)
	})

	t.Run("does not modify the receiver", func(t *testing.T) {
		doc := RuleDocument{}
		_ = doc.Normalize()
		assert.Empty(t, doc.Entry.Indicators)
	})
}

func TestCondition_MarshalJSON(t *testing.T) {
	c := Condition{Kind: KindRSI, Type: "rsi", Comparator: CmpLess, Value: 30, HasValue: true, Period: 14}
	b, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"RSI","condition":"<","value":30,"period":14}`, string(b))

	var back Condition
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, KindRSI, back.Kind)
	assert.Equal(t, CmpLess, back.Comparator)
	assert.Equal(t, 30.0, back.Value)

	unknown := Condition{Type: "Volume"}
	b, err = json.Marshal(unknown)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"Volume"}`, string(b))
}

func TestCondition_String(t *testing.T) {
	assert.Equal(t, "RSI < 35", Condition{Kind: KindRSI, Comparator: CmpLess, Value: 35, HasValue: true}.String())
	assert.Equal(t, "MACD positive", Condition{Kind: KindMACD, Comparator: CmpPositive}.String())
	assert.Equal(t, "unknown(Volume) >", Condition{Type: "Volume", Comparator: CmpGreater}.String())
}

func TestParseKind(t *testing.T) {
	tests := map[string]ConditionKind{
		"RSI":             KindRSI,
		"rsi":             KindRSI,
		"Bollinger Bands": KindBollinger,
		"bollinger_bands": KindBollinger,
		"take-profit":     KindProfit,
		"stop loss":       KindLoss,
		"MA":              KindSMA,
		"EMA":             KindUnknown,
		"":                KindUnknown,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseKind(in), in)
	}
}
