package backtest

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type Logic string

const (
	LogicAnd Logic = "AND"
	LogicOr  Logic = "OR"
)

// UnmarshalJSON accepts any casing and ignores values that are not strings.
func (l *Logic) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*l = ""
		return nil
	}
	*l = Logic(strings.ToUpper(strings.TrimSpace(s)))
	return nil
}

func (l Logic) orDefault() Logic {
	if l == LogicOr {
		return LogicOr
	}
	return LogicAnd
}

type ConditionKind string

const (
	KindUnknown   ConditionKind = ""
	KindRSI       ConditionKind = "RSI"
	KindMACD      ConditionKind = "MACD"
	KindSMA       ConditionKind = "SMA"
	KindBollinger ConditionKind = "BollingerBands"
	KindProfit    ConditionKind = "Profit"
	KindLoss      ConditionKind = "Loss"
)

var kindAliases = map[string]ConditionKind{
	"RSI":            KindRSI,
	"MACD":           KindMACD,
	"SMA":            KindSMA,
	"MA":             KindSMA,
	"BOLLINGERBANDS": KindBollinger,
	"BOLLINGER":      KindBollinger,
	"BB":             KindBollinger,
	"PROFIT":         KindProfit,
	"TAKEPROFIT":     KindProfit,
	"LOSS":           KindLoss,
	"STOPLOSS":       KindLoss,
}

func parseKind(s string) ConditionKind {
	key := strings.ToUpper(s)
	key = strings.NewReplacer("_", "", "-", "", " ", "").Replace(key)
	if kind, ok := kindAliases[key]; ok {
		return kind
	}
	return KindUnknown
}

type Comparator string

const (
	CmpLess         Comparator = "<"
	CmpLessEqual    Comparator = "<="
	CmpGreater      Comparator = ">"
	CmpGreaterEqual Comparator = ">="
	CmpPositive     Comparator = "positive"
	CmpNegative     Comparator = "negative"
	CmpCrossAbove   Comparator = "cross_above"
	CmpCrossBelow   Comparator = "cross_below"
	CmpBelowLower   Comparator = "below_lower"
	CmpAboveUpper   Comparator = "above_upper"
)

var comparatorAliases = map[string]Comparator{
	"<":             CmpLess,
	"below":         CmpLess,
	"less_than":     CmpLess,
	"lt":            CmpLess,
	"<=":            CmpLessEqual,
	"lte":           CmpLessEqual,
	">":             CmpGreater,
	"above":         CmpGreater,
	"greater_than":  CmpGreater,
	"gt":            CmpGreater,
	">=":            CmpGreaterEqual,
	"gte":           CmpGreaterEqual,
	"positive":      CmpPositive,
	"negative":      CmpNegative,
	"cross_above":   CmpCrossAbove,
	"crosses_above": CmpCrossAbove,
	"crossover":     CmpCrossAbove,
	"cross_below":   CmpCrossBelow,
	"crosses_below": CmpCrossBelow,
	"crossunder":    CmpCrossBelow,
	"below_lower":   CmpBelowLower,
	"above_upper":   CmpAboveUpper,
}

func parseComparator(s string) Comparator {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.ReplaceAll(key, " ", "_")
	if cmp, ok := comparatorAliases[key]; ok {
		return cmp
	}
	return Comparator(key)
}

// Condition is one typed rule. Documents come from best-effort translation, so a
// condition that cannot be understood decodes to KindUnknown instead of failing.
type Condition struct {
	Kind       ConditionKind
	Type       string
	Comparator Comparator
	Value      float64
	HasValue   bool
	Period     int
}

type wireCondition struct {
	Type      string   `json:"type"`
	Condition string   `json:"condition,omitempty"`
	Value     *float64 `json:"value,omitempty"`
	Period    int      `json:"period,omitempty"`
}

func (c *Condition) UnmarshalJSON(data []byte) error {
	*c = Condition{}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil
	}

	c.Type = rawString(fields["type"])
	if c.Type == "" {
		c.Type = rawString(fields["indicator"])
	}
	c.Kind = parseKind(c.Type)
	c.Comparator = parseComparator(rawString(fields["condition"]))
	c.Value, c.HasValue = rawNumber(fields["value"])
	if period, ok := rawNumber(fields["period"]); ok {
		c.Period = int(period)
	}
	return nil
}

func (c Condition) MarshalJSON() ([]byte, error) {
	w := wireCondition{
		Type:      c.Type,
		Condition: string(c.Comparator),
		Period:    c.Period,
	}
	if c.Kind != KindUnknown {
		w.Type = string(c.Kind)
	}
	if c.HasValue {
		v := c.Value
		w.Value = &v
	}
	return json.Marshal(w)
}

func (c Condition) String() string {
	name := string(c.Kind)
	if c.Kind == KindUnknown {
		name = fmt.Sprintf("unknown(%s)", c.Type)
	}
	if c.HasValue {
		return fmt.Sprintf("%s %s %g", name, c.Comparator, c.Value)
	}
	return fmt.Sprintf("%s %s", name, c.Comparator)
}

func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

func rawNumber(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	s := strings.TrimSuffix(rawString(raw), "%")
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

type EntryRules struct {
	Indicators []Condition `json:"indicators"`
	Logic      Logic       `json:"logic"`
}

type ExitRules struct {
	Conditions []Condition `json:"conditions"`
	Logic      Logic       `json:"logic"`
}

// RuleDocument is the structured strategy produced by the text-to-rule translator.
type RuleDocument struct {
	Entry     EntryRules `json:"entry"`
	Exit      ExitRules  `json:"exit"`
	Timeframe string     `json:"timeframe,omitempty"`
	RiskLevel string     `json:"riskLevel,omitempty"`
}

func (e *EntryRules) UnmarshalJSON(data []byte) error {
	var raw struct {
		Indicators json.RawMessage `json:"indicators"`
		Logic      Logic           `json:"logic"`
	}
	*e = EntryRules{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	e.Indicators = decodeConditions(raw.Indicators)
	e.Logic = raw.Logic
	return nil
}

func (x *ExitRules) UnmarshalJSON(data []byte) error {
	var raw struct {
		Conditions json.RawMessage `json:"conditions"`
		Logic      Logic           `json:"logic"`
	}
	*x = ExitRules{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	x.Conditions = decodeConditions(raw.Conditions)
	x.Logic = raw.Logic
	return nil
}

// decodeConditions returns nil when raw is not a JSON array.
func decodeConditions(raw json.RawMessage) []Condition {
	if len(raw) == 0 {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	conditions := make([]Condition, 0, len(items))
	for _, item := range items {
		var c Condition
		_ = c.UnmarshalJSON(item)
		conditions = append(conditions, c)
	}
	return conditions
}

func (d *RuleDocument) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*d = RuleDocument{}
	if entry, ok := raw["entry"]; ok {
		_ = d.Entry.UnmarshalJSON(entry)
	}
	if exit, ok := raw["exit"]; ok {
		_ = d.Exit.UnmarshalJSON(exit)
	}
	d.Timeframe = rawString(raw["timeframe"])
	d.RiskLevel = rawString(raw["riskLevel"])
	return nil
}

// ParseRuleDocument decodes a rule document. Only input that is not a JSON object is
// rejected; individual conditions never fail decoding.
func ParseRuleDocument(data []byte) (RuleDocument, error) {
	var doc RuleDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return RuleDocument{}, fmt.Errorf("invalid rule document: %w", err)
	}
	return doc, nil
}

// DefaultEntryRules buys when the RSI is below 35.
func DefaultEntryRules() EntryRules {
	return EntryRules{
		Indicators: []Condition{
			{Kind: KindRSI, Type: string(KindRSI), Comparator: CmpLess, Value: 35, HasValue: true},
		},
		Logic: LogicAnd,
	}
}

// DefaultExitRules is a 10% take-profit or 5% stop-loss bracket.
func DefaultExitRules() ExitRules {
	return ExitRules{
		Conditions: []Condition{
			{Kind: KindProfit, Type: string(KindProfit), Value: 0.10, HasValue: true},
			{Kind: KindLoss, Type: string(KindLoss), Value: 0.05, HasValue: true},
		},
		Logic: LogicOr,
	}
}

// DefaultRuleDocument is the document callers fall back to when translation fails.
func DefaultRuleDocument() RuleDocument {
	return RuleDocument{
		Entry:     DefaultEntryRules(),
		Exit:      DefaultExitRules(),
		Timeframe: "daily",
		RiskLevel: "medium",
	}
}

// Normalize applies the default rule sets to empty sides and defaults logic to AND.
func (d RuleDocument) Normalize() RuleDocument {
	out := d
	if len(out.Entry.Indicators) == 0 {
		out.Entry = DefaultEntryRules()
	} else {
		out.Entry.Logic = out.Entry.Logic.orDefault()
	}
	if len(out.Exit.Conditions) == 0 {
		out.Exit = DefaultExitRules()
	} else {
		out.Exit.Logic = out.Exit.Logic.orDefault()
	}
	return out
}
