package domain

import (
	"github.com/shopspring/decimal"
)

// MatchRule identifies which HMRC share-matching rule produced a match line.
type MatchRule string

const (
	RuleSameDay      MatchRule = "SAME_DAY"
	RuleWithin30Days MatchRule = "WITHIN_30_DAYS"
	RuleSection104   MatchRule = "SECTION_104"
)

// MatchLine is one unit of matched disposal quantity. Produced fresh on every
// matching run, never persisted.
type MatchLine struct {
	Rule             MatchRule       `json:"rule"`
	BuyID            string          `json:"buy_id,omitempty"`
	Quantity         decimal.Decimal `json:"quantity"`
	ProceedsGBP      decimal.Decimal `json:"proceeds_gbp"`
	AllowableCostGBP decimal.Decimal `json:"allowable_cost_gbp"`
	GainGBP          decimal.Decimal `json:"gain_gbp"`
}

// Pool is the Section 104 holding pool for one asset.
type Pool struct {
	Quantity decimal.Decimal `json:"quantity"`
	CostGBP  decimal.Decimal `json:"cost_gbp"`
}

// AverageCost is cost over quantity, zero for an empty pool.
func (p Pool) AverageCost() decimal.Decimal {
	if !p.Quantity.IsPositive() {
		return decimal.Zero
	}
	return p.CostGBP.Div(p.Quantity)
}

// Add absorbs quantity acquired at the given total GBP cost.
func (p Pool) Add(qty, costGBP decimal.Decimal) Pool {
	return Pool{Quantity: p.Quantity.Add(qty), CostGBP: p.CostGBP.Add(costGBP)}
}

// Remove draws quantity out of the pool at average cost and returns the new
// pool plus the allowable cost of the removed units. qty must not exceed
// p.Quantity.
func (p Pool) Remove(qty decimal.Decimal) (Pool, decimal.Decimal) {
	if qty.GreaterThanOrEqual(p.Quantity) {
		// Full drain carries the whole remaining cost, avoiding a rounding residue.
		return Pool{Quantity: decimal.Zero, CostGBP: decimal.Zero}, p.CostGBP
	}
	cost := p.CostGBP.Mul(qty).Div(p.Quantity)
	return Pool{Quantity: p.Quantity.Sub(qty), CostGBP: p.CostGBP.Sub(cost)}, cost
}

// DisposalReport is the full breakdown of one sell trade.
type DisposalReport struct {
	TradeID          string          `json:"trade_id"`
	Timestamp        int64           `json:"ts"`
	Asset            Asset           `json:"asset"`
	Quantity         decimal.Decimal `json:"quantity"`
	GrossProceedsGBP decimal.Decimal `json:"gross_proceeds_gbp"`
	FeeGBP           decimal.Decimal `json:"fee_gbp"`
	NetProceedsGBP   decimal.Decimal `json:"net_proceeds_gbp"`
	Lines            []MatchLine     `json:"lines"`
	GainGBP          decimal.Decimal `json:"gain_gbp"`
	Issues           []string        `json:"issues,omitempty"`
}
