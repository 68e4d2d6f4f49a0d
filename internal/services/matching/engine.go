// Package matching implements the HMRC share-matching rules for disposals:
// same-day first, then acquisitions within the following 30 civil days, then
// the Section 104 holding pool.
package matching

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"taxfolio/internal/domain"
	"taxfolio/internal/errs"
)

// Result is the outcome of one matching run.
type Result struct {
	// Disposals holds every sell in the input set, chronologically, with its
	// match lines.
	Disposals []domain.DisposalReport
	// Pools is the per-asset Section 104 state captured at the requested
	// snapshot time during the chronological sweep.
	Pools map[domain.Asset]domain.Pool
}

// tradeState is a trade plus its remaining unmatched quantity. States are
// value records indexed by id; the passes only ever mutate remaining.
type tradeState struct {
	trade     domain.Trade
	remaining decimal.Decimal
}

func (st *tradeState) totalCostGBP() decimal.Decimal {
	return st.trade.ValueGBP.Add(st.trade.FeeGBP)
}

// costOf returns the acquisition cost attributable to qty units of the buy,
// fee included.
func (st *tradeState) costOf(qty decimal.Decimal) decimal.Decimal {
	return st.totalCostGBP().Mul(qty).Div(st.trade.Quantity)
}

type disposal struct {
	state  *tradeState
	lines  []domain.MatchLine
	issues []string
}

// proceedsOf apportions the sell's net proceeds to qty matched units.
func (d *disposal) proceedsOf(qty decimal.Decimal) decimal.Decimal {
	net := d.state.trade.ValueGBP.Sub(d.state.trade.FeeGBP)
	return net.Mul(qty).Div(d.state.trade.Quantity)
}

func (d *disposal) addLine(rule domain.MatchRule, buyID string, qty, costGBP decimal.Decimal) {
	proceeds := d.proceedsOf(qty)
	d.lines = append(d.lines, domain.MatchLine{
		Rule:             rule,
		BuyID:            buyID,
		Quantity:         qty,
		ProceedsGBP:      proceeds,
		AllowableCostGBP: costGBP,
		GainGBP:          proceeds.Sub(costGBP),
	})
}

// Run matches every disposal in the trade set and captures the pool state as
// of snapshotMillis. All trades must already be enriched; an unresolved trade
// is a contract violation that fails the whole computation, since skipping a
// buy would understate pool cost.
func Run(trades []domain.Trade, snapshotMillis int64) (*Result, error) {
	states := make([]*tradeState, 0, len(trades))
	for i := range trades {
		t := trades[i]
		if !t.Enriched() {
			return nil, errs.Invariant("trade %s reached matching without resolved valuation", t.ID)
		}
		states = append(states, &tradeState{trade: t, remaining: t.Quantity})
	}
	sortChronological(states)

	buysByAsset := make(map[domain.Asset][]*tradeState)
	sellsByAsset := make(map[domain.Asset][]*tradeState)
	disposals := make(map[string]*disposal)
	var sellOrder []*disposal
	for _, st := range states {
		if st.trade.Side == domain.SideBuy {
			buysByAsset[st.trade.Asset] = append(buysByAsset[st.trade.Asset], st)
			continue
		}
		d := &disposal{state: st}
		disposals[st.trade.ID] = d
		sellOrder = append(sellOrder, d)
		sellsByAsset[st.trade.Asset] = append(sellsByAsset[st.trade.Asset], st)
	}

	for asset, sells := range sellsByAsset {
		matchSameDay(sells, buysByAsset[asset], disposals)
		matchWithin30Days(sells, buysByAsset[asset], disposals)
	}
	pools := matchSection104(states, disposals, snapshotMillis)

	result := &Result{Pools: pools}
	for _, d := range sellOrder {
		t := d.state.trade
		report := domain.DisposalReport{
			TradeID:          t.ID,
			Timestamp:        t.Timestamp,
			Asset:            t.Asset,
			Quantity:         t.Quantity,
			GrossProceedsGBP: t.ValueGBP,
			FeeGBP:           t.FeeGBP,
			NetProceedsGBP:   t.ValueGBP.Sub(t.FeeGBP),
			Lines:            d.lines,
			Issues:           d.issues,
		}
		gain := decimal.Zero
		for _, line := range report.Lines {
			gain = gain.Add(line.GainGBP)
		}
		report.GainGBP = gain
		result.Disposals = append(result.Disposals, report)
	}
	return result, nil
}

func sortChronological(states []*tradeState) {
	sort.Slice(states, func(i, j int) bool {
		if states[i].trade.Timestamp != states[j].trade.Timestamp {
			return states[i].trade.Timestamp < states[j].trade.Timestamp
		}
		return states[i].trade.ID < states[j].trade.ID
	})
}

// matchSameDay pairs each London civil day's sells against that same day's
// buys, earliest sell first, consuming buys in timestamp order.
func matchSameDay(sells, buys []*tradeState, disposals map[string]*disposal) {
	buysByDay := make(map[domain.CivilDate][]*tradeState)
	for _, b := range buys {
		day := b.trade.Day()
		buysByDay[day] = append(buysByDay[day], b)
	}

	for _, sell := range sells {
		dayBuys := buysByDay[sell.trade.Day()]
		for _, buy := range dayBuys {
			if !sell.remaining.IsPositive() {
				break
			}
			if !buy.remaining.IsPositive() {
				continue
			}
			qty := decimal.Min(sell.remaining, buy.remaining)
			sell.remaining = sell.remaining.Sub(qty)
			buy.remaining = buy.remaining.Sub(qty)
			disposals[sell.trade.ID].addLine(domain.RuleSameDay, buy.trade.ID, qty, buy.costOf(qty))
		}
	}
}

// matchWithin30Days matches each still-open sell against later buys whose
// civil-day gap is in (0, 30], in buy timestamp order. Buys consumed by the
// same-day pass contribute only their remainder.
func matchWithin30Days(sells, buys []*tradeState, disposals map[string]*disposal) {
	for _, sell := range sells {
		if !sell.remaining.IsPositive() {
			continue
		}
		sellDay := sell.trade.Day()
		for _, buy := range buys {
			if !sell.remaining.IsPositive() {
				break
			}
			if buy.trade.Timestamp <= sell.trade.Timestamp || !buy.remaining.IsPositive() {
				continue
			}
			gap := sellDay.DaysUntil(buy.trade.Day())
			if gap < 1 || gap > 30 {
				continue
			}
			qty := decimal.Min(sell.remaining, buy.remaining)
			sell.remaining = sell.remaining.Sub(qty)
			buy.remaining = buy.remaining.Sub(qty)
			disposals[sell.trade.ID].addLine(domain.RuleWithin30Days, buy.trade.ID, qty, buy.costOf(qty))
		}
	}
}

// matchSection104 walks every trade in strict global chronological order,
// feeding unmatched buy quantity into the per-asset pool and drawing
// unmatched sell quantity out at average cost. The pool state is snapshotted
// at the last trade at or before snapshotMillis.
func matchSection104(states []*tradeState, disposals map[string]*disposal, snapshotMillis int64) map[domain.Asset]domain.Pool {
	pools := make(map[domain.Asset]domain.Pool)
	snapshot := make(map[domain.Asset]domain.Pool)

	for _, st := range states {
		asset := st.trade.Asset
		pool := pools[asset]

		if st.trade.Side == domain.SideBuy {
			if st.remaining.IsPositive() {
				pool = pool.Add(st.remaining, st.costOf(st.remaining))
				st.remaining = decimal.Zero
			}
		} else if st.remaining.IsPositive() {
			d := disposals[st.trade.ID]
			avail := decimal.Min(st.remaining, pool.Quantity)
			if avail.IsPositive() {
				var cost decimal.Decimal
				pool, cost = pool.Remove(avail)
				d.addLine(domain.RuleSection104, "", avail, cost)
			}
			if st.remaining.GreaterThan(avail) {
				deficit := st.remaining.Sub(avail)
				d.issues = append(d.issues, fmt.Sprintf(
					"trade %s: section 104 pool exhausted for %s, %s units left unmatched",
					st.trade.ID, asset, deficit))
			}
			st.remaining = decimal.Zero
		}

		pools[asset] = pool
		if st.trade.Timestamp <= snapshotMillis {
			snapshot = clonePools(pools)
		}
	}
	return snapshot
}

func clonePools(pools map[domain.Asset]domain.Pool) map[domain.Asset]domain.Pool {
	out := make(map[domain.Asset]domain.Pool, len(pools))
	for asset, pool := range pools {
		out[asset] = pool
	}
	return out
}
