package report

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxfolio/internal/domain"
	"taxfolio/internal/errs"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var london = func() *time.Location {
	loc, err := time.LoadLocation("Europe/London")
	if err != nil {
		panic(err)
	}
	return loc
}()

func at(year int, month time.Month, day, hour int) int64 {
	return time.Date(year, month, day, hour, 0, 0, 0, london).UnixMilli()
}

func enriched(id string, ts int64, asset domain.Asset, side domain.Side, qty, unitGBP string) domain.Trade {
	q := dec(qty)
	unit := dec(unitGBP)
	return domain.Trade{
		ID:           id,
		Timestamp:    ts,
		Asset:        asset,
		Side:         side,
		Quantity:     q,
		UnitPriceGBP: unit,
		ValueGBP:     unit.Mul(q),
		FeeGBP:       decimal.Zero,
		FXSource:     domain.FXSourceNone,
	}
}

func mustTaxYear(t *testing.T, label string) domain.TaxYear {
	t.Helper()
	year, err := domain.ParseTaxYear(label)
	require.NoError(t, err)
	return year
}

func TestBuildTaxYearFiltersDisposals(t *testing.T) {
	trades := []domain.Trade{
		enriched("b1", at(2024, time.January, 10, 10), domain.AssetETH, domain.SideBuy, "4", "1000"),
		// Disposal inside 2023-24, before the 6 April boundary.
		enriched("s0", at(2024, time.April, 1, 10), domain.AssetETH, domain.SideSell, "1", "1100"),
		// Disposal inside 2024-25.
		enriched("s1", at(2024, time.June, 1, 10), domain.AssetETH, domain.SideSell, "1", "1300"),
		// Disposal in the following year.
		enriched("s2", at(2025, time.May, 1, 10), domain.AssetETH, domain.SideSell, "1", "1400"),
	}

	r, err := BuildTaxYear(mustTaxYear(t, "2024-25"), trades)
	require.NoError(t, err)

	assert.Equal(t, "2024-25", r.TaxYear)
	require.Len(t, r.Disposals, 1)
	assert.Equal(t, "s1", r.Disposals[0].TradeID)
	require.Len(t, r.Lines, 1)
	assert.Equal(t, "s1", r.Lines[0].SellID)
	assert.True(t, r.TotalGain.Equal(dec("300")), "got %s", r.TotalGain)
	assert.True(t, r.GainByAsset[domain.AssetETH].Equal(dec("300")))
}

func TestBuildTaxYearPoolReflectsYearEnd(t *testing.T) {
	trades := []domain.Trade{
		enriched("b1", at(2024, time.June, 1, 10), domain.AssetBTC, domain.SideBuy, "2", "30000"),
		// After the 5 April year end, must not appear in the snapshot.
		enriched("b2", at(2025, time.June, 1, 10), domain.AssetBTC, domain.SideBuy, "1", "40000"),
	}

	r, err := BuildTaxYear(mustTaxYear(t, "2024-25"), trades)
	require.NoError(t, err)

	pool := r.Pools[domain.AssetBTC]
	assert.True(t, pool.Quantity.Equal(dec("2")))
	assert.True(t, pool.CostGBP.Equal(dec("60000")))
}

func TestBuildTaxYearLookAheadMatchesPostYearBuy(t *testing.T) {
	trades := []domain.Trade{
		enriched("b1", at(2024, time.June, 1, 10), domain.AssetETH, domain.SideBuy, "1", "1000"),
		// Sell on the last day of 2024-25.
		enriched("s1", at(2025, time.April, 5, 12), domain.AssetETH, domain.SideSell, "1", "1500"),
		// Repurchase 20 days later, in 2025-26: the 30-day rule still applies.
		enriched("b2", at(2025, time.April, 25, 10), domain.AssetETH, domain.SideBuy, "1", "1400"),
	}

	r, err := BuildTaxYear(mustTaxYear(t, "2024-25"), trades)
	require.NoError(t, err)

	require.Len(t, r.Disposals, 1)
	require.Len(t, r.Disposals[0].Lines, 1)
	line := r.Disposals[0].Lines[0]
	assert.Equal(t, domain.RuleWithin30Days, line.Rule)
	assert.Equal(t, "b2", line.BuyID)
	assert.True(t, line.GainGBP.Equal(dec("100")), "got %s", line.GainGBP)
}

func TestBuildWindow(t *testing.T) {
	trades := []domain.Trade{
		enriched("b1", at(2024, time.May, 1, 10), domain.AssetETH, domain.SideBuy, "2", "1000"),
		enriched("s1", at(2024, time.June, 10, 10), domain.AssetETH, domain.SideSell, "1", "1200"),
		enriched("s2", at(2024, time.July, 10, 10), domain.AssetETH, domain.SideSell, "1", "1300"),
	}

	from := domain.NewCivilDate(2024, time.June, 1)
	to := domain.NewCivilDate(2024, time.June, 30)
	r, err := BuildWindow(from, to, trades)
	require.NoError(t, err)

	assert.Equal(t, "2024-06-01", r.From)
	assert.Equal(t, "2024-06-30", r.To)
	assert.Empty(t, r.TaxYear)
	require.Len(t, r.Disposals, 1)
	assert.Equal(t, "s1", r.Disposals[0].TradeID)
	assert.True(t, r.TotalGain.Equal(dec("200")))

	// Snapshot at window end: one unit left after the in-window sell. The July
	// sell is beyond the snapshot even though the look-ahead feeds it in.
	pool := r.Pools[domain.AssetETH]
	assert.True(t, pool.Quantity.Equal(dec("1")), "got %s", pool.Quantity)
}

func TestBuildWindowRejectsInvertedRange(t *testing.T) {
	_, err := BuildWindow(
		domain.NewCivilDate(2024, time.June, 30),
		domain.NewCivilDate(2024, time.June, 1),
		nil,
	)
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindValidation))
}

func TestBuildSurfacesIssues(t *testing.T) {
	trades := []domain.Trade{
		// Sell with no acquisition history at all.
		enriched("s1", at(2024, time.June, 10, 10), domain.AssetETH, domain.SideSell, "1", "1200"),
	}

	r, err := BuildTaxYear(mustTaxYear(t, "2024-25"), trades)
	require.NoError(t, err)

	require.Len(t, r.Disposals, 1)
	assert.Empty(t, r.Disposals[0].Lines)
	require.Len(t, r.Issues, 1)
	assert.Contains(t, r.Issues[0], "pool exhausted")
	assert.True(t, r.TotalGain.IsZero())
}

func TestBuildEmptyHistory(t *testing.T) {
	r, err := BuildTaxYear(mustTaxYear(t, "2024-25"), nil)
	require.NoError(t, err)
	assert.Empty(t, r.Disposals)
	assert.Empty(t, r.Lines)
	assert.True(t, r.TotalGain.IsZero())
}
