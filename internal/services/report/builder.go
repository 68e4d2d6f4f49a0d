// Package report projects matching output into tax-year and date-window gain
// reports.
package report

import (
	"github.com/shopspring/decimal"

	"taxfolio/internal/domain"
	"taxfolio/internal/errs"
	"taxfolio/internal/services/matching"
)

// lookAheadDays is how far past the window end buys can still match a
// late-window sell under the 30-day rule.
const lookAheadDays = 30

// BuildTaxYear reports gains for the UK tax year (6 April to 5 April, London
// time).
func BuildTaxYear(year domain.TaxYear, all []domain.Trade) (*domain.GainsReport, error) {
	from, to := year.WindowMillis()
	r, err := build(from, to, all)
	if err != nil {
		return nil, err
	}
	r.TaxYear = year.Label()
	return r, nil
}

// BuildWindow reports gains for an arbitrary closed civil-date range.
func BuildWindow(from, to domain.CivilDate, all []domain.Trade) (*domain.GainsReport, error) {
	if from.After(to) {
		return nil, errs.Validation("window start %s is after end %s", from, to)
	}
	r, err := build(from.StartMillis(), to.EndMillis(), all)
	if err != nil {
		return nil, err
	}
	r.From = from.String()
	r.To = to.String()
	return r, nil
}

func build(fromMillis, toMillis int64, all []domain.Trade) (*domain.GainsReport, error) {
	// Matching sees the whole history up to 30 days past the window end: the
	// pool needs every prior trade, and a late-window sell may still match a
	// buy shortly after the window.
	cutoff := domain.CivilDateOfMillis(toMillis).Add(lookAheadDays).EndMillis()
	input := make([]domain.Trade, 0, len(all))
	for _, t := range all {
		if t.Timestamp <= cutoff {
			input = append(input, t)
		}
	}

	res, err := matching.Run(input, toMillis)
	if err != nil {
		return nil, err
	}

	r := &domain.GainsReport{
		Disposals:   []domain.DisposalReport{},
		Lines:       []domain.ReportLine{},
		Pools:       res.Pools,
		GainByAsset: make(map[domain.Asset]decimal.Decimal),
		TotalGain:   decimal.Zero,
	}
	for _, d := range res.Disposals {
		if d.Timestamp < fromMillis || d.Timestamp > toMillis {
			continue
		}
		r.Disposals = append(r.Disposals, d)
		for _, line := range d.Lines {
			r.Lines = append(r.Lines, domain.ReportLine{
				SellID:    d.TradeID,
				Asset:     d.Asset,
				Timestamp: d.Timestamp,
				MatchLine: line,
			})
		}
		r.GainByAsset[d.Asset] = r.GainByAsset[d.Asset].Add(d.GainGBP)
		r.TotalGain = r.TotalGain.Add(d.GainGBP)
		r.Issues = append(r.Issues, d.Issues...)
	}
	return r, nil
}
