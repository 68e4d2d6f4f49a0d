// Package valuation derives the canonical GBP figures on a trade: per-unit
// price, total proceeds or cost, and fee.
package valuation

import (
	"context"

	"github.com/shopspring/decimal"

	"taxfolio/internal/domain"
	"taxfolio/internal/errs"
	"taxfolio/internal/services/fx"
)

// Resolver enriches trades. Pure except for at most one external FX lookup
// per trade day.
type Resolver struct {
	fx fx.Provider
}

// New creates a resolver using the given FX provider.
func New(provider fx.Provider) *Resolver {
	return &Resolver{fx: provider}
}

// Resolve fills the trade's derived GBP fields in place. A ZAR-priced trade
// without a user rate gets the external day rate stored on it, so a second
// resolution never calls out again.
func (r *Resolver) Resolve(ctx context.Context, t *domain.Trade) error {
	if err := t.Validate(); err != nil {
		return err
	}

	var unit decimal.Decimal
	source := domain.FXSourceNone

	switch {
	case t.PriceGBP != nil:
		unit = *t.PriceGBP
		if t.FxGBPZAR != nil {
			// Rate supplied alongside a GBP price is only used for fee
			// conversion but is still attributed to the user.
			source = domain.FXSourceUser
		}
	case t.PriceZAR != nil:
		if t.FxGBPZAR == nil {
			rate, err := r.fx.RateOn(ctx, t.Day())
			if err != nil {
				return err
			}
			t.FxGBPZAR = &rate
			source = domain.FXSourceExternal
		} else {
			source = domain.FXSourceUser
		}
		unit = t.PriceZAR.Div(*t.FxGBPZAR)
	default:
		return errs.Validation("trade needs price_gbp, or price_zar with a resolvable fx rate")
	}

	feeGBP, feeSource, err := r.resolveFee(ctx, t, unit, source)
	if err != nil {
		return err
	}

	t.UnitPriceGBP = unit
	t.ValueGBP = unit.Mul(t.Quantity)
	t.FeeGBP = feeGBP
	t.FXSource = feeSource
	return nil
}

// resolveFee converts the fee to GBP. A ZAR fee on a trade with no known rate
// triggers the same day-level external lookup; the source is upgraded to
// EXTERNAL in that case.
func (r *Resolver) resolveFee(ctx context.Context, t *domain.Trade, unit decimal.Decimal, source domain.FXSource) (decimal.Decimal, domain.FXSource, error) {
	if t.Fee == nil {
		return decimal.Zero, source, nil
	}

	switch t.Fee.Currency {
	case domain.FeeGBP:
		return t.Fee.Amount, source, nil
	case domain.FeeAsset:
		return t.Fee.Amount.Mul(unit), source, nil
	case domain.FeeZAR:
		if t.FxGBPZAR == nil {
			rate, err := r.fx.RateOn(ctx, t.Day())
			if err != nil {
				return decimal.Decimal{}, source, err
			}
			t.FxGBPZAR = &rate
			source = domain.FXSourceExternal
		}
		return t.Fee.Amount.Div(*t.FxGBPZAR), source, nil
	}
	return decimal.Decimal{}, source, errs.Validation("unsupported fee currency %q", t.Fee.Currency)
}
