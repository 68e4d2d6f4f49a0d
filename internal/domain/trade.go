package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"taxfolio/internal/errs"
)

// Fee is an optional execution fee attached to a trade.
type Fee struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency FeeCurrency     `json:"currency"`
}

// Trade is one buy or sell execution. The derived GBP fields are filled by the
// valuation resolver before the trade reaches the store.
type Trade struct {
	ID        string          `json:"id"`
	Timestamp int64           `json:"ts"`
	Asset     Asset           `json:"asset"`
	Side      Side            `json:"side"`
	Quantity  decimal.Decimal `json:"quantity"`

	PriceGBP *decimal.Decimal `json:"price_gbp,omitempty"`
	PriceZAR *decimal.Decimal `json:"price_zar,omitempty"`
	FxGBPZAR *decimal.Decimal `json:"fx_gbp_zar,omitempty"`
	Fee      *Fee             `json:"fee,omitempty"`
	Venue    string           `json:"venue,omitempty"`
	Notes    string           `json:"notes,omitempty"`
	Locked   bool             `json:"locked"`

	// Derived, never user-supplied.
	UnitPriceGBP decimal.Decimal `json:"unit_price_gbp"`
	ValueGBP     decimal.Decimal `json:"value_gbp"`
	FeeGBP       decimal.Decimal `json:"fee_gbp"`
	FXSource     FXSource        `json:"fx_source,omitempty"`
}

// NewTradeID builds an id whose lexicographic order matches timestamp order:
// zero-padded milliseconds plus a random suffix.
func NewTradeID(ts int64) string {
	suffix := strings.Split(uuid.NewString(), "-")[0]
	return fmt.Sprintf("%013d-%s", ts, suffix)
}

// Validate checks user-supplied fields. Derived fields are not inspected here.
func (t *Trade) Validate() error {
	if t.Timestamp <= 0 {
		return errs.Validation("trade timestamp is required")
	}
	if _, err := ParseAsset(string(t.Asset)); err != nil {
		return err
	}
	if _, err := ParseSide(string(t.Side)); err != nil {
		return err
	}
	if !t.Quantity.IsPositive() {
		return errs.Validation("trade quantity must be positive")
	}
	if t.PriceGBP != nil && !t.PriceGBP.IsPositive() {
		return errs.Validation("price_gbp must be positive")
	}
	if t.PriceZAR != nil && !t.PriceZAR.IsPositive() {
		return errs.Validation("price_zar must be positive")
	}
	if t.FxGBPZAR != nil && !t.FxGBPZAR.IsPositive() {
		return errs.Validation("fx_gbp_zar must be positive")
	}
	if t.Fee != nil {
		if t.Fee.Amount.IsNegative() {
			return errs.Validation("fee amount must not be negative")
		}
		if _, err := ParseFeeCurrency(string(t.Fee.Currency)); err != nil {
			return err
		}
	}
	if t.PriceGBP == nil && t.PriceZAR == nil {
		return errs.Validation("trade needs price_gbp, or price_zar with a resolvable fx rate")
	}
	return nil
}

// Enriched reports whether the valuation resolver has filled the derived fields.
func (t *Trade) Enriched() bool { return t.FXSource != "" }

// Time returns the execution instant.
func (t *Trade) Time() time.Time { return time.UnixMilli(t.Timestamp) }

// Day returns the London civil day the trade executed on.
func (t *Trade) Day() CivilDate { return CivilDateOfMillis(t.Timestamp) }

// TaxYear returns the UK tax year the trade falls in.
func (t *Trade) TaxYear() TaxYear { return TaxYearOfMillis(t.Timestamp) }
