package domain

import (
	"github.com/shopspring/decimal"
)

// ReportLine is a match line flattened out of its disposal, carrying the
// parent sell's identity for tabular rendering.
type ReportLine struct {
	SellID    string `json:"sell_id"`
	Asset     Asset  `json:"asset"`
	Timestamp int64  `json:"ts"`
	MatchLine
}

// GainsReport is the output of a tax-year or date-window report request.
type GainsReport struct {
	TaxYear string `json:"tax_year,omitempty"`
	From    string `json:"from,omitempty"`
	To      string `json:"to,omitempty"`

	Disposals   []DisposalReport          `json:"disposals"`
	Lines       []ReportLine              `json:"lines"`
	Pools       map[Asset]Pool            `json:"pools"`
	GainByAsset map[Asset]decimal.Decimal `json:"gain_by_asset"`
	TotalGain   decimal.Decimal           `json:"total_gain_gbp"`
	Issues      []string                  `json:"issues,omitempty"`
}
