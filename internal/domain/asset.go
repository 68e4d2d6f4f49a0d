// Package domain defines the core value types of the trade ledger.
package domain

import (
	"taxfolio/internal/errs"
)

// Asset is a tracked crypto asset symbol.
type Asset string

const (
	AssetETH  Asset = "ETH"
	AssetBTC  Asset = "BTC"
	AssetUSDT Asset = "USDT"
)

// Assets lists every supported asset.
var Assets = []Asset{AssetETH, AssetBTC, AssetUSDT}

// ParseAsset validates an asset symbol.
func ParseAsset(s string) (Asset, error) {
	switch Asset(s) {
	case AssetETH, AssetBTC, AssetUSDT:
		return Asset(s), nil
	}
	return "", errs.Validation("unsupported asset %q", s)
}

// Side is the direction of a trade.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ParseSide validates a trade side.
func ParseSide(s string) (Side, error) {
	switch Side(s) {
	case SideBuy, SideSell:
		return Side(s), nil
	}
	return "", errs.Validation("unsupported side %q", s)
}

// FeeCurrency is the denomination of a trade fee.
type FeeCurrency string

const (
	FeeGBP   FeeCurrency = "GBP"
	FeeZAR   FeeCurrency = "ZAR"
	FeeAsset FeeCurrency = "ASSET"
)

// ParseFeeCurrency validates a fee currency.
func ParseFeeCurrency(s string) (FeeCurrency, error) {
	switch FeeCurrency(s) {
	case FeeGBP, FeeZAR, FeeAsset:
		return FeeCurrency(s), nil
	}
	return "", errs.Validation("unsupported fee currency %q", s)
}

// FXSource records where the GBP/ZAR rate on a trade came from.
type FXSource string

const (
	FXSourceUser     FXSource = "USER"
	FXSourceExternal FXSource = "EXTERNAL"
	FXSourceNone     FXSource = "NONE"
)
