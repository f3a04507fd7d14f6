// Package oracle supplies asset-to-USD rates. View is what the fund core
// consumes; Registry is a world-state implementation fed by setRate
// transactions of the oracle administrator.
package oracle

import (
	"github.com/anoideaopen/crowdfund/core/types/big"
	"github.com/anoideaopen/crowdfund/fund"
	"github.com/anoideaopen/crowdfund/fund/asset"
)

// View is the read-only price oracle.
type View interface {
	IsRegistered(symbol string) (bool, error)
	IsTokenBacked(symbol string) (bool, error)
	AssetAddress(symbol string) (string, error)
	// Rate is the USD price of one whole unit, with fixedpoint.RateDecimals.
	Rate(symbol string) (*big.Int, error)
	Decimals(symbol string) (uint, error)
}

var (
	ErrNotRegistered     = fund.NewError(fund.ErrInputValidation, "symbol is not registered")
	ErrAlreadyRegistered = fund.NewError(fund.ErrInputValidation, "symbol is already registered")
	ErrReservedSymbol    = fund.NewError(fund.ErrInputValidation, "symbol is reserved")
	ErrReservedAsset     = fund.NewError(fund.ErrInputValidation, "asset is reserved")
	ErrAssetInUse        = fund.NewError(fund.ErrInputValidation, "asset is registered under another symbol")
	ErrEmptySymbol       = fund.NewError(fund.ErrInputValidation, "symbol is empty")
	ErrZeroRate          = fund.NewError(fund.ErrInputValidation, "trying to set rate = 0")
	ErrMinGreaterThanMax = fund.NewError(fund.ErrInputValidation, "min limit is greater than max")
	ErrAmountOutOfLimits = fund.NewError(fund.ErrInputValidation, "amount out of limits")
)

// AssetInfo is a registered payment asset.
type AssetInfo struct {
	Symbol   string      `json:"symbol"`
	Asset    asset.Asset `json:"asset"`
	Decimals uint        `json:"decimals"`
	Rate     *big.Int    `json:"rate"`
	// Min and Max bound a single payment; zero Max means unbounded.
	Min       *big.Int `json:"min,omitempty"`
	Max       *big.Int `json:"max,omitempty"`
	UpdatedAt int64    `json:"updatedAt,omitempty"`
}

// InLimit checks if the amount is in the limit
func (i AssetInfo) InLimit(amount *big.Int) bool {
	minLimit := i.Min.Copy()
	maxLimit := i.Max.Copy()

	return amount.Cmp(minLimit) >= 0 && (maxLimit.IsZero() || amount.Cmp(maxLimit) <= 0)
}

// CheckLimits returns ErrAmountOutOfLimits when amount is outside [Min, Max].
func (i AssetInfo) CheckLimits(amount *big.Int) error {
	if !i.InLimit(amount) {
		return ErrAmountOutOfLimits
	}
	return nil
}
