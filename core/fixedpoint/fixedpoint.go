// Package fixedpoint implements the deterministic integer arithmetic used by
// invoicing and fund accounting. Every division truncates toward zero and
// each conversion performs exactly one division, so results are bit-exact
// across peers.
package fixedpoint

import (
	"errors"

	"github.com/anoideaopen/crowdfund/core/types/big"
)

const (
	// PercentDecimals is the number of implicit decimals of a percent value.
	PercentDecimals = 2
	// RateDecimals is the number of implicit decimals of a USD rate.
	RateDecimals = 18
	// USDDecimals is the internal precision of USD amounts.
	USDDecimals = 18
)

var (
	ErrDivisionByZero = errors.New("division by zero")
	ErrNegativeValue  = errors.New("negative value")
)

// Hundred is 100% expressed with PercentDecimals.
var Hundred = Pow10(PercentDecimals + 2) //nolint:gomnd

// Pow10 returns 10^n.
func Pow10(n uint) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), new(big.Int).SetUint64(uint64(n)), nil) //nolint:gomnd
}

// MulDiv returns x*y/z truncated toward zero.
func MulDiv(x, y, z *big.Int) (*big.Int, error) {
	if z.IsZero() {
		return nil, ErrDivisionByZero
	}
	num := new(big.Int).Mul(x, y)
	return num.Quo(num, z), nil
}

// Percent returns value*percent/100%.
func Percent(value, percent *big.Int) *big.Int {
	num := new(big.Int).Mul(value, percent)
	return num.Quo(num, Hundred)
}

// Discount returns value reduced by percent of itself.
func Discount(value, percent *big.Int) *big.Int {
	if percent.IsZero() {
		return value.Copy()
	}
	return new(big.Int).Sub(value, Percent(value, percent))
}

// Scale converts amount from one decimal precision to another.
func Scale(amount *big.Int, from, to uint) *big.Int {
	switch {
	case from == to:
		return amount.Copy()
	case to > from:
		return new(big.Int).Mul(amount, Pow10(to-from))
	default:
		return new(big.Int).Quo(amount, Pow10(from-to))
	}
}

// scaleFactors returns the multiplier and divisor that move a value with
// the given decimals to USDDecimals.
func scaleFactors(decimals uint) (up, down *big.Int) {
	if decimals <= USDDecimals {
		return Pow10(USDDecimals - decimals), big.NewInt(1)
	}
	return big.NewInt(1), Pow10(decimals - USDDecimals)
}

// ToUSD converts amount of an asset with the given decimals and USD rate
// into internal USD units.
func ToUSD(amount *big.Int, decimals uint, rate *big.Int) (*big.Int, error) {
	if amount.Sign() < 0 || rate.Sign() < 0 {
		return nil, ErrNegativeValue
	}
	up, down := scaleFactors(decimals)

	num := new(big.Int).Mul(amount, rate)
	num.Mul(num, up)
	den := new(big.Int).Mul(Pow10(RateDecimals), down)

	return MulDiv(num, big.NewInt(1), den)
}

// FromUSD converts internal USD units into the amount of an asset with the
// given decimals and USD rate. It is the reverse of ToUSD.
func FromUSD(usd *big.Int, decimals uint, rate *big.Int) (*big.Int, error) {
	if usd.Sign() < 0 || rate.Sign() < 0 {
		return nil, ErrNegativeValue
	}
	up, down := scaleFactors(decimals)

	num := new(big.Int).Mul(usd, Pow10(RateDecimals))
	num.Mul(num, down)
	den := new(big.Int).Mul(rate, up)

	return MulDiv(num, big.NewInt(1), den)
}
