package fixedpoint

import (
	"fmt"

	"github.com/anoideaopen/crowdfund/core/types/big"
	"github.com/shopspring/decimal"
)

// ParseUnits converts a human-readable decimal such as "0.1" into the
// smallest units of an asset with the given decimals.
// Values with more fractional digits than decimals are rejected rather
// than rounded.
func ParseUnits(s string, decimals uint) (*big.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("parsing %q: %w", s, err)
	}
	if d.Sign() < 0 {
		return nil, fmt.Errorf("parsing %q: %w", s, ErrNegativeValue)
	}

	shifted := d.Shift(int32(decimals))
	if !shifted.IsInteger() {
		return nil, fmt.Errorf("parsing %q: more than %d fractional digits", s, decimals)
	}

	out := new(big.Int)
	out.Int.Set(shifted.BigInt())
	return out, nil
}

// FormatUnits renders smallest units as a decimal string with the given
// number of decimals, trimming trailing zeros.
func FormatUnits(v *big.Int, decimals uint) string {
	return decimal.NewFromBigInt(&v.Copy().Int, -int32(decimals)).String()
}

// ParsePercent converts "12.5" into a percent value with PercentDecimals.
func ParsePercent(s string) (*big.Int, error) {
	p, err := ParseUnits(s, PercentDecimals)
	if err != nil {
		return nil, err
	}
	if p.Cmp(Hundred) > 0 {
		return nil, fmt.Errorf("percent %s exceeds 100", s)
	}
	return p, nil
}
