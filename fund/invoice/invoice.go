// Package invoice converts a raw payment into a discounted, bonus-adjusted
// token allocation. Compute is pure: it reads no state and every division
// truncates toward zero.
package invoice

import (
	"fmt"

	"github.com/anoideaopen/crowdfund/core/fixedpoint"
	"github.com/anoideaopen/crowdfund/core/types/big"
	"github.com/anoideaopen/crowdfund/fund"
)

var (
	ErrInvalidStage   = fund.NewError(fund.ErrInputValidation, "invalid pricing stage")
	ErrInvalidPayment = fund.NewError(fund.ErrInputValidation, "payment must be non-negative")
	ErrZeroRate       = fund.NewError(fund.ErrInputValidation, "rate must be positive")
	ErrNegativeSupply = fund.NewError(fund.ErrInputValidation, "remaining supply must be non-negative")
	// ErrCostExceedsPayment is returned when the supply left, priced
	// without bonus, costs more than the payment.
	ErrCostExceedsPayment = fund.NewError(fund.ErrInputValidation, "cost exceeds payment")
)

// Request carries everything Compute needs.
type Request struct {
	Payment          *big.Int
	Discount         *big.Int
	VolumeBoundaries []*big.Int
	VolumeBonuses    []*big.Int
	AssetRate        *big.Int
	AssetDecimals    uint
	TokenRate        *big.Int
	TokenDecimals    uint
	RemainingSupply  *big.Int
}

// ForStage fills the stage terms of a request.
func (r Request) ForStage(s Stage) Request {
	r.Discount = s.Discount
	r.VolumeBoundaries = s.VolumeBoundaries
	r.VolumeBonuses = s.VolumeBonuses
	return r
}

// Invoice is the priced purchase. Cost is in the payment asset's smallest
// unit, CostUSD and TokenPriceUSD in internal USD units.
type Invoice struct {
	TokenAmount   *big.Int `json:"tokenAmount"`
	Cost          *big.Int `json:"cost"`
	CostUSD       *big.Int `json:"costUSD"`
	Change        *big.Int `json:"change"`
	TokenPriceUSD *big.Int `json:"tokenPriceUSD"`
}

// IsZero reports the degenerate invoice of a payment that buys nothing.
func (i Invoice) IsZero() bool {
	return i.TokenAmount.IsZero() || i.Cost.IsZero()
}

func zero() Invoice {
	return Invoice{
		TokenAmount:   big.NewInt(0),
		Cost:          big.NewInt(0),
		CostUSD:       big.NewInt(0),
		Change:        big.NewInt(0),
		TokenPriceUSD: big.NewInt(0),
	}
}

func (r Request) validate() error {
	if r.Payment == nil || r.Payment.Sign() < 0 {
		return ErrInvalidPayment
	}
	if !r.AssetRate.IsPositive() || !r.TokenRate.IsPositive() {
		return ErrZeroRate
	}
	if r.RemainingSupply.Copy().Sign() < 0 {
		return ErrNegativeSupply
	}
	return validateTerms(r.Discount, r.VolumeBoundaries, r.VolumeBonuses)
}

// Compute prices a payment. A payment whose cost or token amount rounds to
// zero yields the zero Invoice, which callers must reject.
func Compute(r Request) (Invoice, error) {
	if err := r.validate(); err != nil {
		return Invoice{}, err
	}

	costUSD, err := fixedpoint.ToUSD(r.Payment, r.AssetDecimals, r.AssetRate)
	if err != nil {
		return Invoice{}, err
	}

	bonus := BonusFor(costUSD, r.VolumeBoundaries, r.VolumeBonuses)

	price := r.TokenRate.Copy()
	if r.Discount.IsPositive() {
		price = fixedpoint.Discount(r.TokenRate, r.Discount)
	}

	withBonus := fixedpoint.Percent(costUSD, new(big.Int).Add(fixedpoint.Hundred, bonus))
	tokenAmount, err := fixedpoint.FromUSD(withBonus, r.TokenDecimals, price)
	if err != nil {
		return Invoice{}, err
	}

	remaining := r.RemainingSupply.Copy()
	if tokenAmount.Cmp(remaining) > 0 {
		// the buyer gets exactly what is left, without bonus
		tokenAmount = remaining
		if costUSD, err = fixedpoint.ToUSD(tokenAmount, r.TokenDecimals, price); err != nil {
			return Invoice{}, err
		}
	}

	cost, err := fixedpoint.FromUSD(costUSD, r.AssetDecimals, r.AssetRate)
	if err != nil {
		return Invoice{}, err
	}

	if cost.IsZero() || tokenAmount.IsZero() {
		return zero(), nil
	}

	if cost.Cmp(r.Payment) > 0 {
		return Invoice{}, fmt.Errorf("%w: cost %s, payment %s", ErrCostExceedsPayment, cost, r.Payment)
	}

	return Invoice{
		TokenAmount:   tokenAmount,
		Cost:          cost,
		CostUSD:       costUSD,
		Change:        new(big.Int).Sub(r.Payment, cost),
		TokenPriceUSD: price,
	}, nil
}
