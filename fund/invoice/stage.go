package invoice

import (
	"fmt"
	"time"

	"github.com/anoideaopen/crowdfund/core/fixedpoint"
	"github.com/anoideaopen/crowdfund/core/types/big"
)

// Stage is a time-boxed pricing regime.
type Stage struct {
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	// Discount is applied to the token USD rate, fixedpoint percent.
	Discount *big.Int `json:"discount"`
	// VestingTime in seconds. Carried for the vesting collaborator.
	VestingTime uint64 `json:"vestingTime,omitempty"`
	// VolumeBoundaries are USD amounts with fixedpoint.USDDecimals, strictly
	// ascending. VolumeBonuses are index-aligned percents.
	VolumeBoundaries []*big.Int `json:"volumeBoundaries,omitempty"`
	VolumeBonuses    []*big.Int `json:"volumeBonuses,omitempty"`
}

// Contains reports whether t falls in [StartDate, EndDate).
func (s Stage) Contains(t time.Time) bool {
	return !t.Before(s.StartDate) && t.Before(s.EndDate)
}

// Validate checks the stage on its own; ordering against other stages and
// milestones is checked by the schedule.
func (s Stage) Validate() error {
	if !s.StartDate.Before(s.EndDate) {
		return fmt.Errorf("%w: start %s is not before end %s",
			ErrInvalidStage, s.StartDate.Format(time.RFC3339), s.EndDate.Format(time.RFC3339))
	}
	if err := validateTerms(s.Discount, s.VolumeBoundaries, s.VolumeBonuses); err != nil {
		return err
	}
	return nil
}

// BonusFor returns the bonus of the highest boundary not above costUSD.
func (s Stage) BonusFor(costUSD *big.Int) *big.Int {
	return BonusFor(costUSD, s.VolumeBoundaries, s.VolumeBonuses)
}

// BonusFor scans ascending boundaries and returns the bonus of the highest
// one not above costUSD, or zero below the first boundary.
func BonusFor(costUSD *big.Int, boundaries, bonuses []*big.Int) *big.Int {
	bonus := big.NewInt(0)
	for i, boundary := range boundaries {
		if costUSD.Cmp(boundary) < 0 {
			break
		}
		bonus = bonuses[i].Copy()
	}
	return bonus
}

func validateTerms(discount *big.Int, boundaries, bonuses []*big.Int) error {
	d := discount.Copy()
	if d.Sign() < 0 || d.Cmp(fixedpoint.Hundred) >= 0 {
		return fmt.Errorf("%w: discount %s must be in [0, 100%%)", ErrInvalidStage, d)
	}
	if len(boundaries) != len(bonuses) {
		return fmt.Errorf("%w: %d volume boundaries but %d bonuses", ErrInvalidStage, len(boundaries), len(bonuses))
	}
	for i := range boundaries {
		if boundaries[i] == nil || bonuses[i] == nil {
			return fmt.Errorf("%w: volume entry %d is empty", ErrInvalidStage, i)
		}
		if boundaries[i].Sign() < 0 || bonuses[i].Sign() < 0 {
			return fmt.Errorf("%w: volume entry %d is negative", ErrInvalidStage, i)
		}
		if i > 0 && boundaries[i].Cmp(boundaries[i-1]) <= 0 {
			return fmt.Errorf("%w: volume boundaries are not strictly ascending at %d", ErrInvalidStage, i)
		}
	}
	return nil
}
