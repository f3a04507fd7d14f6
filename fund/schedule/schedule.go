// Package schedule exposes the crowdsale's pricing stages and project
// milestones. View is the read-only capability the fund ledger consumes;
// Schedule implements it over the chaincode configuration and the
// transaction time.
package schedule

import (
	"fmt"
	"time"

	"github.com/anoideaopen/crowdfund/core/fixedpoint"
	"github.com/anoideaopen/crowdfund/core/types"
	"github.com/anoideaopen/crowdfund/core/types/big"
	"github.com/anoideaopen/crowdfund/fund"
	"github.com/anoideaopen/crowdfund/fund/invoice"
)

var (
	ErrInvalidSchedule     = fund.NewError(fund.ErrInputValidation, "invalid schedule")
	ErrMilestoneOutOfRange = fund.NewError(fund.ErrInputValidation, "milestone index out of range")
)

// Milestone is a project checkpoint gating a share of the funds.
type Milestone struct {
	Name                string    `json:"name"`
	Description         string    `json:"description,omitempty"`
	EndDate             time.Time `json:"endDate"`
	VoteEndDate         time.Time `json:"voteEndDate"`
	WithdrawalWindowEnd time.Time `json:"withdrawalWindowEnd"`
	// TranchePercent is the share released on completion, fixedpoint percent.
	TranchePercent *big.Int `json:"tranchePercent"`
}

// View is the crowdsale as seen by the fund ledger.
type View interface {
	IsSaleEnded() (bool, error)
	// CurrentMilestoneIndex returns the milestone running now, if any.
	CurrentMilestoneIndex() (int, bool, error)
	LastMilestoneIndex() (int, error)
	Milestone(index int) (Milestone, error)
	// IsMilestoneActive reports whether the milestone has begun.
	IsMilestoneActive(index int) (bool, error)
	// Address is the only caller allowed to record purchases.
	Address() *types.Address
}

// StageView resolves the pricing stage of a purchase.
type StageView interface {
	ActiveStage() (invoice.Stage, bool, error)
}

// Schedule is a View over a fixed, validated schedule at a fixed instant.
type Schedule struct {
	crowdsale  *types.Address
	milestones []Milestone
	stages     []invoice.Stage
	now        time.Time
}

var (
	_ View      = (*Schedule)(nil)
	_ StageView = (*Schedule)(nil)
)

// New validates the schedule and binds it to now.
func New(crowdsale *types.Address, milestones []Milestone, stages []invoice.Stage, now time.Time) (*Schedule, error) {
	if crowdsale.IsEmpty() {
		return nil, fmt.Errorf("%w: crowdsale address is empty", ErrInvalidSchedule)
	}
	if err := Validate(milestones, stages); err != nil {
		return nil, err
	}
	return &Schedule{
		crowdsale:  crowdsale,
		milestones: milestones,
		stages:     stages,
		now:        now,
	}, nil
}

// Validate checks stage and milestone ordering and that tranche percents
// add up to exactly 100%.
func Validate(milestones []Milestone, stages []invoice.Stage) error {
	if len(stages) == 0 {
		return fmt.Errorf("%w: no pricing stages", ErrInvalidSchedule)
	}
	if len(milestones) == 0 {
		return fmt.Errorf("%w: no milestones", ErrInvalidSchedule)
	}

	for i, s := range stages {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("stage %d: %w", i, err)
		}
		if i > 0 && s.StartDate.Before(stages[i-1].EndDate) {
			return fmt.Errorf("%w: stage %d overlaps stage %d", ErrInvalidSchedule, i, i-1)
		}
	}
	if stages[len(stages)-1].EndDate.After(milestones[0].EndDate) {
		return fmt.Errorf("%w: last stage ends after the first milestone", ErrInvalidSchedule)
	}

	total := big.NewInt(0)
	for i, m := range milestones {
		if i > 0 && !m.EndDate.After(milestones[i-1].EndDate) {
			return fmt.Errorf("%w: milestone %d does not end after milestone %d", ErrInvalidSchedule, i, i-1)
		}
		if m.VoteEndDate.Before(m.EndDate) || m.WithdrawalWindowEnd.Before(m.VoteEndDate) {
			return fmt.Errorf("%w: milestone %d dates are out of order", ErrInvalidSchedule, i)
		}
		if m.TranchePercent == nil || m.TranchePercent.Sign() < 0 {
			return fmt.Errorf("%w: milestone %d tranche percent is invalid", ErrInvalidSchedule, i)
		}
		total.Add(total, m.TranchePercent)
	}
	if total.Cmp(fixedpoint.Hundred) != 0 {
		return fmt.Errorf("%w: tranche percents add up to %s, not %s", ErrInvalidSchedule, total, fixedpoint.Hundred)
	}

	return nil
}

func (s *Schedule) Address() *types.Address {
	return s.crowdsale
}

// Now is the instant the schedule is evaluated at.
func (s *Schedule) Now() time.Time {
	return s.now
}

// SaleEnd is the end of the last pricing stage.
func (s *Schedule) SaleEnd() time.Time {
	return s.stages[len(s.stages)-1].EndDate
}

func (s *Schedule) IsSaleEnded() (bool, error) {
	return !s.now.Before(s.SaleEnd()), nil
}

func (s *Schedule) ActiveStage() (invoice.Stage, bool, error) {
	for _, st := range s.stages {
		if st.Contains(s.now) {
			return st, true, nil
		}
	}
	return invoice.Stage{}, false, nil
}

// Stages returns the pricing stages.
func (s *Schedule) Stages() []invoice.Stage {
	return s.stages
}

// Milestones returns all milestones.
func (s *Schedule) Milestones() []Milestone {
	return s.milestones
}

func (s *Schedule) CurrentMilestoneIndex() (int, bool, error) {
	for i, m := range s.milestones {
		if !s.now.Before(s.start(i)) && s.now.Before(m.EndDate) {
			return i, true, nil
		}
	}
	return 0, false, nil
}

func (s *Schedule) LastMilestoneIndex() (int, error) {
	return len(s.milestones) - 1, nil
}

func (s *Schedule) Milestone(index int) (Milestone, error) {
	if index < 0 || index >= len(s.milestones) {
		return Milestone{}, fmt.Errorf("%w: %d", ErrMilestoneOutOfRange, index)
	}
	return s.milestones[index], nil
}

func (s *Schedule) IsMilestoneActive(index int) (bool, error) {
	if index < 0 || index >= len(s.milestones) {
		return false, fmt.Errorf("%w: %d", ErrMilestoneOutOfRange, index)
	}
	return !s.now.Before(s.start(index)), nil
}

// start is when milestone i begins: the sale end for the first one, the
// previous milestone's end otherwise.
func (s *Schedule) start(i int) time.Time {
	if i == 0 {
		return s.SaleEnd()
	}
	return s.milestones[i-1].EndDate
}
