package ledger

import (
	"time"

	"github.com/anoideaopen/crowdfund/fund/schedule"
)

// Window is a half-open interval [From, To).
type Window struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.From) && t.Before(w.To)
}

// WindowPolicy selects the refund window in effect at now. ok is false when
// no window applies.
type WindowPolicy interface {
	RefundWindow(s schedule.View, now time.Time) (w Window, ok bool, err error)
}

// WindowPolicyFunc adapts a function to WindowPolicy.
type WindowPolicyFunc func(s schedule.View, now time.Time) (Window, bool, error)

func (f WindowPolicyFunc) RefundWindow(s schedule.View, now time.Time) (Window, bool, error) {
	return f(s, now)
}

// TerminalWindow allows refunds only in the withdrawal window of the last
// milestone.
var TerminalWindow = WindowPolicyFunc(func(s schedule.View, _ time.Time) (Window, bool, error) {
	last, err := s.LastMilestoneIndex()
	if err != nil {
		return Window{}, false, err
	}
	m, err := s.Milestone(last)
	if err != nil {
		return Window{}, false, err
	}
	return Window{From: m.EndDate, To: m.WithdrawalWindowEnd}, true, nil
})

// LatestEndedWindow allows refunds in the withdrawal window of the most
// recently ended milestone.
var LatestEndedWindow = WindowPolicyFunc(func(s schedule.View, now time.Time) (Window, bool, error) {
	last, err := s.LastMilestoneIndex()
	if err != nil {
		return Window{}, false, err
	}
	for i := last; i >= 0; i-- {
		m, err := s.Milestone(i)
		if err != nil {
			return Window{}, false, err
		}
		if !now.Before(m.EndDate) {
			return Window{From: m.EndDate, To: m.WithdrawalWindowEnd}, true, nil
		}
	}
	return Window{}, false, nil
})
