package ledger

import (
	"errors"
	"fmt"

	"github.com/anoideaopen/crowdfund/core/balance"
	"github.com/anoideaopen/crowdfund/core/fixedpoint"
	"github.com/anoideaopen/crowdfund/core/types"
	"github.com/anoideaopen/crowdfund/core/types/big"
)

// ErrAuditFailed is returned by Audit when an accounting invariant is broken.
var ErrAuditFailed = errors.New("ledger audit failed")

func (l *Ledger) TotalTokenBought() (*big.Int, error) {
	return l.store.counter(counterTokenBought)
}

func (l *Ledger) TotalTokenRefunded() (*big.Int, error) {
	return l.store.counter(counterTokenRefunded)
}

func (l *Ledger) TotalTranchePercentReleased() (*big.Int, error) {
	return l.store.counter(counterPercentReleased)
}

func (l *Ledger) TotalFundedAmount(symbol string) (*big.Int, error) {
	return l.store.total(balance.BalanceTypeTotalFunded, symbol)
}

func (l *Ledger) TotalFundedReleased(symbol string) (*big.Int, error) {
	return l.store.total(balance.BalanceTypeTotalReleased, symbol)
}

// TotalFundedRefunded is the part of TotalFundedAmount taken out of
// investor buckets by refunds.
func (l *Ledger) TotalFundedRefunded(symbol string) (*big.Int, error) {
	return l.store.total(balance.BalanceTypeTotalRefunded, symbol)
}

// TotalRefundPaid is what refunds actually paid out in symbol.
func (l *Ledger) TotalRefundPaid(symbol string) (*big.Int, error) {
	return l.store.total(balance.BalanceTypeRefundPaid, symbol)
}

func (l *Ledger) InvestorTokenBought(investor *types.Address) (*big.Int, error) {
	if investor.IsEmpty() {
		return nil, ErrEmptyInvestor
	}
	return l.store.investorTokens(investor.String())
}

func (l *Ledger) InvestorFundedAmount(investor *types.Address, symbol string) (*big.Int, error) {
	if investor.IsEmpty() {
		return nil, ErrEmptyInvestor
	}
	return l.store.investorFunded(investor.String(), symbol)
}

func (l *Ledger) TrackedAssetSymbols() ([]string, error) {
	return l.store.symbols(objectTrackedSymbols)
}

func (l *Ledger) InvestorTrackedAssetSymbols(investor *types.Address) ([]string, error) {
	if investor.IsEmpty() {
		return nil, ErrEmptyInvestor
	}
	return l.store.symbols(objectInvestorSymbols, investor.String())
}

func (l *Ledger) IsTrancheCompleted(index int) (bool, error) {
	return l.store.trancheCompleted(index)
}

// SymbolTotals are the global amounts of one symbol.
type SymbolTotals struct {
	Symbol   string   `json:"symbol"`
	Funded   *big.Int `json:"funded"`
	Released *big.Int `json:"released"`
	Refunded *big.Int `json:"refunded"`
	Paid     *big.Int `json:"refundPaid"`
}

type Snapshot struct {
	TotalTokenBought   *big.Int       `json:"totalTokenBought"`
	TotalTokenRefunded *big.Int       `json:"totalTokenRefunded"`
	PercentReleased    *big.Int       `json:"tranchePercentReleased"`
	CompletedTranches  []int          `json:"completedTranches"`
	Symbols            []SymbolTotals `json:"symbols"`
}

// Snapshot reads the whole global ledger state.
func (l *Ledger) Snapshot() (*Snapshot, error) {
	var (
		s   Snapshot
		err error
	)
	if s.TotalTokenBought, err = l.TotalTokenBought(); err != nil {
		return nil, err
	}
	if s.TotalTokenRefunded, err = l.TotalTokenRefunded(); err != nil {
		return nil, err
	}
	if s.PercentReleased, err = l.TotalTranchePercentReleased(); err != nil {
		return nil, err
	}

	last, err := l.deps.Schedule.LastMilestoneIndex()
	if err != nil {
		return nil, err
	}
	s.CompletedTranches = []int{}
	for i := 0; i <= last; i++ {
		done, err := l.IsTrancheCompleted(i)
		if err != nil {
			return nil, err
		}
		if done {
			s.CompletedTranches = append(s.CompletedTranches, i)
		}
	}

	symbols, err := l.TrackedAssetSymbols()
	if err != nil {
		return nil, err
	}
	for _, sym := range symbols {
		t := SymbolTotals{Symbol: sym}
		if t.Funded, err = l.TotalFundedAmount(sym); err != nil {
			return nil, err
		}
		if t.Released, err = l.TotalFundedReleased(sym); err != nil {
			return nil, err
		}
		if t.Refunded, err = l.TotalFundedRefunded(sym); err != nil {
			return nil, err
		}
		if t.Paid, err = l.TotalRefundPaid(sym); err != nil {
			return nil, err
		}
		s.Symbols = append(s.Symbols, t)
	}

	return &s, nil
}

type InvestorPosition struct {
	Investor *types.Address      `json:"investor"`
	Tokens   *big.Int            `json:"tokens"`
	Funded   map[string]*big.Int `json:"funded"`
}

func (l *Ledger) Investor(investor *types.Address) (*InvestorPosition, error) {
	tokens, err := l.InvestorTokenBought(investor)
	if err != nil {
		return nil, err
	}
	symbols, err := l.InvestorTrackedAssetSymbols(investor)
	if err != nil {
		return nil, err
	}
	pos := &InvestorPosition{Investor: investor, Tokens: tokens, Funded: make(map[string]*big.Int, len(symbols))}
	for _, sym := range symbols {
		if pos.Funded[sym], err = l.InvestorFundedAmount(investor, sym); err != nil {
			return nil, err
		}
	}
	return pos, nil
}

// Audit checks the accounting invariants over committed state:
//
//	Σ investorFunded[s] + totalFundedRefunded[s] == totalFunded[s]
//	Σ investorTokens == totalTokenBought - totalTokenRefunded
//	totalTokenRefunded <= totalTokenBought
//	totalFundedReleased[s] <= totalFunded[s]
//	custody[s] >= totalFunded[s] - totalFundedReleased[s] - totalRefundPaid[s]
//	tranche percent released <= 100%
//
// The returned list names every violation; err wraps ErrAuditFailed when it
// is not empty.
func (l *Ledger) Audit() ([]string, error) {
	snap, err := l.Snapshot()
	if err != nil {
		return nil, err
	}

	var violations []string
	failf := func(format string, args ...any) {
		violations = append(violations, fmt.Sprintf(format, args...))
	}

	if snap.TotalTokenRefunded.Cmp(snap.TotalTokenBought) > 0 {
		failf("refunded tokens %s exceed bought %s", snap.TotalTokenRefunded, snap.TotalTokenBought)
	}
	if snap.PercentReleased.Cmp(fixedpoint.Hundred) > 0 {
		failf("released percent %s exceeds %s", snap.PercentReleased, fixedpoint.Hundred)
	}

	holdings, err := balance.ListAll(l.stub, balance.BalanceTypeInvestorTokens)
	if err != nil {
		return nil, err
	}
	held := big.NewInt(0)
	for _, h := range holdings {
		held.Add(held, h.Balance)
	}
	outstanding := new(big.Int).Sub(snap.TotalTokenBought, snap.TotalTokenRefunded)
	if held.Cmp(outstanding) != 0 {
		failf("investor tokens %s, expected %s", held, outstanding)
	}

	for _, t := range snap.Symbols {
		owners, err := balance.ListOwnersByToken(l.stub, balance.BalanceTypeInvestorFunded, t.Symbol)
		if err != nil {
			return nil, err
		}
		sum := t.Refunded.Copy()
		for _, o := range owners {
			sum.Add(sum, o.Balance)
		}
		if sum.Cmp(t.Funded) != 0 {
			failf("%s: investor funds plus refunded %s, total funded %s", t.Symbol, sum, t.Funded)
		}
		if t.Released.Cmp(t.Funded) > 0 {
			failf("%s: released %s exceeds funded %s", t.Symbol, t.Released, t.Funded)
		}
		if t.Symbol == USD {
			continue
		}
		a, err := l.assetOf(t.Symbol)
		if err != nil {
			return nil, err
		}
		unbooked, err := l.unbooked(t.Symbol, a)
		if err != nil {
			return nil, err
		}
		if unbooked.Sign() < 0 {
			failf("%s: fund custody short of booked funds by %s", t.Symbol, new(big.Int).Sub(big.NewInt(0), unbooked))
		}
	}

	if len(violations) != 0 {
		return violations, fmt.Errorf("%w: %d violations", ErrAuditFailed, len(violations))
	}
	return nil, nil
}
