// Package ledger is the fund ledger: it records purchases per asset and per
// investor, releases milestone tranches to the project owner and pays
// pro-rata refunds to investors.
//
// Every operation checks all of its preconditions, then writes ledger
// state, and only then moves assets through the gateways. Callers run each
// operation against a transaction cache and commit it only on success, so
// a failed operation leaves world state unchanged.
package ledger

import (
	"fmt"
	"time"

	"github.com/anoideaopen/crowdfund/core/balance"
	"github.com/anoideaopen/crowdfund/core/fixedpoint"
	"github.com/anoideaopen/crowdfund/core/logger"
	"github.com/anoideaopen/crowdfund/core/types"
	"github.com/anoideaopen/crowdfund/core/types/big"
	"github.com/anoideaopen/crowdfund/fund/asset"
	"github.com/anoideaopen/crowdfund/fund/oracle"
	"github.com/anoideaopen/crowdfund/fund/schedule"
	"github.com/hyperledger/fabric-chaincode-go/shim"
)

// USD is the accounting-only bucket of USD-equivalent amounts.
const USD = "USD"

// ProjectToken is the gateway of the token being sold. Refunds pull it back
// from the investor through an allowance.
type ProjectToken interface {
	asset.Gateway
	Allowance(owner, spender *types.Address) (*big.Int, error)
	TransferFrom(spender, from, to *types.Address, amount *big.Int) error
}

// Config holds the fund parties and tranche terms.
type Config struct {
	Owner         *types.Address
	ServiceWallet *types.Address
	// Fund is the custody address holding contributed assets.
	Fund              *types.Address
	TrancheFeePercent *big.Int
	// RefundWindow defaults to TerminalWindow.
	RefundWindow WindowPolicy
}

// Collaborators are the read views and gateways the ledger works through.
type Collaborators struct {
	Schedule     schedule.View
	Oracle       oracle.View
	Gateways     asset.Resolver
	ProjectToken ProjectToken
}

// Ledger runs fund operations against one transaction stub.
type Ledger struct {
	stub  shim.ChaincodeStubInterface
	store store
	cfg   Config
	deps  Collaborators
}

// New returns a ledger bound to stub. RefundWindow defaults to TerminalWindow.
func New(stub shim.ChaincodeStubInterface, cfg Config, deps Collaborators) (*Ledger, error) {
	if cfg.Owner.IsEmpty() || cfg.ServiceWallet.IsEmpty() || cfg.Fund.IsEmpty() {
		return nil, fmt.Errorf("%w: owner, service wallet and fund are required", ErrInvalidConfig)
	}
	if deps.Schedule == nil || deps.Oracle == nil || deps.Gateways == nil || deps.ProjectToken == nil {
		return nil, fmt.Errorf("%w: missing collaborator", ErrInvalidConfig)
	}
	cfg.TrancheFeePercent = cfg.TrancheFeePercent.Copy()
	if cfg.RefundWindow == nil {
		cfg.RefundWindow = TerminalWindow
	}
	return &Ledger{stub: stub, store: store{stub: stub}, cfg: cfg, deps: deps}, nil
}

// Purchase is one invoice being recorded. Value is the native currency
// attached to the call.
type Purchase struct {
	Investor    *types.Address `json:"investor"`
	TokenAmount *big.Int       `json:"tokenAmount"`
	Symbol      string         `json:"symbol"`
	Cost        *big.Int       `json:"cost"`
	CostUSD     *big.Int       `json:"costUSD"`
	Value       *big.Int       `json:"value,omitempty"`
}

// RecordPurchase books a purchase made through the crowdsale.
func (l *Ledger) RecordPurchase(caller *types.Address, p Purchase) error {
	if !caller.Equal(l.deps.Schedule.Address()) {
		return ErrNotCrowdsale
	}
	if p.Investor.IsEmpty() {
		return ErrEmptyInvestor
	}
	if !p.TokenAmount.IsPositive() {
		return ErrZeroTokenAmount
	}
	if !p.Cost.IsPositive() {
		return ErrZeroCost
	}
	if !p.CostUSD.IsPositive() {
		return ErrZeroCostUSD
	}
	if p.Symbol == USD {
		return ErrPseudoSymbol
	}

	a, err := l.assetOf(p.Symbol)
	if err != nil {
		return err
	}
	value := p.Value.Copy()
	if a.IsNative() {
		if value.Cmp(p.Cost) < 0 {
			return fmt.Errorf("%w: %s < %s", ErrInsufficientValue, value, p.Cost)
		}
	} else {
		if !value.IsZero() {
			return ErrUnexpectedValue
		}
		unbooked, err := l.unbooked(p.Symbol, a)
		if err != nil {
			return err
		}
		if unbooked.Cmp(p.Cost) < 0 {
			return fmt.Errorf("%w: %s unbooked %s, cost %s", ErrPaymentNotReceived, p.Symbol, unbooked, p.Cost)
		}
	}

	investor := p.Investor.String()
	for _, step := range []func() error{
		func() error { return l.store.addCounter(counterTokenBought, p.TokenAmount) },
		func() error {
			return balance.Add(l.stub, balance.BalanceTypeInvestorTokens, investor, "", p.TokenAmount)
		},
		func() error { return l.store.addTotal(balance.BalanceTypeTotalFunded, p.Symbol, p.Cost) },
		func() error { return l.store.addTotal(balance.BalanceTypeTotalFunded, USD, p.CostUSD) },
		func() error {
			return balance.Add(l.stub, balance.BalanceTypeInvestorFunded, investor, p.Symbol, p.Cost)
		},
		func() error {
			return balance.Add(l.stub, balance.BalanceTypeInvestorFunded, investor, USD, p.CostUSD)
		},
		func() error { return l.store.track(objectTrackedSymbols, nil, p.Symbol, USD) },
		func() error { return l.store.track(objectInvestorSymbols, []string{investor}, p.Symbol, USD) },
	} {
		if err = step(); err != nil {
			return err
		}
	}

	logger.Logger().Debugf("purchase recorded: investor %s, %s tokens for %s %s", investor, p.TokenAmount, p.Cost, p.Symbol)

	return l.emit(EventFundsReceived, FundsReceivedEvent{
		Investor:    p.Investor,
		TokenAmount: p.TokenAmount,
		Symbol:      p.Symbol,
		Cost:        p.Cost,
		CostUSD:     p.CostUSD,
	})
}

// unbooked is the fund custody in symbol not yet backing a recorded
// purchase: custody less funded amounts still held (funded minus released
// and refund payouts).
func (l *Ledger) unbooked(symbol string, a asset.Asset) (*big.Int, error) {
	held, err := l.custody(a)
	if err != nil {
		return nil, err
	}
	out := held.Copy()
	for _, bt := range []balance.BalanceType{
		balance.BalanceTypeTotalReleased,
		balance.BalanceTypeRefundPaid,
	} {
		v, err := l.store.total(bt, symbol)
		if err != nil {
			return nil, err
		}
		out.Add(out, v)
	}
	funded, err := l.store.total(balance.BalanceTypeTotalFunded, symbol)
	if err != nil {
		return nil, err
	}
	return out.Sub(out, funded), nil
}

// Settlement is the outcome of a tranche or a refund.
type Settlement struct {
	Milestones []int     `json:"milestones"`
	Percent    *big.Int  `json:"percent"`
	Payouts    []Payout  `json:"payouts"`
	At         time.Time `json:"at"`
}

// Payout is one asset leaving fund custody.
type Payout struct {
	Symbol string   `json:"symbol"`
	Amount *big.Int `json:"amount"`
	Fee    *big.Int `json:"fee,omitempty"`
	// Source is the investor contribution a refund payout was computed from.
	Source *big.Int `json:"source,omitempty"`

	gateway asset.Gateway
}

// Tranche releases every not yet completed milestone up to the current
// one to the owner, less the refunded share and the service fee.
func (l *Ledger) Tranche(caller *types.Address) (*Settlement, error) {
	if !caller.Equal(l.cfg.Owner) {
		return nil, ErrNotOwner
	}

	sched := l.deps.Schedule
	ended, err := sched.IsSaleEnded()
	if err != nil {
		return nil, err
	}
	if !ended {
		return nil, ErrSaleNotEnded
	}

	bought, err := l.store.counter(counterTokenBought)
	if err != nil {
		return nil, err
	}
	if bought.IsZero() {
		return nil, ErrNothingBought
	}
	refunded, err := l.store.counter(counterTokenRefunded)
	if err != nil {
		return nil, err
	}

	target, err := l.targetMilestone()
	if err != nil {
		return nil, err
	}
	done, err := l.store.trancheCompleted(target)
	if err != nil {
		return nil, err
	}
	if done {
		return nil, fmt.Errorf("%w: milestone %d", ErrTrancheCompleted, target)
	}

	release := &Settlement{Percent: big.NewInt(0)}
	for i := 0; i <= target; i++ {
		if done, err = l.store.trancheCompleted(i); err != nil {
			return nil, err
		}
		if done {
			continue
		}
		m, err := sched.Milestone(i)
		if err != nil {
			return nil, err
		}
		release.Milestones = append(release.Milestones, i)
		release.Percent.Add(release.Percent, m.TranchePercent)
	}

	symbols, err := l.store.symbols(objectTrackedSymbols)
	if err != nil {
		return nil, err
	}
	remaining := new(big.Int).Sub(bought, refunded)
	for _, sym := range symbols {
		if sym == USD {
			continue
		}
		funded, err := l.store.total(balance.BalanceTypeTotalFunded, sym)
		if err != nil {
			return nil, err
		}
		net, err := fixedpoint.MulDiv(fixedpoint.Percent(funded, release.Percent), remaining, bought)
		if err != nil {
			return nil, err
		}
		p, err := l.payout(sym, net)
		if err != nil {
			return nil, err
		}
		p.Fee = fixedpoint.Percent(net, l.cfg.TrancheFeePercent)
		release.Payouts = append(release.Payouts, p)
	}

	for _, i := range release.Milestones {
		if err = l.store.completeTranche(i); err != nil {
			return nil, err
		}
	}
	if err = l.store.addCounter(counterPercentReleased, release.Percent); err != nil {
		return nil, err
	}
	for _, p := range release.Payouts {
		if err = l.store.addTotal(balance.BalanceTypeTotalReleased, p.Symbol, p.Amount); err != nil {
			return nil, err
		}
	}

	for _, p := range release.Payouts {
		if err = l.send(p.gateway, l.cfg.ServiceWallet, p.Fee); err != nil {
			return nil, err
		}
		toOwner := new(big.Int).Sub(p.Amount, p.Fee)
		if err = l.send(p.gateway, l.cfg.Owner, toOwner); err != nil {
			return nil, err
		}
		if err = l.emit(EventTrancheTransfer, TrancheTransferEvent{
			Symbol: p.Symbol,
			Owner:  l.cfg.Owner,
			Amount: toOwner,
			Fee:    p.Fee,
		}); err != nil {
			return nil, err
		}
	}

	if release.At, err = l.now(); err != nil {
		return nil, err
	}
	logger.Logger().Infof("tranche released: milestones %v, %s", release.Milestones, release.Percent)

	return release, l.emit(EventTrancheReleased, TrancheReleasedEvent{
		Milestones: release.Milestones,
		Percent:    release.Percent,
	})
}

// targetMilestone is the running milestone, or the last one once the
// schedule is past all of them. It must be active.
func (l *Ledger) targetMilestone() (int, error) {
	sched := l.deps.Schedule
	target, found, err := sched.CurrentMilestoneIndex()
	if err != nil {
		return 0, err
	}
	if !found {
		if target, err = sched.LastMilestoneIndex(); err != nil {
			return 0, err
		}
	}
	active, err := sched.IsMilestoneActive(target)
	if err != nil {
		return 0, err
	}
	if !active {
		return 0, fmt.Errorf("%w: milestone %d", ErrMilestoneNotActive, target)
	}
	return target, nil
}

// Refund returns project tokens to the fund and pays the investor the
// unreleased share of what they contributed for them, in every asset.
func (l *Ledger) Refund(investor *types.Address, tokenAmount *big.Int) (*Settlement, error) {
	if investor.IsEmpty() {
		return nil, ErrEmptyInvestor
	}
	if !tokenAmount.IsPositive() {
		return nil, ErrZeroTokenAmount
	}

	now, err := l.now()
	if err != nil {
		return nil, err
	}
	window, ok, err := l.cfg.RefundWindow.RefundWindow(l.deps.Schedule, now)
	if err != nil {
		return nil, err
	}
	if !ok || !window.Contains(now) {
		return nil, ErrOutsideRefundWindow
	}

	inv := investor.String()
	held, err := l.store.investorTokens(inv)
	if err != nil {
		return nil, err
	}
	if held.IsZero() {
		return nil, ErrNothingToRefund
	}
	if tokenAmount.Cmp(held) > 0 {
		return nil, fmt.Errorf("%w: %s > %s", ErrExceedsBalance, tokenAmount, held)
	}

	if err = l.checkTokensPullable(investor, tokenAmount); err != nil {
		return nil, err
	}

	percentReleased, err := l.store.counter(counterPercentReleased)
	if err != nil {
		return nil, err
	}
	symbols, err := l.store.symbols(objectInvestorSymbols, inv)
	if err != nil {
		return nil, err
	}

	refund := &Settlement{Percent: percentReleased, At: now}
	var usdSource *big.Int
	for _, sym := range symbols {
		funded, err := l.store.investorFunded(inv, sym)
		if err != nil {
			return nil, err
		}
		source, err := fixedpoint.MulDiv(funded, tokenAmount, held)
		if err != nil {
			return nil, err
		}
		if sym == USD {
			usdSource = source
			continue
		}

		total, err := l.store.total(balance.BalanceTypeTotalFunded, sym)
		if err != nil {
			return nil, err
		}
		unreleased := new(big.Int).Sub(total, fixedpoint.Percent(total, percentReleased))
		amount, err := fixedpoint.MulDiv(unreleased, source, total)
		if err != nil {
			return nil, err
		}
		p, err := l.payout(sym, amount)
		if err != nil {
			return nil, err
		}
		p.Source = source
		refund.Payouts = append(refund.Payouts, p)
	}

	if err = l.store.addCounter(counterTokenRefunded, tokenAmount); err != nil {
		return nil, err
	}
	if err = balance.Sub(l.stub, balance.BalanceTypeInvestorTokens, inv, "", tokenAmount); err != nil {
		return nil, err
	}
	if usdSource != nil {
		if err = l.moveRefunded(inv, USD, usdSource); err != nil {
			return nil, err
		}
	}
	for _, p := range refund.Payouts {
		if err = l.moveRefunded(inv, p.Symbol, p.Source); err != nil {
			return nil, err
		}
		if err = l.store.addTotal(balance.BalanceTypeRefundPaid, p.Symbol, p.Amount); err != nil {
			return nil, err
		}
	}

	if err = l.deps.ProjectToken.TransferFrom(l.cfg.Fund, investor, l.cfg.Fund, tokenAmount); err != nil {
		return nil, err
	}
	for _, p := range refund.Payouts {
		if err = l.send(p.gateway, investor, p.Amount); err != nil {
			return nil, err
		}
		if err = l.emit(EventAssetRefunded, AssetRefundedEvent{
			Investor: investor,
			Symbol:   p.Symbol,
			Amount:   p.Amount,
		}); err != nil {
			return nil, err
		}
	}

	logger.Logger().Infof("refund: investor %s returned %s tokens", inv, tokenAmount)

	return refund, l.emit(EventTokensRefunded, TokensRefundedEvent{
		Investor:    investor,
		TokenAmount: tokenAmount,
	})
}

func (l *Ledger) checkTokensPullable(investor *types.Address, amount *big.Int) error {
	allowance, err := l.deps.ProjectToken.Allowance(investor, l.cfg.Fund)
	if err != nil {
		return err
	}
	if allowance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: allowance %s", ErrTokensNotApproved, allowance)
	}
	owned, err := l.deps.ProjectToken.BalanceOf(investor)
	if err != nil {
		return err
	}
	if owned.Cmp(amount) < 0 {
		return fmt.Errorf("%w: balance %s", ErrTokensNotHeld, owned)
	}
	return nil
}

// moveRefunded takes source out of the investor's bucket into the refunded
// total of the symbol.
func (l *Ledger) moveRefunded(investor, symbol string, source *big.Int) error {
	if err := balance.Sub(l.stub, balance.BalanceTypeInvestorFunded, investor, symbol, source); err != nil {
		return err
	}
	return l.store.addTotal(balance.BalanceTypeTotalRefunded, symbol, source)
}

// payout resolves the gateway of symbol and checks the fund can pay amount.
func (l *Ledger) payout(symbol string, amount *big.Int) (Payout, error) {
	a, err := l.assetOf(symbol)
	if err != nil {
		return Payout{}, err
	}
	gw, err := l.deps.Gateways.Resolve(a)
	if err != nil {
		return Payout{}, err
	}
	held, err := gw.BalanceOf(l.cfg.Fund)
	if err != nil {
		return Payout{}, err
	}
	if held.Cmp(amount) < 0 {
		return Payout{}, fmt.Errorf("%w: %s holds %s, payout %s", ErrInsufficientLiquidity, symbol, held, amount)
	}
	return Payout{Symbol: symbol, Amount: amount, gateway: gw}, nil
}

func (l *Ledger) send(gw asset.Gateway, to *types.Address, amount *big.Int) error {
	if !amount.IsPositive() {
		return nil
	}
	return gw.Transfer(l.cfg.Fund, to, amount)
}

func (l *Ledger) custody(a asset.Asset) (*big.Int, error) {
	gw, err := l.deps.Gateways.Resolve(a)
	if err != nil {
		return nil, err
	}
	return gw.BalanceOf(l.cfg.Fund)
}

// assetOf looks the symbol up in the oracle.
func (l *Ledger) assetOf(symbol string) (asset.Asset, error) {
	registered, err := l.deps.Oracle.IsRegistered(symbol)
	if err != nil {
		return asset.Asset{}, err
	}
	if !registered {
		return asset.Asset{}, fmt.Errorf("%w: %s", ErrUnregisteredSymbol, symbol)
	}
	tokenBacked, err := l.deps.Oracle.IsTokenBacked(symbol)
	if err != nil {
		return asset.Asset{}, err
	}
	if !tokenBacked {
		return asset.Native(), nil
	}
	addr, err := l.deps.Oracle.AssetAddress(symbol)
	if err != nil {
		return asset.Asset{}, err
	}
	return asset.Token(addr), nil
}

func (l *Ledger) now() (time.Time, error) {
	ts, err := l.stub.GetTxTimestamp()
	if err != nil {
		return time.Time{}, err
	}
	return ts.AsTime(), nil
}
