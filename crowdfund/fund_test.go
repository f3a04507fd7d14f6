package crowdfund_test

import (
	"encoding/json"
	"testing"

	"github.com/anoideaopen/crowdfund/core/types/big"
	"github.com/anoideaopen/crowdfund/crowdfund"
	"github.com/anoideaopen/crowdfund/fund/asset"
	"github.com/anoideaopen/crowdfund/fund/ledger"
	"github.com/anoideaopen/crowdfund/fund/oracle"
	"github.com/anoideaopen/crowdfund/mock"
	"github.com/stretchr/testify/require"
)

func TestBuyWithNativeCurrency(t *testing.T) {
	f := newFixture(t)
	alice := f.investor()

	r := f.buy(alice, "ETH", "3000")
	require.Equal(t, alice.Address(), r.Investor.String())
	require.Equal(t, "3000", r.Invoice.TokenAmount.String())
	require.Equal(t, "3000", r.Invoice.Cost.String())
	require.Equal(t, "0", r.Invoice.Change.String())
	require.Equal(t, usd(3000).String(), r.Invoice.CostUSD.String())

	require.Equal(t, "7000", f.balance("ETH", alice))
	require.Equal(t, "3000", f.balance("ETH", f.fund))
	require.Equal(t, "3000", f.balance("PRJ", alice))

	var pos ledger.InvestorPosition
	f.l.QueryInto(&pos, ch, "investor", alice.Address())
	require.Equal(t, "3000", pos.Tokens.String())
	require.Equal(t, "3000", pos.Funded["ETH"].String())
	require.Equal(t, usd(3000).String(), pos.Funded[ledger.USD].String())

	names := map[string]bool{}
	for _, e := range f.l.Events(ch) {
		names[e.Name] = true
	}
	require.True(t, names[ledger.EventFundsReceived])
	require.True(t, names[asset.EventTransfer])
}

func TestBuyReturnsChangeWhenSupplyRunsOut(t *testing.T) {
	f := newFixture(t)
	alice, carol := f.investor(), f.investor()
	bob := f.l.NewWallet()
	f.issue("USDT", bob, "1000000")

	r := f.buy(bob, "USDT", "500000")
	require.Equal(t, "5000", r.Invoice.TokenAmount.String())
	require.Equal(t, "500000", r.Invoice.Cost.String())

	f.buy(alice, "ETH", "3000")

	r = f.buy(carol, "ETH", "5000")
	require.Equal(t, "2000", r.Invoice.TokenAmount.String())
	require.Equal(t, "2000", r.Invoice.Cost.String())
	require.Equal(t, "3000", r.Invoice.Change.String())

	require.Equal(t, "8000", f.balance("ETH", carol))
	require.Equal(t, "5000", f.balance("ETH", f.fund))
	require.Equal(t, "500000", f.balance("USDT", f.fund))
	require.Equal(t, "2000", f.balance("PRJ", carol))

	var snap ledger.Snapshot
	f.l.QueryInto(&snap, ch, "ledgerSnapshot")
	require.Equal(t, "10000", snap.TotalTokenBought.String())

	before := f.l.StateSnapshot(ch)
	require.ErrorContains(t, carol.SignedInvokeWithError(ch, "buy", "ETH", "1"), crowdfund.ErrSoldOut.Error())
	require.Equal(t, before, f.l.StateSnapshot(ch))

	require.True(t, f.audit().Consistent)
}

func TestBuyRejections(t *testing.T) {
	f := newFixture(t)
	alice := f.investor()
	poor := f.l.NewWallet()

	before := f.l.StateSnapshot(ch)

	require.ErrorContains(t, alice.SignedInvokeWithError(ch, "buy", "BTC", "1"), oracle.ErrNotRegistered.Error())
	require.ErrorContains(t, alice.SignedInvokeWithError(ch, "buy", "PRJ", "1"), oracle.ErrNotRegistered.Error())
	require.ErrorContains(t, poor.SignedInvokeWithError(ch, "buy", "ETH", "100"), asset.ErrInsufficientFunds.Error())
	// one cent buys less than a whole token
	require.ErrorContains(t, alice.SignedInvokeWithError(ch, "buy", "USDT", "1"), crowdfund.ErrNothingToBuy.Error())

	require.Equal(t, before, f.l.StateSnapshot(ch))

	f.l.SetTime(saleEnd)
	require.ErrorContains(t, alice.SignedInvokeWithError(ch, "buy", "ETH", "100"), crowdfund.ErrNoActiveStage.Error())
	f.l.SetTime(saleStart.AddDate(0, 0, -1))
	require.ErrorContains(t, alice.SignedInvokeWithError(ch, "buy", "ETH", "100"), crowdfund.ErrNoActiveStage.Error())
}

func TestRecordPurchase(t *testing.T) {
	f := newFixture(t)
	investor := f.l.NewWallet()
	f.issue("ETH", f.crowdsale, "1000")
	f.issue("USDT", f.crowdsale, "1000")

	record := func(w *mock.Wallet, symbol, value string) error {
		return w.SignedInvokeWithError(ch, "recordPurchase",
			investor.Address(), "100", symbol, "100", usd(100).String(), value)
	}

	before := f.l.StateSnapshot(ch)
	require.ErrorContains(t, record(investor, "ETH", "100"), ledger.ErrNotCrowdsale.Error())
	require.ErrorContains(t, record(f.crowdsale, "ETH", "99"), ledger.ErrInsufficientValue.Error())
	require.ErrorContains(t, record(f.crowdsale, "USDT", "0"), ledger.ErrPaymentNotReceived.Error())
	require.ErrorContains(t, record(f.crowdsale, "USDT", "5"), ledger.ErrUnexpectedValue.Error())
	require.Equal(t, before, f.l.StateSnapshot(ch))

	require.NoError(t, record(f.crowdsale, "ETH", "100"))
	require.Equal(t, "100", f.balance("ETH", f.fund))
	require.Equal(t, "900", f.balance("ETH", f.crowdsale))

	// token payments reach custody before they are recorded
	f.crowdsale.SignedInvoke(ch, "transfer", "USDT", f.fund.Address(), "100")
	require.NoError(t, record(f.crowdsale, "USDT", "0"))
	// the same deposit cannot back another purchase
	require.ErrorContains(t, record(f.crowdsale, "USDT", "0"), ledger.ErrPaymentNotReceived.Error())

	var pos ledger.InvestorPosition
	f.l.QueryInto(&pos, ch, "investor", investor.Address())
	require.Equal(t, "200", pos.Tokens.String())
	require.Equal(t, "100", pos.Funded["ETH"].String())
	require.Equal(t, "100", pos.Funded["USDT"].String())
	require.Equal(t, usd(200).String(), pos.Funded[ledger.USD].String())

	// the crowdsale delivers the tokens itself
	require.Equal(t, "0", f.balance("PRJ", investor))
	require.True(t, f.audit().Consistent)
}

func settle(t *testing.T, payload string) ledger.Settlement {
	t.Helper()
	var s ledger.Settlement
	require.NoError(t, json.Unmarshal([]byte(payload), &s))
	return s
}

func TestTrancheAndRefund(t *testing.T) {
	f := newFixture(t)
	alice, carol := f.investor(), f.investor()
	f.buy(alice, "ETH", "3000")
	f.buy(carol, "ETH", "2000")

	require.ErrorContains(t, f.owner.SignedInvokeWithError(ch, "tranche"), ledger.ErrSaleNotEnded.Error())

	f.l.SetTime(milestone0)
	require.ErrorContains(t, alice.SignedInvokeWithError(ch, "tranche"), ledger.ErrNotOwner.Error())

	s := settle(t, f.owner.SignedInvoke(ch, "tranche"))
	require.Equal(t, []int{0}, s.Milestones)
	require.Equal(t, "4000", s.Percent.String())
	require.Len(t, s.Payouts, 1)
	require.Equal(t, "2000", s.Payouts[0].Amount.String())
	require.Equal(t, "200", s.Payouts[0].Fee.String())
	require.Equal(t, "1800", f.balance("ETH", f.owner))
	require.Equal(t, "200", f.balance("ETH", f.service))
	require.Equal(t, "3000", f.balance("ETH", f.fund))

	require.ErrorContains(t, f.owner.SignedInvokeWithError(ch, "tranche"), ledger.ErrTrancheCompleted.Error())
	require.ErrorContains(t, alice.SignedInvokeWithError(ch, "refund", "3000"), ledger.ErrOutsideRefundWindow.Error())

	f.l.SetTime(window1)
	require.ErrorContains(t, alice.SignedInvokeWithError(ch, "refund", "3000"), ledger.ErrTokensNotApproved.Error())
	alice.SignedInvoke(ch, "approve", f.fund.Address(), "3000")
	require.ErrorContains(t, alice.SignedInvokeWithError(ch, "refund", "3001"), ledger.ErrExceedsBalance.Error())

	s = settle(t, alice.SignedInvoke(ch, "refund", "3000"))
	require.Equal(t, "4000", s.Percent.String())
	require.Len(t, s.Payouts, 1)
	require.Equal(t, "ETH", s.Payouts[0].Symbol)
	require.Equal(t, "1800", s.Payouts[0].Amount.String())
	require.Equal(t, "3000", s.Payouts[0].Source.String())

	require.Equal(t, "8800", f.balance("ETH", alice))
	require.Equal(t, "0", f.balance("PRJ", alice))
	require.Equal(t, "3000", f.balance("PRJ", f.fund))
	require.Equal(t, ledger.EventTokensRefunded, f.l.Events(ch)[len(f.l.Events(ch))-1].Name)

	require.ErrorContains(t, alice.SignedInvokeWithError(ch, "refund", "1"), ledger.ErrNothingToRefund.Error())

	// the last tranche pays the share of the tokens still outstanding
	s = settle(t, f.owner.SignedInvoke(ch, "tranche"))
	require.Equal(t, []int{1}, s.Milestones)
	require.Equal(t, "1200", s.Payouts[0].Amount.String())
	require.Equal(t, "120", s.Payouts[0].Fee.String())
	require.Equal(t, "0", f.balance("ETH", f.fund))
	require.Equal(t, "2880", f.balance("ETH", f.owner))

	var snap ledger.Snapshot
	f.l.QueryInto(&snap, ch, "ledgerSnapshot")
	require.Equal(t, "10000", snap.PercentReleased.String())
	require.Equal(t, []int{0, 1}, snap.CompletedTranches)
	require.Equal(t, "3000", snap.TotalTokenRefunded.String())

	require.True(t, f.audit().Consistent)
}

func TestTrancheCatchesUpMissedMilestones(t *testing.T) {
	f := newFixture(t)
	f.buy(f.investor(), "ETH", "1000")

	f.l.SetTime(window1)
	s := settle(t, f.owner.SignedInvoke(ch, "tranche"))
	require.Equal(t, []int{0, 1}, s.Milestones)
	require.Equal(t, "10000", s.Percent.String())
	require.Equal(t, "1000", s.Payouts[0].Amount.String())
	require.Equal(t, "900", f.balance("ETH", f.owner))
}

func TestTrancheNeedsPurchases(t *testing.T) {
	f := newFixture(t)
	f.l.SetTime(milestone0)
	require.ErrorContains(t, f.owner.SignedInvokeWithError(ch, "tranche"), ledger.ErrNothingBought.Error())
}

func TestRefundWindowPolicies(t *testing.T) {
	for _, tc := range []struct {
		policy  string
		allowed bool
	}{
		{policy: crowdfund.RefundPolicyTerminal},
		{policy: crowdfund.RefundPolicyLatestEnded, allowed: true},
	} {
		t.Run(tc.policy, func(t *testing.T) {
			f := newFixture(t, func(c *crowdfund.Config) { c.RefundPolicy = tc.policy })
			alice := f.investor()
			f.buy(alice, "ETH", "3000")
			f.buy(f.investor(), "ETH", "2000")

			f.l.SetTime(milestone0)
			f.owner.SignedInvoke(ch, "tranche")

			f.l.SetTime(window0)
			alice.SignedInvoke(ch, "approve", f.fund.Address(), "1000")
			err := alice.SignedInvokeWithError(ch, "refund", "1000")
			if !tc.allowed {
				require.ErrorContains(t, err, ledger.ErrOutsideRefundWindow.Error())
				return
			}
			require.NoError(t, err)
			require.Equal(t, "7600", f.balance("ETH", alice))
			require.Equal(t, "2000", f.balance("PRJ", alice))
			require.True(t, f.audit().Consistent)
		})
	}
}

func TestMixedAssetRefund(t *testing.T) {
	f := newFixture(t)
	alice := f.investor()
	f.issue("USDT", alice, "100000")

	f.buy(alice, "ETH", "1000")
	f.buy(alice, "USDT", "100000")
	require.Equal(t, "2000", f.balance("PRJ", alice))

	f.l.SetTime(window1)
	alice.SignedInvoke(ch, "approve", f.fund.Address(), "1000")
	s := settle(t, alice.SignedInvoke(ch, "refund", "1000"))

	paid := map[string]*big.Int{}
	for _, p := range s.Payouts {
		paid[p.Symbol] = p.Amount
	}
	require.Equal(t, "500", paid["ETH"].String())
	require.Equal(t, "50000", paid["USDT"].String())
	require.NotContains(t, paid, ledger.USD)

	var pos ledger.InvestorPosition
	f.l.QueryInto(&pos, ch, "investor", alice.Address())
	require.Equal(t, "1000", pos.Tokens.String())
	require.Equal(t, usd(1000).String(), pos.Funded[ledger.USD].String())

	require.True(t, f.audit().Consistent)
}

func TestInvoiceAndQuote(t *testing.T) {
	f := newFixture(t)

	var inv struct {
		TokenAmount *big.Int `json:"tokenAmount"`
		Cost        *big.Int `json:"cost"`
	}
	f.l.QueryInto(&inv, ch, "invoice", "ETH", "250")
	require.Equal(t, "250", inv.TokenAmount.String())
	require.Equal(t, "250", inv.Cost.String())

	var q crowdfund.Quote
	f.l.QueryInto(&q, ch, "quote", "USDT", "12.5")
	require.Equal(t, crowdfund.Quote{
		Symbol:      "USDT",
		Payment:     "12.5",
		TokenAmount: "12",
		Cost:        "12.5",
		Change:      "0",
		CostUSD:     "12.5",
	}, q)

	_, err := f.l.QueryWithError(ch, "quote", "USDT", "1.234")
	require.ErrorContains(t, err, "fractional digits")
}

func TestScheduleQuery(t *testing.T) {
	f := newFixture(t)

	var s crowdfund.ScheduleState
	f.l.QueryInto(&s, ch, "schedule")
	require.False(t, s.SaleEnded)
	require.Nil(t, s.CurrentMilestone)
	require.Len(t, s.Milestones, 2)

	f.l.SetTime(milestone0)
	f.l.QueryInto(&s, ch, "schedule")
	require.True(t, s.SaleEnded)
	require.NotNil(t, s.CurrentMilestone)
	require.Equal(t, 0, *s.CurrentMilestone)
}
