package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/anoideaopen/crowdfund/core/balance"
	"github.com/anoideaopen/crowdfund/core/types/big"
	"github.com/anoideaopen/crowdfund/fund"
	"github.com/anoideaopen/crowdfund/fund/asset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordPurchase(t *testing.T) {
	e := twoInvestors(t)
	l := e.view()

	bought, err := l.TotalTokenBought()
	require.NoError(t, err)
	assert.Equal(t, eth("50").String(), bought.String())

	funded, err := l.TotalFundedAmount("ETH")
	require.NoError(t, err)
	assert.Equal(t, eth("0.3").String(), funded.String())

	usd, err := l.TotalFundedAmount(USD)
	require.NoError(t, err)
	assert.Equal(t, eth("600").String(), usd.String())

	symbols, err := l.TrackedAssetSymbols()
	require.NoError(t, err)
	assert.Equal(t, []string{"ETH", USD}, symbols)

	symbols, err = l.InvestorTrackedAssetSymbols(alice)
	require.NoError(t, err)
	assert.Equal(t, []string{"ETH", USD}, symbols)

	pos, err := l.Investor(bob)
	require.NoError(t, err)
	assert.Equal(t, eth("30").String(), pos.Tokens.String())
	assert.Equal(t, eth("0.2").String(), pos.Funded["ETH"].String())

	assert.Equal(t, eth("0.3").String(), e.nativeOf(fundAddr).String())
	e.requireAudit()
}

func TestRecordPurchaseTokenAsset(t *testing.T) {
	e := newEnv(t).at(t0.Add(time.Hour))
	cost := big.NewInt(150_000_000) // 150 USDT

	err := e.run(func(c *txContext) error {
		return c.ledger.RecordPurchase(crowdsale, Purchase{
			Investor: alice, TokenAmount: eth("15"), Symbol: "USDT", Cost: cost, CostUSD: eth("150"),
		})
	})
	require.ErrorIs(t, err, ErrPaymentNotReceived)

	require.NoError(t, e.run(func(c *txContext) error {
		usdt := asset.NewTokenGateway(c.stub, usdtAddress)
		if err := usdt.Issue(alice, cost); err != nil {
			return err
		}
		if err := usdt.Transfer(alice, fundAddr, cost); err != nil {
			return err
		}
		return c.ledger.RecordPurchase(crowdsale, Purchase{
			Investor: alice, TokenAmount: eth("15"), Symbol: "USDT", Cost: cost, CostUSD: eth("150"),
		})
	}))

	funded, err := e.view().InvestorFundedAmount(alice, "USDT")
	require.NoError(t, err)
	assert.Equal(t, "150000000", funded.String())
	e.requireAudit()
}

func TestRecordPurchaseTokenDepositBacksOnePurchase(t *testing.T) {
	e := newEnv(t).at(t0.Add(time.Hour))
	cost := big.NewInt(100_000_000) // 100 USDT
	record := func(c *txContext) error {
		return c.ledger.RecordPurchase(crowdsale, Purchase{
			Investor: alice, TokenAmount: eth("10"), Symbol: "USDT", Cost: cost, CostUSD: eth("100"),
		})
	}

	require.NoError(t, e.run(func(c *txContext) error {
		usdt := asset.NewTokenGateway(c.stub, usdtAddress)
		if err := usdt.Issue(crowdsale, cost); err != nil {
			return err
		}
		if err := usdt.Transfer(crowdsale, fundAddr, cost); err != nil {
			return err
		}
		return record(c)
	}))

	before := e.state()
	require.ErrorIs(t, e.run(record), ErrPaymentNotReceived)
	require.Equal(t, before, e.state())

	// a second deposit backs a second purchase
	require.NoError(t, e.run(func(c *txContext) error {
		usdt := asset.NewTokenGateway(c.stub, usdtAddress)
		if err := usdt.Issue(crowdsale, cost); err != nil {
			return err
		}
		if err := usdt.Transfer(crowdsale, fundAddr, cost); err != nil {
			return err
		}
		return record(c)
	}))

	funded, err := e.view().InvestorFundedAmount(alice, "USDT")
	require.NoError(t, err)
	assert.Equal(t, "200000000", funded.String())
	e.requireAudit()
}

func TestAuditDetectsCustodyShortfall(t *testing.T) {
	e := twoInvestors(t)

	require.NoError(t, e.run(func(c *txContext) error {
		return asset.NewNativeGateway(c.stub).Transfer(fundAddr, outsider, eth("0.05"))
	}))

	violations, err := e.view().Audit()
	require.ErrorIs(t, err, ErrAuditFailed)
	require.Len(t, violations, 1)
	assert.Contains(t, violations[0], "ETH: fund custody short")
}

func TestRecordPurchaseRejections(t *testing.T) {
	valid := func() Purchase {
		return Purchase{
			Investor: alice, TokenAmount: eth("20"), Symbol: "ETH",
			Cost: eth("0.1"), CostUSD: eth("200"), Value: eth("0.1"),
		}
	}

	tests := []struct {
		name   string
		caller bool
		mutate func(p *Purchase)
		err    error
		class  error
	}{
		{"wrong caller", false, func(*Purchase) {}, ErrNotCrowdsale, fund.ErrUnauthorized},
		{"empty investor", true, func(p *Purchase) { p.Investor = nil }, ErrEmptyInvestor, fund.ErrInputValidation},
		{"zero tokens", true, func(p *Purchase) { p.TokenAmount = big.NewInt(0) }, ErrZeroTokenAmount, fund.ErrInputValidation},
		{"zero cost", true, func(p *Purchase) { p.Cost = nil }, ErrZeroCost, fund.ErrInputValidation},
		{"zero usd cost", true, func(p *Purchase) { p.CostUSD = big.NewInt(0) }, ErrZeroCostUSD, fund.ErrInputValidation},
		{"usd bucket", true, func(p *Purchase) { p.Symbol = USD }, ErrPseudoSymbol, fund.ErrInputValidation},
		{"unregistered", true, func(p *Purchase) { p.Symbol = "DOGE" }, ErrUnregisteredSymbol, fund.ErrInputValidation},
		{"value below cost", true, func(p *Purchase) { p.Value = eth("0.09") }, ErrInsufficientValue, fund.ErrInputValidation},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := newEnv(t).at(t0.Add(time.Hour))
			before := e.state()

			caller := outsider
			if tc.caller {
				caller = crowdsale
			}
			p := valid()
			tc.mutate(&p)

			err := e.run(func(c *txContext) error {
				return c.ledger.RecordPurchase(caller, p)
			})
			require.ErrorIs(t, err, tc.err)
			require.ErrorIs(t, err, tc.class)
			require.Equal(t, before, e.state())
		})
	}
}

func TestRefundBeforeRelease(t *testing.T) {
	e := twoInvestors(t).at(t0.Add(20*day + time.Hour))

	s, err := e.refund(alice, eth("20"))
	require.NoError(t, err)
	require.Len(t, s.Payouts, 1)
	assert.Equal(t, "ETH", s.Payouts[0].Symbol)
	assert.Equal(t, eth("0.1").String(), s.Payouts[0].Amount.String())
	assert.Equal(t, eth("0.1").String(), e.nativeOf(alice).String())
	assert.Equal(t, eth("0.2").String(), e.nativeOf(fundAddr).String())

	l := e.view()
	refunded, err := l.TotalTokenRefunded()
	require.NoError(t, err)
	assert.Equal(t, eth("20").String(), refunded.String())

	pos, err := l.Investor(alice)
	require.NoError(t, err)
	assert.True(t, pos.Tokens.IsZero())
	assert.True(t, pos.Funded["ETH"].IsZero())
	assert.True(t, pos.Funded[USD].IsZero())

	usdRefunded, err := l.TotalFundedRefunded(USD)
	require.NoError(t, err)
	assert.Equal(t, eth("200").String(), usdRefunded.String())

	// the surrendered tokens are back in fund custody
	held, err := asset.NewTokenGateway(e.stub, projectTokenAddress).BalanceOf(fundAddr)
	require.NoError(t, err)
	assert.Equal(t, eth("20").String(), held.String())

	_, err = e.refund(alice, eth("1"))
	require.ErrorIs(t, err, ErrNothingToRefund)
	e.requireAudit()
}

func TestRefundAfterHalfReleased(t *testing.T) {
	e := twoInvestors(t).at(t0.Add(5 * day))

	s, err := e.tranche(owner)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, s.Milestones)
	assert.Equal(t, "5000", s.Percent.String())
	assert.Equal(t, eth("0.15").String(), e.nativeOf(owner).String())

	e.at(t0.Add(20*day + time.Hour))
	s, err = e.refund(alice, eth("20"))
	require.NoError(t, err)
	require.Len(t, s.Payouts, 1)
	assert.Equal(t, eth("0.05").String(), s.Payouts[0].Amount.String())
	assert.Equal(t, eth("0.1").String(), s.Payouts[0].Source.String())

	paid, err := e.view().TotalRefundPaid("ETH")
	require.NoError(t, err)
	assert.Equal(t, eth("0.05").String(), paid.String())
	e.requireAudit()
}

func TestPartialRefund(t *testing.T) {
	e := twoInvestors(t).at(t0.Add(20*day + time.Hour))

	s, err := e.refund(bob, eth("10"))
	require.NoError(t, err)
	assert.Equal(t, "66666666666666666", s.Payouts[0].Amount.String())

	_, err = e.refund(bob, eth("21"))
	require.ErrorIs(t, err, ErrExceedsBalance)

	s, err = e.refund(bob, eth("20"))
	require.NoError(t, err)
	assert.Equal(t, "133333333333333334", s.Payouts[0].Amount.String())
	e.requireAudit()
}

func TestRefundGates(t *testing.T) {
	e := twoInvestors(t)

	_, err := e.at(t0.Add(15 * day)).refund(alice, eth("20"))
	require.ErrorIs(t, err, ErrOutsideRefundWindow)
	require.ErrorIs(t, err, fund.ErrScheduleGate)

	_, err = e.at(t0.Add(22 * day)).refund(alice, eth("20"))
	require.ErrorIs(t, err, ErrOutsideRefundWindow)

	e.at(t0.Add(21 * day))
	_, err = e.refund(alice, big.NewInt(0))
	require.ErrorIs(t, err, ErrZeroTokenAmount)

	_, err = e.refund(outsider, eth("1"))
	require.ErrorIs(t, err, ErrNothingToRefund)

	require.NoError(t, e.run(func(c *txContext) error {
		return c.project.Approve(alice, fundAddr, eth("5"))
	}))
	before := e.state()
	_, err = e.refund(alice, eth("20"))
	require.ErrorIs(t, err, ErrTokensNotApproved)
	require.Equal(t, before, e.state())

	require.NoError(t, e.run(func(c *txContext) error {
		if err := c.project.Approve(alice, fundAddr, eth("20")); err != nil {
			return err
		}
		return c.project.Transfer(alice, outsider, eth("1"))
	}))
	_, err = e.refund(alice, eth("20"))
	require.ErrorIs(t, err, ErrTokensNotHeld)
}

func TestRefundLiquidityShortfall(t *testing.T) {
	e := twoInvestors(t).at(t0.Add(20*day + time.Hour))

	require.NoError(t, e.run(func(c *txContext) error {
		return asset.NewNativeGateway(c.stub).Transfer(fundAddr, outsider, eth("0.25"))
	}))

	before := e.state()
	_, err := e.refund(alice, eth("20"))
	require.ErrorIs(t, err, ErrInsufficientLiquidity)
	require.ErrorIs(t, err, fund.ErrLiquidityShortfall)
	require.Equal(t, before, e.state())
}

func TestLatestEndedWindowPolicy(t *testing.T) {
	e := twoInvestors(t)
	e.policy = LatestEndedWindow

	_, err := e.at(t0.Add(5 * day)).refund(alice, eth("10"))
	require.ErrorIs(t, err, ErrOutsideRefundWindow)

	s, err := e.at(t0.Add(11 * day)).refund(alice, eth("10"))
	require.NoError(t, err)
	assert.Equal(t, eth("0.05").String(), s.Payouts[0].Amount.String())

	_, err = e.at(t0.Add(13 * day)).refund(alice, eth("10"))
	require.ErrorIs(t, err, ErrOutsideRefundWindow)
}

func TestRefundReentry(t *testing.T) {
	e := twoInvestors(t).at(t0.Add(20*day + time.Hour))

	var (
		inner     *Ledger
		reentered error
	)
	e.wrap = func(r asset.Resolver) asset.Resolver {
		return hookResolver{Resolver: r, before: func() error {
			if inner != nil && reentered == nil {
				_, reentered = inner.Refund(alice, eth("20"))
				if reentered == nil {
					return errors.New("reentrant refund succeeded")
				}
			}
			return nil
		}}
	}

	err := e.run(func(c *txContext) error {
		inner = c.ledger
		_, err := c.ledger.Refund(alice, eth("20"))
		return err
	})
	require.NoError(t, err)
	require.ErrorIs(t, reentered, ErrNothingToRefund)
	assert.Equal(t, eth("0.1").String(), e.nativeOf(alice).String())
	e.requireAudit()
}

func TestAuditDetectsDrift(t *testing.T) {
	e := twoInvestors(t)

	require.NoError(t, e.run(func(c *txContext) error {
		return balance.Add(c.stub, balance.BalanceTypeInvestorFunded, bob.String(), "ETH", big.NewInt(1))
	}))

	violations, err := e.view().Audit()
	require.ErrorIs(t, err, ErrAuditFailed)
	require.Len(t, violations, 1)
	assert.Contains(t, violations[0], "ETH")
}
