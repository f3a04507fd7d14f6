package crowdfund_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/anoideaopen/crowdfund/core"
	"github.com/anoideaopen/crowdfund/core/fixedpoint"
	"github.com/anoideaopen/crowdfund/core/types/big"
	"github.com/anoideaopen/crowdfund/crowdfund"
	"github.com/anoideaopen/crowdfund/fund/asset"
	"github.com/anoideaopen/crowdfund/fund/invoice"
	"github.com/anoideaopen/crowdfund/fund/oracle"
	"github.com/anoideaopen/crowdfund/fund/schedule"
	"github.com/anoideaopen/crowdfund/mock"
	"github.com/stretchr/testify/require"
)

const ch = "crowdfund"

var (
	saleStart = day(2024, time.April, 1)
	saleEnd   = day(2024, time.June, 1)
	// during the first milestone
	milestone0 = day(2024, time.June, 15)
	// withdrawal window of the first milestone
	window0 = day(2024, time.July, 3)
	// withdrawal window of the last milestone
	window1 = day(2024, time.August, 3)
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// rate is a USD rate of whole dollars.
func rate(dollars int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(dollars), fixedpoint.Pow10(fixedpoint.RateDecimals))
}

func usd(dollars int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(dollars), fixedpoint.Pow10(fixedpoint.USDDecimals))
}

type fixture struct {
	t *testing.T
	l *mock.Ledger

	owner       *mock.Wallet
	crowdsale   *mock.Wallet
	service     *mock.Wallet
	fund        *mock.Wallet
	issuer      *mock.Wallet
	oracleAdmin *mock.Wallet

	cfg crowdfund.Config
}

// newFixture deploys a sale of PRJ at one dollar with a cap of 10000,
// paid in ETH (native, no decimals) or USDT (token, two decimals), both at
// one dollar. The clock starts in the middle of the only stage.
func newFixture(t *testing.T, opts ...func(*crowdfund.Config)) *fixture {
	t.Helper()

	l := mock.NewLedger(t, day(2024, time.May, 1))
	f := &fixture{
		t:           t,
		l:           l,
		owner:       l.NewWallet(),
		crowdsale:   l.NewWallet(),
		service:     l.NewWallet(),
		fund:        l.NewWallet(),
		issuer:      l.NewWallet(),
		oracleAdmin: l.NewWallet(),
	}

	f.cfg = crowdfund.Config{
		Owner:             f.owner.AddressType(),
		Crowdsale:         f.crowdsale.AddressType(),
		ServiceWallet:     f.service.AddressType(),
		Fund:              f.fund.AddressType(),
		Issuer:            f.issuer.AddressType(),
		OracleAdmin:       f.oracleAdmin.AddressType(),
		TrancheFeePercent: big.NewInt(1000),
		Token: crowdfund.TokenConfig{
			Symbol:    "PRJ",
			Address:   "prj",
			Rate:      rate(1),
			SupplyCap: big.NewInt(10000),
		},
		Stages: []invoice.Stage{{
			StartDate: saleStart,
			EndDate:   saleEnd,
			Discount:  big.NewInt(0),
		}},
		Milestones: []schedule.Milestone{
			{
				Name:                "prototype",
				EndDate:             day(2024, time.July, 1),
				VoteEndDate:         day(2024, time.July, 5),
				WithdrawalWindowEnd: day(2024, time.July, 10),
				TranchePercent:      big.NewInt(4000),
			},
			{
				Name:                "release",
				EndDate:             day(2024, time.August, 1),
				VoteEndDate:         day(2024, time.August, 5),
				WithdrawalWindowEnd: day(2024, time.August, 10),
				TranchePercent:      big.NewInt(6000),
			},
		},
		Assets: []oracle.AssetInfo{
			{Symbol: "ETH", Asset: asset.Native(), Rate: rate(1)},
			{Symbol: "USDT", Asset: asset.Token("usdt"), Decimals: 2, Rate: rate(1)},
		},
	}
	for _, opt := range opts {
		opt(&f.cfg)
	}

	cfg, err := json.Marshal(f.cfg)
	require.NoError(t, err)

	cc, err := core.NewCC(crowdfund.NewContract())
	require.NoError(t, err)
	require.Empty(t, l.NewCC(ch, cc, string(cfg)))

	return f
}

func (f *fixture) issue(symbol string, to *mock.Wallet, amount string) {
	f.issuer.SignedInvoke(ch, "issueAsset", symbol, to.Address(), amount)
}

func (f *fixture) balance(symbol string, holder *mock.Wallet) string {
	var b big.Int
	f.l.QueryInto(&b, ch, "balanceOf", symbol, holder.Address())
	return b.String()
}

func (f *fixture) buy(w *mock.Wallet, symbol, payment string) crowdfund.Receipt {
	var r crowdfund.Receipt
	require.NoError(f.t, json.Unmarshal([]byte(w.SignedInvoke(ch, "buy", symbol, payment)), &r))
	return r
}

// investor is a funded wallet holding 10000 ETH.
func (f *fixture) investor() *mock.Wallet {
	w := f.l.NewWallet()
	f.issue("ETH", w, "10000")
	return w
}

func (f *fixture) audit() crowdfund.AuditReport {
	var r crowdfund.AuditReport
	f.l.QueryInto(&r, ch, "audit")
	return r
}
