package ledger

import (
	"fmt"
	"testing"
	"time"

	"github.com/anoideaopen/crowdfund/core/cachestub"
	"github.com/anoideaopen/crowdfund/core/fixedpoint"
	"github.com/anoideaopen/crowdfund/core/types"
	"github.com/anoideaopen/crowdfund/core/types/big"
	"github.com/anoideaopen/crowdfund/fund/asset"
	"github.com/anoideaopen/crowdfund/fund/invoice"
	"github.com/anoideaopen/crowdfund/fund/oracle"
	"github.com/anoideaopen/crowdfund/fund/schedule"
	"github.com/hyperledger/fabric-chaincode-go/shimtest"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/timestamppb"
)

const (
	projectTokenAddress = "prj"
	usdtAddress         = "usdt"
)

var (
	t0  = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	day = 24 * time.Hour

	crowdsale = addr("crowdsale")
	owner     = addr("owner")
	service   = addr("service")
	fundAddr  = addr("fund")
	alice     = addr("alice")
	bob       = addr("bob")
	outsider  = addr("outsider")
)

func addr(seed string) *types.Address {
	return types.AddrFromPublicKey([]byte(seed))
}

func eth(s string) *big.Int {
	v, err := fixedpoint.ParseUnits(s, 18)
	if err != nil {
		panic(err)
	}
	return v
}

func testSchedule() ([]schedule.Milestone, []invoice.Stage) {
	stages := []invoice.Stage{
		{StartDate: t0, EndDate: t0.Add(2 * day), Discount: big.NewInt(0)},
	}
	milestones := []schedule.Milestone{
		{Name: "beta", EndDate: t0.Add(10 * day), VoteEndDate: t0.Add(11 * day), WithdrawalWindowEnd: t0.Add(12 * day), TranchePercent: big.NewInt(5000)},
		{Name: "release", EndDate: t0.Add(20 * day), VoteEndDate: t0.Add(21 * day), WithdrawalWindowEnd: t0.Add(22 * day), TranchePercent: big.NewInt(5000)},
	}
	return milestones, stages
}

// env runs ledger operations as mock transactions, each through its own
// TxCacheStub that is committed only on success.
type env struct {
	t      *testing.T
	stub   *shimtest.MockStub
	now    time.Time
	fee    *big.Int
	policy WindowPolicy
	wrap   func(asset.Resolver) asset.Resolver
	txn    int
}

type txContext struct {
	stub    *cachestub.TxCacheStub
	ledger  *Ledger
	project *asset.TokenGateway
}

func newEnv(t *testing.T) *env {
	e := &env{t: t, stub: shimtest.NewMockStub("crowdfund", nil), now: t0, fee: big.NewInt(0)}
	require.NoError(t, e.run(func(c *txContext) error {
		reg := oracle.NewRegistry(c.stub, oracle.ReserveSymbols(USD), oracle.ReserveAssets(asset.Token(projectTokenAddress)))
		if err := reg.Register(oracle.AssetInfo{Symbol: "ETH", Asset: asset.Native(), Decimals: 18, Rate: eth("2000")}); err != nil {
			return err
		}
		return reg.Register(oracle.AssetInfo{Symbol: "USDT", Asset: asset.Token(usdtAddress), Decimals: 6, Rate: eth("1")})
	}))
	return e
}

func (e *env) at(now time.Time) *env {
	e.now = now
	return e
}

func (e *env) newLedger(stub *cachestub.TxCacheStub) (*Ledger, *asset.TokenGateway) {
	ms, st := testSchedule()
	sched, err := schedule.New(crowdsale, ms, st, e.now)
	require.NoError(e.t, err)

	var gateways asset.Resolver = asset.NewStateResolver(stub)
	if e.wrap != nil {
		gateways = e.wrap(gateways)
	}
	project := asset.NewTokenGateway(stub, projectTokenAddress)

	l, err := New(stub, Config{
		Owner:             owner,
		ServiceWallet:     service,
		Fund:              fundAddr,
		TrancheFeePercent: e.fee,
		RefundWindow:      e.policy,
	}, Collaborators{
		Schedule:     sched,
		Oracle:       oracle.NewRegistry(stub, oracle.ReserveSymbols(USD), oracle.ReserveAssets(asset.Token(projectTokenAddress))),
		Gateways:     gateways,
		ProjectToken: project,
	})
	require.NoError(e.t, err)
	return l, project
}

func (e *env) run(fn func(c *txContext) error) error {
	e.t.Helper()
	e.txn++
	txID := fmt.Sprintf("tx%d", e.txn)
	e.stub.MockTransactionStart(txID)
	defer e.stub.MockTransactionEnd(txID)
	e.stub.TxTimestamp = timestamppb.New(e.now)

	cache := cachestub.NewTxCacheStub(e.stub)
	l, project := e.newLedger(cache)
	if err := fn(&txContext{stub: cache, ledger: l, project: project}); err != nil {
		return err
	}
	return cache.Commit()
}

// view returns a ledger for reading committed state.
func (e *env) view() *Ledger {
	var l *Ledger
	require.NoError(e.t, e.run(func(c *txContext) error {
		l = c.ledger
		return nil
	}))
	return l
}

func (e *env) buyETH(investor *types.Address, cost, tokens *big.Int) {
	e.t.Helper()
	require.NoError(e.t, e.run(func(c *txContext) error {
		native := asset.NewNativeGateway(c.stub)
		if err := native.Issue(investor, cost); err != nil {
			return err
		}
		if err := native.Transfer(investor, fundAddr, cost); err != nil {
			return err
		}
		if err := c.ledger.RecordPurchase(crowdsale, Purchase{
			Investor:    investor,
			TokenAmount: tokens,
			Symbol:      "ETH",
			Cost:        cost,
			CostUSD:     new(big.Int).Mul(cost, big.NewInt(2000)),
			Value:       cost,
		}); err != nil {
			return err
		}
		if err := c.project.Issue(investor, tokens); err != nil {
			return err
		}
		return c.project.Approve(investor, fundAddr, tokens)
	}))
}

func (e *env) refund(investor *types.Address, tokens *big.Int) (*Settlement, error) {
	var s *Settlement
	err := e.run(func(c *txContext) error {
		var err error
		s, err = c.ledger.Refund(investor, tokens)
		return err
	})
	return s, err
}

func (e *env) tranche(caller *types.Address) (*Settlement, error) {
	var s *Settlement
	err := e.run(func(c *txContext) error {
		var err error
		s, err = c.ledger.Tranche(caller)
		return err
	})
	return s, err
}

func (e *env) nativeOf(holder *types.Address) *big.Int {
	v, err := asset.NewNativeGateway(e.stub).BalanceOf(holder)
	require.NoError(e.t, err)
	return v
}

func (e *env) state() map[string]string {
	m := make(map[string]string, len(e.stub.State))
	for k, v := range e.stub.State {
		m[k] = string(v)
	}
	return m
}

func (e *env) requireAudit() {
	e.t.Helper()
	violations, err := e.view().Audit()
	require.NoError(e.t, err, violations)
}

// twoInvestors funds the pool with 0.1 ETH for 20 tokens from alice and
// 0.2 ETH for 30 tokens from bob.
func twoInvestors(t *testing.T) *env {
	e := newEnv(t).at(t0.Add(time.Hour))
	e.buyETH(alice, eth("0.1"), eth("20"))
	e.buyETH(bob, eth("0.2"), eth("30"))
	return e
}

type hookResolver struct {
	asset.Resolver
	before func() error
}

func (r hookResolver) Resolve(a asset.Asset) (asset.Gateway, error) {
	gw, err := r.Resolver.Resolve(a)
	if err != nil {
		return nil, err
	}
	return hookGateway{Gateway: gw, before: r.before}, nil
}

// hookGateway calls before ahead of every transfer, standing in for code
// run by the receiving side.
type hookGateway struct {
	asset.Gateway
	before func() error
}

func (g hookGateway) Transfer(from, to *types.Address, amount *big.Int) error {
	if err := g.before(); err != nil {
		return err
	}
	return g.Gateway.Transfer(from, to, amount)
}
