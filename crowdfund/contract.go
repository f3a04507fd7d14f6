// Package crowdfund is the crowdfund chaincode contract: it wires the fund
// ledger, the invoicer, the oracle registry and the asset gateways to
// chaincode functions.
package crowdfund

import (
	"fmt"

	"github.com/anoideaopen/crowdfund/core"
	"github.com/anoideaopen/crowdfund/fund"
	"github.com/anoideaopen/crowdfund/fund/asset"
	"github.com/anoideaopen/crowdfund/fund/ledger"
	"github.com/anoideaopen/crowdfund/fund/oracle"
	"github.com/anoideaopen/crowdfund/fund/schedule"
)

var (
	ErrNotOracleAdmin = fund.NewError(fund.ErrUnauthorized, "sender is not the oracle admin")
	ErrNotIssuer      = fund.NewError(fund.ErrUnauthorized, "sender is not the issuer")
	ErrNoActiveStage  = fund.NewError(fund.ErrScheduleGate, "no pricing stage is active")
	ErrNothingToBuy   = fund.NewError(fund.ErrInputValidation, "payment buys no tokens")
	ErrSoldOut        = fund.NewError(fund.ErrScheduleGate, "token supply cap reached")
)

// Contract is the crowdfund chaincode. Its configuration is applied before
// every invocation.
type Contract struct {
	core.BaseContract
	config *Config
}

var (
	_ core.Contract    = (*Contract)(nil)
	_ core.Initializer = (*Contract)(nil)
)

func NewContract() *Contract {
	return &Contract{}
}

func (c *Contract) ValidateConfig(cfgBytes []byte) error {
	_, err := ParseConfig(cfgBytes)
	return err
}

func (c *Contract) Configure(cfgBytes []byte) error {
	cfg, err := ParseConfig(cfgBytes)
	if err != nil {
		return err
	}
	c.config = cfg
	c.SetTracingSettings(cfg.Tracing)
	return nil
}

// Config returns the applied configuration.
func (c *Contract) Config() *Config {
	return c.config
}

// InitLedger registers the payment assets listed in the config.
func (c *Contract) InitLedger() error {
	registry := c.registry()
	for _, info := range c.config.Assets {
		if err := registry.Register(info); err != nil {
			return fmt.Errorf("registering %s: %w", info.Symbol, err)
		}
	}
	return nil
}

// components are the collaborators of one invocation, bound to its stub
// and tx time.
type components struct {
	schedule *schedule.Schedule
	registry *oracle.Registry
	gateways *asset.StateResolver
	token    *asset.TokenGateway
	ledger   *ledger.Ledger
}

func (c *Contract) components() (*components, error) {
	stub := c.GetStub()

	ts, err := stub.GetTxTimestamp()
	if err != nil {
		return nil, err
	}

	sched, err := schedule.New(c.config.Crowdsale, c.config.Milestones, c.config.Stages, ts.AsTime())
	if err != nil {
		return nil, err
	}

	gateways := asset.NewStateResolver(stub)
	token, err := gateways.Token(c.config.Token.Address)
	if err != nil {
		return nil, err
	}

	policy, err := c.config.refundWindow()
	if err != nil {
		return nil, err
	}

	registry := c.registry()

	l, err := ledger.New(stub, ledger.Config{
		Owner:             c.config.Owner,
		ServiceWallet:     c.config.ServiceWallet,
		Fund:              c.config.Fund,
		TrancheFeePercent: c.config.TrancheFeePercent,
		RefundWindow:      policy,
	}, ledger.Collaborators{
		Schedule:     sched,
		Oracle:       registry,
		Gateways:     gateways,
		ProjectToken: token,
	})
	if err != nil {
		return nil, err
	}

	return &components{
		schedule: sched,
		registry: registry,
		gateways: gateways,
		token:    token,
		ledger:   l,
	}, nil
}

// registry refuses the accounting pseudo-symbol and the project token symbol.
func (c *Contract) registry() *oracle.Registry {
	return oracle.NewRegistry(c.GetStub(),
		oracle.ReserveSymbols(ledger.USD, c.config.Token.Symbol),
		oracle.ReserveAssets(asset.Token(c.config.Token.Address)),
	)
}

// gateway resolves the project token symbol or a registered payment asset.
func (cs *components) gateway(symbol string, projectSymbol string) (asset.Gateway, error) {
	if symbol == projectSymbol {
		return cs.token, nil
	}

	info, err := cs.registry.Get(symbol)
	if err != nil {
		return nil, err
	}

	return cs.gateways.Resolve(info.Asset)
}
