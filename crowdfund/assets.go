package crowdfund

import (
	"github.com/anoideaopen/crowdfund/core/routing"
	"github.com/anoideaopen/crowdfund/core/types"
	"github.com/anoideaopen/crowdfund/core/types/big"
	"github.com/anoideaopen/crowdfund/fund/asset"
	"github.com/anoideaopen/crowdfund/fund/oracle"
)

var nativeAsset = asset.Native()

// TxApprove lets spender move amount of the sender's project tokens.
// Investors approve the fund address before a refund.
func (c *Contract) TxApprove(sender *types.Sender, spender *types.Address, amount *big.Int) error {
	cs, err := c.components()
	if err != nil {
		return err
	}
	return cs.token.Approve(sender.Address(), spender, amount)
}

// TxTransfer moves the project token or a registered payment asset.
func (c *Contract) TxTransfer(sender *types.Sender, symbol string, to *types.Address, amount *big.Int) error {
	cs, err := c.components()
	if err != nil {
		return err
	}
	gw, err := cs.gateway(symbol, c.config.Token.Symbol)
	if err != nil {
		return err
	}
	return gw.Transfer(sender.Address(), to, amount)
}

// TxIssueAsset credits a registered payment asset bridged into the channel.
func (c *Contract) TxIssueAsset(sender *types.Sender, symbol string, to *types.Address, amount *big.Int) error {
	if !sender.Equal(c.config.Issuer) {
		return ErrNotIssuer
	}

	cs, err := c.components()
	if err != nil {
		return err
	}
	info, err := cs.registry.Get(symbol)
	if err != nil {
		return err
	}
	gw, err := cs.gateways.Resolve(info.Asset)
	if err != nil {
		return err
	}
	return gw.Issue(to, amount)
}

// TxRegisterAsset registers a payment asset given as an AssetInfo document.
func (c *Contract) TxRegisterAsset(sender *types.Sender, info oracle.AssetInfo) error {
	if !sender.Equal(c.config.OracleAdmin) {
		return ErrNotOracleAdmin
	}
	return c.registry().Register(info)
}

// TxSetRate updates the USD rate of a payment asset.
func (c *Contract) TxSetRate(sender *types.Sender, symbol string, rate *big.Int) error {
	if !sender.Equal(c.config.OracleAdmin) {
		return ErrNotOracleAdmin
	}
	return c.registry().SetRate(symbol, rate)
}

// TxSetLimits bounds a single payment in the asset; zero max is unbounded.
func (c *Contract) TxSetLimits(sender *types.Sender, symbol string, minLimit, maxLimit *big.Int) error {
	if !sender.Equal(c.config.OracleAdmin) {
		return ErrNotOracleAdmin
	}
	return c.registry().SetLimits(symbol, minLimit, maxLimit)
}

// QueryBalanceOf returns the balance of the project token or a payment asset.
func (c *Contract) QueryBalanceOf(symbol string, holder *types.Address) (*big.Int, error) {
	cs, err := c.components()
	if err != nil {
		return nil, err
	}
	gw, err := cs.gateway(symbol, c.config.Token.Symbol)
	if err != nil {
		return nil, err
	}
	return gw.BalanceOf(holder)
}

// QueryAllowance returns the project tokens spender may move for owner.
func (c *Contract) QueryAllowance(owner, spender *types.Address) (*big.Int, error) {
	cs, err := c.components()
	if err != nil {
		return nil, err
	}
	return cs.token.Allowance(owner, spender)
}

func (c *Contract) QueryRate(symbol string) (*oracle.AssetInfo, error) {
	info, err := c.registry().Get(symbol)
	if err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Contract) QueryAssets() ([]oracle.AssetInfo, error) {
	return c.registry().List()
}

// Metadata describes the sale.
type Metadata struct {
	Token       TokenConfig `json:"token"`
	TotalSupply *big.Int    `json:"totalSupply"`
	Owner       string      `json:"owner"`
	Crowdsale   string      `json:"crowdsale"`
	Fund        string      `json:"fund"`
	Methods     []string    `json:"methods"`
}

func (c *Contract) QueryMetadata() (*Metadata, error) {
	cs, err := c.components()
	if err != nil {
		return nil, err
	}
	supply, err := cs.token.TotalSupply()
	if err != nil {
		return nil, err
	}
	router, err := routing.NewRouter(c)
	if err != nil {
		return nil, err
	}

	return &Metadata{
		Token:       c.config.Token,
		TotalSupply: supply,
		Owner:       c.config.Owner.String(),
		Crowdsale:   c.config.Crowdsale.String(),
		Fund:        c.config.Fund.String(),
		Methods:     router.Functions(),
	}, nil
}
