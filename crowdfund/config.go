package crowdfund

import (
	"errors"
	"fmt"

	"github.com/anoideaopen/crowdfund/core/config"
	"github.com/anoideaopen/crowdfund/core/fixedpoint"
	"github.com/anoideaopen/crowdfund/core/telemetry"
	"github.com/anoideaopen/crowdfund/core/types"
	"github.com/anoideaopen/crowdfund/core/types/big"
	"github.com/anoideaopen/crowdfund/fund/asset"
	"github.com/anoideaopen/crowdfund/fund/invoice"
	"github.com/anoideaopen/crowdfund/fund/ledger"
	"github.com/anoideaopen/crowdfund/fund/oracle"
	"github.com/anoideaopen/crowdfund/fund/schedule"
)

// Refund window policies selectable in the config.
const (
	RefundPolicyTerminal    = "terminal"
	RefundPolicyLatestEnded = "latestEnded"
)

// Config is the JSON document passed to Init.
type Config struct {
	Owner         *types.Address `json:"owner"`
	Crowdsale     *types.Address `json:"crowdsale"`
	ServiceWallet *types.Address `json:"serviceWallet"`
	Fund          *types.Address `json:"fund"`
	// Issuer credits payment assets bridged into the channel.
	Issuer      *types.Address `json:"issuer"`
	OracleAdmin *types.Address `json:"oracleAdmin"`

	TrancheFeePercent *big.Int `json:"trancheFeePercent"`
	RefundPolicy      string   `json:"refundPolicy,omitempty"`

	Token      TokenConfig          `json:"token"`
	Stages     []invoice.Stage      `json:"stages"`
	Milestones []schedule.Milestone `json:"milestones"`
	// Assets are registered in the oracle during Init.
	Assets []oracle.AssetInfo `json:"assets,omitempty"`

	Tracing *telemetry.CollectorEndpoint `json:"tracing,omitempty"`
}

// TokenConfig describes the project token being sold.
type TokenConfig struct {
	Symbol   string `json:"symbol"`
	Address  string `json:"address"`
	Decimals uint   `json:"decimals"`
	// Rate is the USD price of one whole token with fixedpoint.RateDecimals.
	Rate      *big.Int `json:"rate"`
	SupplyCap *big.Int `json:"supplyCap"`
}

var (
	ErrMissingAddress = errors.New("address is required")
	ErrInvalidToken   = errors.New("invalid project token")
	ErrInvalidPercent = errors.New("percent out of range")
	ErrUnknownPolicy  = errors.New("unknown refund policy")
)

// ParseConfig decodes and validates a config document.
func ParseConfig(cfgBytes []byte) (*Config, error) {
	cfg := &Config{}
	if err := config.FromBytes(cfgBytes, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	for name, addr := range map[string]*types.Address{
		"owner":         c.Owner,
		"crowdsale":     c.Crowdsale,
		"serviceWallet": c.ServiceWallet,
		"fund":          c.Fund,
		"issuer":        c.Issuer,
		"oracleAdmin":   c.OracleAdmin,
	} {
		if addr.IsEmpty() {
			return fmt.Errorf("%w: %s", ErrMissingAddress, name)
		}
	}

	if c.TrancheFeePercent == nil || c.TrancheFeePercent.Sign() < 0 || c.TrancheFeePercent.Cmp(fixedpoint.Hundred) > 0 {
		return fmt.Errorf("%w: trancheFeePercent", ErrInvalidPercent)
	}

	if _, err := c.refundWindow(); err != nil {
		return err
	}

	if err := c.Token.validate(); err != nil {
		return err
	}

	if err := schedule.Validate(c.Milestones, c.Stages); err != nil {
		return err
	}

	seen := map[string]struct{}{ledger.USD: {}, c.Token.Symbol: {}}
	used := map[asset.Asset]string{asset.Token(c.Token.Address): c.Token.Symbol}
	for _, a := range c.Assets {
		if _, ok := seen[a.Symbol]; ok {
			return fmt.Errorf("%w: %s", oracle.ErrAlreadyRegistered, a.Symbol)
		}
		if other, ok := used[a.Asset]; ok {
			return fmt.Errorf("%w: %s is %s", oracle.ErrAssetInUse, a.Asset, other)
		}
		seen[a.Symbol] = struct{}{}
		used[a.Asset] = a.Symbol
	}

	return nil
}

func (c *Config) refundWindow() (ledger.WindowPolicy, error) {
	switch c.RefundPolicy {
	case "", RefundPolicyTerminal:
		return ledger.TerminalWindow, nil
	case RefundPolicyLatestEnded:
		return ledger.LatestEndedWindow, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownPolicy, c.RefundPolicy)
	}
}

func (t TokenConfig) validate() error {
	switch {
	case t.Symbol == "":
		return fmt.Errorf("%w: symbol is empty", ErrInvalidToken)
	case t.Symbol == ledger.USD:
		return fmt.Errorf("%w: symbol %s is reserved", ErrInvalidToken, ledger.USD)
	case t.Address == "":
		return fmt.Errorf("%w: address is empty", ErrInvalidToken)
	case !t.Rate.IsPositive():
		return fmt.Errorf("%w: rate must be positive", ErrInvalidToken)
	case !t.SupplyCap.IsPositive():
		return fmt.Errorf("%w: supply cap must be positive", ErrInvalidToken)
	}
	return nil
}
