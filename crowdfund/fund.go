package crowdfund

import (
	"errors"

	"github.com/anoideaopen/crowdfund/core/fixedpoint"
	"github.com/anoideaopen/crowdfund/core/logger"
	"github.com/anoideaopen/crowdfund/core/types"
	"github.com/anoideaopen/crowdfund/core/types/big"
	"github.com/anoideaopen/crowdfund/fund/invoice"
	"github.com/anoideaopen/crowdfund/fund/ledger"
	"github.com/anoideaopen/crowdfund/fund/oracle"
	"github.com/anoideaopen/crowdfund/fund/schedule"
)

// Receipt is the outcome of a checkout.
type Receipt struct {
	Investor *types.Address  `json:"investor"`
	Symbol   string          `json:"symbol"`
	Payment  *big.Int        `json:"payment"`
	Invoice  invoice.Invoice `json:"invoice"`
}

// TxBuy sells project tokens for payment of a registered asset at the terms
// of the active pricing stage. The payment is taken into fund custody, the
// purchase is recorded on behalf of the crowdsale, the change is returned
// and the tokens are issued to the buyer.
func (c *Contract) TxBuy(sender *types.Sender, symbol string, payment *big.Int) (*Receipt, error) {
	cs, err := c.components()
	if err != nil {
		return nil, err
	}

	inv, info, err := c.price(cs, symbol, payment)
	if err != nil {
		return nil, err
	}
	if inv.IsZero() {
		return nil, ErrNothingToBuy
	}

	gw, err := cs.gateways.Resolve(info.Asset)
	if err != nil {
		return nil, err
	}

	buyer := sender.Address()
	if err = gw.Transfer(buyer, c.config.Fund, payment); err != nil {
		return nil, err
	}

	value := big.NewInt(0)
	if info.Asset.IsNative() {
		value = payment
	}

	if err = cs.ledger.RecordPurchase(c.config.Crowdsale, ledger.Purchase{
		Investor:    buyer,
		TokenAmount: inv.TokenAmount,
		Symbol:      symbol,
		Cost:        inv.Cost,
		CostUSD:     inv.CostUSD,
		Value:       value,
	}); err != nil {
		return nil, err
	}

	if inv.Change.IsPositive() {
		if err = gw.Transfer(c.config.Fund, buyer, inv.Change); err != nil {
			return nil, err
		}
	}

	if err = cs.token.Issue(buyer, inv.TokenAmount); err != nil {
		return nil, err
	}

	logger.Logger().Infof("checkout: %s bought %s %s for %s %s",
		buyer, inv.TokenAmount, c.config.Token.Symbol, inv.Cost, symbol)

	return &Receipt{
		Investor: buyer,
		Symbol:   symbol,
		Payment:  payment,
		Invoice:  inv,
	}, nil
}

// price computes the invoice of a payment at the current stage terms.
func (c *Contract) price(cs *components, symbol string, payment *big.Int) (invoice.Invoice, oracle.AssetInfo, error) {
	stage, ok, err := cs.schedule.ActiveStage()
	if err != nil {
		return invoice.Invoice{}, oracle.AssetInfo{}, err
	}
	if !ok {
		return invoice.Invoice{}, oracle.AssetInfo{}, ErrNoActiveStage
	}

	info, err := cs.registry.Get(symbol)
	if err != nil {
		return invoice.Invoice{}, oracle.AssetInfo{}, err
	}
	if err = info.CheckLimits(payment); err != nil {
		return invoice.Invoice{}, oracle.AssetInfo{}, err
	}

	bought, err := cs.ledger.TotalTokenBought()
	if err != nil {
		return invoice.Invoice{}, oracle.AssetInfo{}, err
	}
	remaining := new(big.Int).Sub(c.config.Token.SupplyCap, bought)
	if !remaining.IsPositive() {
		return invoice.Invoice{}, oracle.AssetInfo{}, ErrSoldOut
	}

	inv, err := invoice.Compute(invoice.Request{
		Payment:         payment,
		AssetRate:       info.Rate,
		AssetDecimals:   info.Decimals,
		TokenRate:       c.config.Token.Rate,
		TokenDecimals:   c.config.Token.Decimals,
		RemainingSupply: remaining,
	}.ForStage(stage))
	if err != nil {
		return invoice.Invoice{}, oracle.AssetInfo{}, err
	}

	return inv, info, nil
}

// TxRecordPurchase books a purchase made by an external crowdsale. A
// positive value is the native currency the crowdsale forwards with it.
func (c *Contract) TxRecordPurchase(
	sender *types.Sender,
	investor *types.Address,
	tokenAmount *big.Int,
	symbol string,
	cost *big.Int,
	costUSD *big.Int,
	value *big.Int,
) error {
	if !sender.Equal(c.config.Crowdsale) {
		return ledger.ErrNotCrowdsale
	}

	cs, err := c.components()
	if err != nil {
		return err
	}

	if value.IsPositive() {
		native, err := cs.gateways.Resolve(nativeAsset)
		if err != nil {
			return err
		}
		if err = native.Transfer(sender.Address(), c.config.Fund, value); err != nil {
			return err
		}
	}

	return cs.ledger.RecordPurchase(sender.Address(), ledger.Purchase{
		Investor:    investor,
		TokenAmount: tokenAmount,
		Symbol:      symbol,
		Cost:        cost,
		CostUSD:     costUSD,
		Value:       value,
	})
}

// TxTranche releases the due milestone tranches to the owner.
func (c *Contract) TxTranche(sender *types.Sender) (*ledger.Settlement, error) {
	cs, err := c.components()
	if err != nil {
		return nil, err
	}
	return cs.ledger.Tranche(sender.Address())
}

// TxRefund returns tokenAmount project tokens of the sender for the
// unreleased share of their contributions. The fund must be approved to
// pull the tokens.
func (c *Contract) TxRefund(sender *types.Sender, tokenAmount *big.Int) (*ledger.Settlement, error) {
	cs, err := c.components()
	if err != nil {
		return nil, err
	}
	return cs.ledger.Refund(sender.Address(), tokenAmount)
}

// QueryInvoice prices a payment given in smallest units.
func (c *Contract) QueryInvoice(symbol string, payment *big.Int) (*invoice.Invoice, error) {
	cs, err := c.components()
	if err != nil {
		return nil, err
	}
	inv, _, err := c.price(cs, symbol, payment)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// Quote is an invoice in whole units.
type Quote struct {
	Symbol      string `json:"symbol"`
	Payment     string `json:"payment"`
	TokenAmount string `json:"tokenAmount"`
	Cost        string `json:"cost"`
	Change      string `json:"change"`
	CostUSD     string `json:"costUSD"`
}

// QueryQuote prices a payment given in whole units, such as "0.5".
func (c *Contract) QueryQuote(symbol string, payment string) (*Quote, error) {
	cs, err := c.components()
	if err != nil {
		return nil, err
	}

	info, err := cs.registry.Get(symbol)
	if err != nil {
		return nil, err
	}
	amount, err := fixedpoint.ParseUnits(payment, info.Decimals)
	if err != nil {
		return nil, err
	}

	inv, _, err := c.price(cs, symbol, amount)
	if err != nil {
		return nil, err
	}

	return &Quote{
		Symbol:      symbol,
		Payment:     fixedpoint.FormatUnits(amount, info.Decimals),
		TokenAmount: fixedpoint.FormatUnits(inv.TokenAmount, c.config.Token.Decimals),
		Cost:        fixedpoint.FormatUnits(inv.Cost, info.Decimals),
		Change:      fixedpoint.FormatUnits(inv.Change, info.Decimals),
		CostUSD:     fixedpoint.FormatUnits(inv.CostUSD, fixedpoint.USDDecimals),
	}, nil
}

func (c *Contract) QueryLedgerSnapshot() (*ledger.Snapshot, error) {
	cs, err := c.components()
	if err != nil {
		return nil, err
	}
	return cs.ledger.Snapshot()
}

func (c *Contract) QueryInvestor(investor *types.Address) (*ledger.InvestorPosition, error) {
	cs, err := c.components()
	if err != nil {
		return nil, err
	}
	return cs.ledger.Investor(investor)
}

// AuditReport lists the accounting invariants found broken.
type AuditReport struct {
	Consistent bool     `json:"consistent"`
	Violations []string `json:"violations,omitempty"`
}

func (c *Contract) QueryAudit() (*AuditReport, error) {
	cs, err := c.components()
	if err != nil {
		return nil, err
	}

	violations, err := cs.ledger.Audit()
	if err != nil && !errors.Is(err, ledger.ErrAuditFailed) {
		return nil, err
	}

	return &AuditReport{Consistent: len(violations) == 0, Violations: violations}, nil
}

// ScheduleState is the sale schedule as seen at the tx time.
type ScheduleState struct {
	SaleEnded        bool                 `json:"saleEnded"`
	CurrentMilestone *int                 `json:"currentMilestone,omitempty"`
	Stages           []invoice.Stage      `json:"stages"`
	Milestones       []schedule.Milestone `json:"milestones"`
}

func (c *Contract) QuerySchedule() (*ScheduleState, error) {
	cs, err := c.components()
	if err != nil {
		return nil, err
	}

	ended, err := cs.schedule.IsSaleEnded()
	if err != nil {
		return nil, err
	}

	state := &ScheduleState{
		SaleEnded:  ended,
		Stages:     cs.schedule.Stages(),
		Milestones: cs.schedule.Milestones(),
	}

	current, ok, err := cs.schedule.CurrentMilestoneIndex()
	if err != nil {
		return nil, err
	}
	if ok {
		state.CurrentMilestone = &current
	}

	return state, nil
}
