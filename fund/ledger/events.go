package ledger

import (
	"encoding/json"

	"github.com/anoideaopen/crowdfund/core/types"
	"github.com/anoideaopen/crowdfund/core/types/big"
)

// Event names.
const (
	EventFundsReceived   = "FundsReceived"
	EventTrancheTransfer = "TrancheTransfer"
	EventTrancheReleased = "TrancheReleased"
	EventAssetRefunded   = "AssetRefunded"
	EventTokensRefunded  = "TokensRefunded"
)

type FundsReceivedEvent struct {
	Investor    *types.Address `json:"investor"`
	TokenAmount *big.Int       `json:"tokenAmount"`
	Symbol      string         `json:"symbol"`
	Cost        *big.Int       `json:"cost"`
	CostUSD     *big.Int       `json:"costUSD"`
}

type TrancheTransferEvent struct {
	Symbol string         `json:"symbol"`
	Owner  *types.Address `json:"owner"`
	Amount *big.Int       `json:"amount"`
	Fee    *big.Int       `json:"fee"`
}

type TrancheReleasedEvent struct {
	Milestones []int    `json:"milestones"`
	Percent    *big.Int `json:"percent"`
}

type AssetRefundedEvent struct {
	Investor *types.Address `json:"investor"`
	Symbol   string         `json:"symbol"`
	Amount   *big.Int       `json:"amount"`
}

type TokensRefundedEvent struct {
	Investor    *types.Address `json:"investor"`
	TokenAmount *big.Int       `json:"tokenAmount"`
}

func (l *Ledger) emit(name string, ev any) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return l.stub.SetEvent(name, payload)
}
