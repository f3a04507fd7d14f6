package asset

import (
	"encoding/json"
	"errors"

	"github.com/anoideaopen/crowdfund/core/balance"
	"github.com/anoideaopen/crowdfund/core/types"
	"github.com/anoideaopen/crowdfund/core/types/big"
	"github.com/hyperledger/fabric-chaincode-go/shim"
)

const (
	counterSupply = "supply"

	// EventApproval is raised when an allowance is set.
	EventApproval = "Approval"
)

// ApprovalEvent reports a new allowance of spender over owner's tokens.
type ApprovalEvent struct {
	Asset   Asset          `json:"asset"`
	Owner   *types.Address `json:"owner"`
	Spender *types.Address `json:"spender"`
	Amount  *big.Int       `json:"amount"`
}

// TokenGateway keeps balances and allowances of one fungible token in world state.
type TokenGateway struct {
	stub    shim.ChaincodeStubInterface
	address string
}

func NewTokenGateway(stub shim.ChaincodeStubInterface, address string) *TokenGateway {
	return &TokenGateway{stub: stub, address: address}
}

func (g *TokenGateway) Asset() Asset {
	return Token(g.address)
}

func (g *TokenGateway) BalanceOf(holder *types.Address) (*big.Int, error) {
	if holder.IsEmpty() {
		return nil, ErrEmptyParty
	}
	return balance.Get(g.stub, balance.BalanceTypeAsset, holder.String(), g.address)
}

func (g *TokenGateway) Transfer(from, to *types.Address, amount *big.Int) error {
	if err := checkTransfer(from, to, amount); err != nil {
		return err
	}
	return g.move(from, to, amount)
}

// Approve sets the amount spender may pull from owner with TransferFrom.
// A zero amount revokes the allowance.
func (g *TokenGateway) Approve(owner, spender *types.Address, amount *big.Int) error {
	if owner.IsEmpty() || spender.IsEmpty() {
		return ErrEmptyParty
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrNonPositiveAmount
	}

	if err := balance.Put(g.stub, balance.BalanceTypeAllowance, owner.String(), g.allowanceToken(spender), amount); err != nil {
		return err
	}

	payload, err := json.Marshal(ApprovalEvent{Asset: g.Asset(), Owner: owner, Spender: spender, Amount: amount})
	if err != nil {
		return err
	}
	return g.stub.SetEvent(EventApproval, payload)
}

func (g *TokenGateway) Allowance(owner, spender *types.Address) (*big.Int, error) {
	if owner.IsEmpty() || spender.IsEmpty() {
		return nil, ErrEmptyParty
	}
	return balance.Get(g.stub, balance.BalanceTypeAllowance, owner.String(), g.allowanceToken(spender))
}

// TransferFrom moves amount from `from` to `to` on behalf of spender,
// consuming spender's allowance.
func (g *TokenGateway) TransferFrom(spender, from, to *types.Address, amount *big.Int) error {
	if err := checkTransfer(from, to, amount); err != nil {
		return err
	}
	if spender.IsEmpty() {
		return ErrEmptyParty
	}

	allowance, err := g.Allowance(from, spender)
	if err != nil {
		return err
	}
	if allowance.Cmp(amount) < 0 {
		return ErrInsufficientAllowance
	}

	held, err := g.BalanceOf(from)
	if err != nil {
		return err
	}
	if held.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}

	if err = balance.Put(
		g.stub,
		balance.BalanceTypeAllowance,
		from.String(),
		g.allowanceToken(spender),
		new(big.Int).Sub(allowance, amount),
	); err != nil {
		return err
	}

	return g.move(from, to, amount)
}

// Issue mints amount to `to` and grows the total supply.
func (g *TokenGateway) Issue(to *types.Address, amount *big.Int) error {
	if to.IsEmpty() {
		return ErrEmptyParty
	}
	if err := checkAmount(amount); err != nil {
		return err
	}

	if err := balance.Add(g.stub, balance.BalanceTypeAsset, to.String(), g.address, amount); err != nil {
		return err
	}
	if err := balance.Add(g.stub, balance.BalanceTypeCounter, counterSupply, g.address, amount); err != nil {
		return err
	}

	return emitTransfer(g.stub, TransferEvent{Asset: g.Asset(), To: to, Amount: amount})
}

// TotalSupply returns the amount issued so far.
func (g *TokenGateway) TotalSupply() (*big.Int, error) {
	return balance.Get(g.stub, balance.BalanceTypeCounter, counterSupply, g.address)
}

func (g *TokenGateway) move(from, to *types.Address, amount *big.Int) error {
	err := balance.Move(g.stub, balance.BalanceTypeAsset, from.String(), to.String(), g.address, amount)
	if errors.Is(err, balance.ErrInsufficientBalance) {
		return ErrInsufficientFunds
	}
	if err != nil {
		return err
	}

	return emitTransfer(g.stub, TransferEvent{Asset: g.Asset(), From: from, To: to, Amount: amount})
}

func (g *TokenGateway) allowanceToken(spender *types.Address) string {
	return g.address + "/" + spender.String()
}
