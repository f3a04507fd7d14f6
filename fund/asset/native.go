package asset

import (
	"errors"

	"github.com/anoideaopen/crowdfund/core/balance"
	"github.com/anoideaopen/crowdfund/core/types"
	"github.com/anoideaopen/crowdfund/core/types/big"
	"github.com/hyperledger/fabric-chaincode-go/shim"
)

// NativeGateway keeps native currency balances in world state.
type NativeGateway struct {
	stub shim.ChaincodeStubInterface
}

func NewNativeGateway(stub shim.ChaincodeStubInterface) *NativeGateway {
	return &NativeGateway{stub: stub}
}

func (g *NativeGateway) Asset() Asset {
	return Native()
}

func (g *NativeGateway) BalanceOf(holder *types.Address) (*big.Int, error) {
	if holder.IsEmpty() {
		return nil, ErrEmptyParty
	}
	return balance.Get(g.stub, balance.BalanceTypeNative, holder.String(), "")
}

func (g *NativeGateway) Transfer(from, to *types.Address, amount *big.Int) error {
	if err := checkTransfer(from, to, amount); err != nil {
		return err
	}

	err := balance.Move(g.stub, balance.BalanceTypeNative, from.String(), to.String(), "", amount)
	if errors.Is(err, balance.ErrInsufficientBalance) {
		return ErrInsufficientFunds
	}
	if err != nil {
		return err
	}

	return emitTransfer(g.stub, TransferEvent{Asset: Native(), From: from, To: to, Amount: amount})
}

// Issue credits native currency bridged into the channel.
func (g *NativeGateway) Issue(to *types.Address, amount *big.Int) error {
	if to.IsEmpty() {
		return ErrEmptyParty
	}
	if err := checkAmount(amount); err != nil {
		return err
	}

	if err := balance.Add(g.stub, balance.BalanceTypeNative, to.String(), "", amount); err != nil {
		return err
	}

	return emitTransfer(g.stub, TransferEvent{Asset: Native(), To: to, Amount: amount})
}
