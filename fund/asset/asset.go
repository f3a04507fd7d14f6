// Package asset moves value in and out of fund custody. A payment asset is
// either the native currency of the channel or a fungible token identified
// by its address; both are served through the same Gateway interface.
package asset

import (
	"encoding/json"
	"fmt"

	"github.com/anoideaopen/crowdfund/core/types"
	"github.com/anoideaopen/crowdfund/core/types/big"
	"github.com/anoideaopen/crowdfund/fund"
	"github.com/hyperledger/fabric-chaincode-go/shim"
)

type Kind uint8

const (
	KindNative Kind = iota
	KindToken
)

func (k Kind) String() string {
	switch k {
	case KindNative:
		return "native"
	case KindToken:
		return "token"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Asset is a tagged variant: native currency, or a token at Address.
type Asset struct {
	Kind    Kind   `json:"kind"`
	Address string `json:"address,omitempty"`
}

func Native() Asset {
	return Asset{Kind: KindNative}
}

func Token(address string) Asset {
	return Asset{Kind: KindToken, Address: address}
}

func (a Asset) IsNative() bool {
	return a.Kind == KindNative
}

func (a Asset) String() string {
	if a.IsNative() {
		return KindNative.String()
	}
	return KindToken.String() + ":" + a.Address
}

func (a Asset) Validate() error {
	switch a.Kind {
	case KindNative:
		if a.Address != "" {
			return ErrNativeWithAddress
		}
	case KindToken:
		if a.Address == "" {
			return ErrTokenWithoutAddress
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownKind, a.Kind)
	}
	return nil
}

var (
	ErrUnknownKind           = fund.NewError(fund.ErrInputValidation, "unknown asset kind")
	ErrNativeWithAddress     = fund.NewError(fund.ErrInputValidation, "native asset has no address")
	ErrTokenWithoutAddress   = fund.NewError(fund.ErrInputValidation, "token asset requires an address")
	ErrEmptyParty            = fund.NewError(fund.ErrInputValidation, "transfer party is empty")
	ErrNonPositiveAmount     = fund.NewError(fund.ErrInputValidation, "amount must be positive")
	ErrInsufficientFunds     = fund.NewError(fund.ErrLiquidityShortfall, "insufficient funds")
	ErrInsufficientAllowance = fund.NewError(fund.ErrInputValidation, "insufficient allowance")
)

// Gateway moves one asset between holders.
type Gateway interface {
	Asset() Asset
	BalanceOf(holder *types.Address) (*big.Int, error)
	Transfer(from, to *types.Address, amount *big.Int) error
	Issue(to *types.Address, amount *big.Int) error
}

// Resolver picks the gateway serving an asset.
type Resolver interface {
	Resolve(a Asset) (Gateway, error)
}

// StateResolver resolves gateways that keep balances in world state.
type StateResolver struct {
	stub shim.ChaincodeStubInterface
}

func NewStateResolver(stub shim.ChaincodeStubInterface) *StateResolver {
	return &StateResolver{stub: stub}
}

func (r *StateResolver) Resolve(a Asset) (Gateway, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if a.IsNative() {
		return NewNativeGateway(r.stub), nil
	}
	return NewTokenGateway(r.stub, a.Address), nil
}

// Token resolves the token gateway for address. It is used where a token
// specific operation such as TransferFrom is needed.
func (r *StateResolver) Token(address string) (*TokenGateway, error) {
	if address == "" {
		return nil, ErrTokenWithoutAddress
	}
	return NewTokenGateway(r.stub, address), nil
}

// EventTransfer is raised for every completed transfer or issue.
const EventTransfer = "Transfer"

type TransferEvent struct {
	Asset  Asset          `json:"asset"`
	From   *types.Address `json:"from,omitempty"`
	To     *types.Address `json:"to"`
	Amount *big.Int       `json:"amount"`
}

func emitTransfer(stub shim.ChaincodeStubInterface, ev TransferEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return stub.SetEvent(EventTransfer, payload)
}

func checkTransfer(from, to *types.Address, amount *big.Int) error {
	if from.IsEmpty() || to.IsEmpty() {
		return ErrEmptyParty
	}
	return checkAmount(amount)
}

func checkAmount(amount *big.Int) error {
	if !amount.IsPositive() {
		return ErrNonPositiveAmount
	}
	return nil
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	switch k {
	case KindNative, KindToken:
		return []byte(k.String()), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, uint8(k))
	}
}

// UnmarshalText decodes a kind name.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseKind converts "native" or "token" to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case KindNative.String():
		return KindNative, nil
	case KindToken.String():
		return KindToken, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}
