package balance

import (
	"errors"

	"github.com/anoideaopen/crowdfund/core/types/big"
	"github.com/hyperledger/fabric-chaincode-go/shim"
)

// Error definitions for balance operations.
var (
	ErrAmountMustBeNonNegative = errors.New("amount must be non-negative")
	ErrInsufficientBalance     = errors.New("insufficient balance")
)

// Add adds the given amount to the balance for the specified owner and token.
func Add(
	stub shim.ChaincodeStubInterface,
	balanceType BalanceType,
	owner string,
	token string,
	amount *big.Int,
) error {
	if amount.Sign() < 0 {
		return ErrAmountMustBeNonNegative
	}

	currentBalance, err := Get(stub, balanceType, owner, token)
	if err != nil {
		return err
	}

	return Put(stub, balanceType, owner, token, new(big.Int).Add(currentBalance, amount))
}

// Sub subtracts the given amount from the balance for the specified owner and token.
// The balance never goes negative: ErrInsufficientBalance is returned instead.
func Sub(
	stub shim.ChaincodeStubInterface,
	balanceType BalanceType,
	owner string,
	token string,
	amount *big.Int,
) error {
	if amount.Sign() < 0 {
		return ErrAmountMustBeNonNegative
	}

	currentBalance, err := Get(stub, balanceType, owner, token)
	if err != nil {
		return err
	}

	if currentBalance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}

	return Put(stub, balanceType, owner, token, new(big.Int).Sub(currentBalance, amount))
}

// Move moves the given amount from the balance of one owner to the balance of another
// within the same balance type and token.
func Move(
	stub shim.ChaincodeStubInterface,
	balanceType BalanceType,
	sourceOwner string,
	destOwner string,
	token string,
	amount *big.Int,
) error {
	if err := Sub(stub, balanceType, sourceOwner, token, amount); err != nil {
		return err
	}

	return Add(stub, balanceType, destOwner, token, amount)
}
