package balance

import (
	"github.com/anoideaopen/crowdfund/core/types/big"
	"github.com/hyperledger/fabric-chaincode-go/shim"
)

// TokenBalance represents a balance entry with a token identifier and its associated value.
type TokenBalance struct {
	Owner   string
	Token   string
	Balance *big.Int
}

// ListBalancesByOwner fetches all balance entries associated with the given owner.
// Only committed state is visible: writes buffered in the current
// transaction are not returned by range queries.
func ListBalancesByOwner(
	stub shim.ChaincodeStubInterface,
	balanceType BalanceType,
	owner string,
) ([]TokenBalance, error) {
	stateIterator, err := stub.GetStateByPartialCompositeKey(
		balanceType.String(),
		[]string{owner},
	)
	if err != nil {
		return nil, err
	}
	defer stateIterator.Close()

	var balances []TokenBalance
	for stateIterator.HasNext() {
		response, err := stateIterator.Next()
		if err != nil {
			return nil, err
		}

		_, components, err := stub.SplitCompositeKey(response.GetKey())
		if err != nil {
			return nil, err
		}

		if len(components) < 2 {
			continue
		}

		balances = append(balances, TokenBalance{
			Owner:   components[0],
			Token:   components[1],
			Balance: new(big.Int).SetBytes(response.GetValue()),
		})
	}

	return balances, nil
}

// ListOwnersByToken fetches all owners and their balances for a specific token.
func ListOwnersByToken(
	stub shim.ChaincodeStubInterface,
	balanceType BalanceType,
	token string,
) ([]TokenBalance, error) {
	stateIterator, err := stub.GetStateByPartialCompositeKey(
		InverseBalanceObjectType,
		[]string{balanceType.String(), token},
	)
	if err != nil {
		return nil, err
	}
	defer stateIterator.Close()

	var owners []TokenBalance
	for stateIterator.HasNext() {
		response, err := stateIterator.Next()
		if err != nil {
			return nil, err
		}

		_, components, err := stub.SplitCompositeKey(response.GetKey())
		if err != nil {
			return nil, err
		}

		if len(components) < 3 {
			continue
		}

		owners = append(owners, TokenBalance{
			Token:   components[1],
			Owner:   components[2],
			Balance: new(big.Int).SetBytes(response.GetValue()),
		})
	}

	return owners, nil
}

// ListAll fetches every single-attribute balance of the given type, for
// example all investors' token balances.
func ListAll(
	stub shim.ChaincodeStubInterface,
	balanceType BalanceType,
) ([]TokenBalance, error) {
	stateIterator, err := stub.GetStateByPartialCompositeKey(balanceType.String(), []string{})
	if err != nil {
		return nil, err
	}
	defer stateIterator.Close()

	var balances []TokenBalance
	for stateIterator.HasNext() {
		response, err := stateIterator.Next()
		if err != nil {
			return nil, err
		}

		_, components, err := stub.SplitCompositeKey(response.GetKey())
		if err != nil {
			return nil, err
		}

		if len(components) != 1 {
			continue
		}

		balances = append(balances, TokenBalance{
			Owner:   components[0],
			Balance: new(big.Int).SetBytes(response.GetValue()),
		})
	}

	return balances, nil
}
