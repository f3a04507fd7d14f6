package balance

import (
	"errors"

	"github.com/anoideaopen/crowdfund/core/types/big"
	"github.com/hyperledger/fabric-chaincode-go/shim"
)

// InverseBalanceObjectType is designed for indexing the inverse balance values to retrieve
// a list of owners of a token or symbol.
const InverseBalanceObjectType = "inverse_balance"

var ErrAddressMustNotBeEmpty = errors.New("address must not be empty")

// Get retrieves the balance value for the given owner and token, constructing the appropriate composite key.
//
// Parameters:
//   - stub: shim.ChaincodeStubInterface - The chaincode stub interface for accessing ledger operations.
//   - balanceType: BalanceType - The type of balance to retrieve, which determines the state key's prefix.
//   - owner: string - The address or symbol the balance belongs to.
//   - token: string - The token identifier. If empty, the balance associated with the owner alone is retrieved.
//
// Returns:
//   - *big.Int - The balance value associated with the composite key, zero if absent.
//   - error - An error if the retrieval fails, otherwise nil.
func Get(
	stub shim.ChaincodeStubInterface,
	balanceType BalanceType,
	owner string,
	token string,
) (*big.Int, error) {
	compositeKey, err := primaryKey(stub, balanceType, owner, token)
	if err != nil {
		return nil, err
	}

	balanceBytes, err := stub.GetState(compositeKey)
	if err != nil {
		return nil, err
	}

	return new(big.Int).SetBytes(balanceBytes), nil
}

// Put stores the balance for a given owner and token into the ledger.
// When a token is given, an inverse index entry (type, token, owner) is
// written alongside so that all owners of a token can be listed.
func Put(
	stub shim.ChaincodeStubInterface,
	balanceType BalanceType,
	owner string,
	token string,
	value *big.Int,
) error {
	compositeKey, err := primaryKey(stub, balanceType, owner, token)
	if err != nil {
		return err
	}

	if err = stub.PutState(compositeKey, value.Bytes()); err != nil {
		return err
	}

	if token == "" {
		return nil
	}

	inverseCompositeKey, err := stub.CreateCompositeKey(
		InverseBalanceObjectType,
		[]string{balanceType.String(), token, owner},
	)
	if err != nil {
		return err
	}

	return stub.PutState(inverseCompositeKey, value.Bytes())
}

func primaryKey(
	stub shim.ChaincodeStubInterface,
	balanceType BalanceType,
	owner string,
	token string,
) (string, error) {
	if owner == "" {
		return "", ErrAddressMustNotBeEmpty
	}

	attributes := []string{owner}
	if token != "" {
		attributes = append(attributes, token)
	}

	return stub.CreateCompositeKey(balanceType.String(), attributes)
}
