package types

import (
	"fmt"
	"strconv"

	"github.com/anoideaopen/crowdfund/core/types/big"
)

// ParseAmount converts a decimal chaincode argument to a non-negative Int.
func ParseAmount(in string) (*big.Int, error) {
	value, ok := new(big.Int).SetString(in, 10) //nolint:gomnd
	if !ok {
		return nil, fmt.Errorf("couldn't convert %s to bigint", in)
	}
	if err := value.Validate(); err != nil {
		return nil, fmt.Errorf("value %s should be positive", in)
	}
	return value, nil
}

// ParseAddress converts a base58check chaincode argument to an Address.
func ParseAddress(in string) (*Address, error) {
	return AddrFromBase58Check(in)
}

// ParseIndex converts a chaincode argument to a milestone or page index.
func ParseIndex(in string) (int, error) {
	v, err := strconv.ParseUint(in, 10, 31)
	if err != nil {
		return 0, fmt.Errorf("couldn't convert %s to index: %w", in, err)
	}
	return int(v), nil
}
