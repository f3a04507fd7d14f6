package ledger

import (
	"encoding/json"
	"strconv"

	"github.com/anoideaopen/crowdfund/core/balance"
	"github.com/anoideaopen/crowdfund/core/types/big"
	"github.com/hyperledger/fabric-chaincode-go/shim"
)

const (
	counterTokenBought     = "tokenBought"
	counterTokenRefunded   = "tokenRefunded"
	counterPercentReleased = "tranchePercentReleased"

	objectTrackedSymbols  = "trackedSymbols"
	objectInvestorSymbols = "investorSymbols"
	objectTranche         = "completedTranche"
)

// store is the durable ledger state. Amounts live in balance keys, symbol
// sets and tranche flags in their own composite keys.
type store struct {
	stub shim.ChaincodeStubInterface
}

func (s store) counter(name string) (*big.Int, error) {
	return balance.Get(s.stub, balance.BalanceTypeCounter, name, "")
}

func (s store) addCounter(name string, v *big.Int) error {
	return balance.Add(s.stub, balance.BalanceTypeCounter, name, "", v)
}

func (s store) total(bt balance.BalanceType, symbol string) (*big.Int, error) {
	return balance.Get(s.stub, bt, symbol, "")
}

func (s store) addTotal(bt balance.BalanceType, symbol string, v *big.Int) error {
	return balance.Add(s.stub, bt, symbol, "", v)
}

func (s store) investorTokens(investor string) (*big.Int, error) {
	return balance.Get(s.stub, balance.BalanceTypeInvestorTokens, investor, "")
}

func (s store) investorFunded(investor, symbol string) (*big.Int, error) {
	return balance.Get(s.stub, balance.BalanceTypeInvestorFunded, investor, symbol)
}

func (s store) symbols(objectType string, attrs ...string) ([]string, error) {
	key, err := s.stub.CreateCompositeKey(objectType, attrs)
	if err != nil {
		return nil, err
	}
	raw, err := s.stub.GetState(key)
	if err != nil || len(raw) == 0 {
		return nil, err
	}
	var symbols []string
	if err = json.Unmarshal(raw, &symbols); err != nil {
		return nil, err
	}
	return symbols, nil
}

// track appends the missing symbols to a set, keeping insertion order.
func (s store) track(objectType string, attrs []string, add ...string) error {
	current, err := s.symbols(objectType, attrs...)
	if err != nil {
		return err
	}

	changed := false
	for _, sym := range add {
		if !contains(current, sym) {
			current = append(current, sym)
			changed = true
		}
	}
	if !changed {
		return nil
	}

	raw, err := json.Marshal(current)
	if err != nil {
		return err
	}
	key, err := s.stub.CreateCompositeKey(objectType, attrs)
	if err != nil {
		return err
	}
	return s.stub.PutState(key, raw)
}

func (s store) trancheCompleted(index int) (bool, error) {
	key, err := s.trancheKey(index)
	if err != nil {
		return false, err
	}
	raw, err := s.stub.GetState(key)
	if err != nil {
		return false, err
	}
	return len(raw) != 0, nil
}

func (s store) completeTranche(index int) error {
	key, err := s.trancheKey(index)
	if err != nil {
		return err
	}
	return s.stub.PutState(key, []byte{1})
}

func (s store) trancheKey(index int) (string, error) {
	return s.stub.CreateCompositeKey(objectTranche, []string{strconv.Itoa(index)})
}

func contains(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}
