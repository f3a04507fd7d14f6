// Package nonce protects signed invocations from replay. A nonce is the
// caller's wall clock in milliseconds; every address keeps the nonces seen
// within a sliding TTL window, and a nonce is accepted only once.
package nonce

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/hyperledger/fabric-chaincode-go/shim"
)

const StateKeyNonce byte = 42 // hex: 2a

const (
	doublingMemoryCoef    = 2
	lenTimeInMilliseconds = 13
	// DefaultTTL is the window below the newest accepted nonce inside which
	// an out-of-order nonce is still accepted.
	DefaultTTL = 50 * time.Second
)

var (
	ErrIncorrectFormat = errors.New("incorrect nonce format")
	ErrTooOld          = errors.New("nonce is too old")
	ErrAlreadyExists   = errors.New("nonce already exists")
)

// Parse parses a decimal nonce argument.
func Parse(s string) (uint64, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrIncorrectFormat, s)
	}
	return n, nil
}

// Check accepts nonce for address or returns an error if it is malformed,
// older than the window or already used. Accepted nonces are stored.
func Check(stub shim.ChaincodeStubInterface, address string, nonce uint64, ttl time.Duration) error {
	nonceKey, seen, err := load(stub, address)
	if err != nil {
		return err
	}

	seen, err = set(nonce, seen, ttl)
	if err != nil {
		return err
	}

	data, err := json.Marshal(seen)
	if err != nil {
		return err
	}

	return stub.PutState(nonceKey, data)
}

// Last returns the newest nonce accepted from address, zero if none.
func Last(stub shim.ChaincodeStubInterface, address string) (uint64, error) {
	_, seen, err := load(stub, address)
	if err != nil || len(seen) == 0 {
		return 0, err
	}
	return seen[len(seen)-1], nil
}

func load(stub shim.ChaincodeStubInterface, address string) (string, []uint64, error) {
	nonceKey, err := stub.CreateCompositeKey(hex.EncodeToString([]byte{StateKeyNonce}), []string{address})
	if err != nil {
		return "", nil, err
	}

	data, err := stub.GetState(nonceKey)
	if err != nil {
		return "", nil, err
	}

	var seen []uint64
	if len(data) > 0 {
		if err = json.Unmarshal(data, &seen); err != nil {
			return "", nil, fmt.Errorf("decoding nonces of %s: %w", address, err)
		}
	}

	return nonceKey, seen, nil
}

func set(nonce uint64, lastNonce []uint64, ttl time.Duration) ([]uint64, error) {
	if len(strconv.FormatUint(nonce, 10)) != lenTimeInMilliseconds {
		return lastNonce, ErrIncorrectFormat
	}

	if len(lastNonce) == 0 {
		return []uint64{nonce}, nil
	}

	l := len(lastNonce)
	last := lastNonce[l-1]
	window := uint64(ttl.Milliseconds())

	if nonce > last {
		lastNonce = append(lastNonce, nonce)
		l = len(lastNonce)
		last = lastNonce[l-1]

		index := sort.Search(l, func(i int) bool { return last-lastNonce[i] <= window })
		return lastNonce[index:], nil
	}

	if last-nonce > window {
		return lastNonce, fmt.Errorf("%w: %d, less than %d", ErrTooOld, nonce, last)
	}

	index := sort.Search(l, func(i int) bool { return lastNonce[i] >= nonce })
	if index != l && lastNonce[index] == nonce {
		return lastNonce, fmt.Errorf("%w: %d", ErrAlreadyExists, nonce)
	}

	x := make([]uint64, 0, len(lastNonce)*doublingMemoryCoef)
	x = append(x, lastNonce[:index]...)
	x = append(x, nonce)
	x = append(x, lastNonce[index:]...)

	return x, nil
}
