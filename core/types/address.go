package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/base58"
	"golang.org/x/crypto/sha3"
)

// AddressLength is expected bytes len for business entity Address
const AddressLength = 32

var ErrEmptyAddress = errors.New("address is empty")

// Address identifies an investor, the fund owner or any other ledger party.
// It is the sha3-256 digest of the owner's public key.
type Address struct {
	raw []byte
}

// AddrFromBytes creates address from bytes
func AddrFromBytes(in []byte) *Address {
	addrBytes := make([]byte, AddressLength)
	copy(addrBytes, in)
	return &Address{raw: addrBytes}
}

// AddrFromPublicKey derives the address owned by the given public key.
func AddrFromPublicKey(publicKey []byte) *Address {
	digest := sha3.Sum256(publicKey)
	return AddrFromBytes(digest[:])
}

// AddrFromBase58Check creates address from base58 string
func AddrFromBase58Check(in string) (*Address, error) {
	if in == "" {
		return nil, ErrEmptyAddress
	}

	value, ver, err := base58.CheckDecode(in)
	if err != nil {
		return nil, fmt.Errorf("decoding base58 '%s' failed, err: %w", in, err)
	}

	decoded := append([]byte{ver}, value...)
	if len(decoded) != AddressLength {
		return nil, fmt.Errorf("address '%s' has length %d, expected %d", in, len(decoded), AddressLength)
	}

	return AddrFromBytes(decoded), nil
}

// Equal compares two addresses
func (a *Address) Equal(b *Address) bool {
	if a == nil || b == nil {
		return a == b
	}
	return bytes.Equal(a.raw, b.raw)
}

// IsEmpty reports whether a is nil or all zero bytes.
func (a *Address) IsEmpty() bool {
	if a == nil || len(a.raw) == 0 {
		return true
	}
	for _, b := range a.raw {
		if b != 0 {
			return false
		}
	}
	return true
}

// Bytes returns address bytes
func (a *Address) Bytes() []byte {
	return a.raw
}

// String returns address string
func (a *Address) String() string {
	if a == nil || len(a.raw) == 0 {
		return ""
	}
	return base58.CheckEncode(a.raw[1:], a.raw[0])
}

// MarshalJSON marshals address to json
func (a *Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON unmarshals address from json
func (a *Address) UnmarshalJSON(data []byte) error {
	var tmp string
	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}
	parsed, err := AddrFromBase58Check(tmp)
	if err != nil {
		return err
	}
	a.raw = parsed.raw
	return nil
}

// Sender is a wrapper for the address that signed the current invocation.
type Sender struct {
	addr *Address
}

// NewSenderFromAddr creates sender from address
func NewSenderFromAddr(addr *Address) *Sender {
	return &Sender{addr: addr}
}

// Address returns address
func (s *Sender) Address() *Address {
	return s.addr
}

// Equal compares the sender with addr.
func (s *Sender) Equal(addr *Address) bool {
	return s != nil && s.addr.Equal(addr)
}

// UnmarshalText parses a base58check address, as passed in chaincode args.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := AddrFromBase58Check(string(text))
	if err != nil {
		return err
	}
	a.raw = parsed.raw
	return nil
}
