// Package keys signs and verifies invocation messages with ed25519,
// secp256k1 and GOST keys. The key type is recognised by the public key
// length.
package keys

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/anoideaopen/crowdfund/keys/eth"
	"github.com/anoideaopen/crowdfund/keys/gost"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/ddulesov/gogost/gost3410"
	"golang.org/x/crypto/sha3"
)

type KeyType int

const (
	KeyTypeEd25519 KeyType = iota
	KeyTypeSecp256k1
	KeyTypeGOST
)

func (kt KeyType) String() string {
	switch kt {
	case KeyTypeEd25519:
		return "ed25519"
	case KeyTypeSecp256k1:
		return "secp256k1"
	case KeyTypeGOST:
		return "gost"
	default:
		return fmt.Sprintf("KeyType(%d)", int(kt))
	}
}

const (
	KeyLengthEd25519   = 32
	KeyLengthSecp256k1 = 65
	KeyLengthGOST      = 64
)

const PrefixUncompressedSecp256k1Key = 0x04

var ErrUnknownKeyType = errors.New("unknown key type")

// TypeFromPublicKey infers the key type from the raw public key.
func TypeFromPublicKey(key []byte) (KeyType, error) {
	switch {
	case len(key) == KeyLengthEd25519:
		return KeyTypeEd25519, nil
	case len(key) == KeyLengthSecp256k1 && key[0] == PrefixUncompressedSecp256k1Key:
		return KeyTypeSecp256k1, nil
	case len(key) == KeyLengthGOST:
		return KeyTypeGOST, nil
	default:
		return 0, fmt.Errorf("%w: public key of %d bytes", ErrUnknownKeyType, len(key))
	}
}

type Keys struct {
	KeyType             KeyType
	PrivateKeyEd25519   ed25519.PrivateKey
	PrivateKeySecp256k1 *ecdsa.PrivateKey
	PrivateKeyGOST      *gost3410.PrivateKey
	PublicKeyBytes      []byte
	PublicKeyBase58     string
}

func getDigestSHA3(message []byte) []byte {
	digestSHA3Raw := sha3.Sum256(message)
	return digestSHA3Raw[:]
}

func getDigestEth(message []byte) []byte {
	return eth.Hash(getDigestSHA3(message))
}

func getDigestGost(message []byte) []byte {
	digestGOSTRaw := gost.Sum256(message)
	return digestGOSTRaw[:]
}

func encode(keys *Keys) *Keys {
	keys.PublicKeyBase58 = base58.Encode(keys.PublicKeyBytes)
	return keys
}
