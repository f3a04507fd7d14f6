// Package eth wraps the go-ethereum secp256k1 primitives used for signed
// invocations.
package eth

import (
	"crypto/ecdsa"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	// SignatureLength is the size of r || s.
	SignatureLength = 64
	// recoveryOffset shifts v to 27 or 28 as Ethereum wallets do.
	recoveryOffset = 27
)

// Hash calculates a hash for given message using Ethereum crypto functions
func Hash(message []byte) []byte {
	return accounts.TextHash(message)
}

// NewKey generates new secp256k1 key using Ethereum crypto functions
func NewKey() (*ecdsa.PrivateKey, error) {
	return crypto.GenerateKey()
}

// PublicKeyBytes returns the uncompressed public key.
func PublicKeyBytes(publicKey *ecdsa.PublicKey) []byte {
	return crypto.FromECDSAPub(publicKey)
}

func PrivateKeyFromBytes(bytes []byte) (*ecdsa.PrivateKey, error) {
	return crypto.ToECDSA(bytes)
}

func PrivateKeyBytes(privateKey *ecdsa.PrivateKey) []byte {
	return crypto.FromECDSA(privateKey)
}

// Sign returns r || s || v over digest with v in {27, 28}.
func Sign(digest []byte, privateKey *ecdsa.PrivateKey) ([]byte, error) {
	signature, err := crypto.Sign(digest, privateKey)
	if err != nil {
		return nil, err
	}
	signature[SignatureLength] += recoveryOffset
	return signature, nil
}

// Verify checks r || s over digest. A trailing recovery byte is ignored;
// any other length fails.
func Verify(publicKey, digest, signature []byte) bool {
	switch len(signature) {
	case SignatureLength, SignatureLength + 1:
	default:
		return false
	}
	return crypto.VerifySignature(publicKey, digest, signature[:SignatureLength])
}
