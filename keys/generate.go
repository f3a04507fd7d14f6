package keys

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/anoideaopen/crowdfund/keys/eth"
	"github.com/anoideaopen/crowdfund/keys/gost"
)

// GenerateKeysByKeyType generates private and public keys based on specified key type
func GenerateKeysByKeyType(keyType KeyType) (*Keys, error) {
	keys := &Keys{KeyType: keyType}
	switch keyType {
	case KeyTypeEd25519:
		pKey, sKey, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, err
		}
		keys.PrivateKeyEd25519 = sKey
		keys.PublicKeyBytes = pKey
	case KeyTypeSecp256k1:
		sKey, err := eth.NewKey()
		if err != nil {
			return nil, err
		}
		keys.PrivateKeySecp256k1 = sKey
		keys.PublicKeyBytes = eth.PublicKeyBytes(&sKey.PublicKey)
	case KeyTypeGOST:
		sKey, err := gost.NewKey()
		if err != nil {
			return nil, err
		}
		pKey, err := sKey.PublicKey()
		if err != nil {
			return nil, err
		}
		keys.PrivateKeyGOST = sKey
		keys.PublicKeyBytes = pKey.Raw()
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownKeyType, keyType)
	}

	return encode(keys), nil
}

// Ed25519FromHex restores an ed25519 key from its hex encoded private key.
func Ed25519FromHex(hexEncoded string) (*Keys, error) {
	decoded, err := hex.DecodeString(hexEncoded)
	if err != nil {
		return nil, err
	}
	if len(decoded) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("ed25519 private key must be %d bytes", ed25519.PrivateKeySize)
	}
	sKey := ed25519.PrivateKey(decoded)
	pKey, ok := sKey.Public().(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("error converting private key to public")
	}

	return encode(&Keys{
		KeyType:           KeyTypeEd25519,
		PrivateKeyEd25519: sKey,
		PublicKeyBytes:    pKey,
	}), nil
}
