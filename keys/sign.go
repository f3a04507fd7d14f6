package keys

import (
	"errors"
	"fmt"

	"github.com/anoideaopen/crowdfund/keys/eth"
	"github.com/anoideaopen/crowdfund/keys/gost"
	"golang.org/x/crypto/ed25519"
)

// Sign signs message with the private key matching keys.KeyType.
func Sign(keys *Keys, message []byte) ([]byte, error) {
	switch keys.KeyType {
	case KeyTypeEd25519:
		return ed25519.Sign(keys.PrivateKeyEd25519, getDigestSHA3(message)), nil
	case KeyTypeSecp256k1:
		if keys.PrivateKeySecp256k1 == nil {
			return nil, errors.New("secp256k1 private key is not set")
		}
		return eth.Sign(getDigestEth(message), keys.PrivateKeySecp256k1)
	case KeyTypeGOST:
		if keys.PrivateKeyGOST == nil {
			return nil, errors.New("GOST private key is not set")
		}
		signature, err := gost.Sign(keys.PrivateKeyGOST, getDigestGost(message))
		if err != nil {
			return nil, fmt.Errorf("error signing message with GOST key type: %w", err)
		}
		return signature, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownKeyType, keys.KeyType)
	}
}
