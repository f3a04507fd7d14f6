package keys

import (
	"fmt"

	"github.com/anoideaopen/crowdfund/keys/eth"
	"github.com/anoideaopen/crowdfund/keys/gost"
	"golang.org/x/crypto/ed25519"
)

// Verify returns true if signature corresponds to message signed by the
// owner of publicKeyBytes. The key type is inferred from the key.
func Verify(publicKeyBytes, message, signature []byte) (bool, error) {
	keyType, err := TypeFromPublicKey(publicKeyBytes)
	if err != nil {
		return false, err
	}

	switch keyType {
	case KeyTypeEd25519:
		return ed25519.Verify(publicKeyBytes, getDigestSHA3(message), signature), nil
	case KeyTypeSecp256k1:
		return eth.Verify(publicKeyBytes, getDigestEth(message), signature), nil
	case KeyTypeGOST:
		valid, err := gost.Verify(publicKeyBytes, getDigestGost(message), signature)
		if err != nil {
			return false, fmt.Errorf("incorrect signature: %w", err)
		}
		return valid, nil
	default:
		return false, fmt.Errorf("%w: %s", ErrUnknownKeyType, keyType)
	}
}
