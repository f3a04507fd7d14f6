package keys

import (
	"testing"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/stretchr/testify/require"
)

func TestSignVerifyAllKeyTypes(t *testing.T) {
	message := []byte("buy" + "ETH" + "100000000000000000")

	for _, keyType := range []KeyType{KeyTypeEd25519, KeyTypeSecp256k1, KeyTypeGOST} {
		t.Run(keyType.String(), func(t *testing.T) {
			k, err := GenerateKeysByKeyType(keyType)
			require.NoError(t, err)
			require.Equal(t, k.PublicKeyBytes, base58.Decode(k.PublicKeyBase58))

			inferred, err := TypeFromPublicKey(k.PublicKeyBytes)
			require.NoError(t, err)
			require.Equal(t, keyType, inferred)

			signature, err := Sign(k, message)
			require.NoError(t, err)

			valid, err := Verify(k.PublicKeyBytes, message, signature)
			require.NoError(t, err)
			require.True(t, valid)

			valid, _ = Verify(k.PublicKeyBytes, []byte("tampered"), signature)
			require.False(t, valid)
		})
	}
}

func TestTypeFromPublicKeyRejectsUnknownLength(t *testing.T) {
	_, err := TypeFromPublicKey(make([]byte, 10))
	require.ErrorIs(t, err, ErrUnknownKeyType)

	// 65 bytes without the uncompressed prefix
	_, err = TypeFromPublicKey(make([]byte, KeyLengthSecp256k1))
	require.ErrorIs(t, err, ErrUnknownKeyType)
}

func TestEd25519FromHex(t *testing.T) {
	const secret = "3aa5a9d7ef4c6bb6a0ab6f19cf3a1dc3bb1f1d4ae7d5e4c5a1a2b3c4d5e6f7081d86d2b6dc5b8d7ecbd5c7d4b3a2f1e0d9c8b7a6f5e4d3c2b1a09f8e7d6c5b4a"
	k, err := Ed25519FromHex(secret)
	require.NoError(t, err)
	require.Len(t, k.PublicKeyBytes, KeyLengthEd25519)

	_, err = Ed25519FromHex("00")
	require.Error(t, err)
}
