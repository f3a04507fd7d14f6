package gost

import (
	"crypto/rand"

	"github.com/ddulesov/gogost/gost3410"
)

func curve() *gost3410.Curve {
	return gost3410.CurveIdGostR34102001CryptoProXchAParamSet()
}

// NewKey generates a GOST R 34.10-2012 key on id-GostR3410-2001-CryptoPro-XchA-ParamSet.
func NewKey() (*gost3410.PrivateKey, error) {
	return gost3410.GenPrivateKey(curve(), gost3410.Mode2001, rand.Reader)
}

// Sign signs digest. Digest and signature are byte-reversed on the wire
// for compatibility with the CryptoPro signature server.
func Sign(privateKey *gost3410.PrivateKey, digest []byte) ([]byte, error) {
	signature, err := privateKey.SignDigest(reverseBytes(digest), rand.Reader)
	if err != nil {
		return nil, err
	}
	return reverseBytes(signature), nil
}

// Verify verifies the signature for the specified message hash using the public key and
// GOST R 34.10-2012 algorithm on the cryptographic curve id-GostR3410-2001-CryptoPro-XchA-ParamSet.
func Verify(pubKeyBytes, digest, signature []byte) (bool, error) {
	publicKey, err := gost3410.NewPublicKey(curve(), gost3410.Mode2001, pubKeyBytes)
	if err != nil {
		return false, err
	}

	return publicKey.VerifyDigest(
		reverseBytes(digest),
		reverseBytes(signature),
	)
}

// reverseBytes returns a new byte slice that is the inverse of the passed slice.
func reverseBytes(in []byte) []byte {
	n := len(in)
	reversed := make([]byte, n)
	for i, b := range in {
		reversed[n-i-1] = b
	}

	return reversed
}
