package gost

import (
	"github.com/ddulesov/gogost/gost34112012256"
)

// Sum256 calculates and returns a hash sum of 256 bits for data,
// using the algorithm of GOST R 34.11-2012.
func Sum256(data []byte) (digest [32]byte) {
	hasher := gost34112012256.New()
	if _, err := hasher.Write(data); err == nil {
		copy(digest[:], hasher.Sum(nil))
	}
	return
}
