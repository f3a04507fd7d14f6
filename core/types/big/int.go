package big

import (
	"errors"
	"math/big"
)

// Int steams math/big/Int with custom Marshall Unmarshall methods,
// which in the byte representation add quotes at the beginning and end of the number.
// Example 123 -> "123".
// Ledger amounts routinely exceed 2^53, so they never travel as JSON numbers.
type Int struct {
	big.Int
}

// ErrNegative is returned by Validate for amounts below zero.
var ErrNegative = errors.New("negative number")

// Validate checks if the Int value is negative and returns an error if it is.
func (z *Int) Validate() error {
	if z.Int.Sign() < 0 {
		return ErrNegative
	}

	return nil
}

// NewInt allocates and returns a new Int set to x.
func NewInt(x int64) *Int {
	return new(Int).SetInt64(x)
}

// Zero returns a fresh zero value.
func Zero() *Int {
	return new(Int)
}

// SetInt64 sets z to x and returns z.
func (z *Int) SetInt64(x int64) *Int {
	z.Int.SetInt64(x)
	return z
}

// SetUint64 sets z to x and returns z.
func (z *Int) SetUint64(x uint64) *Int {
	z.Int.SetUint64(x)
	return z
}

// Set sets z to x and returns z.
func (z *Int) Set(x *Int) *Int {
	z.Int.Set(arg(x))
	return z
}

// Copy returns a new Int holding the value of z. A nil receiver yields zero.
func (z *Int) Copy() *Int {
	if z == nil {
		return new(Int)
	}
	return new(Int).Set(z)
}

// Add sets z to the sum x+y and returns z.
func (z *Int) Add(x, y *Int) *Int {
	z.Int.Add(arg(x), arg(y))
	return z
}

// Sub sets z to the difference x-y and returns z.
func (z *Int) Sub(x, y *Int) *Int {
	z.Int.Sub(arg(x), arg(y))
	return z
}

// Mul sets z to the product x*y and returns z.
func (z *Int) Mul(x, y *Int) *Int {
	z.Int.Mul(arg(x), arg(y))
	return z
}

// Quo sets z to the quotient x/y for y != 0 and returns z.
// If y == 0, a division-by-zero run-time panic occurs.
// Quo implements truncated division (like Go).
func (z *Int) Quo(x, y *Int) *Int {
	z.Int.Quo(arg(x), arg(y))
	return z
}

// Exp sets z = x**y mod |m| (i.e. the sign of m is ignored), and returns z.
// If m == nil or m == 0, z = x**y.
func (z *Int) Exp(x, y, m *Int) *Int {
	z.Int.Exp(arg(x), arg(y), arg(m))
	return z
}

// Cmp compares x and y and returns:
//
//	-1 if x <  y
//	 0 if x == y
//	+1 if x >  y
func (z *Int) Cmp(y *Int) (r int) {
	return z.Int.Cmp(arg(y))
}

// IsZero reports whether z is nil or equal to zero.
func (z *Int) IsZero() bool {
	return z == nil || z.Int.Sign() == 0
}

// IsPositive reports whether z is strictly greater than zero.
func (z *Int) IsPositive() bool {
	return z != nil && z.Int.Sign() > 0
}

// SetString sets z to the value of s, interpreted in the given base,
// and returns z and a boolean indicating success. The entire string
// (not just a prefix) must be valid for success. If SetString fails,
// the value of z is undefined but the returned value is nil.
func (z *Int) SetString(s string, base int) (*Int, bool) {
	_, ok := z.Int.SetString(s, base)
	if !ok {
		return nil, ok
	}
	return z, ok
}

// SetBytes interprets buf as the bytes of a big-endian unsigned
// integer, sets z to that value, and returns z.
func (z *Int) SetBytes(buf []byte) *Int {
	z.Int.SetBytes(buf)
	return z
}

// Min returns the smaller of x and y.
func Min(x, y *Int) *Int {
	if x.Cmp(y) <= 0 {
		return x
	}
	return y
}

// MarshalJSON implements the json.Marshaler interface.
func (z *Int) MarshalJSON() ([]byte, error) {
	if z == nil {
		return []byte("\"0\""), nil
	}
	out, err := z.MarshalText()
	if err != nil {
		return out, err
	}
	return []byte("\"" + string(out) + "\""), nil
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (z *Int) UnmarshalJSON(text []byte) error {
	// Ignore null, like in the main JSON package.
	text = unquoteIfQuoted(text)
	if string(text) == "null" {
		return nil
	}
	return z.UnmarshalText(text)
}

func unquoteIfQuoted(bytes []byte) []byte {
	if len(bytes) > 2 && bytes[0] == '"' && bytes[len(bytes)-1] == '"' {
		return bytes[1 : len(bytes)-1]
	}
	return bytes
}

func arg(x *Int) *big.Int {
	if x == nil {
		return nil
	}

	return &x.Int
}
