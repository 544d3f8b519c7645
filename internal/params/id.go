package params

import (
	"crypto/md5"
	"math/big"
	"strconv"
)

// DefaultIDDigits is the decimal width of hashed config identifiers.
const DefaultIDDigits = 12

// HashID derives a config identifier from the canonical serialization of set
// under order: the md5 digest read as a big integer, reduced modulo 10^digits.
// Identical sets under the same order always hash to the same identifier.
func HashID(set Set, order []string, digits int) string {
	if digits <= 0 {
		digits = DefaultIDDigits
	}
	sum := md5.Sum([]byte(FormatConfig(set, order)))

	n := new(big.Int).SetBytes(sum[:])
	mod := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	return n.Mod(n, mod).String()
}

// SequentialID renders a zero-based grid index as a config identifier.
func SequentialID(i int) string {
	return strconv.Itoa(i)
}
