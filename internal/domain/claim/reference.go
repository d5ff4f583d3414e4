package claim

import (
	"crypto/rand"
	"math/big"
)

// referenceAlphabet omits characters that read ambiguously in print
// (0/O, 1/I/L, 2/Z, 5/S).
const (
	referenceAlphabet = "ABCDEFGHJKMNPQRTUVWXY346789"
	referenceLength   = 10
)

// NewReference generates a candidate claim reference. Uniqueness is enforced
// by the database; callers retry with a fresh candidate on collision.
func NewReference() string {
	max := big.NewInt(int64(len(referenceAlphabet)))
	out := make([]byte, referenceLength)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(err)
		}
		out[i] = referenceAlphabet[n.Int64()]
	}
	return string(out)
}
