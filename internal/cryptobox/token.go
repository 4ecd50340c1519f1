package cryptobox

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// DefaultTokenLength matches the length of tokens handed out by `uidgen generate`.
const DefaultTokenLength = 32

const tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// GenerateToken returns a random bearer token of n characters drawn uniformly
// from [A-Za-z0-9].
func GenerateToken(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("token length must be > 0")
	}
	limit := big.NewInt(int64(len(tokenAlphabet)))
	out := make([]byte, n)
	for i := range out {
		v, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("rand token: %w", err)
		}
		out[i] = tokenAlphabet[v.Int64()]
	}
	return string(out), nil
}
