package store

import (
	"crypto/rand"
	"math/big"
)

const keyAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
const keyLength = 10

// generateKey draws a uniform 128-bit value and repeatedly takes the
// remainder mod 62, appending the mapped character, keyLength times. The
// bias from 128 mod 62 != 0 is accepted as negligible given the keyspace
// (62^10 ~= 8.4e17), matching the wire protocol's key format exactly.
// AI secrets use the same generator and length.
func generateKey() (string, error) {
	limit := new(big.Int).Lsh(big.NewInt(1), 128)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}

	base := big.NewInt(62)
	buf := make([]byte, keyLength)
	rem := new(big.Int)
	for i := 0; i < keyLength; i++ {
		n.DivMod(n, base, rem)
		buf[i] = keyAlphabet[rem.Int64()]
	}
	return string(buf), nil
}
