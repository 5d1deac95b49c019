package conf

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const keyAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// PairingKeyLength is the length of generated pairing keys.
const PairingKeyLength = 12

// NFCCredentialLength is the length of generated NFC tag credentials,
// bounded by the tag's storage capacity.
const NFCCredentialLength = 48

// GenerateKey produces a random alphanumeric secret of the given length
// using crypto/rand.
func GenerateKey(length int) (string, error) {
	buf := make([]byte, length)
	max := big.NewInt(int64(len(keyAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("error generating random key: %w", err)
		}
		buf[i] = keyAlphabet[n.Int64()]
	}
	return string(buf), nil
}
