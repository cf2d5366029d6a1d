package ledger

import (
	"crypto/rand"
	"math/big"

	"github.com/Proton-105/rewards-bot/internal/domain"
)

const (
	keyAlphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	keyBodyLength = 10
)

// NewKeyCode returns a fresh code such as NKEY-7Q2M0ZK1PA.
func NewKeyCode(kind domain.KeyKind) (string, error) {
	body := make([]byte, keyBodyLength)
	max := big.NewInt(int64(len(keyAlphabet)))
	for i := range body {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		body[i] = keyAlphabet[n.Int64()]
	}
	return kind.Prefix() + string(body), nil
}
