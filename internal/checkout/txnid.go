package checkout

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
)

// txnIDSpace bounds the numeric part of a transaction id at 9 digits
var txnIDSpace = big.NewInt(1_000_000_000)

// NewTransactionID generates a client-side transaction token of the
// form MBC followed by 9 zero-padded digits. The token is advisory; the
// backend owns uniqueness. Drawn from crypto/rand so independent
// visitors cannot collide by seed.
func NewTransactionID() (string, error) {
	n, err := rand.Int(rand.Reader, txnIDSpace)
	if err != nil {
		return "", fmt.Errorf("generate transaction id: %w", err)
	}
	return fmt.Sprintf("MBC%09d", n), nil
}

// NewSessionID generates the opaque id naming a visitor's checkout
// session. 16 random bytes keeps sessions unguessable across tabs.
func NewSessionID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
