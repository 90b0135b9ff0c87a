package checkout

import (
	"regexp"
	"testing"
)

var txnIDPattern = regexp.MustCompile(`^MBC\d{9}$`)

func TestNewTransactionID_Format(t *testing.T) {
	for i := 0; i < 100; i++ {
		id, err := NewTransactionID()
		if err != nil {
			t.Fatalf("NewTransactionID error: %v", err)
		}
		if !txnIDPattern.MatchString(id) {
			t.Fatalf("transaction id %q does not match %s", id, txnIDPattern)
		}
	}
}

// Probabilistic: 1000 draws over a 10^9 space collide with probability
// well under 0.1%.
func TestNewTransactionID_NoCollisions(t *testing.T) {
	seen := make(map[string]bool, 1000)
	for i := 0; i < 1000; i++ {
		id, err := NewTransactionID()
		if err != nil {
			t.Fatalf("NewTransactionID error: %v", err)
		}
		if seen[id] {
			t.Fatalf("duplicate transaction id %q after %d draws", id, i)
		}
		seen[id] = true
	}
}

func TestNewSessionID(t *testing.T) {
	a, err := NewSessionID()
	if err != nil {
		t.Fatalf("NewSessionID error: %v", err)
	}
	b, err := NewSessionID()
	if err != nil {
		t.Fatalf("NewSessionID error: %v", err)
	}
	if len(a) != 32 {
		t.Errorf("session id length = %d; want 32 hex chars", len(a))
	}
	if a == b {
		t.Error("two session ids are identical")
	}
}
