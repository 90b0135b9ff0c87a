// Package checkout is the per-visitor state channel that carries a
// recharge from number validation through plan selection to payment.
// It is a scoped key-value bag: screens write fields as the flow
// progresses and later screens read them back. A missing key is always
// reported as ErrAbsent, never coerced to a default.
package checkout

import (
	"context"
	"errors"
	"time"
)

// ErrAbsent is returned by Read when a key has no value in the session.
// Callers must treat it as a validation failure, not substitute defaults.
var ErrAbsent = errors.New("checkout: value absent")

// Well-known keys. Names follow the wire/display payloads they feed.
const (
	KeyMobileNumber = "mobileNumber"
	KeyAuthToken    = "authToken"
	KeyContactEmail = "contactEmail"

	KeyPlanID   = "planId"
	KeyPrice    = "price"
	KeyPlanName = "planName"
	KeyData     = "data"
	KeyValidity = "validity"
	KeyCalls    = "calls"
	KeySMS      = "sms"
	KeyBenefits = "benefits"

	KeyTxnID     = "txnId"
	KeyTxnDate   = "txnDate"
	KeyPayMethod = "payMethod"

	KeyLastRechargeTime  = "lastRechargeTime"
	KeyLastTransactionID = "lastTransactionId"
)

// transientKeys are removed by ClearTransient. Identity fields stay so a
// returning visitor is not asked for their number again.
var transientKeys = []string{
	KeyPlanID, KeyPrice, KeyPlanName, KeyData, KeyValidity,
	KeyCalls, KeySMS, KeyBenefits,
	KeyTxnID, KeyTxnDate, KeyPayMethod,
}

// sessionTTL bounds how long an idle checkout survives. Refreshed on
// every write so an active flow never expires mid-payment.
const sessionTTL = 24 * time.Hour

// Store is the only access path to checkout state. Implementations are
// scoped per visitor session id; sessions never see each other's keys.
type Store interface {
	// Write sets one field of the session.
	Write(ctx context.Context, sid, key, value string) error

	// Read returns the value for key, or ErrAbsent if it was never
	// written (or has been cleared).
	Read(ctx context.Context, sid, key string) (string, error)

	// ClearTransient removes plan and transaction fields, keeps the
	// identity fields, and stamps lastRechargeTime/lastTransactionId.
	ClearTransient(ctx context.Context, sid string) error

	// ClearAll drops the whole session.
	ClearAll(ctx context.Context, sid string) error
}
