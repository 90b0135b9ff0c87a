package checkout

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

var mobilePattern = regexp.MustCompile(`^[6-9]\d{9}$`)

// ValidMobileNumber reports whether s is a valid 10-digit subscriber
// number (Indian mobile series, first digit 6-9).
func ValidMobileNumber(s string) bool {
	return mobilePattern.MatchString(s)
}

// Identity is the validated subscriber bound to this session
type Identity struct {
	MobileNumber string
	Token        string
	ContactEmail string
}

// PlanSelection is the immutable snapshot captured when the visitor
// picks an offer. Price stays a string until payment parses it; a
// non-numeric stored price must fail the payment, not round-trip as 0.
type PlanSelection struct {
	PlanID   int
	Price    string
	PlanName string
	Data     string
	Validity string
	Calls    string
	SMS      string
	Benefits string
}

// Amount parses the stored price. Negative or non-numeric prices are
// rejected.
func (p PlanSelection) Amount() (float64, error) {
	amount, err := strconv.ParseFloat(p.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("checkout: price %q is not a number", p.Price)
	}
	if amount < 0 {
		return 0, fmt.Errorf("checkout: price %q is negative", p.Price)
	}
	return amount, nil
}

// Transaction is the outcome of a submitted payment
type Transaction struct {
	ID     string
	Date   string // locale display form
	Method string
}

// SaveIdentity validates and writes the session identity. The mobile
// number is checked here so malformed numbers can never enter the store.
func SaveIdentity(ctx context.Context, s Store, sid string, id Identity) error {
	if !ValidMobileNumber(id.MobileNumber) {
		return fmt.Errorf("checkout: invalid mobile number %q", id.MobileNumber)
	}
	if id.Token == "" {
		return errors.New("checkout: identity requires a session token")
	}
	if err := s.Write(ctx, sid, KeyMobileNumber, id.MobileNumber); err != nil {
		return err
	}
	if err := s.Write(ctx, sid, KeyAuthToken, id.Token); err != nil {
		return err
	}
	if id.ContactEmail != "" {
		return s.Write(ctx, sid, KeyContactEmail, id.ContactEmail)
	}
	return nil
}

// LoadIdentity reads the session identity. An absent or malformed
// mobile number is an error; ErrAbsent is preserved in the chain so
// callers can distinguish missing state from store failures.
func LoadIdentity(ctx context.Context, s Store, sid string) (Identity, error) {
	mobile, err := s.Read(ctx, sid, KeyMobileNumber)
	if err != nil {
		return Identity{}, fmt.Errorf("checkout: mobile number: %w", err)
	}
	if !ValidMobileNumber(mobile) {
		return Identity{}, fmt.Errorf("checkout: stored mobile number %q is malformed: %w", mobile, ErrAbsent)
	}

	id := Identity{MobileNumber: mobile}
	if token, err := s.Read(ctx, sid, KeyAuthToken); err == nil {
		id.Token = token
	}
	if email, err := s.Read(ctx, sid, KeyContactEmail); err == nil {
		id.ContactEmail = email
	}
	return id, nil
}

// SaveSelection writes the plan snapshot. Selections are written once
// and never mutated; payment only reads them.
func SaveSelection(ctx context.Context, s Store, sid string, sel PlanSelection) error {
	if sel.PlanID <= 0 {
		return fmt.Errorf("checkout: invalid plan id %d", sel.PlanID)
	}
	if sel.Price == "" {
		return errors.New("checkout: selection requires a price")
	}

	fields := map[string]string{
		KeyPlanID:   strconv.Itoa(sel.PlanID),
		KeyPrice:    sel.Price,
		KeyPlanName: sel.PlanName,
		KeyData:     sel.Data,
		KeyValidity: sel.Validity,
		KeyCalls:    sel.Calls,
		KeySMS:      sel.SMS,
		KeyBenefits: sel.Benefits,
	}
	for key, value := range fields {
		if err := s.Write(ctx, sid, key, value); err != nil {
			return err
		}
	}
	return nil
}

// LoadSelection reads the plan snapshot. planId and price are required;
// the display fields default to empty strings when never written.
func LoadSelection(ctx context.Context, s Store, sid string) (PlanSelection, error) {
	rawID, err := s.Read(ctx, sid, KeyPlanID)
	if err != nil {
		return PlanSelection{}, fmt.Errorf("checkout: plan id: %w", err)
	}
	planID, err := strconv.Atoi(rawID)
	if err != nil || planID <= 0 {
		return PlanSelection{}, fmt.Errorf("checkout: stored plan id %q is malformed: %w", rawID, ErrAbsent)
	}

	price, err := s.Read(ctx, sid, KeyPrice)
	if err != nil {
		return PlanSelection{}, fmt.Errorf("checkout: price: %w", err)
	}

	sel := PlanSelection{PlanID: planID, Price: price}
	optional := map[string]*string{
		KeyPlanName: &sel.PlanName,
		KeyData:     &sel.Data,
		KeyValidity: &sel.Validity,
		KeyCalls:    &sel.Calls,
		KeySMS:      &sel.SMS,
		KeyBenefits: &sel.Benefits,
	}
	for key, dest := range optional {
		if val, err := s.Read(ctx, sid, key); err == nil {
			*dest = val
		}
	}
	return sel, nil
}

// SaveTransaction records the outcome of a successful payment
func SaveTransaction(ctx context.Context, s Store, sid string, txn Transaction) error {
	fields := map[string]string{
		KeyTxnID:     txn.ID,
		KeyTxnDate:   txn.Date,
		KeyPayMethod: txn.Method,
	}
	for key, value := range fields {
		if err := s.Write(ctx, sid, key, value); err != nil {
			return err
		}
	}
	return nil
}

// LoadTransaction reads the recorded payment outcome
func LoadTransaction(ctx context.Context, s Store, sid string) (Transaction, error) {
	id, err := s.Read(ctx, sid, KeyTxnID)
	if err != nil {
		return Transaction{}, fmt.Errorf("checkout: transaction id: %w", err)
	}
	txn := Transaction{ID: id}
	if date, err := s.Read(ctx, sid, KeyTxnDate); err == nil {
		txn.Date = date
	}
	if method, err := s.Read(ctx, sid, KeyPayMethod); err == nil {
		txn.Method = method
	}
	return txn, nil
}
