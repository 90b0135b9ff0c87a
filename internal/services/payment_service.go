package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"mobicomm_store/internal/checkout"
	"mobicomm_store/internal/models"
)

const (
	// planValidity is how long a recharge stays active: exactly 30
	// days after the transaction timestamp, to the second.
	planValidity = 30 * 24 * time.Hour

	// displayTimeLayout is the receipt-facing timestamp form
	displayTimeLayout = "02 Jan 2006, 03:04 PM"

	defaultPaymentMethod = "Credit Card"
)

var (
	// ErrMissingState means the checkout session lacks a valid
	// identity or plan selection. Surfaced before any network call;
	// the fix is returning to the screen that produces the field.
	ErrMissingState = errors.New("payment: required checkout state is missing")

	// ErrInvalidAmount means the stored price does not parse. Never
	// submit zero in its place.
	ErrInvalidAmount = errors.New("payment: stored price is not a valid amount")

	// ErrSubmissionFailed means the backend rejected the transaction
	// or could not be reached. Session state is untouched so the
	// visitor can retry without re-entering anything.
	ErrSubmissionFailed = errors.New("payment: submission failed")

	// ErrInvalidEmail rejects an invoice address before dispatch
	ErrInvalidEmail = errors.New("payment: invalid email address")
)

// PaymentService executes the recharge purchase: it reads the checkout
// session, submits one transaction record, and records the outcome.
type PaymentService struct {
	store   checkout.Store
	backend *BackendClient
}

func NewPaymentService(store checkout.Store, backend *BackendClient) *PaymentService {
	return &PaymentService{store: store, backend: backend}
}

// SubmitPayment runs one payment attempt.
//
// Preconditions are checked first and fail closed: a session without a
// well-formed identity and plan selection returns ErrMissingState with
// zero network calls. Each attempt generates a fresh transaction id;
// a retry after failure never resubmits a stale one.
func (s *PaymentService) SubmitPayment(ctx context.Context, sid, methodLabel string) (*models.Receipt, error) {
	identity, err := checkout.LoadIdentity(ctx, s.store, sid)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingState, err)
	}
	selection, err := checkout.LoadSelection(ctx, s.store, sid)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingState, err)
	}

	amount, err := selection.Amount()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}

	if methodLabel == "" {
		methodLabel = defaultPaymentMethod
	}

	txnID, err := checkout.NewTransactionID()
	if err != nil {
		return nil, err
	}

	// One timestamp snapshot feeds both the wire and the receipt
	now := time.Now()
	record := models.RechargeRequest{
		MobileNumber:    identity.MobileNumber,
		PlanID:          selection.PlanID,
		Amount:          amount,
		PaymentMethod:   methodLabel + " | TxnID: " + txnID,
		PaymentStatus:   "Completed",
		TransactionDate: now.UTC().Format(time.RFC3339),
		ExpiryDate:      now.Add(planValidity).UTC().Format(time.RFC3339),
	}

	if err := s.backend.SubmitRecharge(ctx, record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSubmissionFailed, err)
	}

	displayDate := now.Format(displayTimeLayout)
	txn := checkout.Transaction{ID: txnID, Date: displayDate, Method: methodLabel}
	if err := checkout.SaveTransaction(ctx, s.store, sid, txn); err != nil {
		// The backend accepted the payment; a store hiccup must not
		// turn the receipt into a failure.
		log.Printf("failed to record transaction %s in session: %v", txnID, err)
	}

	return &models.Receipt{
		TransactionID:   txnID,
		TransactionDate: displayDate,
		PaymentMethod:   methodLabel,
		Amount:          amount,
		MobileNumber:    identity.MobileNumber,
		PlanName:        planNameOrDefault(selection),
	}, nil
}

// SendInvoiceAsync dispatches the invoice email as a detached,
// best-effort task. Session state is snapshotted synchronously so a
// later reset cannot race the send; the only errors returned are local
// validation ones. A failed send is logged and goes nowhere else.
func (s *PaymentService) SendInvoiceAsync(ctx context.Context, sid, email string) error {
	if !strings.Contains(email, "@") {
		return ErrInvalidEmail
	}

	identity, err := checkout.LoadIdentity(ctx, s.store, sid)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMissingState, err)
	}
	selection, err := checkout.LoadSelection(ctx, s.store, sid)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMissingState, err)
	}
	txn, err := checkout.LoadTransaction(ctx, s.store, sid)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMissingState, err)
	}

	amount, err := selection.Amount()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}

	// Remember the address for the next visit; best-effort like the
	// send itself.
	if err := s.store.Write(ctx, sid, checkout.KeyContactEmail, email); err != nil {
		log.Printf("failed to remember contact email: %v", err)
	}

	invoice := models.InvoiceRequest{
		Email:           email,
		MobileNumber:    identity.MobileNumber,
		PlanName:        planNameOrDefault(selection),
		Amount:          strconv.FormatFloat(amount, 'f', -1, 64),
		TransactionID:   txn.ID,
		PaymentMethod:   txn.Method,
		TransactionDate: txn.Date,
	}

	go func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := s.backend.SendInvoice(sendCtx, invoice); err != nil {
			log.Printf("invoice email to %s failed (best-effort): %v", email, err)
		}
	}()

	return nil
}

// AcknowledgeAndReset finishes the flow: transient plan and transaction
// fields go away, the identity stays for the next visit.
func (s *PaymentService) AcknowledgeAndReset(ctx context.Context, sid string) error {
	return s.store.ClearTransient(ctx, sid)
}

func planNameOrDefault(sel checkout.PlanSelection) string {
	if sel.PlanName != "" {
		return sel.PlanName
	}
	return "Data Plan"
}
