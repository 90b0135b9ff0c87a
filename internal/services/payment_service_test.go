package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"mobicomm_store/internal/checkout"
	"mobicomm_store/internal/models"
)

var txnIDPattern = regexp.MustCompile(`^MBC\d{9}$`)

func newTestBackend(t *testing.T, handler http.Handler) *BackendClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewBackendClient().WithBaseURL(srv.URL)
}

func seedSession(t *testing.T, store checkout.Store, sid string) {
	t.Helper()
	ctx := context.Background()
	if err := checkout.SaveIdentity(ctx, store, sid, checkout.Identity{
		MobileNumber: "9876543210",
		Token:        "tok-abc",
	}); err != nil {
		t.Fatalf("seed identity: %v", err)
	}
	if err := checkout.SaveSelection(ctx, store, sid, checkout.PlanSelection{
		PlanID:   3,
		Price:    "299",
		PlanName: "2GB/day Plan",
		Data:     "2GB/day",
		Validity: "28 days",
	}); err != nil {
		t.Fatalf("seed selection: %v", err)
	}
}

func TestSubmitPayment_MissingIdentity(t *testing.T) {
	var calls int32
	backend := newTestBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))

	svc := NewPaymentService(checkout.NewMemoryStore(), backend)
	_, err := svc.SubmitPayment(context.Background(), "sid", "UPI")

	if !errors.Is(err, ErrMissingState) {
		t.Errorf("SubmitPayment on empty session = %v; want ErrMissingState", err)
	}
	if n := atomic.LoadInt32(&calls); n != 0 {
		t.Errorf("backend saw %d calls; want 0", n)
	}
}

func TestSubmitPayment_MissingPlan(t *testing.T) {
	var calls int32
	backend := newTestBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))

	store := checkout.NewMemoryStore()
	ctx := context.Background()
	checkout.SaveIdentity(ctx, store, "sid", checkout.Identity{MobileNumber: "9876543210", Token: "tok"})

	svc := NewPaymentService(store, backend)
	_, err := svc.SubmitPayment(ctx, "sid", "UPI")

	if !errors.Is(err, ErrMissingState) {
		t.Errorf("SubmitPayment without selection = %v; want ErrMissingState", err)
	}
	if n := atomic.LoadInt32(&calls); n != 0 {
		t.Errorf("backend saw %d calls; want 0", n)
	}
}

func TestSubmitPayment_UnparseablePrice(t *testing.T) {
	var calls int32
	backend := newTestBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))

	store := checkout.NewMemoryStore()
	ctx := context.Background()
	checkout.SaveIdentity(ctx, store, "sid", checkout.Identity{MobileNumber: "9876543210", Token: "tok"})
	// A corrupt price must fail the payment, never submit zero
	store.Write(ctx, "sid", checkout.KeyPlanID, "3")
	store.Write(ctx, "sid", checkout.KeyPrice, "two hundred")

	svc := NewPaymentService(store, backend)
	_, err := svc.SubmitPayment(ctx, "sid", "UPI")

	if !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("SubmitPayment with bad price = %v; want ErrInvalidAmount", err)
	}
	if n := atomic.LoadInt32(&calls); n != 0 {
		t.Errorf("backend saw %d calls; want 0", n)
	}
}

func TestSubmitPayment_Success(t *testing.T) {
	var received models.RechargeRequest
	backend := newTestBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/transactions/recharge" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q; want application/json", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	}))

	store := checkout.NewMemoryStore()
	seedSession(t, store, "sid")

	svc := NewPaymentService(store, backend)
	receipt, err := svc.SubmitPayment(context.Background(), "sid", "UPI")
	if err != nil {
		t.Fatalf("SubmitPayment error: %v", err)
	}

	if received.MobileNumber != "9876543210" {
		t.Errorf("mobileNumber = %q; want 9876543210", received.MobileNumber)
	}
	if received.PlanID != 3 {
		t.Errorf("planId = %d; want 3", received.PlanID)
	}
	if received.Amount != 299 {
		t.Errorf("amount = %v; want 299", received.Amount)
	}
	if received.PaymentStatus != "Completed" {
		t.Errorf("paymentStatus = %q; want Completed", received.PaymentStatus)
	}
	if !strings.HasPrefix(received.PaymentMethod, "UPI | TxnID: MBC") {
		t.Errorf("paymentMethod = %q; want 'UPI | TxnID: MBC…'", received.PaymentMethod)
	}

	// Expiry is exactly 30 days after the transaction, to the second
	txnDate, err := time.Parse(time.RFC3339, received.TransactionDate)
	if err != nil {
		t.Fatalf("transactionDate %q: %v", received.TransactionDate, err)
	}
	expiry, err := time.Parse(time.RFC3339, received.ExpiryDate)
	if err != nil {
		t.Fatalf("expiryDate %q: %v", received.ExpiryDate, err)
	}
	if got := expiry.Sub(txnDate); got != 30*24*time.Hour {
		t.Errorf("expiry - transaction = %v; want 720h", got)
	}

	if !txnIDPattern.MatchString(receipt.TransactionID) {
		t.Errorf("receipt transaction id %q does not match %s", receipt.TransactionID, txnIDPattern)
	}
	if receipt.Amount != 299 || receipt.PaymentMethod != "UPI" {
		t.Errorf("receipt = %+v; want amount 299, method UPI", receipt)
	}

	// Transaction outcome landed in the session
	txn, err := checkout.LoadTransaction(context.Background(), store, "sid")
	if err != nil {
		t.Fatalf("LoadTransaction after success: %v", err)
	}
	if txn.ID != receipt.TransactionID || txn.Method != "UPI" {
		t.Errorf("stored transaction = %+v; want id %s, method UPI", txn, receipt.TransactionID)
	}
}

func TestSubmitPayment_BackendFailure(t *testing.T) {
	backend := newTestBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	store := checkout.NewMemoryStore()
	seedSession(t, store, "sid")

	svc := NewPaymentService(store, backend)
	_, err := svc.SubmitPayment(context.Background(), "sid", "UPI")

	if !errors.Is(err, ErrSubmissionFailed) {
		t.Errorf("SubmitPayment on 500 = %v; want ErrSubmissionFailed", err)
	}

	// Identity and selection survive for a retry
	ctx := context.Background()
	if _, err := checkout.LoadIdentity(ctx, store, "sid"); err != nil {
		t.Errorf("identity lost after failed submission: %v", err)
	}
	if _, err := checkout.LoadSelection(ctx, store, "sid"); err != nil {
		t.Errorf("selection lost after failed submission: %v", err)
	}
	// No transaction was recorded
	if _, err := checkout.LoadTransaction(ctx, store, "sid"); !errors.Is(err, checkout.ErrAbsent) {
		t.Errorf("transaction after failure = %v; want ErrAbsent", err)
	}
}

func TestSubmitPayment_FreshIDPerAttempt(t *testing.T) {
	var methods []string
	backend := newTestBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req models.RechargeRequest
		json.NewDecoder(r.Body).Decode(&req)
		methods = append(methods, req.PaymentMethod)
		w.Write([]byte(`{}`))
	}))

	store := checkout.NewMemoryStore()
	seedSession(t, store, "sid")
	svc := NewPaymentService(store, backend)

	for i := 0; i < 2; i++ {
		if _, err := svc.SubmitPayment(context.Background(), "sid", "UPI"); err != nil {
			t.Fatalf("SubmitPayment #%d: %v", i+1, err)
		}
	}

	if len(methods) != 2 || methods[0] == methods[1] {
		t.Errorf("expected two distinct transaction ids, got %v", methods)
	}
}

func TestSendInvoiceAsync_RejectsBadEmail(t *testing.T) {
	var calls int32
	backend := newTestBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))

	store := checkout.NewMemoryStore()
	seedSession(t, store, "sid")
	svc := NewPaymentService(store, backend)

	if err := svc.SendInvoiceAsync(context.Background(), "sid", "not-an-email"); !errors.Is(err, ErrInvalidEmail) {
		t.Errorf("SendInvoiceAsync(bad email) = %v; want ErrInvalidEmail", err)
	}
	if n := atomic.LoadInt32(&calls); n != 0 {
		t.Errorf("backend saw %d calls; want 0", n)
	}
}

func TestSendInvoiceAsync_Dispatches(t *testing.T) {
	invoiceCh := make(chan models.InvoiceRequest, 1)
	backend := newTestBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/transactions/recharge" {
			w.Write([]byte(`{}`))
			return
		}
		if r.URL.Path == "/api/email/send-invoice" {
			var inv models.InvoiceRequest
			json.NewDecoder(r.Body).Decode(&inv)
			invoiceCh <- inv
			w.Write([]byte(`{"status":"sent"}`))
			return
		}
		t.Errorf("unexpected path %s", r.URL.Path)
	}))

	store := checkout.NewMemoryStore()
	seedSession(t, store, "sid")
	svc := NewPaymentService(store, backend)

	receipt, err := svc.SubmitPayment(context.Background(), "sid", "UPI")
	if err != nil {
		t.Fatalf("SubmitPayment: %v", err)
	}
	if err := svc.SendInvoiceAsync(context.Background(), "sid", "user@example.com"); err != nil {
		t.Fatalf("SendInvoiceAsync: %v", err)
	}

	select {
	case inv := <-invoiceCh:
		if inv.Email != "user@example.com" {
			t.Errorf("invoice email = %q; want user@example.com", inv.Email)
		}
		if inv.TransactionID != receipt.TransactionID {
			t.Errorf("invoice txn id = %q; want %q", inv.TransactionID, receipt.TransactionID)
		}
		if inv.Amount != "299" {
			t.Errorf("invoice amount = %q; want 299", inv.Amount)
		}
		if inv.PlanName != "2GB/day Plan" {
			t.Errorf("invoice plan name = %q; want 2GB/day Plan", inv.PlanName)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("invoice email was never dispatched")
	}
}

func TestAcknowledgeAndReset(t *testing.T) {
	backend := newTestBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))

	store := checkout.NewMemoryStore()
	seedSession(t, store, "sid")
	svc := NewPaymentService(store, backend)

	ctx := context.Background()
	if _, err := svc.SubmitPayment(ctx, "sid", "UPI"); err != nil {
		t.Fatalf("SubmitPayment: %v", err)
	}
	if err := svc.AcknowledgeAndReset(ctx, "sid"); err != nil {
		t.Fatalf("AcknowledgeAndReset: %v", err)
	}

	// Identity stays, transient state is gone
	id, err := checkout.LoadIdentity(ctx, store, "sid")
	if err != nil {
		t.Fatalf("identity lost after reset: %v", err)
	}
	if id.MobileNumber != "9876543210" {
		t.Errorf("mobile after reset = %q; want 9876543210", id.MobileNumber)
	}
	if _, err := checkout.LoadSelection(ctx, store, "sid"); !errors.Is(err, checkout.ErrAbsent) {
		t.Errorf("selection after reset = %v; want ErrAbsent", err)
	}
	if _, err := checkout.LoadTransaction(ctx, store, "sid"); !errors.Is(err, checkout.ErrAbsent) {
		t.Errorf("transaction after reset = %v; want ErrAbsent", err)
	}
}
