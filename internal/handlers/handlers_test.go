package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"mobicomm_store/internal/checkout"
	"mobicomm_store/internal/services"
)

func newBackend(t *testing.T, handler http.Handler) *services.BackendClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return services.NewBackendClient().WithBaseURL(srv.URL)
}

func postForm(path string, form url.Values, sid string) (*http.Request, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	if sid != "" {
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: sid})
	}
	return req, httptest.NewRecorder()
}

func getPage(path, sid string) (*http.Request, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if sid != "" {
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: sid})
	}
	return req, httptest.NewRecorder()
}

func TestSessionID_MintsCookieOnce(t *testing.T) {
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	sid := sessionID(c)
	if len(sid) != 32 {
		t.Fatalf("minted session id %q; want 32 hex chars", sid)
	}
	var issued bool
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == sessionCookieName && ck.Value == sid && ck.HttpOnly {
			issued = true
		}
	}
	if !issued {
		t.Error("no HttpOnly session cookie was issued")
	}

	// A request that already carries the cookie keeps its id
	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "existing"})
	c2 := e.NewContext(req2, httptest.NewRecorder())
	if got := sessionID(c2); got != "existing" {
		t.Errorf("sessionID = %q; want the existing cookie value", got)
	}
}

func TestValidateMobile_RedirectsToCatalog(t *testing.T) {
	backend := newBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"token":"jwt-1"}`))
	}))
	store := checkout.NewMemoryStore()
	h := NewHomeHandler(services.NewIdentityService(store, backend), store)

	e := echo.New()
	req, rec := postForm("/validate-mobile", url.Values{"mobileNumber": {"9876543210"}}, "sid")
	if err := h.ValidateMobile(e.NewContext(req, rec)); err != nil {
		t.Fatalf("ValidateMobile: %v", err)
	}

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d; want 303", rec.Code)
	}
	if loc := rec.Header().Get(echo.HeaderLocation); loc != "/recharge" {
		t.Errorf("redirect = %q; want /recharge", loc)
	}
	if _, err := checkout.LoadIdentity(context.Background(), store, "sid"); err != nil {
		t.Errorf("identity not bound: %v", err)
	}
}

func TestRechargePage_RequiresIdentity(t *testing.T) {
	store := checkout.NewMemoryStore()
	h := NewRechargeHandler(nil, nil, store)

	e := echo.New()
	req, rec := getPage("/recharge", "sid")
	if err := h.RechargePage(e.NewContext(req, rec)); err != nil {
		t.Fatalf("RechargePage: %v", err)
	}

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d; want 303", rec.Code)
	}
	if loc := rec.Header().Get(echo.HeaderLocation); loc != "/" {
		t.Errorf("redirect = %q; want /", loc)
	}
}

func TestSelectPlan_RevalidatesBeforeSaving(t *testing.T) {
	// The backend now rejects the previously bound number; the stale
	// selection must never be written.
	backend := newBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "revoked", http.StatusUnauthorized)
	}))
	store := checkout.NewMemoryStore()
	identity := services.NewIdentityService(store, backend)
	h := NewRechargeHandler(services.NewCatalogService(backend, nil), identity, store)

	ctx := context.Background()
	checkout.SaveIdentity(ctx, store, "sid", checkout.Identity{MobileNumber: "9876543210", Token: "stale"})

	e := echo.New()
	req, rec := postForm("/recharge/select", url.Values{
		"planId": {"3"},
		"price":  {"299"},
	}, "sid")
	if err := h.SelectPlan(e.NewContext(req, rec)); err != nil {
		t.Fatalf("SelectPlan: %v", err)
	}

	if loc := rec.Header().Get(echo.HeaderLocation); loc != "/" {
		t.Errorf("redirect = %q; want back to the gate", loc)
	}
	if _, err := checkout.LoadSelection(ctx, store, "sid"); err == nil {
		t.Error("selection was saved despite failed re-validation")
	}
}

func TestSelectPlan_SavesAndMovesToPayment(t *testing.T) {
	backend := newBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"token":"jwt-fresh"}`))
	}))
	store := checkout.NewMemoryStore()
	identity := services.NewIdentityService(store, backend)
	h := NewRechargeHandler(services.NewCatalogService(backend, nil), identity, store)

	ctx := context.Background()
	checkout.SaveIdentity(ctx, store, "sid", checkout.Identity{MobileNumber: "9876543210", Token: "jwt-1"})

	e := echo.New()
	req, rec := postForm("/recharge/select", url.Values{
		"planId":   {"3"},
		"price":    {"299"},
		"planName": {"2GB/day Plan"},
		"validity": {"28 days"},
	}, "sid")
	if err := h.SelectPlan(e.NewContext(req, rec)); err != nil {
		t.Fatalf("SelectPlan: %v", err)
	}

	if loc := rec.Header().Get(echo.HeaderLocation); loc != "/payment" {
		t.Errorf("redirect = %q; want /payment", loc)
	}
	sel, err := checkout.LoadSelection(ctx, store, "sid")
	if err != nil {
		t.Fatalf("LoadSelection: %v", err)
	}
	if sel.PlanID != 3 || sel.Price != "299" || sel.PlanName != "2GB/day Plan" {
		t.Errorf("selection = %+v; want plan 3 at 299", sel)
	}
}

func TestSubmitPayment_RedirectsToReceipt(t *testing.T) {
	backend := newBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	store := checkout.NewMemoryStore()
	h := NewPaymentHandler(services.NewPaymentService(store, backend), store)

	ctx := context.Background()
	checkout.SaveIdentity(ctx, store, "sid", checkout.Identity{MobileNumber: "9876543210", Token: "jwt-1"})
	checkout.SaveSelection(ctx, store, "sid", checkout.PlanSelection{PlanID: 3, Price: "299"})

	e := echo.New()
	req, rec := postForm("/payment/submit", url.Values{"paymentMethod": {"UPI"}}, "sid")
	if err := h.SubmitPayment(e.NewContext(req, rec)); err != nil {
		t.Fatalf("SubmitPayment: %v", err)
	}
	if loc := rec.Header().Get(echo.HeaderLocation); loc != "/receipt" {
		t.Errorf("redirect = %q; want /receipt", loc)
	}
}

func TestSubmitPayment_MissingStateGoesHome(t *testing.T) {
	backend := newBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("backend must not be called without checkout state")
	}))
	store := checkout.NewMemoryStore()
	h := NewPaymentHandler(services.NewPaymentService(store, backend), store)

	e := echo.New()
	req, rec := postForm("/payment/submit", url.Values{"paymentMethod": {"UPI"}}, "sid")
	if err := h.SubmitPayment(e.NewContext(req, rec)); err != nil {
		t.Fatalf("SubmitPayment: %v", err)
	}
	if loc := rec.Header().Get(echo.HeaderLocation); loc != "/" {
		t.Errorf("redirect = %q; want /", loc)
	}
}

func TestSubmitPayment_FailureKeepsRetryPath(t *testing.T) {
	backend := newBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	store := checkout.NewMemoryStore()
	h := NewPaymentHandler(services.NewPaymentService(store, backend), store)

	ctx := context.Background()
	checkout.SaveIdentity(ctx, store, "sid", checkout.Identity{MobileNumber: "9876543210", Token: "jwt-1"})
	checkout.SaveSelection(ctx, store, "sid", checkout.PlanSelection{PlanID: 3, Price: "299"})

	e := echo.New()
	req, rec := postForm("/payment/submit", url.Values{"paymentMethod": {"UPI"}}, "sid")
	if err := h.SubmitPayment(e.NewContext(req, rec)); err != nil {
		t.Fatalf("SubmitPayment: %v", err)
	}
	if loc := rec.Header().Get(echo.HeaderLocation); !strings.Contains(loc, "/payment?error=") {
		t.Errorf("redirect = %q; want /payment with an error hint", loc)
	}
	if _, err := checkout.LoadSelection(ctx, store, "sid"); err != nil {
		t.Errorf("selection lost after failed payment: %v", err)
	}
}

func TestDone_ResetsAndGoesHome(t *testing.T) {
	backend := newBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	store := checkout.NewMemoryStore()
	svc := services.NewPaymentService(store, backend)
	h := NewPaymentHandler(svc, store)

	ctx := context.Background()
	checkout.SaveIdentity(ctx, store, "sid", checkout.Identity{MobileNumber: "9876543210", Token: "jwt-1"})
	checkout.SaveSelection(ctx, store, "sid", checkout.PlanSelection{PlanID: 3, Price: "299"})
	if _, err := svc.SubmitPayment(ctx, "sid", "UPI"); err != nil {
		t.Fatalf("SubmitPayment: %v", err)
	}

	e := echo.New()
	req, rec := postForm("/receipt/done", url.Values{}, "sid")
	if err := h.Done(e.NewContext(req, rec)); err != nil {
		t.Fatalf("Done: %v", err)
	}
	if loc := rec.Header().Get(echo.HeaderLocation); loc != "/" {
		t.Errorf("redirect = %q; want /", loc)
	}
	if _, err := checkout.LoadSelection(ctx, store, "sid"); err == nil {
		t.Error("transient state survived the reset")
	}
}
