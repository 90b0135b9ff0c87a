package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"mobicomm_store/internal/checkout"
	"mobicomm_store/internal/services"
)

// PaymentHandler runs the payment screen, the receipt, and the reset
// that closes the flow
type PaymentHandler struct {
	payment *services.PaymentService
	store   checkout.Store
}

func NewPaymentHandler(payment *services.PaymentService, store checkout.Store) *PaymentHandler {
	return &PaymentHandler{payment: payment, store: store}
}

// PaymentPage shows the order summary. Arriving without a bound number
// or a selected plan sends the visitor back to the screen that produces
// the missing piece.
func (h *PaymentHandler) PaymentPage(c echo.Context) error {
	sid := sessionID(c)
	ctx := c.Request().Context()

	id, err := checkout.LoadIdentity(ctx, h.store, sid)
	if err != nil {
		return c.Redirect(http.StatusSeeOther, "/")
	}
	sel, err := checkout.LoadSelection(ctx, h.store, sid)
	if err != nil {
		return c.Redirect(http.StatusSeeOther, "/recharge")
	}

	amount, err := sel.Amount()
	if err != nil {
		return c.Redirect(http.StatusSeeOther, "/recharge")
	}

	return c.Render(http.StatusOK, "payment.html", map[string]interface{}{
		"Title":        "Payment",
		"MobileNumber": id.MobileNumber,
		"Plan":         sel,
		"Amount":       amount,
		"Error":        paymentErrorMessage(c.QueryParam("error")),
	})
}

// SubmitPayment executes the purchase and lands on the receipt
func (h *PaymentHandler) SubmitPayment(c echo.Context) error {
	sid := sessionID(c)
	method := c.FormValue("paymentMethod")

	_, err := h.payment.SubmitPayment(c.Request().Context(), sid, method)
	switch {
	case err == nil:
		return c.Redirect(http.StatusSeeOther, "/receipt")
	case errors.Is(err, services.ErrMissingState):
		return c.Redirect(http.StatusSeeOther, "/")
	case errors.Is(err, services.ErrInvalidAmount):
		return c.Redirect(http.StatusSeeOther, "/recharge")
	case errors.Is(err, services.ErrSubmissionFailed):
		c.Logger().Errorf("payment submission failed: %v", err)
		return c.Redirect(http.StatusSeeOther, "/payment?error=submission_failed")
	default:
		return err
	}
}

// ReceiptPage renders the confirmation for the recorded transaction
func (h *PaymentHandler) ReceiptPage(c echo.Context) error {
	sid := sessionID(c)
	ctx := c.Request().Context()

	id, err := checkout.LoadIdentity(ctx, h.store, sid)
	if err != nil {
		return c.Redirect(http.StatusSeeOther, "/")
	}
	txn, err := checkout.LoadTransaction(ctx, h.store, sid)
	if err != nil {
		return c.Redirect(http.StatusSeeOther, "/recharge")
	}
	sel, err := checkout.LoadSelection(ctx, h.store, sid)
	if err != nil {
		return c.Redirect(http.StatusSeeOther, "/recharge")
	}

	return c.Render(http.StatusOK, "receipt.html", map[string]interface{}{
		"Title":        "Recharge Successful",
		"MobileNumber": id.MobileNumber,
		"ContactEmail": id.ContactEmail,
		"Transaction":  txn,
		"Plan":         sel,
		"InvoiceSent":  c.QueryParam("invoice") == "sent",
		"Error":        paymentErrorMessage(c.QueryParam("error")),
	})
}

// SendInvoice queues the invoice email and returns to the receipt. The
// send itself is best-effort; only a bad address comes back inline.
func (h *PaymentHandler) SendInvoice(c echo.Context) error {
	sid := sessionID(c)
	email := c.FormValue("email")

	err := h.payment.SendInvoiceAsync(c.Request().Context(), sid, email)
	switch {
	case err == nil:
		return c.Redirect(http.StatusSeeOther, "/receipt?invoice=sent")
	case errors.Is(err, services.ErrInvalidEmail):
		return c.Redirect(http.StatusSeeOther, "/receipt?error=invalid_email")
	case errors.Is(err, services.ErrMissingState):
		return c.Redirect(http.StatusSeeOther, "/")
	default:
		return err
	}
}

// Done acknowledges the receipt: transient state is cleared and the
// visitor returns to the start with their number still bound
func (h *PaymentHandler) Done(c echo.Context) error {
	sid := sessionID(c)
	if err := h.payment.AcknowledgeAndReset(c.Request().Context(), sid); err != nil {
		c.Logger().Errorf("session reset failed: %v", err)
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

func paymentErrorMessage(code string) string {
	switch code {
	case "submission_failed":
		return "Payment could not be processed. Please try again."
	case "invalid_email":
		return "Please enter a valid email address."
	default:
		return ""
	}
}
