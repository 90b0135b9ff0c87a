package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"mobicomm_store/internal/checkout"
	"mobicomm_store/internal/services"
)

// HomeHandler serves the landing page and the subscriber gate
type HomeHandler struct {
	identity *services.IdentityService
	store    checkout.Store
}

func NewHomeHandler(identity *services.IdentityService, store checkout.Store) *HomeHandler {
	return &HomeHandler{identity: identity, store: store}
}

// HomePage renders the landing page. A returning visitor sees their
// bound number prefilled.
func (h *HomeHandler) HomePage(c echo.Context) error {
	sid := sessionID(c)

	data := map[string]interface{}{
		"Title": "MobiComm Recharge",
	}
	if id, err := checkout.LoadIdentity(c.Request().Context(), h.store, sid); err == nil {
		data["MobileNumber"] = id.MobileNumber
	}

	return c.Render(http.StatusOK, "home.html", data)
}

// ValidateMobile is the gate: the flow only moves to the catalog once
// the backend recognizes the number. Failures re-render the form with
// an inline message and leave the session untouched.
func (h *HomeHandler) ValidateMobile(c echo.Context) error {
	sid := sessionID(c)
	mobile := c.FormValue("mobileNumber")

	err := h.identity.ValidateAndBind(c.Request().Context(), sid, mobile)
	if err == nil {
		return c.Redirect(http.StatusSeeOther, "/recharge")
	}

	data := map[string]interface{}{
		"Title":        "MobiComm Recharge",
		"MobileNumber": mobile,
	}
	switch {
	case errors.Is(err, services.ErrInvalidMobile):
		data["Error"] = "Please enter a valid 10-digit mobile number."
	case errors.Is(err, services.ErrNotSubscriber):
		data["Error"] = "This number is not a MobiComm subscriber."
	default:
		c.Logger().Errorf("mobile validation failed: %v", err)
		data["Error"] = "We couldn't verify your number right now. Please try again."
	}
	return c.Render(http.StatusOK, "home.html", data)
}
