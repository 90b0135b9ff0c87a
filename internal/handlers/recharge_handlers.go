package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"mobicomm_store/internal/checkout"
	"mobicomm_store/internal/services"
)

// RechargeHandler serves the plan catalog and records plan selections
type RechargeHandler struct {
	catalog  *services.CatalogService
	identity *services.IdentityService
	store    checkout.Store
}

func NewRechargeHandler(catalog *services.CatalogService, identity *services.IdentityService, store checkout.Store) *RechargeHandler {
	return &RechargeHandler{catalog: catalog, identity: identity, store: store}
}

// RechargePage renders the catalog, one pane per category. Without a
// bound subscriber number the visitor goes back to the gate.
func (h *RechargeHandler) RechargePage(c echo.Context) error {
	sid := sessionID(c)
	ctx := c.Request().Context()

	id, err := checkout.LoadIdentity(ctx, h.store, sid)
	if err != nil {
		return c.Redirect(http.StatusSeeOther, "/")
	}

	panes, err := h.catalog.LoadCatalog(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "The plan catalog is unavailable right now.")
	}

	filter := services.PlanFilter{
		Query:    c.QueryParam("q"),
		Data:     c.QueryParam("data"),
		Validity: c.QueryParam("validity"),
	}
	if !filter.IsZero() {
		for i := range panes {
			panes[i].Plans = services.FilterPlans(panes[i].Plans, filter)
		}
	}

	return c.Render(http.StatusOK, "recharge.html", map[string]interface{}{
		"Title":        "Browse Plans",
		"MobileNumber": id.MobileNumber,
		"Panes":        panes,
		"Query":        filter.Query,
		"FilterData":   filter.Data,
		"FilterVal":    filter.Validity,
	})
}

// SelectPlan snapshots the chosen offer into the session and moves the
// flow to payment. The bound number is re-validated against the backend
// first; a stale or revoked subscriber never reaches payment.
func (h *RechargeHandler) SelectPlan(c echo.Context) error {
	sid := sessionID(c)
	ctx := c.Request().Context()

	id, err := checkout.LoadIdentity(ctx, h.store, sid)
	if err != nil {
		return c.Redirect(http.StatusSeeOther, "/")
	}

	if err := h.identity.ValidateAndBind(ctx, sid, id.MobileNumber); err != nil {
		if errors.Is(err, services.ErrInvalidMobile) || errors.Is(err, services.ErrNotSubscriber) {
			return c.Redirect(http.StatusSeeOther, "/")
		}
		return echo.NewHTTPError(http.StatusBadGateway, "We couldn't verify your number right now.")
	}

	planID, err := strconv.Atoi(c.FormValue("planId"))
	if err != nil || planID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid plan selection.")
	}

	sel := checkout.PlanSelection{
		PlanID:   planID,
		Price:    c.FormValue("price"),
		PlanName: c.FormValue("planName"),
		Data:     c.FormValue("data"),
		Validity: c.FormValue("validity"),
		Calls:    c.FormValue("calls"),
		SMS:      c.FormValue("sms"),
		Benefits: c.FormValue("benefits"),
	}
	if err := checkout.SaveSelection(ctx, h.store, sid, sel); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid plan selection.")
	}

	return c.Redirect(http.StatusSeeOther, "/payment")
}

// UpdateNumber rebinds the session to a different subscriber number
// without losing the visitor's place in the catalog
func (h *RechargeHandler) UpdateNumber(c echo.Context) error {
	sid := sessionID(c)
	mobile := c.FormValue("mobileNumber")

	err := h.identity.ChangeNumber(c.Request().Context(), sid, mobile)
	if err == nil {
		return c.Redirect(http.StatusSeeOther, "/recharge")
	}
	if errors.Is(err, services.ErrInvalidMobile) || errors.Is(err, services.ErrNotSubscriber) {
		return c.Redirect(http.StatusSeeOther, "/recharge?error=invalid_number")
	}
	return echo.NewHTTPError(http.StatusBadGateway, "We couldn't verify your number right now.")
}
