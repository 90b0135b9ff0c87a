package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"mobicomm_store/internal/middleware"
	"mobicomm_store/internal/models"
	"mobicomm_store/internal/services"
)

// AdminHandler proxies the back-office screens: login, the dashboard,
// reminders, and plan management. It never stores anything itself; every
// mutation goes straight to the backend with the admin's grant.
type AdminHandler struct {
	backend   *services.BackendClient
	catalog   *services.CatalogService
	reminders *services.ReminderService
	cache     *services.RedisCache
}

func NewAdminHandler(backend *services.BackendClient, catalog *services.CatalogService, reminders *services.ReminderService, cache *services.RedisCache) *AdminHandler {
	return &AdminHandler{backend: backend, catalog: catalog, reminders: reminders, cache: cache}
}

// LoginPage renders the standalone admin login form
func (h *AdminHandler) LoginPage(c echo.Context) error {
	data := map[string]interface{}{"Title": "Admin Login"}
	if c.QueryParam("error") == "session_expired" {
		data["Error"] = "Your session has expired. Please sign in again."
	}
	return c.Render(http.StatusOK, "login.html", data)
}

// HandleLogin authenticates against the backend and requires the admin
// role; a subscriber grant never opens the back office.
func (h *AdminHandler) HandleLogin(c echo.Context) error {
	username := c.FormValue("username")
	password := c.FormValue("password")

	grant, err := h.backend.Login(c.Request().Context(), username, password)
	if err != nil || grant.Token == "" {
		return c.Render(http.StatusUnauthorized, "login.html", map[string]interface{}{
			"Title":    "Admin Login",
			"Username": username,
			"Error":    "Invalid username or password.",
		})
	}
	if !grant.IsAdmin() {
		return c.Render(http.StatusForbidden, "login.html", map[string]interface{}{
			"Title":    "Admin Login",
			"Username": username,
			"Error":    "This account does not have admin access.",
		})
	}

	middleware.SetAdminCookie(c, grant.Token)
	return c.Redirect(http.StatusSeeOther, "/admin/dashboard")
}

// HandleLogout drops the local grant
func (h *AdminHandler) HandleLogout(c echo.Context) error {
	middleware.ClearAdminCookie(c)
	return c.Redirect(http.StatusSeeOther, "/admin/login")
}

// Dashboard shows revenue statistics and the plans lapsing soon
func (h *AdminHandler) Dashboard(c echo.Context) error {
	ctx := c.Request().Context()
	token := getStringFromContext(c, "adminToken")

	stats, err := h.backend.Statistics(ctx, token)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "Dashboard statistics are unavailable.")
	}

	// Expiring plans are secondary; the dashboard still renders when
	// they fail to load.
	expiring, err := h.reminders.ExpiringSoon(ctx, token)
	expiringError := ""
	if err != nil {
		c.Logger().Errorf("expiring plans unavailable: %v", err)
		expiringError = "Expiring plans could not be loaded."
	}

	return c.Render(http.StatusOK, "admin_dashboard.html", map[string]interface{}{
		"Title":         "Dashboard",
		"Username":      getStringFromContext(c, "adminUsername"),
		"Stats":         stats,
		"SuccessRate":   stats.SuccessRate(),
		"Expiring":      expiring,
		"ExpiringError": expiringError,
		"ReminderSent":  c.QueryParam("reminder") == "sent",
	})
}

// SendReminder emails one subscriber whose plan is about to lapse
func (h *AdminHandler) SendReminder(c echo.Context) error {
	userID, err := strconv.Atoi(c.Param("userId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user id.")
	}

	token := getStringFromContext(c, "adminToken")
	if err := h.backend.SendReminder(c.Request().Context(), token, userID); err != nil {
		c.Logger().Errorf("reminder to user %d failed: %v", userID, err)
		return c.Redirect(http.StatusSeeOther, "/admin/dashboard?reminder=failed")
	}
	return c.Redirect(http.StatusSeeOther, "/admin/dashboard?reminder=sent")
}

// SendBulkReminders runs a reminder sweep over the whole expiry window
func (h *AdminHandler) SendBulkReminders(c echo.Context) error {
	token := getStringFromContext(c, "adminToken")
	sent, err := h.reminders.RunSweep(c.Request().Context(), token)
	if err != nil {
		c.Logger().Errorf("bulk reminder sweep failed: %v", err)
		return c.Redirect(http.StatusSeeOther, "/admin/dashboard?reminder=failed")
	}
	return c.Redirect(http.StatusSeeOther, "/admin/dashboard?reminder=sent&count="+strconv.Itoa(sent))
}

// UserTransactions shows one subscriber's recharge history
func (h *AdminHandler) UserTransactions(c echo.Context) error {
	userID, err := strconv.Atoi(c.Param("userId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user id.")
	}

	token := getStringFromContext(c, "adminToken")
	txns, err := h.backend.UserTransactions(c.Request().Context(), token, userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "Transaction history is unavailable.")
	}

	return c.Render(http.StatusOK, "admin_transactions.html", map[string]interface{}{
		"Title":        "Transaction History",
		"Username":     getStringFromContext(c, "adminUsername"),
		"UserID":       userID,
		"Transactions": txns,
	})
}

// PlansPage renders the plan management screen
func (h *AdminHandler) PlansPage(c echo.Context) error {
	ctx := c.Request().Context()

	categories, err := h.catalog.LoadCategories(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "The plan catalog is unavailable right now.")
	}
	plans, err := h.backend.AllPlans(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "The plan catalog is unavailable right now.")
	}

	return c.Render(http.StatusOK, "admin_plans.html", map[string]interface{}{
		"Title":      "Plan Management",
		"Username":   getStringFromContext(c, "adminUsername"),
		"Categories": categories,
		"Plans":      plans,
		"Saved":      c.QueryParam("saved") == "1",
	})
}

// CreatePlan adds a plan through the backend admin API
func (h *AdminHandler) CreatePlan(c echo.Context) error {
	plan, err := planFromForm(c)
	if err != nil {
		return err
	}

	token := getStringFromContext(c, "adminToken")
	if _, err := h.backend.CreatePlan(c.Request().Context(), token, plan); err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "Plan could not be created.")
	}

	h.invalidateCatalog(c, plan.CategoryID)
	return c.Redirect(http.StatusSeeOther, "/admin/plans?saved=1")
}

// UpdatePlan replaces a plan through the backend admin API
func (h *AdminHandler) UpdatePlan(c echo.Context) error {
	planID, err := strconv.Atoi(c.Param("planId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid plan id.")
	}
	plan, err := planFromForm(c)
	if err != nil {
		return err
	}
	plan.PlanID = planID

	token := getStringFromContext(c, "adminToken")
	if _, err := h.backend.UpdatePlan(c.Request().Context(), token, plan); err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "Plan could not be updated.")
	}

	h.invalidateCatalog(c, plan.CategoryID)
	return c.Redirect(http.StatusSeeOther, "/admin/plans?saved=1")
}

// TogglePlan flips a plan's active flag
func (h *AdminHandler) TogglePlan(c echo.Context) error {
	planID, err := strconv.Atoi(c.Param("planId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid plan id.")
	}

	token := getStringFromContext(c, "adminToken")
	if err := h.backend.TogglePlan(c.Request().Context(), token, planID); err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "Plan could not be toggled.")
	}

	h.invalidateCatalog(c, 0)
	return c.Redirect(http.StatusSeeOther, "/admin/plans?saved=1")
}

// DeletePlan removes a plan
func (h *AdminHandler) DeletePlan(c echo.Context) error {
	planID, err := strconv.Atoi(c.Param("planId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid plan id.")
	}

	token := getStringFromContext(c, "adminToken")
	if err := h.backend.DeletePlan(c.Request().Context(), token, planID); err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "Plan could not be deleted.")
	}

	h.invalidateCatalog(c, 0)
	return c.Redirect(http.StatusSeeOther, "/admin/plans?saved=1")
}

// CreateCategory adds a plan category
func (h *AdminHandler) CreateCategory(c echo.Context) error {
	name := c.FormValue("categoryName")
	if name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Category name is required.")
	}

	token := getStringFromContext(c, "adminToken")
	if _, err := h.backend.CreateCategory(c.Request().Context(), token, name); err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "Category could not be created.")
	}

	h.invalidateCatalog(c, 0)
	return c.Redirect(http.StatusSeeOther, "/admin/plans?saved=1")
}

// invalidateCatalog drops cached catalog entries after an admin edit so
// the storefront picks the change up immediately. categoryID 0 means
// drop everything we know about.
func (h *AdminHandler) invalidateCatalog(c echo.Context, categoryID int) {
	if h.cache == nil {
		return
	}
	ctx := c.Request().Context()
	_ = h.cache.Delete(ctx, "catalog:categories")
	if categoryID > 0 {
		_ = h.cache.Delete(ctx, "catalog:plans:"+strconv.Itoa(categoryID))
		return
	}
	categories, err := h.catalog.LoadCategories(ctx)
	if err != nil {
		return
	}
	for _, cat := range categories {
		_ = h.cache.Delete(ctx, "catalog:plans:"+strconv.Itoa(cat.CategoryID))
	}
}

func planFromForm(c echo.Context) (models.AdminPlan, error) {
	categoryID, err := strconv.Atoi(c.FormValue("categoryId"))
	if err != nil || categoryID <= 0 {
		return models.AdminPlan{}, echo.NewHTTPError(http.StatusBadRequest, "Invalid category.")
	}
	price, err := strconv.ParseFloat(c.FormValue("price"), 64)
	if err != nil || price < 0 {
		return models.AdminPlan{}, echo.NewHTTPError(http.StatusBadRequest, "Invalid price.")
	}
	name := c.FormValue("planName")
	if name == "" {
		return models.AdminPlan{}, echo.NewHTTPError(http.StatusBadRequest, "Plan name is required.")
	}

	return models.AdminPlan{
		CategoryID: categoryID,
		PlanName:   name,
		Price:      price,
		Data:       c.FormValue("data"),
		Validity:   c.FormValue("validity"),
		Calls:      c.FormValue("calls"),
		Benefits:   c.FormValue("benefits"),
		IsActive:   c.FormValue("isActive") == "on",
	}, nil
}
