package main

import (
	"html/template"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"mobicomm_store/internal/checkout"
	"mobicomm_store/internal/handlers"
	appmw "mobicomm_store/internal/middleware"
	"mobicomm_store/internal/services"
)

// TemplateRenderer is a custom html/template renderer for Echo
// Uses per-page template cloning to allow each page to define its own blocks
type TemplateRenderer struct {
	templates map[string]*template.Template
}

// NewTemplateRenderer creates a template renderer with per-page cloning
func NewTemplateRenderer() *TemplateRenderer {
	templates := make(map[string]*template.Template)

	// Parse base layout and partials as the foundation
	baseTemplate := template.Must(template.ParseGlob("web/templates/layouts/*.html"))
	template.Must(baseTemplate.ParseGlob("web/templates/partials/*.html"))

	// Find all page templates and clone base for each
	pages, err := filepath.Glob("web/templates/pages/*.html")
	if err != nil {
		log.Fatal(err)
	}

	for _, page := range pages {
		pageName := filepath.Base(page)
		// Clone the base template for this page
		pageTemplate := template.Must(baseTemplate.Clone())
		// Parse the page-specific template
		template.Must(pageTemplate.ParseFiles(page))
		templates[pageName] = pageTemplate
	}

	// Also parse standalone templates (like login) that don't use the base layout
	standalonePages, _ := filepath.Glob("web/templates/*.html")
	for _, page := range standalonePages {
		pageName := filepath.Base(page)
		if _, exists := templates[pageName]; !exists {
			templates[pageName] = template.Must(template.ParseFiles(page))
		}
	}

	return &TemplateRenderer{templates: templates}
}

// Render renders a template document
func (t *TemplateRenderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	tmpl, ok := t.templates[name]
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "Template not found: "+name)
	}
	// Page templates render through the base layout; standalone
	// templates (like login) execute directly
	if tmpl.Lookup("base") != nil {
		if dataMap, ok := data.(map[string]interface{}); ok {
			if _, set := dataMap["Username"]; !set {
				dataMap["Username"] = c.Get("adminUsername")
			}
		} else if data == nil {
			data = map[string]interface{}{
				"Username": c.Get("adminUsername"),
			}
		}
		return tmpl.ExecuteTemplate(w, "base", data)
	}
	return tmpl.Execute(w, data)
}

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	// Session store: Redis when configured, in-memory otherwise
	var store checkout.Store
	var cache *services.RedisCache
	redisURL := os.Getenv("REDIS_URL")
	if redisURL != "" {
		redisStore, err := checkout.NewRedisStore(redisURL)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisStore.Close()
		store = redisStore

		cache, err = services.NewRedisCache(redisURL)
		if err != nil {
			log.Printf("Warning: Redis cache unavailable: %v", err)
			cache = nil
		} else {
			defer cache.Close()
		}
	} else {
		log.Println("Warning: REDIS_URL not set, sessions are in-memory and lost on restart")
		store = checkout.NewMemoryStore()
	}

	backend := services.NewBackendClient()
	identity := services.NewIdentityService(store, backend)
	catalog := services.NewCatalogService(backend, cache)
	payment := services.NewPaymentService(store, backend)
	reminders := services.NewReminderService(backend, cache)

	// Create Echo instance
	e := echo.New()

	// Middleware
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())

	// Template renderer with per-page cloning
	e.Renderer = NewTemplateRenderer()
	e.HTTPErrorHandler = appmw.CustomErrorHandler

	// Static file serving
	e.Static("/static", "web/static")

	// Initialize handlers
	homeHandler := handlers.NewHomeHandler(identity, store)
	rechargeHandler := handlers.NewRechargeHandler(catalog, identity, store)
	paymentHandler := handlers.NewPaymentHandler(payment, store)
	adminHandler := handlers.NewAdminHandler(backend, catalog, reminders, cache)

	// Purchase flow
	e.GET("/", homeHandler.HomePage)
	e.POST("/validate-mobile", homeHandler.ValidateMobile)
	e.GET("/recharge", rechargeHandler.RechargePage)
	e.POST("/recharge/select", rechargeHandler.SelectPlan)
	e.POST("/recharge/update-number", rechargeHandler.UpdateNumber)
	e.GET("/payment", paymentHandler.PaymentPage)
	e.POST("/payment/submit", paymentHandler.SubmitPayment)
	e.GET("/receipt", paymentHandler.ReceiptPage)
	e.POST("/receipt/invoice", paymentHandler.SendInvoice)
	e.POST("/receipt/done", paymentHandler.Done)

	// Admin
	e.GET("/admin/login", adminHandler.LoginPage)
	e.POST("/admin/login", adminHandler.HandleLogin)
	e.POST("/admin/logout", adminHandler.HandleLogout)

	admin := e.Group("/admin")
	admin.Use(appmw.RequireAdmin())
	admin.GET("/dashboard", adminHandler.Dashboard)
	admin.POST("/reminders", adminHandler.SendBulkReminders)
	admin.POST("/reminders/:userId", adminHandler.SendReminder)
	admin.GET("/users/:userId/transactions", adminHandler.UserTransactions)
	admin.GET("/plans", adminHandler.PlansPage)
	admin.POST("/plans", adminHandler.CreatePlan)
	admin.POST("/plans/:planId", adminHandler.UpdatePlan)
	admin.POST("/plans/:planId/toggle", adminHandler.TogglePlan)
	admin.POST("/plans/:planId/delete", adminHandler.DeletePlan)
	admin.POST("/categories", adminHandler.CreateCategory)

	e.GET("/admin", func(c echo.Context) error {
		return c.Redirect(http.StatusTemporaryRedirect, "/admin/dashboard")
	})

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}

	log.Printf("Server starting on port %s", port)
	e.Logger.Fatal(e.Start(":" + port))
}
