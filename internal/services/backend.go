package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"mobicomm_store/internal/models"
)

// BackendClient talks to the MobiComm REST API. The backend owns all
// durable data; this client is the only network path out of the app.
type BackendClient struct {
	baseURL string
	client  *http.Client
}

// NewBackendClient reads BACKEND_BASE_URL, defaulting to the local
// backend. The client timeout bounds every call so a slow backend can
// never leave a screen spinning indefinitely.
func NewBackendClient() *BackendClient {
	base := os.Getenv("BACKEND_BASE_URL")
	if base == "" {
		base = "http://localhost:8080"
	}
	return &BackendClient{
		baseURL: base,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// StatusError is a non-2xx backend response. Transport failures come
// back as plain wrapped errors; callers that care use errors.As.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned status %d: %s", e.Code, e.Body)
}

// doJSON issues one JSON request. token, payload and dest are all
// optional; dest must be a pointer when set.
func (c *BackendClient) doJSON(ctx context.Context, method, endpoint, token string, payload, dest interface{}) error {
	var bodyReader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		bodyReader = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return &StatusError{Code: resp.StatusCode, Body: string(body)}
	}

	if dest != nil {
		if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// ValidateMobile asks the backend whether the number belongs to a
// subscriber. An empty token with an OK status means it does not.
func (c *BackendClient) ValidateMobile(ctx context.Context, mobile string) (string, error) {
	var resp models.ValidateMobileResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/auth/validate-mobile", "",
		models.ValidateMobileRequest{Username: mobile}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Token, nil
}

// Login authenticates a user and returns the JWT grant
func (c *BackendClient) Login(ctx context.Context, username, password string) (models.LoginResponse, error) {
	var resp models.LoginResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/auth/login", "",
		models.LoginRequest{Username: username, Password: password}, &resp)
	return resp, err
}

// Categories lists the plan categories
func (c *BackendClient) Categories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := c.doJSON(ctx, http.MethodGet, "/api/categories", "", nil, &categories)
	return categories, err
}

// PlansForCategory lists the plans of one category
func (c *BackendClient) PlansForCategory(ctx context.Context, categoryID int) ([]models.Plan, error) {
	var plans []models.Plan
	endpoint := "/api/plans?categoryId=" + url.QueryEscape(strconv.Itoa(categoryID))
	err := c.doJSON(ctx, http.MethodGet, endpoint, "", nil, &plans)
	return plans, err
}

// AllPlans lists every public plan
func (c *BackendClient) AllPlans(ctx context.Context) ([]models.Plan, error) {
	var plans []models.Plan
	err := c.doJSON(ctx, http.MethodGet, "/api/plans", "", nil, &plans)
	return plans, err
}

// SubmitRecharge records one completed recharge. The whole record goes
// in a single create; there is no partial-update protocol.
func (c *BackendClient) SubmitRecharge(ctx context.Context, req models.RechargeRequest) error {
	return c.doJSON(ctx, http.MethodPost, "/api/transactions/recharge", "", req, nil)
}

// SendInvoice asks the backend to email an invoice
func (c *BackendClient) SendInvoice(ctx context.Context, req models.InvoiceRequest) error {
	return c.doJSON(ctx, http.MethodPost, "/api/email/send-invoice", "", req, nil)
}

// Statistics fetches the admin dashboard summary
func (c *BackendClient) Statistics(ctx context.Context, token string) (models.DashboardStatistics, error) {
	var stats models.DashboardStatistics
	err := c.doJSON(ctx, http.MethodGet, "/api/dashboard/statistics", token, nil, &stats)
	return stats, err
}

// ExpiringPlans lists subscribers whose plans are about to lapse
func (c *BackendClient) ExpiringPlans(ctx context.Context, token string) ([]models.ExpiringPlan, error) {
	var plans []models.ExpiringPlan
	err := c.doJSON(ctx, http.MethodGet, "/api/dashboard/expiring-plans", token, nil, &plans)
	return plans, err
}

// UserTransactions fetches one subscriber's transaction history
func (c *BackendClient) UserTransactions(ctx context.Context, token string, userID int) ([]models.UserTransaction, error) {
	var txns []models.UserTransaction
	endpoint := "/api/dashboard/user-transactions/" + strconv.Itoa(userID)
	err := c.doJSON(ctx, http.MethodGet, endpoint, token, nil, &txns)
	return txns, err
}

// SendReminder emails an expiry reminder to one subscriber
func (c *BackendClient) SendReminder(ctx context.Context, token string, userID int) error {
	return c.doJSON(ctx, http.MethodPost, "/api/email/send-reminder", token,
		models.ReminderRequest{UserID: userID}, nil)
}

// SendBulkReminders emails expiry reminders to several subscribers
func (c *BackendClient) SendBulkReminders(ctx context.Context, token string, userIDs []int, templateType int) error {
	return c.doJSON(ctx, http.MethodPost, "/api/email/send-bulk-reminders", token,
		models.BulkReminderRequest{UserIDs: userIDs, TemplateType: templateType}, nil)
}

// CreatePlan creates a plan through the admin API
func (c *BackendClient) CreatePlan(ctx context.Context, token string, plan models.AdminPlan) (models.AdminPlan, error) {
	var created models.AdminPlan
	err := c.doJSON(ctx, http.MethodPost, "/api/admin/plans", token, plan, &created)
	return created, err
}

// UpdatePlan replaces a plan through the admin API
func (c *BackendClient) UpdatePlan(ctx context.Context, token string, plan models.AdminPlan) (models.AdminPlan, error) {
	var updated models.AdminPlan
	endpoint := "/api/admin/plans/" + strconv.Itoa(plan.PlanID)
	err := c.doJSON(ctx, http.MethodPut, endpoint, token, plan, &updated)
	return updated, err
}

// TogglePlan flips a plan's active flag
func (c *BackendClient) TogglePlan(ctx context.Context, token string, planID int) error {
	endpoint := "/api/admin/plans/" + strconv.Itoa(planID) + "/toggle"
	return c.doJSON(ctx, http.MethodPatch, endpoint, token, nil, nil)
}

// DeletePlan removes a plan through the admin API
func (c *BackendClient) DeletePlan(ctx context.Context, token string, planID int) error {
	endpoint := "/api/admin/plans/" + strconv.Itoa(planID)
	return c.doJSON(ctx, http.MethodDelete, endpoint, token, nil, nil)
}

// CreateCategory creates a plan category through the admin API
func (c *BackendClient) CreateCategory(ctx context.Context, token, name string) (models.Category, error) {
	var created models.Category
	err := c.doJSON(ctx, http.MethodPost, "/api/admin/categories", token,
		models.Category{CategoryName: name}, &created)
	return created, err
}

// WithBaseURL returns a copy pointing at a different backend. Tests use
// this to target an httptest server.
func (c *BackendClient) WithBaseURL(base string) *BackendClient {
	return &BackendClient{baseURL: base, client: c.client}
}
