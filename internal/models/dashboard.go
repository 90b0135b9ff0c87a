package models

// DashboardStatistics summarizes revenue and transaction counts
type DashboardStatistics struct {
	TotalRevenue           float64 `json:"totalRevenue"`
	TotalTransactions      int     `json:"totalTransactions"`
	SuccessfulTransactions int     `json:"successfulTransactions"`
	FailedTransactions     int     `json:"failedTransactions"`
	PopularPlan            string  `json:"popularPlan"`
}

// SuccessRate is TotalTransactions-safe: zero transactions yields 0.
func (s DashboardStatistics) SuccessRate() float64 {
	if s.TotalTransactions == 0 {
		return 0
	}
	return float64(s.SuccessfulTransactions) / float64(s.TotalTransactions) * 100
}

// ExpiringPlan is one subscriber whose plan is about to lapse
type ExpiringPlan struct {
	UserID       int    `json:"userId"`
	MobileNumber string `json:"mobileNumber"`
	PlanName     string `json:"planName"`
	ExpiryDate   string `json:"expiryDate"`

	// DaysRemaining is derived locally, not part of the API payload
	DaysRemaining int `json:"-"`
}

// ReminderRequest asks the backend to email a single expiry reminder
type ReminderRequest struct {
	UserID int `json:"userId"`
}

// BulkReminderRequest sends reminders to several subscribers at once
type BulkReminderRequest struct {
	UserIDs      []int `json:"userIds"`
	TemplateType int   `json:"templateType"`
}
