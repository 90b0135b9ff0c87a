package models

// Category is a plan category as served by the catalog API
type Category struct {
	CategoryID   int    `json:"categoryId"`
	CategoryName string `json:"categoryName"`
}

// Plan is a recharge offer inside a category. Display fields are
// optional; the API omits the ones a category does not use.
type Plan struct {
	PlanID   int     `json:"planId"`
	Price    float64 `json:"price"`
	PlanName string  `json:"planName,omitempty"`
	Data     string  `json:"data,omitempty"`
	Validity string  `json:"validity,omitempty"`
	Calls    string  `json:"calls,omitempty"`
	SMS      string  `json:"sms,omitempty"`
	Benefits string  `json:"benefits,omitempty"`
	IsActive bool    `json:"isActive,omitempty"`
}

// CategoryPane is one rendered catalog tab: the category, and either its
// plans or an inline load error. Exactly one of Plans/LoadError is
// meaningful; a pane never carries both.
type CategoryPane struct {
	Category  Category
	Plans     []Plan
	LoadError string
}

// AdminPlan is the payload for the admin plan CRUD endpoints
type AdminPlan struct {
	PlanID       int     `json:"planId,omitempty"`
	CategoryID   int     `json:"categoryId"`
	CategoryName string  `json:"categoryName,omitempty"`
	PlanName     string  `json:"planName"`
	Price        float64 `json:"price"`
	Data         string  `json:"data,omitempty"`
	Validity     string  `json:"validity,omitempty"`
	Calls        string  `json:"calls,omitempty"`
	Benefits     string  `json:"benefits,omitempty"`
	IsActive     bool    `json:"isActive"`
}
