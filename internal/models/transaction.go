package models

// RechargeRequest is the transaction record submitted to the backend.
// The client copy is advisory; the backend owns settlement.
type RechargeRequest struct {
	MobileNumber    string  `json:"mobileNumber"`
	PlanID          int     `json:"planId"`
	Amount          float64 `json:"amount"`
	PaymentMethod   string  `json:"paymentMethod"`
	PaymentStatus   string  `json:"paymentStatus"`
	TransactionDate string  `json:"transactionDate"`
	ExpiryDate      string  `json:"expiryDate"`
}

// InvoiceRequest asks the backend to email an invoice. Amount travels as
// a string because that is what the email endpoint expects.
type InvoiceRequest struct {
	Email           string `json:"email"`
	MobileNumber    string `json:"mobileNumber"`
	PlanName        string `json:"planName"`
	Amount          string `json:"amount"`
	TransactionID   string `json:"transactionId"`
	PaymentMethod   string `json:"paymentMethod"`
	TransactionDate string `json:"transactionDate"`
}

// Receipt is what a successful payment hands back to the receipt screen
type Receipt struct {
	TransactionID   string
	TransactionDate string // locale display form, not the wire timestamp
	PaymentMethod   string
	Amount          float64
	MobileNumber    string
	PlanName        string
}

// UserTransaction is one row of a subscriber's transaction history
type UserTransaction struct {
	TransactionID   string  `json:"transactionId"`
	PlanName        string  `json:"planName"`
	Amount          float64 `json:"amount"`
	TransactionDate string  `json:"transactionDate"`
	PaymentStatus   string  `json:"paymentStatus"`
}
