package models

// ValidateMobileRequest checks whether a number belongs to a subscriber
type ValidateMobileRequest struct {
	Username string `json:"username"`
}

// ValidateMobileResponse carries the session token. A missing token
// means the number is not a recognized subscriber, regardless of status.
type ValidateMobileResponse struct {
	Token string `json:"token"`
}

// LoginRequest authenticates an admin against the backend
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the backend's JWT grant
type LoginResponse struct {
	Token    string   `json:"token"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
	Message  string   `json:"message,omitempty"`
}

// IsAdmin reports whether the grant carries the admin role
func (r LoginResponse) IsAdmin() bool {
	for _, role := range r.Roles {
		if role == "ROLE_ADMIN" {
			return true
		}
	}
	return false
}
