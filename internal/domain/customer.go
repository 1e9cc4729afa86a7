package domain

import "strings"

const customerGIDPrefix = "gid://shopify/Customer/"

// Customer is the commerce platform's customer record, as returned by
// the Admin API. The ID may be a numeric string or a full GID.
type Customer struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// NumericID strips the GID prefix when present. The Admin REST endpoints
// want the bare numeric ID in the URL path.
func NumericID(id string) string {
	return strings.TrimPrefix(id, customerGIDPrefix)
}

// CustomerSummary is the customer shape returned to clients after login
type CustomerSummary struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	ActiveCartID string `json:"activeCartId,omitempty"`
}

// LoginResult is the outcome of a successful OTP login
type LoginResult struct {
	Token    string
	Customer CustomerSummary
}
