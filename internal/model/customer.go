package model

// Customer owns vehicles and, through them, service tickets.
type Customer struct {
	ID           uint64 `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Phone        string `json:"phone,omitempty"`
	Email        string `json:"email"`
	Address      string `json:"address,omitempty"`
	PasswordHash string `json:"-"`
}

// Principal returns the authentication view of c.
func (c Customer) Principal() Principal {
	return Principal{ID: c.ID, Email: c.Email, PasswordHash: c.PasswordHash, Kind: RoleCustomer}
}
