package model

import (
	"fmt"
	"strings"
)

// Role names the kind of principal a token was issued to. It travels in the
// "role" claim and decides which protected routes a caller may reach.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleMechanic Role = "mechanic"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool { return r == RoleCustomer || r == RoleMechanic }

func (r Role) String() string { return string(r) }

// ParseRole converts a claim value to a Role. Matching is case-insensitive.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Principal is an authenticatable account: a customer or a mechanic.
// The password hash never leaves the process.
//
// Fields:
//
//	ID           – primary key in the table for its kind.
//	Email        – lower-cased, unique within its kind.
//	PasswordHash – bcrypt hash.
//	Kind         – which table the row came from.
type Principal struct {
	ID           uint64 `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	Kind         Role   `json:"kind"`
}
