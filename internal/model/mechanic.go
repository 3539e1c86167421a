package model

// Mechanic is a shop employee who works on service tickets.
type Mechanic struct {
	ID           uint64  `json:"id"`
	Name         string  `json:"name"`
	Email        string  `json:"email"`
	Phone        string  `json:"phone,omitempty"`
	Address      string  `json:"address,omitempty"`
	Salary       float64 `json:"salary"`
	PasswordHash string  `json:"-"`
}

// RankedMechanic is a mechanic together with the number of tickets they have
// been assigned to.
type RankedMechanic struct {
	Mechanic        Mechanic `json:"mechanic"`
	AssignmentCount int      `json:"assignment_count"`
}

// Principal returns the authentication view of m.
func (m Mechanic) Principal() Principal {
	return Principal{ID: m.ID, Email: m.Email, PasswordHash: m.PasswordHash, Kind: RoleMechanic}
}
