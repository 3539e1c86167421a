package model

// MaxVINLength is the width of the vehicles.vin column.
const MaxVINLength = 17

// Vehicle is keyed by its VIN and belongs to exactly one customer.
// Deleting the customer deletes the vehicle and its tickets.
type Vehicle struct {
	VIN          string `json:"vin"`
	CustomerID   uint64 `json:"customer_id"`
	Make         string `json:"make,omitempty"`
	Model        string `json:"model,omitempty"`
	Year         int    `json:"year,omitempty"`
	LicensePlate string `json:"license_plate,omitempty"`
}
