package model

// InventoryItem is a part that can be attached to service tickets.
type InventoryItem struct {
	ID    uint64  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}
