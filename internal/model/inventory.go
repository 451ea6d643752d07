package model

// InventoryItem mirrors the `inventory_items` table. ItemID is chosen by
// the admin creating the item (e.g. "LAPTOP-001").
type InventoryItem struct {
	ItemID         string `json:"itemId"`
	AvailableStock int    `json:"availableStock"`
	ReservedStock  int    `json:"reservedStock"`
}
