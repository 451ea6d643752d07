package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/ordermgmt/internal/model"
)

// InventoryRepo provides CRUD over inventory_items.
type InventoryRepo struct{ DB *sql.DB }

func NewInventoryRepo(db *sql.DB) *InventoryRepo { return &InventoryRepo{DB: db} }

// List returns every item ordered by id, or an empty slice.
func (r *InventoryRepo) List(ctx context.Context) ([]model.InventoryItem, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT item_id, available_stock, reserved_stock FROM inventory_items ORDER BY item_id")
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	defer rows.Close()

	out := []model.InventoryItem{}
	for rows.Next() {
		var it model.InventoryItem
		if err := rows.Scan(&it.ItemID, &it.AvailableStock, &it.ReservedStock); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// Get returns the item with itemID or ErrNotFound.
func (r *InventoryRepo) Get(ctx context.Context, itemID string) (model.InventoryItem, error) {
	var it model.InventoryItem
	err := r.DB.QueryRowContext(ctx,
		"SELECT item_id, available_stock, reserved_stock FROM inventory_items WHERE item_id = ?", itemID).
		Scan(&it.ItemID, &it.AvailableStock, &it.ReservedStock)
	if errors.Is(err, sql.ErrNoRows) {
		return model.InventoryItem{}, ErrNotFound
	}
	if err != nil {
		return model.InventoryItem{}, fmt.Errorf("get inventory item: %w", err)
	}
	return it, nil
}

// Create inserts it; an existing item id yields ErrConflict.
func (r *InventoryRepo) Create(ctx context.Context, it model.InventoryItem) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO inventory_items (item_id, available_stock, reserved_stock) VALUES (?,?,?)",
		it.ItemID, it.AvailableStock, it.ReservedStock)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert inventory item: %w", err)
	}
	return nil
}

// Update overwrites both stock counters of an existing item.
func (r *InventoryRepo) Update(ctx context.Context, it model.InventoryItem) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE inventory_items SET available_stock = ?, reserved_stock = ? WHERE item_id = ?",
		it.AvailableStock, it.ReservedStock, it.ItemID)
	if err != nil {
		return fmt.Errorf("update inventory item: %w", err)
	}
	return expectOne(res)
}

// Delete removes the item with itemID or returns ErrNotFound.
func (r *InventoryRepo) Delete(ctx context.Context, itemID string) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM inventory_items WHERE item_id = ?", itemID)
	if err != nil {
		return fmt.Errorf("delete inventory item: %w", err)
	}
	return expectOne(res)
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
