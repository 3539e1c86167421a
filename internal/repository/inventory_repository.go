package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/mechanic-shop/internal/model"
)

type InventoryRepo struct {
	db *sql.DB
}

func NewInventoryRepo(db *sql.DB) *InventoryRepo { return &InventoryRepo{db: db} }

func (r *InventoryRepo) Create(ctx context.Context, it *model.InventoryItem) error {
	res, err := r.db.ExecContext(ctx, "INSERT INTO inventory (name, price) VALUES (?, ?)", it.Name, it.Price)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	it.ID = uint64(id)
	return nil
}

func (r *InventoryRepo) GetByID(ctx context.Context, id uint64) (model.InventoryItem, error) {
	var it model.InventoryItem
	err := r.db.QueryRowContext(ctx, "SELECT id, name, price FROM inventory WHERE id = ?", id).
		Scan(&it.ID, &it.Name, &it.Price)
	if errors.Is(err, sql.ErrNoRows) {
		return model.InventoryItem{}, ErrNotFound
	}
	return it, err
}

func (r *InventoryRepo) List(ctx context.Context) ([]model.InventoryItem, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name, price FROM inventory ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.InventoryItem{}
	for rows.Next() {
		var it model.InventoryItem
		if err := rows.Scan(&it.ID, &it.Name, &it.Price); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *InventoryRepo) Update(ctx context.Context, it *model.InventoryItem) error {
	res, err := r.db.ExecContext(ctx, "UPDATE inventory SET name = ?, price = ? WHERE id = ?", it.Name, it.Price, it.ID)
	if err != nil {
		return err
	}
	return affected(res.RowsAffected())
}

// Delete removes the part. Parts still attached to tickets cannot be
// deleted and yield ErrConflict.
func (r *InventoryRepo) Delete(ctx context.Context, id uint64) error {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM ticket_parts WHERE inventory_id = ?", id).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return ErrConflict
	}
	res, err := r.db.ExecContext(ctx, "DELETE FROM inventory WHERE id = ?", id)
	if err != nil {
		return err
	}
	return affected(res.RowsAffected())
}
