package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/mechanic-shop/internal/model"
	"github.com/iliyamo/mechanic-shop/internal/utils"
)

type CustomerRepo struct {
	db *sql.DB
}

func NewCustomerRepo(db *sql.DB) *CustomerRepo { return &CustomerRepo{db: db} }

const customerColumns = "id, first_name, last_name, phone, email, address, password_hash"

func scanCustomer(row interface{ Scan(...any) error }) (model.Customer, error) {
	var (
		c                     model.Customer
		phone, address, email sql.NullString
		hash                  sql.NullString
	)
	if err := row.Scan(&c.ID, &c.FirstName, &c.LastName, &phone, &email, &address, &hash); err != nil {
		return model.Customer{}, err
	}
	c.Phone, c.Email, c.Address, c.PasswordHash = phone.String, email.String, address.String, hash.String
	return c, nil
}

// Create inserts c and fills in its ID. The email is normalized before the
// insert; a duplicate yields ErrEmailExists.
func (r *CustomerRepo) Create(ctx context.Context, c *model.Customer) error {
	c.Email = utils.NormalizeEmail(c.Email)
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO customers (first_name, last_name, phone, email, address, password_hash) VALUES (?, ?, ?, ?, ?, ?)",
		c.FirstName, c.LastName, nullable(c.Phone), c.Email, nullable(c.Address), c.PasswordHash)
	if err != nil {
		if isDuplicate(err) {
			return ErrEmailExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}

func (r *CustomerRepo) GetByID(ctx context.Context, id uint64) (model.Customer, error) {
	c, err := scanCustomer(r.db.QueryRowContext(ctx, "SELECT "+customerColumns+" FROM customers WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Customer{}, ErrNotFound
	}
	return c, err
}

// List returns all customers ordered by id.
func (r *CustomerRepo) List(ctx context.Context) ([]model.Customer, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+customerColumns+" FROM customers ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Customer{}
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Update writes every mutable column of c, including the password hash.
func (r *CustomerRepo) Update(ctx context.Context, c *model.Customer) error {
	c.Email = utils.NormalizeEmail(c.Email)
	res, err := r.db.ExecContext(ctx,
		"UPDATE customers SET first_name = ?, last_name = ?, phone = ?, email = ?, address = ?, password_hash = ? WHERE id = ?",
		c.FirstName, c.LastName, nullable(c.Phone), c.Email, nullable(c.Address), c.PasswordHash, c.ID)
	if err != nil {
		if isDuplicate(err) {
			return ErrEmailExists
		}
		return err
	}
	return affected(res.RowsAffected())
}

// Delete removes the customer; vehicles and their tickets cascade.
func (r *CustomerRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM customers WHERE id = ?", id)
	if err != nil {
		return err
	}
	return affected(res.RowsAffected())
}

// nullable stores empty optional strings as NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
