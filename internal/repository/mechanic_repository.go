package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/mechanic-shop/internal/model"
	"github.com/iliyamo/mechanic-shop/internal/utils"
)

type MechanicRepo struct {
	db *sql.DB
}

func NewMechanicRepo(db *sql.DB) *MechanicRepo { return &MechanicRepo{db: db} }

const mechanicColumns = "id, name, email, phone, address, salary, password_hash"

func scanMechanic(row interface{ Scan(...any) error }, extra ...any) (model.Mechanic, error) {
	var (
		m                     model.Mechanic
		email, phone, address sql.NullString
		salary                sql.NullFloat64
		hash                  sql.NullString
	)
	dest := append([]any{&m.ID, &m.Name, &email, &phone, &address, &salary, &hash}, extra...)
	if err := row.Scan(dest...); err != nil {
		return model.Mechanic{}, err
	}
	m.Email, m.Phone, m.Address = email.String, phone.String, address.String
	m.Salary, m.PasswordHash = salary.Float64, hash.String
	return m, nil
}

func (r *MechanicRepo) Create(ctx context.Context, m *model.Mechanic) error {
	m.Email = utils.NormalizeEmail(m.Email)
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO mechanics (name, email, phone, address, salary, password_hash) VALUES (?, ?, ?, ?, ?, ?)",
		m.Name, m.Email, nullable(m.Phone), nullable(m.Address), m.Salary, m.PasswordHash)
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
	m.ID = uint64(id)
	return nil
}

func (r *MechanicRepo) GetByID(ctx context.Context, id uint64) (model.Mechanic, error) {
	m, err := scanMechanic(r.db.QueryRowContext(ctx, "SELECT "+mechanicColumns+" FROM mechanics WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Mechanic{}, ErrNotFound
	}
	return m, err
}

func (r *MechanicRepo) List(ctx context.Context) ([]model.Mechanic, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+mechanicColumns+" FROM mechanics ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Mechanic{}
	for rows.Next() {
		m, err := scanMechanic(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Ranked lists every mechanic with their assignment count, busiest first.
// Mechanics without assignments are included with a count of zero.
func (r *MechanicRepo) Ranked(ctx context.Context) ([]model.RankedMechanic, error) {
	const q = `SELECT m.id, m.name, m.email, m.phone, m.address, m.salary, m.password_hash,
	                  COUNT(a.mechanic_id) AS assignment_count
	           FROM mechanics m
	           LEFT JOIN service_assignments a ON a.mechanic_id = m.id
	           GROUP BY m.id, m.name, m.email, m.phone, m.address, m.salary, m.password_hash
	           ORDER BY assignment_count DESC, m.id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.RankedMechanic{}
	for rows.Next() {
		var n int
		m, err := scanMechanic(rows, &n)
		if err != nil {
			return nil, err
		}
		out = append(out, model.RankedMechanic{Mechanic: m, AssignmentCount: n})
	}
	return out, rows.Err()
}

func (r *MechanicRepo) Update(ctx context.Context, m *model.Mechanic) error {
	m.Email = utils.NormalizeEmail(m.Email)
	res, err := r.db.ExecContext(ctx,
		"UPDATE mechanics SET name = ?, email = ?, phone = ?, address = ?, salary = ?, password_hash = ? WHERE id = ?",
		m.Name, m.Email, nullable(m.Phone), nullable(m.Address), m.Salary, m.PasswordHash, m.ID)
	if err != nil {
		if isDuplicate(err) {
			return ErrEmailExists
		}
		return err
	}
	return affected(res.RowsAffected())
}

// Delete removes the mechanic and their assignments.
func (r *MechanicRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM mechanics WHERE id = ?", id)
	if err != nil {
		return err
	}
	return affected(res.RowsAffected())
}
