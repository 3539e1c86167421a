package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/mechanic-shop/internal/model"
)

type VehicleRepo struct {
	db *sql.DB
}

func NewVehicleRepo(db *sql.DB) *VehicleRepo { return &VehicleRepo{db: db} }

const vehicleColumns = "vin, customer_id, make, model, year, license_plate"

func scanVehicle(row interface{ Scan(...any) error }) (model.Vehicle, error) {
	var (
		v              model.Vehicle
		mk, mdl, plate sql.NullString
		year           sql.NullInt64
	)
	if err := row.Scan(&v.VIN, &v.CustomerID, &mk, &mdl, &year, &plate); err != nil {
		return model.Vehicle{}, err
	}
	v.Make, v.Model, v.Year, v.LicensePlate = mk.String, mdl.String, int(year.Int64), plate.String
	return v, nil
}

// Create inserts v. A VIN already on file yields ErrConflict and an unknown
// customer yields ErrNotFound.
func (r *VehicleRepo) Create(ctx context.Context, v *model.Vehicle) error {
	var year any
	if v.Year != 0 {
		year = v.Year
	}
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO vehicles (vin, customer_id, make, model, year, license_plate) VALUES (?, ?, ?, ?, ?, ?)",
		v.VIN, v.CustomerID, nullable(v.Make), nullable(v.Model), year, nullable(v.LicensePlate))
	switch {
	case isDuplicate(err):
		return ErrConflict
	case isMissingReference(err):
		return ErrNotFound
	}
	return err
}

func (r *VehicleRepo) GetByVIN(ctx context.Context, vin string) (model.Vehicle, error) {
	v, err := scanVehicle(r.db.QueryRowContext(ctx, "SELECT "+vehicleColumns+" FROM vehicles WHERE vin = ?", vin))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Vehicle{}, ErrNotFound
	}
	return v, err
}

// List returns every vehicle.
func (r *VehicleRepo) List(ctx context.Context) ([]model.Vehicle, error) {
	return r.query(ctx, "SELECT "+vehicleColumns+" FROM vehicles ORDER BY vin")
}

// ListByCustomer returns the vehicles owned by customerID.
func (r *VehicleRepo) ListByCustomer(ctx context.Context, customerID uint64) ([]model.Vehicle, error) {
	return r.query(ctx, "SELECT "+vehicleColumns+" FROM vehicles WHERE customer_id = ? ORDER BY vin", customerID)
}

func (r *VehicleRepo) query(ctx context.Context, q string, args ...any) ([]model.Vehicle, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Vehicle{}
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Update rewrites the descriptive columns. The VIN and owner are immutable.
func (r *VehicleRepo) Update(ctx context.Context, v *model.Vehicle) error {
	var year any
	if v.Year != 0 {
		year = v.Year
	}
	res, err := r.db.ExecContext(ctx,
		"UPDATE vehicles SET make = ?, model = ?, year = ?, license_plate = ? WHERE vin = ?",
		nullable(v.Make), nullable(v.Model), year, nullable(v.LicensePlate), v.VIN)
	if err != nil {
		return err
	}
	return affected(res.RowsAffected())
}

// Delete removes the vehicle; its tickets cascade.
func (r *VehicleRepo) Delete(ctx context.Context, vin string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM vehicles WHERE vin = ?", vin)
	if err != nil {
		return err
	}
	return affected(res.RowsAffected())
}
