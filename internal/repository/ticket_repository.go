package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/mechanic-shop/internal/model"
)

// TicketRepo manages service tickets together with their mechanic
// assignments and attached parts.
type TicketRepo struct {
	db  *sql.DB
	now func() time.Time
}

func NewTicketRepo(db *sql.DB) *TicketRepo {
	return &TicketRepo{db: db, now: func() time.Time { return time.Now().UTC().Truncate(time.Second) }}
}

// TicketUpdate carries the optional changes accepted by Update. Nil pointers
// leave the column untouched.
type TicketUpdate struct {
	Description     *string
	Status          *model.TicketStatus
	AddMechanics    []uint64
	RemoveMechanics []uint64
}

const ticketColumns = "t.id, t.vin, t.date_in, t.date_out, t.description, t.status, t.total_cost"

func scanTicket(row interface{ Scan(...any) error }) (model.ServiceTicket, error) {
	var (
		t       model.ServiceTicket
		dateOut sql.NullTime
		desc    sql.NullString
		status  string
		total   sql.NullFloat64
	)
	if err := row.Scan(&t.ID, &t.VIN, &t.DateIn, &dateOut, &desc, &status, &total); err != nil {
		return model.ServiceTicket{}, err
	}
	if dateOut.Valid {
		d := dateOut.Time
		t.DateOut = &d
	}
	t.Description, t.Status, t.TotalCost = desc.String, model.TicketStatus(status), total.Float64
	t.MechanicIDs, t.Parts = []uint64{}, []model.TicketPart{}
	return t, nil
}

// Create opens a ticket for t.VIN. DateIn defaults to now and Status to
// open. An unknown VIN yields ErrNotFound.
func (r *TicketRepo) Create(ctx context.Context, t *model.ServiceTicket) error {
	if t.DateIn.IsZero() {
		t.DateIn = r.now()
	}
	if t.Status == "" {
		t.Status = model.TicketOpen
	}
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO service_tickets (vin, date_in, description, status, total_cost) VALUES (?, ?, ?, ?, 0)",
		t.VIN, t.DateIn, t.Description, string(t.Status))
	if err != nil {
		if isMissingReference(err) {
			return ErrNotFound
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	t.MechanicIDs, t.Parts = []uint64{}, []model.TicketPart{}
	return nil
}

func (r *TicketRepo) GetByID(ctx context.Context, id uint64) (model.ServiceTicket, error) {
	t, err := scanTicket(r.db.QueryRowContext(ctx, "SELECT "+ticketColumns+" FROM service_tickets t WHERE t.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.ServiceTicket{}, ErrNotFound
	}
	if err != nil {
		return model.ServiceTicket{}, err
	}
	if err := r.loadRelations(ctx, &t); err != nil {
		return model.ServiceTicket{}, err
	}
	return t, nil
}

// OwnerID returns the id of the customer whose vehicle the ticket is for.
func (r *TicketRepo) OwnerID(ctx context.Context, ticketID uint64) (uint64, error) {
	var owner uint64
	err := r.db.QueryRowContext(ctx,
		"SELECT v.customer_id FROM service_tickets t JOIN vehicles v ON v.vin = t.vin WHERE t.id = ?",
		ticketID).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	return owner, err
}

func (r *TicketRepo) List(ctx context.Context) ([]model.ServiceTicket, error) {
	return r.query(ctx, "SELECT "+ticketColumns+" FROM service_tickets t ORDER BY t.id")
}

// ListByCustomer returns the tickets for every vehicle the customer owns.
func (r *TicketRepo) ListByCustomer(ctx context.Context, customerID uint64) ([]model.ServiceTicket, error) {
	return r.query(ctx,
		"SELECT "+ticketColumns+" FROM service_tickets t JOIN vehicles v ON v.vin = t.vin WHERE v.customer_id = ? ORDER BY t.id",
		customerID)
}

// ListByMechanic returns the tickets the mechanic is assigned to.
func (r *TicketRepo) ListByMechanic(ctx context.Context, mechanicID uint64) ([]model.ServiceTicket, error) {
	return r.query(ctx,
		"SELECT "+ticketColumns+" FROM service_tickets t JOIN service_assignments a ON a.ticket_id = t.id WHERE a.mechanic_id = ? ORDER BY t.id",
		mechanicID)
}

func (r *TicketRepo) query(ctx context.Context, q string, args ...any) ([]model.ServiceTicket, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	out := []model.ServiceTicket{}
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	// Relations are loaded after the cursor is closed so a single-connection
	// pool never needs two connections at once.
	for i := range out {
		if err := r.loadRelations(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *TicketRepo) loadRelations(ctx context.Context, t *model.ServiceTicket) error {
	rows, err := r.db.QueryContext(ctx, "SELECT mechanic_id FROM service_assignments WHERE ticket_id = ? ORDER BY mechanic_id", t.ID)
	if err != nil {
		return err
	}
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		t.MechanicIDs = append(t.MechanicIDs, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	rows, err = r.db.QueryContext(ctx,
		`SELECT p.inventory_id, i.name, i.price, p.quantity
		 FROM ticket_parts p JOIN inventory i ON i.id = p.inventory_id
		 WHERE p.ticket_id = ? ORDER BY p.inventory_id`, t.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var p model.TicketPart
		if err := rows.Scan(&p.InventoryID, &p.Name, &p.Price, &p.Quantity); err != nil {
			return err
		}
		t.Parts = append(t.Parts, p)
	}
	return rows.Err()
}

// Update applies u in one transaction and returns the status the ticket had
// before. Closing a ticket stamps date_out; reopening clears it.
func (r *TicketRepo) Update(ctx context.Context, id uint64, u TicketUpdate) (model.TicketStatus, error) {
	var prev model.TicketStatus
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		var st string
		if err := tx.QueryRowContext(ctx, "SELECT status FROM service_tickets WHERE id = ?", id).Scan(&st); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		prev = model.TicketStatus(st)

		if u.Description != nil {
			if _, err := tx.ExecContext(ctx, "UPDATE service_tickets SET description = ? WHERE id = ?", *u.Description, id); err != nil {
				return err
			}
		}
		if u.Status != nil {
			var out any
			if *u.Status == model.TicketClosed {
				out = r.now()
			}
			if _, err := tx.ExecContext(ctx, "UPDATE service_tickets SET status = ?, date_out = ? WHERE id = ?", string(*u.Status), out, id); err != nil {
				return err
			}
		}
		for _, mid := range u.AddMechanics {
			if err := assignMechanic(ctx, tx, id, mid); err != nil {
				return err
			}
		}
		for _, mid := range u.RemoveMechanics {
			if _, err := tx.ExecContext(ctx, "DELETE FROM service_assignments WHERE ticket_id = ? AND mechanic_id = ?", id, mid); err != nil {
				return err
			}
		}
		return nil
	})
	return prev, err
}

// Assign adds mechanics and parts to a ticket and recomputes total_cost from
// the attached parts. Re-adding a part increments its quantity; re-adding a
// mechanic is a no-op. Unknown ids yield ErrNotFound and nothing is written.
func (r *TicketRepo) Assign(ctx context.Context, id uint64, mechanicIDs, inventoryIDs []uint64) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		if err := exists(ctx, tx, "SELECT COUNT(*) FROM service_tickets WHERE id = ?", id); err != nil {
			return err
		}
		for _, mid := range mechanicIDs {
			if err := assignMechanic(ctx, tx, id, mid); err != nil {
				return err
			}
		}
		for _, iid := range inventoryIDs {
			if err := exists(ctx, tx, "SELECT COUNT(*) FROM inventory WHERE id = ?", iid); err != nil {
				return fmt.Errorf("inventory %d: %w", iid, err)
			}
			var qty int
			err := tx.QueryRowContext(ctx, "SELECT quantity FROM ticket_parts WHERE ticket_id = ? AND inventory_id = ?", id, iid).Scan(&qty)
			switch {
			case errors.Is(err, sql.ErrNoRows):
				_, err = tx.ExecContext(ctx, "INSERT INTO ticket_parts (ticket_id, inventory_id, quantity) VALUES (?, ?, 1)", id, iid)
			case err == nil:
				_, err = tx.ExecContext(ctx, "UPDATE ticket_parts SET quantity = quantity + 1 WHERE ticket_id = ? AND inventory_id = ?", id, iid)
			}
			if err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx,
			`UPDATE service_tickets SET total_cost = (
			   SELECT COALESCE(SUM(i.price * p.quantity), 0)
			   FROM ticket_parts p JOIN inventory i ON i.id = p.inventory_id
			   WHERE p.ticket_id = ?)
			 WHERE id = ?`, id, id)
		return err
	})
}

func (r *TicketRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM service_tickets WHERE id = ?", id)
	if err != nil {
		return err
	}
	return affected(res.RowsAffected())
}

func (r *TicketRepo) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func assignMechanic(ctx context.Context, tx *sql.Tx, ticketID, mechanicID uint64) error {
	if err := exists(ctx, tx, "SELECT COUNT(*) FROM mechanics WHERE id = ?", mechanicID); err != nil {
		return fmt.Errorf("mechanic %d: %w", mechanicID, err)
	}
	var n int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM service_assignments WHERE ticket_id = ? AND mechanic_id = ?",
		ticketID, mechanicID).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	_, err := tx.ExecContext(ctx, "INSERT INTO service_assignments (ticket_id, mechanic_id) VALUES (?, ?)", ticketID, mechanicID)
	return err
}

func exists(ctx context.Context, tx *sql.Tx, q string, id uint64) error {
	var n int
	if err := tx.QueryRowContext(ctx, q, id).Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
