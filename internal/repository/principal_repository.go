package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/mechanic-shop/internal/model"
	"github.com/iliyamo/mechanic-shop/internal/utils"
)

// PrincipalRepo is the credential store: it reads email and password hash
// from the customers or mechanics table depending on the principal kind.
type PrincipalRepo struct {
	db *sql.DB
}

func NewPrincipalRepo(db *sql.DB) *PrincipalRepo { return &PrincipalRepo{db: db} }

// FindPrincipalByEmail returns ErrNotFound when no account of that kind has
// the email.
func (r *PrincipalRepo) FindPrincipalByEmail(ctx context.Context, email string, kind model.Role) (model.Principal, error) {
	var q string
	switch kind {
	case model.RoleCustomer:
		q = "SELECT id, email, password_hash FROM customers WHERE email = ? LIMIT 1"
	case model.RoleMechanic:
		q = "SELECT id, email, password_hash FROM mechanics WHERE email = ? LIMIT 1"
	default:
		return model.Principal{}, fmt.Errorf("unknown principal kind %q", kind)
	}
	p := model.Principal{Kind: kind}
	var hash sql.NullString
	err := r.db.QueryRowContext(ctx, q, utils.NormalizeEmail(email)).Scan(&p.ID, &p.Email, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Principal{}, ErrNotFound
	}
	if err != nil {
		return model.Principal{}, err
	}
	p.PasswordHash = hash.String
	return p, nil
}
