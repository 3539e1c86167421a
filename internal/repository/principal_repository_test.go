package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/mechanic-shop/internal/model"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestPrincipalRepo_FindByEmail(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPrincipalRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, password_hash FROM customers WHERE email = ?")).
		WithArgs("sam@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash"}).AddRow(42, "sam@example.com", "$2a$hash"))

	p, err := repo.FindPrincipalByEmail(context.Background(), " SAM@example.com", model.RoleCustomer)
	require.NoError(t, err)
	assert.Equal(t, model.Principal{ID: 42, Email: "sam@example.com", PasswordHash: "$2a$hash", Kind: model.RoleCustomer}, p)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPrincipalRepo_KindSelectsTable(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPrincipalRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM mechanics WHERE email = ?")).
		WithArgs("mo@shop.test").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash"}))

	_, err := repo.FindPrincipalByEmail(context.Background(), "mo@shop.test", model.RoleMechanic)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPrincipalRepo_UnknownKind(t *testing.T) {
	db, _ := newMock(t)
	_, err := NewPrincipalRepo(db).FindPrincipalByEmail(context.Background(), "x@y.z", model.Role("owner"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}
