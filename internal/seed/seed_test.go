package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/mechanic-shop/internal/database"
	"github.com/iliyamo/mechanic-shop/internal/logging"
	"github.com/iliyamo/mechanic-shop/internal/model"
	"github.com/iliyamo/mechanic-shop/internal/repository"
	"github.com/iliyamo/mechanic-shop/internal/utils"
)

const sample = `
customers:
  - first_name: Sam
    last_name: Driver
    email: Sam@Example.com
    password: password
mechanics:
  - name: Alex
    email: alex@example.com
    password: secret
    salary: 52000
`

func TestParse_RequiresCredentials(t *testing.T) {
	_, err := Parse([]byte("customers:\n  - first_name: x\n    email: a@b.c\n"))
	assert.ErrorContains(t, err, "customers[0]")

	_, err = Parse([]byte("mechanics: [{name: y, password: p}]"))
	assert.ErrorContains(t, err, "mechanics[0]")

	_, err = Parse([]byte("customers: {"))
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestApply_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(ctx, "sqlite://:memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))
	f, err := Load(path)
	require.NoError(t, err)

	customers, mechanics := repository.NewCustomerRepo(db.DB), repository.NewMechanicRepo(db.DB)
	res, err := Apply(ctx, f, customers, mechanics, bcrypt.MinCost, logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, Result{Created: 2}, res)

	res, err = Apply(ctx, f, customers, mechanics, bcrypt.MinCost, logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, Result{Skipped: 2}, res)

	p, err := repository.NewPrincipalRepo(db.DB).FindPrincipalByEmail(ctx, "sam@example.com", model.RoleCustomer)
	require.NoError(t, err)
	assert.True(t, utils.VerifyPassword(p.PasswordHash, "password"))
}
