package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/mechanic-shop/internal/auth"
	"github.com/iliyamo/mechanic-shop/internal/database"
	"github.com/iliyamo/mechanic-shop/internal/model"
	"github.com/iliyamo/mechanic-shop/internal/repository"
)

func newCtx(method, path string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	rec := httptest.NewRecorder()
	return e.NewContext(httptest.NewRequest(method, path, nil), rec), rec
}

func TestMissing(t *testing.T) {
	assert.Equal(t, "", missing("email", "a@b.c", "password", "x"))
	assert.Equal(t, "Missing required field(s): password", missing("email", "a@b.c", "password", " "))
	assert.Equal(t, "Missing required field(s): email, password", missing("email", "", "password", ""))
}

func TestRepoError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		body   string
	}{
		{repository.ErrNotFound, http.StatusNotFound, `{"error":"Vehicle not found"}`},
		{fmt.Errorf("mechanic 9: %w", repository.ErrNotFound), http.StatusNotFound, `{"error":"Vehicle not found"}`},
		{repository.ErrEmailExists, http.StatusConflict, `{"error":"Email already exists"}`},
		{repository.ErrConflict, http.StatusConflict, `{"error":"Vehicle conflicts with existing data"}`},
		{errors.New("connection reset"), http.StatusInternalServerError, `{"error":"Internal server error"}`},
	}
	for _, tc := range cases {
		c, rec := newCtx(http.MethodGet, "/")
		assert.NoError(t, repoError(c, tc.err, "Vehicle"))
		assert.Equal(t, tc.status, rec.Code)
		assert.JSONEq(t, tc.body, rec.Body.String())
	}
}

func TestParseID(t *testing.T) {
	for raw, want := range map[string]bool{"1": true, "42": true, "0": false, "-1": false, "abc": false, "": false} {
		c, _ := newCtx(http.MethodGet, "/")
		c.SetParamNames("id")
		c.SetParamValues(raw)
		_, ok := parseID(c, "id")
		assert.Equal(t, want, ok, raw)
	}
}

func TestIsSelf(t *testing.T) {
	cust := auth.Identity{Subject: "5", Role: model.RoleCustomer}
	assert.True(t, isSelf(cust, model.RoleCustomer, 5))
	assert.False(t, isSelf(cust, model.RoleCustomer, 6))
	assert.False(t, isSelf(cust, model.RoleMechanic, 5), "ids are per principal kind")
	assert.False(t, isSelf(auth.Identity{Subject: "x", Role: model.RoleCustomer}, model.RoleCustomer, 0))
}

type fakeStore struct {
	pingErr error
	diag    database.Diagnostics
}

func (f fakeStore) Ping(context.Context) error                    { return f.pingErr }
func (f fakeStore) Diagnose(context.Context) database.Diagnostics { return f.diag }

func TestHealth(t *testing.T) {
	c, rec := newCtx(http.MethodGet, "/healthz")
	assert.NoError(t, NewOpsHandler(fakeStore{}).Health(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","db":"up"}`, rec.Body.String())

	c, rec = newCtx(http.MethodGet, "/healthz")
	assert.NoError(t, NewOpsHandler(fakeStore{pingErr: errors.New("down")}).Health(c))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"status":"degraded","db":"down"}`, rec.Body.String())
}

func TestDiag_FailsWhenAProbeFails(t *testing.T) {
	store := fakeStore{diag: database.Diagnostics{Driver: "mysql", SelectOne: true, Tables: []string{}, Errors: []string{"no version table"}}}
	c, rec := newCtx(http.MethodGet, "/__diag")
	assert.NoError(t, NewOpsHandler(store).Diag(c, auth.Identity{Subject: "1", Role: model.RoleMechanic}))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok":false`)
}
