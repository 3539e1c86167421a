package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/mechanic-shop/internal/model"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestCodec(t *testing.T, secret string, clk *fakeClock) *Codec {
	t.Helper()
	c, err := NewCodec([]byte(secret), "HS256", 8*time.Hour, WithClock(clk.Now))
	require.NoError(t, err)
	return c
}

func TestCodec_IssueVerifyRoundTrip(t *testing.T) {
	clk := &fakeClock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	c := newTestCodec(t, "secret-a", clk)

	tok, err := c.Issue("42", model.RoleCustomer, 8*time.Hour)
	require.NoError(t, err)

	id, err := c.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, Identity{Subject: "42", Role: model.RoleCustomer}, id)

	clk.Advance(9 * time.Hour)
	_, err = c.Verify(tok)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestCodec_ExpiresExactlyAtExp(t *testing.T) {
	clk := &fakeClock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	c := newTestCodec(t, "secret-a", clk)

	tok, err := c.Issue("7", model.RoleMechanic, time.Hour)
	require.NoError(t, err)

	clk.Advance(time.Hour - time.Second)
	_, err = c.Verify(tok)
	require.NoError(t, err)

	clk.Advance(time.Second)
	_, err = c.Verify(tok)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestCodec_DefaultTTL(t *testing.T) {
	clk := &fakeClock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	c := newTestCodec(t, "secret-a", clk)

	tok, err := c.Issue("7", model.RoleMechanic, 0)
	require.NoError(t, err)

	clk.Advance(7 * time.Hour)
	_, err = c.Verify(tok)
	assert.NoError(t, err)
}

func TestCodec_WrongSecret(t *testing.T) {
	clk := &fakeClock{t: time.Now()}
	a := newTestCodec(t, "secret-a", clk)
	b := newTestCodec(t, "secret-b", clk)

	tok, err := a.Issue("42", model.RoleCustomer, time.Hour)
	require.NoError(t, err)

	_, err = b.Verify(tok)
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestCodec_SignatureCheckedBeforeExpiry(t *testing.T) {
	clk := &fakeClock{t: time.Now()}
	a := newTestCodec(t, "secret-a", clk)
	b := newTestCodec(t, "secret-b", clk)

	tok, err := a.Issue("42", model.RoleCustomer, time.Minute)
	require.NoError(t, err)
	clk.Advance(time.Hour)

	_, err = b.Verify(tok)
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestCodec_WrongAlgorithm(t *testing.T) {
	clk := &fakeClock{t: time.Now()}
	hs256 := newTestCodec(t, "secret-a", clk)
	hs512, err := NewCodec([]byte("secret-a"), "HS512", time.Hour, WithClock(clk.Now))
	require.NoError(t, err)

	tok, err := hs512.Issue("42", model.RoleCustomer, time.Hour)
	require.NoError(t, err)

	_, err = hs256.Verify(tok)
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestCodec_Malformed(t *testing.T) {
	c := newTestCodec(t, "secret-a", &fakeClock{t: time.Now()})

	for _, raw := range []string{"", "garbage", "a.b.c", "Bearer"} {
		_, err := c.Verify(raw)
		assert.ErrorIs(t, err, ErrMalformed, raw)
	}
}

func signRaw(t *testing.T, secret string, cl jwt.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, cl).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestCodec_RoleClaim(t *testing.T) {
	now := time.Now()
	c := newTestCodec(t, "secret-a", &fakeClock{t: now})
	exp := jwt.NewNumericDate(now.Add(time.Hour))

	t.Run("absent role yields unscoped identity", func(t *testing.T) {
		tok := signRaw(t, "secret-a", jwt.MapClaims{"sub": "5", "exp": exp.Unix()})
		id, err := c.Verify(tok)
		require.NoError(t, err)
		assert.Equal(t, "5", id.Subject)
		assert.Empty(t, id.Role)
	})

	t.Run("unknown role is malformed", func(t *testing.T) {
		tok := signRaw(t, "secret-a", jwt.MapClaims{"sub": "5", "role": "admin", "exp": exp.Unix()})
		_, err := c.Verify(tok)
		assert.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("missing subject is malformed", func(t *testing.T) {
		tok := signRaw(t, "secret-a", jwt.MapClaims{"role": "customer", "exp": exp.Unix()})
		_, err := c.Verify(tok)
		assert.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("missing exp is malformed", func(t *testing.T) {
		tok := signRaw(t, "secret-a", jwt.MapClaims{"sub": "5", "role": "customer"})
		_, err := c.Verify(tok)
		assert.ErrorIs(t, err, ErrMalformed)
	})
}

func TestCodec_IssuePreconditions(t *testing.T) {
	c := newTestCodec(t, "secret-a", &fakeClock{t: time.Now()})

	_, err := c.Issue("", model.RoleCustomer, time.Hour)
	assert.Error(t, err)

	_, err = c.Issue("1", model.Role("owner"), time.Hour)
	assert.Error(t, err)
}

func TestNewCodec_Validation(t *testing.T) {
	_, err := NewCodec(nil, "HS256", time.Hour)
	assert.Error(t, err)

	_, err = NewCodec([]byte("x"), "RS256", time.Hour)
	assert.Error(t, err)

	c, err := NewCodec([]byte("x"), "", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTTL, c.TTL())
}

func TestIdentity_ID(t *testing.T) {
	id, err := Identity{Subject: "42"}.ID()
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)

	_, err = Identity{Subject: "abc"}.ID()
	assert.Error(t, err)
}
