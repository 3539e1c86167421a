// Package auth issues and verifies access tokens, gates protected routes by
// role and checks login credentials.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/mechanic-shop/internal/model"
)

// DefaultTTL is the token lifetime used when none is configured.
const DefaultTTL = 8 * time.Hour

// Identity is the authorization context of one request: who the caller is
// and which role the token grants. It is handed to protected handlers as an
// explicit argument and never stored.
type Identity struct {
	Subject string
	Role    model.Role
}

// ID parses the subject as a numeric principal id.
func (i Identity) ID() (uint64, error) {
	return strconv.ParseUint(i.Subject, 10, 64)
}

// Is reports whether the identity carries the given role.
func (i Identity) Is(r model.Role) bool { return i.Role == r }

type claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Codec signs and verifies HMAC JWTs with a single secret. The secret is
// fixed at construction, so a Codec is safe for concurrent use.
type Codec struct {
	secret []byte
	method *jwt.SigningMethodHMAC
	ttl    time.Duration
	now    func() time.Time
}

// Option customises a Codec.
type Option func(*Codec)

// WithClock replaces time.Now. Tests use it to move past expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

// NewCodec accepts HS256, HS384 or HS512 (HS256 when alg is empty).
// A non-positive ttl falls back to DefaultTTL.
func NewCodec(secret []byte, alg string, ttl time.Duration, opts ...Option) (*Codec, error) {
	if len(secret) == 0 {
		return nil, errors.New("auth: empty signing secret")
	}
	var method *jwt.SigningMethodHMAC
	switch alg {
	case "", "HS256":
		method = jwt.SigningMethodHS256
	case "HS384":
		method = jwt.SigningMethodHS384
	case "HS512":
		method = jwt.SigningMethodHS512
	default:
		return nil, fmt.Errorf("auth: unsupported signing algorithm %q", alg)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Codec{
		secret: append([]byte(nil), secret...),
		method: method,
		ttl:    ttl,
		now:    time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// TTL is the lifetime applied when Issue is called with ttl <= 0.
func (c *Codec) TTL() time.Duration { return c.ttl }

// Issue signs a token for subject with the given role, valid from now until
// now+ttl.
func (c *Codec) Issue(subject string, role model.Role, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", errors.New("auth: empty subject")
	}
	if !role.Valid() {
		return "", fmt.Errorf("auth: cannot issue token for role %q", role)
	}
	if ttl <= 0 {
		ttl = c.ttl
	}
	now := c.now()
	cl := claims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(c.method, cl).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature first and the expiry second. A token is
// expired once now reaches exp. The error is one of ErrMalformed,
// ErrBadSignature or ErrExpired.
func (c *Codec) Verify(token string) (Identity, error) {
	var cl claims
	_, err := jwt.ParseWithClaims(token, &cl,
		func(*jwt.Token) (any, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Identity{}, classify(err)
	}
	if cl.Subject == "" {
		return Identity{}, ErrMalformed
	}
	id := Identity{Subject: cl.Subject}
	if cl.Role != "" {
		r, err := model.ParseRole(cl.Role)
		if err != nil {
			return Identity{}, ErrMalformed
		}
		id.Role = r
	}
	return id, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrBadSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	default:
		return ErrMalformed
	}
}
