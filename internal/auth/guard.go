package auth

import (
	"fmt"
	"slices"
	"strings"

	"github.com/iliyamo/mechanic-shop/internal/model"
)

// Verifier turns a raw token into an Identity. *Codec implements it.
type Verifier interface {
	Verify(token string) (Identity, error)
}

// Guard makes the allow/deny decision for one protected request.
type Guard struct {
	verifier Verifier
}

// NewGuard returns a Guard that verifies bearer tokens with v.
func NewGuard(v Verifier) *Guard { return &Guard{verifier: v} }

// BearerToken extracts the token from an Authorization header value. The
// scheme is matched case-insensitively and stripped once. A remainder that
// still contains whitespace, as in "Bearer Bearer <tok>", is rejected as an
// invalid token.
func BearerToken(header string) (string, error) {
	h := strings.TrimSpace(header)
	i := strings.IndexAny(h, " \t")
	if i < 0 || !strings.EqualFold(h[:i], "Bearer") {
		return "", ErrMissingHeader
	}
	tok := strings.TrimSpace(h[i:])
	if tok == "" {
		return "", ErrMissingHeader
	}
	if strings.ContainsAny(tok, " \t\r\n") {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, ErrMalformed)
	}
	return tok, nil
}

// Authorize returns the caller's identity when the header carries a valid
// token whose role is one of required. An empty required list admits any
// valid token. Errors wrap ErrMissingHeader, ErrInvalidToken or ErrForbidden.
func (g *Guard) Authorize(header string, required ...model.Role) (Identity, error) {
	tok, err := BearerToken(header)
	if err != nil {
		return Identity{}, err
	}
	id, err := g.verifier.Verify(tok)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if len(required) > 0 && !slices.Contains(required, id.Role) {
		return Identity{}, ErrForbidden
	}
	return id, nil
}
