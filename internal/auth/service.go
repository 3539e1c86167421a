package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/iliyamo/mechanic-shop/internal/model"
	"github.com/iliyamo/mechanic-shop/internal/repository"
	"github.com/iliyamo/mechanic-shop/internal/utils"
)

// CredentialStore looks principals up by email within one kind.
type CredentialStore interface {
	FindPrincipalByEmail(ctx context.Context, email string, kind model.Role) (model.Principal, error)
}

// CheckPassword reports whether plaintext matches the principal's hash.
func CheckPassword(p model.Principal, plaintext string) bool {
	return utils.VerifyPassword(p.PasswordHash, plaintext)
}

// Service implements login for both principal kinds.
type Service struct {
	store CredentialStore
	codec *Codec
}

// NewService logs principals in against store and issues tokens with codec.
func NewService(store CredentialStore, codec *Codec) *Service {
	return &Service{store: store, codec: codec}
}

// Login checks the credentials and issues a token whose role equals kind.
// An unknown email and a wrong password both yield ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string, kind model.Role) (string, Identity, error) {
	if !kind.Valid() {
		return "", Identity{}, fmt.Errorf("auth: unknown principal kind %q", kind)
	}
	p, err := s.store.FindPrincipalByEmail(ctx, utils.NormalizeEmail(email), kind)
	if errors.Is(err, repository.ErrNotFound) {
		return "", Identity{}, ErrInvalidCredentials
	}
	if err != nil {
		return "", Identity{}, fmt.Errorf("auth: find principal: %w", err)
	}
	if !CheckPassword(p, password) {
		return "", Identity{}, ErrInvalidCredentials
	}
	id := Identity{Subject: strconv.FormatUint(p.ID, 10), Role: kind}
	tok, err := s.codec.Issue(id.Subject, id.Role, 0)
	if err != nil {
		return "", Identity{}, err
	}
	return tok, id, nil
}
