package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/daap14/useradmin/internal/rbac"
)

// ErrInvalidKey is returned when the provided API key does not match any user.
var ErrInvalidKey = errors.New("invalid API key")

// KeyPrefix starts every raw API key handed out by the service.
const KeyPrefix = "uam_"

// Service provides authentication operations.
type Service struct {
	userRepo   UserRepository
	bcryptCost int
}

// NewService creates a new auth Service.
func NewService(userRepo UserRepository, bcryptCost int) *Service {
	return &Service{
		userRepo:   userRepo,
		bcryptCost: bcryptCost,
	}
}

// GenerateKey creates a new API key. Returns the raw key, its prefix (first 8 chars),
// and the bcrypt hash. The raw key is: 32 random bytes -> base64url -> prepend "uam_".
func (s *Service) GenerateKey() (rawKey, prefix, hash string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", "", fmt.Errorf("generating random bytes: %w", err)
	}

	rawKey = KeyPrefix + base64.RawURLEncoding.EncodeToString(b)
	prefix = rawKey[:8]

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(rawKey), s.bcryptCost)
	if err != nil {
		return "", "", "", fmt.Errorf("hashing key: %w", err)
	}
	hash = string(hashBytes)

	return rawKey, prefix, hash, nil
}

// Authenticate resolves a raw API key to an Identity. It extracts the prefix,
// looks up candidates, and bcrypt-compares each one.
func (s *Service) Authenticate(ctx context.Context, rawKey string) (*Identity, error) {
	if len(rawKey) < 8 {
		return nil, ErrInvalidKey
	}

	prefix := rawKey[:8]

	candidates, err := s.userRepo.FindByPrefix(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("finding users by prefix: %w", err)
	}

	for _, u := range candidates {
		if bcrypt.CompareHashAndPassword([]byte(u.ApiKeyHash), []byte(rawKey)) == nil {
			return &Identity{UserID: u.ID, Email: u.Email, Role: u.Role}, nil
		}
	}

	return nil, ErrInvalidKey
}

// NewUser describes an account to create.
type NewUser struct {
	Email     string
	FirstName string
	LastName  string
	Role      rbac.Role
}

// CreateUser stores a new account with a freshly generated API key. The raw
// key is returned once and never persisted.
func (s *Service) CreateUser(ctx context.Context, nu NewUser) (*User, string, error) {
	rawKey, prefix, hash, err := s.GenerateKey()
	if err != nil {
		return nil, "", err
	}

	u := &User{
		Email:        strings.ToLower(strings.TrimSpace(nu.Email)),
		FirstName:    strings.TrimSpace(nu.FirstName),
		LastName:     strings.TrimSpace(nu.LastName),
		Role:         nu.Role,
		ApiKeyPrefix: prefix,
		ApiKeyHash:   hash,
	}

	if err := s.userRepo.Create(ctx, u); err != nil {
		return nil, "", err
	}

	return u, rawKey, nil
}

// BootstrapOwner creates the instance owner if the users table is empty.
// Returns the raw API key (only displayed once). If users already exist, returns empty string.
func (s *Service) BootstrapOwner(ctx context.Context, email string) (string, error) {
	count, err := s.userRepo.CountAll(ctx)
	if err != nil {
		return "", fmt.Errorf("counting users: %w", err)
	}

	if count > 0 {
		return "", nil
	}

	_, rawKey, err := s.CreateUser(ctx, NewUser{Email: email, Role: rbac.RoleOwner})
	if err != nil {
		return "", fmt.Errorf("creating owner: %w", err)
	}

	slog.Info("Owner API key created", "email", email, "key", rawKey)

	return rawKey, nil
}
