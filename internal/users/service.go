package users

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/pbkdf2"

	"github.com/freightline/portal-services/internal/docstore"
	"github.com/freightline/portal-services/internal/models"
)

const (
	keyPrefix = "users/"

	// PBKDF2-SHA256 parameters. Iterations follow the current OWASP
	// recommendation; changing them only affects newly hashed passwords.
	hashIterations = 600_000
	hashKeyLen     = 32
	saltLen        = 16
)

// Service manages portal accounts. Each account lives in its own document
// under "users/<username>", so edits to different accounts never conflict.
type Service struct {
	store *docstore.Store
}

func NewService(store *docstore.Store) *Service {
	return &Service{store: store}
}

func userKey(username string) string { return keyPrefix + username }

// ValidateUsername rejects names that cannot form a safe document key.
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("%w: username is required", docstore.ErrInvalidInput)
	}
	if strings.ContainsAny(username, "/\\") || strings.Contains(username, "..") {
		return fmt.Errorf("%w: username contains invalid characters", docstore.ErrInvalidInput)
	}
	return nil
}

// Get returns the stored user, or (nil, nil) when no such account exists.
func (s *Service) Get(ctx context.Context, username string) (*models.User, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	doc, err := s.store.Read(ctx, userKey(username), "")
	if err != nil {
		return nil, err
	}
	if !doc.Exists() {
		return nil, nil
	}
	var u models.User
	if err := json.Unmarshal(doc.Data, &u); err != nil {
		return nil, fmt.Errorf("decode user %q: %w", username, err)
	}
	return &u, nil
}

// Upsert creates or updates an account. A non-empty password is rehashed
// with a fresh salt; an empty password keeps the stored credentials. The
// CreatedAt of an existing account is preserved.
func (s *Service) Upsert(ctx context.Context, u *models.User, password string) (*models.User, error) {
	if err := ValidateUsername(u.Username); err != nil {
		return nil, err
	}
	if u.Role != models.RoleAdmin && u.Role != models.RoleStaff {
		return nil, fmt.Errorf("%w: unknown role %q", docstore.ErrInvalidInput, u.Role)
	}

	existing, err := s.Get(ctx, u.Username)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	u.CreatedAt = now
	if existing != nil {
		u.CreatedAt = existing.CreatedAt
		u.PasswordHash = existing.PasswordHash
		u.Salt = existing.Salt
	}
	u.UpdatedAt = now

	if password != "" {
		salt := make([]byte, saltLen)
		if _, err := rand.Read(salt); err != nil {
			return nil, err
		}
		hash, err := hashPassword(password, salt)
		if err != nil {
			return nil, err
		}
		u.Salt = hex.EncodeToString(salt)
		u.PasswordHash = hash
	}
	if u.PasswordHash == "" {
		return nil, fmt.Errorf("%w: password is required for new accounts", docstore.ErrInvalidInput)
	}

	b, err := json.Marshal(u)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.Write(ctx, userKey(u.Username), b); err != nil {
		return nil, err
	}
	return u, nil
}

// Authenticate verifies credentials and returns the account, or (nil, nil)
// when the account is missing, disabled, or the password does not match.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	u, err := s.Get(ctx, username)
	if err != nil {
		return nil, err
	}
	if u == nil || u.Disabled {
		return nil, nil
	}
	salt, err := hex.DecodeString(u.Salt)
	if err != nil {
		return nil, nil
	}
	hash, err := hashPassword(password, salt)
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare([]byte(hash), []byte(u.PasswordHash)) != 1 {
		return nil, nil
	}
	return u, nil
}

// Disable tombstones an account. The document store has no delete, so the
// account document stays with the disabled flag set; logins are refused
// and the flag survives replays of older reads.
func (s *Service) Disable(ctx context.Context, username string) error {
	u, err := s.Get(ctx, username)
	if err != nil {
		return err
	}
	if u == nil {
		return fmt.Errorf("%w: no such user %q", docstore.ErrInvalidInput, username)
	}
	u.Disabled = true
	u.UpdatedAt = time.Now().UTC()
	b, err := json.Marshal(u)
	if err != nil {
		return err
	}
	_, err = s.store.Write(ctx, userKey(username), b)
	return err
}

// List returns all accounts without credential material, sorted by username.
func (s *Service) List(ctx context.Context) ([]models.PublicUser, error) {
	keys, err := s.store.Keys(ctx, keyPrefix)
	if err != nil {
		return nil, err
	}
	out := make([]models.PublicUser, 0, len(keys))
	for _, key := range keys {
		u, err := s.Get(ctx, strings.TrimPrefix(key, keyPrefix))
		if err != nil {
			return nil, err
		}
		if u == nil {
			continue
		}
		out = append(out, u.Public())
	}
	return out, nil
}

func hashPassword(password string, salt []byte) (string, error) {
	key := pbkdf2.Key([]byte(password), salt, hashIterations, hashKeyLen, sha256.New)
	return hex.EncodeToString(key), nil
}
