// Package auth implements user registration and master password
// verification. A bcrypt hash verifies logins; a separate random salt
// feeds PBKDF2 key derivation so the verification hash and the
// encryption key share no material.
package auth

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/sphereryder/passvault/internal/crypto"
	"github.com/sphereryder/passvault/internal/storage"
)

// DefaultBcryptCost matches the cost factor the vault has always used.
const DefaultBcryptCost = 12

var (
	ErrUserExists = errors.New("user already exists")

	// ErrAuthenticationFailed is the only authentication error visible to
	// callers. Unknown user and wrong password both map to it so the
	// public boundary does not hint at which factor was wrong.
	ErrAuthenticationFailed = errors.New("authentication failed")
)

// dummyHash is compared against when the user does not exist, so the
// unknown-user path costs a bcrypt verification like the known-user path.
var dummyHash = []byte("$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW")

// Failure wraps an authentication failure with its internal reason for
// the audit log. It matches ErrAuthenticationFailed under errors.Is, so
// external callers cannot distinguish causes.
type Failure struct {
	Reason string
}

func (f *Failure) Error() string { return "authentication failed" }

func (f *Failure) Is(target error) bool { return target == ErrAuthenticationFailed }

// Store verifies logins and derives session keys
type Store struct {
	storage    *storage.Storage
	iterations int
	cost       int
}

// New creates an authentication store. Zero values select the defaults
// (480,000 PBKDF2 iterations, bcrypt cost 12).
func New(st *storage.Storage, iterations, cost int) *Store {
	if iterations <= 0 {
		iterations = crypto.DefaultIters
	}
	if cost <= 0 {
		cost = DefaultBcryptCost
	}
	return &Store{
		storage:    st,
		iterations: iterations,
		cost:       cost,
	}
}

// Register creates a new user with a fresh derivation salt and a bcrypt
// verification hash. Fails with ErrUserExists for a taken username.
func (s *Store) Register(username, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	salt, err := crypto.GenerateRandom(crypto.SaltSize)
	if err != nil {
		return err
	}

	user := &storage.UserRecord{
		Username:     username,
		PasswordHash: hash,
		Salt:         salt,
		CreatedAt:    time.Now(),
	}

	if err := s.storage.CreateUser(user); err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			return ErrUserExists
		}
		return fmt.Errorf("failed to store user: %w", err)
	}

	return nil
}

// Authenticate verifies the master password and, on success, derives and
// returns the user's session key. The caller owns the key and must clear
// it. Failures are reported as ErrAuthenticationFailed regardless of
// cause; the internal reason is carried for auditing only.
func (s *Store) Authenticate(username, password string) ([]byte, error) {
	user, err := s.storage.GetUser(username)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			// Burn a bcrypt comparison so timing matches the known-user path
			bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return nil, &Failure{Reason: "user not found"}
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return nil, &Failure{Reason: "incorrect password"}
	}

	kdf := &crypto.KDF{Salt: user.Salt, Iterations: s.iterations}
	key := kdf.DeriveKey([]byte(password))

	now := time.Now()
	user.LastLogin = &now
	if err := s.storage.PutUser(user); err != nil {
		crypto.ClearBytes(key)
		return nil, fmt.Errorf("failed to update last login: %w", err)
	}

	return key, nil
}

// Rotation holds everything a master password rotation needs before any
// of it is committed: both derived keys and the user record as it must
// look after the rotation. Nothing is persisted until the vault rewrite
// commits the record via storage.ReplaceVault.
type Rotation struct {
	User   storage.UserRecord // updated record: new salt, new hash
	OldKey []byte
	NewKey []byte
}

// Destroy clears both session keys from memory
func (r *Rotation) Destroy() {
	crypto.ClearBytes(r.OldKey)
	crypto.ClearBytes(r.NewKey)
}

// PrepareRotation verifies the old master password and derives both the
// old and new session keys, minting a fresh salt and verification hash
// for the new password. It commits nothing: the returned user record is
// only persisted once the vault rewrite succeeds.
func (s *Store) PrepareRotation(username, oldPassword, newPassword string) (*Rotation, error) {
	user, err := s.storage.GetUser(username)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			bcrypt.CompareHashAndPassword(dummyHash, []byte(oldPassword))
			return nil, &Failure{Reason: "user not found"}
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(oldPassword)); err != nil {
		return nil, &Failure{Reason: "incorrect old password"}
	}

	oldKDF := &crypto.KDF{Salt: user.Salt, Iterations: s.iterations}
	oldKey := oldKDF.DeriveKey([]byte(oldPassword))

	newKDF, err := crypto.NewKDF(s.iterations)
	if err != nil {
		crypto.ClearBytes(oldKey)
		return nil, err
	}
	newKey := newKDF.DeriveKey([]byte(newPassword))

	newHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.cost)
	if err != nil {
		crypto.ClearBytes(oldKey)
		crypto.ClearBytes(newKey)
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	updated := *user
	updated.PasswordHash = newHash
	updated.Salt = newKDF.Salt

	return &Rotation{
		User:   updated,
		OldKey: oldKey,
		NewKey: newKey,
	}, nil
}
