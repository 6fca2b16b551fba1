package vault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sphereryder/passvault/internal/audit"
	"github.com/sphereryder/passvault/internal/auth"
	"github.com/sphereryder/passvault/internal/crypto"
	"github.com/sphereryder/passvault/internal/storage"
)

// Options configures an Engine. Zero values select the defaults.
type Options struct {
	// Iterations is the PBKDF2 iteration count for key derivation.
	Iterations int
	// BcryptCost is the cost factor for the verification hash.
	BcryptCost int
	// Logger receives degraded-mode warnings. Defaults to slog.Default.
	Logger *slog.Logger
}

// Engine is the vault engine. One Engine serves one vault database file;
// BBolt's file lock keeps other processes out while it is open.
type Engine struct {
	st     *storage.Storage
	auth   *auth.Store
	audit  *audit.Log
	logger *slog.Logger
}

// Open opens or creates the vault database at path
func Open(path string, opts Options) (*Engine, error) {
	st, err := storage.Open(path)
	if err != nil {
		return nil, err
	}
	if err := st.Initialize(); err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		st:     st,
		auth:   auth.New(st, opts.Iterations, opts.BcryptCost),
		audit:  audit.New(st, logger),
		logger: logger,
	}, nil
}

// Close closes the underlying storage
func (e *Engine) Close() error {
	return e.st.Close()
}

// Compact reclaims unused space in the vault database
func (e *Engine) Compact() error {
	return e.st.Compact()
}

// Status describes the vault database. It carries no secret material
// and requires no session.
type Status struct {
	Initialized bool
	Modified    time.Time
	Users       int
	Records     int
}

// Status reports database-level information: initialization state, last
// modification time and user/record counts.
func (e *Engine) Status(ctx context.Context) (*Status, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	initialized, err := e.st.IsInitialized()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	modified, err := e.st.GetModified()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	users, records, err := e.st.Stats()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	return &Status{
		Initialized: initialized,
		Modified:    modified,
		Users:       users,
		Records:     records,
	}, nil
}

// record appends one audit entry for the operation, tagged with the
// session when one exists. Audit failures degrade: the audit package
// logs a warning and the operation stands.
func (e *Engine) record(op string, s *Session, actor, target string, opErr error) {
	entry := audit.Entry{
		Actor:   actor,
		Op:      op,
		Target:  target,
		Outcome: audit.OutcomeSuccess,
	}
	if s != nil {
		entry.Session = s.id
	}
	if opErr != nil {
		entry.Outcome = audit.OutcomeFailure
		entry.Detail = auditErrText(opErr)
	}
	e.audit.Append(entry)
}

// auditErrText renders an operation error for the audit log. Storage
// failures are recorded by kind only; the wrapped cause can name file
// paths and does not belong in the log.
func auditErrText(err error) string {
	if errors.Is(err, ErrStorage) {
		return ErrStorage.Error()
	}
	return err.Error()
}

func actorOf(s *Session) string {
	if s == nil {
		return audit.ActorUnknown
	}
	return s.username
}

// auditDetail unwraps the internal reason of an authentication failure
// for the audit log. The error returned to callers stays merged.
func auditDetail(err error) error {
	var f *auth.Failure
	if errors.As(err, &f) {
		return errors.New(f.Reason)
	}
	return err
}

// Register provisions a new user. The username is a unique,
// case-sensitive key.
func (e *Engine) Register(ctx context.Context, username, password string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if username == "" {
		return errors.New("username must not be empty")
	}
	if password == "" {
		return errors.New("password must not be empty")
	}

	if err := e.auth.Register(username, password); err != nil {
		if errors.Is(err, auth.ErrUserExists) {
			e.record(audit.OpRegister, nil, username, "", ErrDuplicateUser)
			return ErrDuplicateUser
		}
		wrapped := fmt.Errorf("%w: %w", ErrStorage, err)
		e.record(audit.OpRegister, nil, username, "", wrapped)
		return wrapped
	}

	e.record(audit.OpRegister, nil, username, "", nil)
	return nil
}

// Authenticate verifies the master password and opens a session holding
// the derived key. The caller must Logout (or Close the session) on
// every exit path. Failures never reveal whether the username or the
// password was wrong.
func (e *Engine) Authenticate(ctx context.Context, username, password string) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key, err := e.auth.Authenticate(username, password)
	if err != nil {
		if errors.Is(err, auth.ErrAuthenticationFailed) {
			e.record(audit.OpLogin, nil, username, "", auditDetail(err))
			return nil, ErrAuthenticationFailed
		}
		wrapped := fmt.Errorf("%w: %w", ErrStorage, err)
		e.record(audit.OpLogin, nil, username, "", wrapped)
		return nil, wrapped
	}

	s := newSession(username, key)
	e.record(audit.OpLogin, s, username, "", nil)
	return s, nil
}

// Logout revokes the session and scrubs its key
func (e *Engine) Logout(s *Session) {
	if s == nil {
		return
	}
	e.record(audit.OpLogout, s, s.username, "", nil)
	s.Close()
}

// Record is a decrypted credential record as returned to callers
type Record struct {
	Domain    string
	Secret    string
	Username  string
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AddPassword stores a new credential record. An empty secret is
// replaced by a generated one. Fails with ErrDuplicateDomain if the
// domain is already present in the vault.
func (e *Engine) AddPassword(ctx context.Context, s *Session, domain, secret, username, notes string) error {
	actor := actorOf(s)
	if err := ctx.Err(); err != nil {
		return err
	}

	key, err := sessionKeyOf(s)
	if err != nil {
		e.record(audit.OpAdd, s, actor, domain, err)
		return err
	}
	if domain == "" {
		err := errors.New("domain must not be empty")
		e.record(audit.OpAdd, s, actor, domain, err)
		return err
	}

	if secret == "" {
		secret, err = crypto.GeneratePassword(crypto.DefaultPasswordOptions())
		if err != nil {
			e.record(audit.OpAdd, s, actor, domain, err)
			return err
		}
	}

	enc := crypto.NewEncryptor(key)
	nonce, ciphertext, err := enc.Seal([]byte(secret))
	if err != nil {
		e.record(audit.OpAdd, s, actor, domain, err)
		return err
	}

	now := time.Now()
	rec := &storage.CredentialRecord{
		Domain:     domain,
		Username:   username,
		Nonce:      nonce,
		Ciphertext: ciphertext,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if notes != "" {
		rec.NotesNonce, rec.NotesCiphertext, err = enc.Seal([]byte(notes))
		if err != nil {
			e.record(audit.OpAdd, s, actor, domain, err)
			return err
		}
	}

	if err := e.st.CreateRecord(s.username, rec); err != nil {
		if errors.Is(err, storage.ErrRecordExists) {
			e.record(audit.OpAdd, s, actor, domain, ErrDuplicateDomain)
			return ErrDuplicateDomain
		}
		wrapped := fmt.Errorf("%w: %w", ErrStorage, err)
		e.record(audit.OpAdd, s, actor, domain, wrapped)
		return wrapped
	}

	e.record(audit.OpAdd, s, actor, domain, nil)
	return nil
}

// GetPassword retrieves and decrypts one credential record. A failed
// integrity check propagates as ErrTampered, never as partial plaintext.
func (e *Engine) GetPassword(ctx context.Context, s *Session, domain string) (*Record, error) {
	actor := actorOf(s)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key, err := sessionKeyOf(s)
	if err != nil {
		e.record(audit.OpGet, s, actor, domain, err)
		return nil, err
	}

	rec, err := e.st.GetRecord(s.username, domain)
	if err != nil {
		if errors.Is(err, storage.ErrRecordNotFound) {
			e.record(audit.OpGet, s, actor, domain, ErrDomainNotFound)
			return nil, ErrDomainNotFound
		}
		wrapped := fmt.Errorf("%w: %w", ErrStorage, err)
		e.record(audit.OpGet, s, actor, domain, wrapped)
		return nil, wrapped
	}

	enc := crypto.NewEncryptor(key)
	secret, err := enc.Open(rec.Nonce, rec.Ciphertext)
	if err != nil {
		e.record(audit.OpGet, s, actor, domain, ErrTampered)
		return nil, ErrTampered
	}

	result := &Record{
		Domain:    rec.Domain,
		Secret:    string(secret),
		Username:  rec.Username,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
	crypto.ClearBytes(secret)

	if len(rec.NotesCiphertext) > 0 {
		notes, err := enc.Open(rec.NotesNonce, rec.NotesCiphertext)
		if err != nil {
			e.record(audit.OpGet, s, actor, domain, ErrTampered)
			return nil, ErrTampered
		}
		result.Notes = string(notes)
		crypto.ClearBytes(notes)
	}

	e.record(audit.OpGet, s, actor, domain, nil)
	return result, nil
}

// UpdatePassword re-seals the record's secret with a fresh nonce. An
// empty secret is replaced by a generated one. The creation timestamp,
// service username and notes are left untouched.
func (e *Engine) UpdatePassword(ctx context.Context, s *Session, domain, newSecret string) error {
	actor := actorOf(s)
	if err := ctx.Err(); err != nil {
		return err
	}

	key, err := sessionKeyOf(s)
	if err != nil {
		e.record(audit.OpUpdate, s, actor, domain, err)
		return err
	}

	rec, err := e.st.GetRecord(s.username, domain)
	if err != nil {
		if errors.Is(err, storage.ErrRecordNotFound) {
			e.record(audit.OpUpdate, s, actor, domain, ErrDomainNotFound)
			return ErrDomainNotFound
		}
		wrapped := fmt.Errorf("%w: %w", ErrStorage, err)
		e.record(audit.OpUpdate, s, actor, domain, wrapped)
		return wrapped
	}

	if newSecret == "" {
		newSecret, err = crypto.GeneratePassword(crypto.DefaultPasswordOptions())
		if err != nil {
			e.record(audit.OpUpdate, s, actor, domain, err)
			return err
		}
	}

	enc := crypto.NewEncryptor(key)
	nonce, ciphertext, err := enc.Seal([]byte(newSecret))
	if err != nil {
		e.record(audit.OpUpdate, s, actor, domain, err)
		return err
	}

	// Nonce and ciphertext are replaced together, never individually
	rec.Nonce = nonce
	rec.Ciphertext = ciphertext
	rec.UpdatedAt = time.Now()

	if err := e.st.PutRecord(s.username, rec); err != nil {
		wrapped := fmt.Errorf("%w: %w", ErrStorage, err)
		e.record(audit.OpUpdate, s, actor, domain, wrapped)
		return wrapped
	}

	e.record(audit.OpUpdate, s, actor, domain, nil)
	return nil
}

// DeletePassword removes one credential record
func (e *Engine) DeletePassword(ctx context.Context, s *Session, domain string) error {
	actor := actorOf(s)
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := sessionKeyOf(s); err != nil {
		e.record(audit.OpDelete, s, actor, domain, err)
		return err
	}

	if err := e.st.DeleteRecord(s.username, domain); err != nil {
		if errors.Is(err, storage.ErrRecordNotFound) {
			e.record(audit.OpDelete, s, actor, domain, ErrDomainNotFound)
			return ErrDomainNotFound
		}
		wrapped := fmt.Errorf("%w: %w", ErrStorage, err)
		e.record(audit.OpDelete, s, actor, domain, wrapped)
		return wrapped
	}

	e.record(audit.OpDelete, s, actor, domain, nil)
	return nil
}

// ListDomains returns the domains in the session user's vault in
// lexicographic order.
func (e *Engine) ListDomains(ctx context.Context, s *Session) ([]string, error) {
	actor := actorOf(s)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if _, err := sessionKeyOf(s); err != nil {
		e.record(audit.OpList, s, actor, "", err)
		return nil, err
	}

	domains, err := e.st.ListDomains(s.username)
	if err != nil {
		wrapped := fmt.Errorf("%w: %w", ErrStorage, err)
		e.record(audit.OpList, s, actor, "", wrapped)
		return nil, wrapped
	}

	e.record(audit.OpList, s, actor, "", nil)
	return domains, nil
}

// ActivityLog returns up to limit audit entries, most recent first.
// A limit of zero or less selects the default.
func (e *Engine) ActivityLog(ctx context.Context, limit int) ([]audit.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.audit.Read(limit)
}

func sessionKeyOf(s *Session) ([]byte, error) {
	if s == nil {
		return nil, ErrNotAuthenticated
	}
	return s.sessionKey()
}
