package vault

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/sphereryder/passvault/internal/audit"
)

const testIters = 1000

func newTestEngineAt(t *testing.T, path string) *Engine {
	t.Helper()
	e, err := Open(path, Options{
		Iterations: testIters,
		BcryptCost: bcrypt.MinCost,
	})
	if err != nil {
		t.Fatalf("Failed to open engine: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return newTestEngineAt(t, filepath.Join(t.TempDir(), "test.db"))
}

func mustRegister(t *testing.T, e *Engine, username, password string) *Session {
	t.Helper()
	ctx := context.Background()
	if err := e.Register(ctx, username, password); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	s, err := e.Authenticate(ctx, username, password)
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	return s
}

func TestRegisterDuplicateUser(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	if err := e.Register(ctx, "alice", "Secret#123"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := e.Register(ctx, "alice", "Other#456"); !errors.Is(err, ErrDuplicateUser) {
		t.Errorf("Expected ErrDuplicateUser, got %v", err)
	}
}

func TestAuthenticateWrongPassword(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	if err := e.Register(ctx, "alice", "Secret#123"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if _, err := e.Authenticate(ctx, "alice", "wrong"); !errors.Is(err, ErrAuthenticationFailed) {
		t.Errorf("Expected ErrAuthenticationFailed, got %v", err)
	}
	if _, err := e.Authenticate(ctx, "nobody", "Secret#123"); !errors.Is(err, ErrAuthenticationFailed) {
		t.Errorf("Expected ErrAuthenticationFailed for unknown user, got %v", err)
	}
}

func TestPasswordRoundTrip(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	s := mustRegister(t, e, "alice", "Secret#123")
	defer e.Logout(s)

	if err := e.AddPassword(ctx, s, "github.com", "Gh1!xyz", "alice@example.com", "work account"); err != nil {
		t.Fatalf("AddPassword failed: %v", err)
	}

	rec, err := e.GetPassword(ctx, s, "github.com")
	if err != nil {
		t.Fatalf("GetPassword failed: %v", err)
	}
	if rec.Secret != "Gh1!xyz" {
		t.Errorf("Secret mismatch: got %q", rec.Secret)
	}
	if rec.Username != "alice@example.com" {
		t.Errorf("Username mismatch: got %q", rec.Username)
	}
	if rec.Notes != "work account" {
		t.Errorf("Notes mismatch: got %q", rec.Notes)
	}
	if rec.CreatedAt.IsZero() || rec.UpdatedAt.IsZero() {
		t.Error("Timestamps not set")
	}
}

func TestAddDuplicateDomain(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	s := mustRegister(t, e, "alice", "Secret#123")
	defer e.Logout(s)

	if err := e.AddPassword(ctx, s, "github.com", "one", "", ""); err != nil {
		t.Fatalf("AddPassword failed: %v", err)
	}
	if err := e.AddPassword(ctx, s, "github.com", "two", "", ""); !errors.Is(err, ErrDuplicateDomain) {
		t.Errorf("Expected ErrDuplicateDomain, got %v", err)
	}
}

func TestAddGeneratesSecretWhenEmpty(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	s := mustRegister(t, e, "alice", "Secret#123")
	defer e.Logout(s)

	if err := e.AddPassword(ctx, s, "github.com", "", "", ""); err != nil {
		t.Fatalf("AddPassword failed: %v", err)
	}

	rec, err := e.GetPassword(ctx, s, "github.com")
	if err != nil {
		t.Fatalf("GetPassword failed: %v", err)
	}
	if len(rec.Secret) < 12 {
		t.Errorf("Generated secret too short: %d characters", len(rec.Secret))
	}
}

func TestGetUnknownDomain(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	s := mustRegister(t, e, "alice", "Secret#123")
	defer e.Logout(s)

	if _, err := e.GetPassword(ctx, s, "nothing.com"); !errors.Is(err, ErrDomainNotFound) {
		t.Errorf("Expected ErrDomainNotFound, got %v", err)
	}
}

func TestUpdatePassword(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	s := mustRegister(t, e, "alice", "Secret#123")
	defer e.Logout(s)

	if err := e.AddPassword(ctx, s, "github.com", "Gh1!xyz", "alice@example.com", "keep me"); err != nil {
		t.Fatalf("AddPassword failed: %v", err)
	}
	before, err := e.GetPassword(ctx, s, "github.com")
	if err != nil {
		t.Fatalf("GetPassword failed: %v", err)
	}

	if err := e.UpdatePassword(ctx, s, "github.com", "NewPass#456"); err != nil {
		t.Fatalf("UpdatePassword failed: %v", err)
	}

	after, err := e.GetPassword(ctx, s, "github.com")
	if err != nil {
		t.Fatalf("GetPassword failed: %v", err)
	}
	if after.Secret != "NewPass#456" {
		t.Errorf("Secret not updated: got %q", after.Secret)
	}
	if after.Username != "alice@example.com" || after.Notes != "keep me" {
		t.Error("Update must leave username and notes untouched")
	}
	if !after.CreatedAt.Equal(before.CreatedAt) {
		t.Error("Update must not change the creation timestamp")
	}
	if !after.UpdatedAt.After(before.UpdatedAt) {
		t.Error("Update must advance the update timestamp")
	}

	if err := e.UpdatePassword(ctx, s, "missing.com", "x"); !errors.Is(err, ErrDomainNotFound) {
		t.Errorf("Expected ErrDomainNotFound, got %v", err)
	}
}

func TestUpdateReplacesNonce(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	s := mustRegister(t, e, "alice", "Secret#123")
	defer e.Logout(s)

	if err := e.AddPassword(ctx, s, "github.com", "Gh1!xyz", "", ""); err != nil {
		t.Fatalf("AddPassword failed: %v", err)
	}
	before, err := e.st.GetRecord("alice", "github.com")
	if err != nil {
		t.Fatalf("GetRecord failed: %v", err)
	}

	// Re-sealing the same secret must still mint a fresh nonce
	if err := e.UpdatePassword(ctx, s, "github.com", "Gh1!xyz"); err != nil {
		t.Fatalf("UpdatePassword failed: %v", err)
	}
	after, err := e.st.GetRecord("alice", "github.com")
	if err != nil {
		t.Fatalf("GetRecord failed: %v", err)
	}
	if string(before.Nonce) == string(after.Nonce) {
		t.Error("Nonce reused across update")
	}
}

func TestDeletePassword(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	s := mustRegister(t, e, "alice", "Secret#123")
	defer e.Logout(s)

	if err := e.AddPassword(ctx, s, "github.com", "Gh1!xyz", "", ""); err != nil {
		t.Fatalf("AddPassword failed: %v", err)
	}
	if err := e.DeletePassword(ctx, s, "github.com"); err != nil {
		t.Fatalf("DeletePassword failed: %v", err)
	}

	if _, err := e.GetPassword(ctx, s, "github.com"); !errors.Is(err, ErrDomainNotFound) {
		t.Errorf("Expected ErrDomainNotFound after delete, got %v", err)
	}
	domains, err := e.ListDomains(ctx, s)
	if err != nil {
		t.Fatalf("ListDomains failed: %v", err)
	}
	if len(domains) != 0 {
		t.Errorf("Deleted domain still listed: %v", domains)
	}
	if err := e.DeletePassword(ctx, s, "github.com"); !errors.Is(err, ErrDomainNotFound) {
		t.Errorf("Expected ErrDomainNotFound for double delete, got %v", err)
	}
}

func TestListDomainsSorted(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	s := mustRegister(t, e, "alice", "Secret#123")
	defer e.Logout(s)

	for _, domain := range []string{"zulu.org", "alpha.net", "mike.io"} {
		if err := e.AddPassword(ctx, s, domain, "pw", "", ""); err != nil {
			t.Fatalf("AddPassword failed: %v", err)
		}
	}

	domains, err := e.ListDomains(ctx, s)
	if err != nil {
		t.Fatalf("ListDomains failed: %v", err)
	}
	want := []string{"alpha.net", "mike.io", "zulu.org"}
	for i := range want {
		if domains[i] != want[i] {
			t.Errorf("Domain %d: got %s, want %s", i, domains[i], want[i])
		}
	}
}

func TestVaultsAreIsolated(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	// Same master password on purpose: per-user salts must still
	// separate the derived keys and the vaults.
	alice := mustRegister(t, e, "alice", "Same#Pass1")
	defer e.Logout(alice)
	bob := mustRegister(t, e, "bob", "Same#Pass1")
	defer e.Logout(bob)

	if err := e.AddPassword(ctx, alice, "github.com", "alice-secret", "", ""); err != nil {
		t.Fatalf("AddPassword failed: %v", err)
	}

	if _, err := e.GetPassword(ctx, bob, "github.com"); !errors.Is(err, ErrDomainNotFound) {
		t.Errorf("Bob can see alice's record: %v", err)
	}
	domains, err := e.ListDomains(ctx, bob)
	if err != nil {
		t.Fatalf("ListDomains failed: %v", err)
	}
	if len(domains) != 0 {
		t.Errorf("Bob's vault should be empty, got %v", domains)
	}
}

func TestTamperedRecordDetected(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	s := mustRegister(t, e, "alice", "Secret#123")
	defer e.Logout(s)

	if err := e.AddPassword(ctx, s, "github.com", "Gh1!xyz", "", ""); err != nil {
		t.Fatalf("AddPassword failed: %v", err)
	}

	// Flip one ciphertext bit behind the engine's back
	rec, err := e.st.GetRecord("alice", "github.com")
	if err != nil {
		t.Fatalf("GetRecord failed: %v", err)
	}
	rec.Ciphertext[0] ^= 0x01
	if err := e.st.PutRecord("alice", rec); err != nil {
		t.Fatalf("PutRecord failed: %v", err)
	}

	if _, err := e.GetPassword(ctx, s, "github.com"); !errors.Is(err, ErrTampered) {
		t.Errorf("Expected ErrTampered, got %v", err)
	}
}

func TestSessionRevokedAfterLogout(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	s := mustRegister(t, e, "alice", "Secret#123")

	if err := e.AddPassword(ctx, s, "github.com", "Gh1!xyz", "", ""); err != nil {
		t.Fatalf("AddPassword failed: %v", err)
	}
	e.Logout(s)

	if _, err := e.GetPassword(ctx, s, "github.com"); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("Expected ErrNotAuthenticated, got %v", err)
	}
	if err := e.AddPassword(ctx, s, "other.com", "x", "", ""); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("Expected ErrNotAuthenticated, got %v", err)
	}
	if _, err := e.ListDomains(ctx, s); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("Expected ErrNotAuthenticated, got %v", err)
	}
}

func TestChangeMasterPassword(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	s := mustRegister(t, e, "alice", "Secret#123")
	defer e.Logout(s)

	if err := e.AddPassword(ctx, s, "github.com", "Gh1!xyz", "alice@example.com", "notes too"); err != nil {
		t.Fatalf("AddPassword failed: %v", err)
	}
	if err := e.AddPassword(ctx, s, "mail.net", "Ml2@abc", "", ""); err != nil {
		t.Fatalf("AddPassword failed: %v", err)
	}

	if err := e.ChangeMasterPassword(ctx, s, "Secret#123", "NewPass#456"); err != nil {
		t.Fatalf("ChangeMasterPassword failed: %v", err)
	}

	// Session survives the rotation with the new key
	rec, err := e.GetPassword(ctx, s, "github.com")
	if err != nil {
		t.Fatalf("GetPassword after rotation failed: %v", err)
	}
	if rec.Secret != "Gh1!xyz" || rec.Notes != "notes too" {
		t.Error("Record content changed by rotation")
	}

	// Old password rejected, new one accepted
	if _, err := e.Authenticate(ctx, "alice", "Secret#123"); !errors.Is(err, ErrAuthenticationFailed) {
		t.Errorf("Old password still accepted: %v", err)
	}
	fresh, err := e.Authenticate(ctx, "alice", "NewPass#456")
	if err != nil {
		t.Fatalf("New password rejected: %v", err)
	}
	defer e.Logout(fresh)

	rec, err = e.GetPassword(ctx, fresh, "mail.net")
	if err != nil {
		t.Fatalf("GetPassword in fresh session failed: %v", err)
	}
	if rec.Secret != "Ml2@abc" {
		t.Errorf("Secret mismatch after rotation: got %q", rec.Secret)
	}
}

func TestChangeMasterPasswordWrongOld(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	s := mustRegister(t, e, "alice", "Secret#123")
	defer e.Logout(s)

	if err := e.ChangeMasterPassword(ctx, s, "wrong", "NewPass#456"); !errors.Is(err, ErrAuthenticationFailed) {
		t.Errorf("Expected ErrAuthenticationFailed, got %v", err)
	}

	// Nothing committed
	if _, err := e.Authenticate(ctx, "alice", "Secret#123"); err != nil {
		t.Errorf("Old password rejected after failed rotation: %v", err)
	}
}

func TestChangeMasterPasswordAbortsOnTamper(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	s := mustRegister(t, e, "alice", "Secret#123")
	defer e.Logout(s)

	if err := e.AddPassword(ctx, s, "good.com", "fine", "", ""); err != nil {
		t.Fatalf("AddPassword failed: %v", err)
	}
	if err := e.AddPassword(ctx, s, "bad.com", "broken", "", ""); err != nil {
		t.Fatalf("AddPassword failed: %v", err)
	}

	rec, err := e.st.GetRecord("alice", "bad.com")
	if err != nil {
		t.Fatalf("GetRecord failed: %v", err)
	}
	rec.Ciphertext[0] ^= 0x01
	if err := e.st.PutRecord("alice", rec); err != nil {
		t.Fatalf("PutRecord failed: %v", err)
	}

	err = e.ChangeMasterPassword(ctx, s, "Secret#123", "NewPass#456")
	if !errors.Is(err, ErrRotationAborted) {
		t.Fatalf("Expected ErrRotationAborted, got %v", err)
	}

	// The session key must not have been swapped: the live session
	// still decrypts intact records under the old key.
	good, err := e.GetPassword(ctx, s, "good.com")
	if err != nil {
		t.Fatalf("GetPassword in live session failed: %v", err)
	}
	if good.Secret != "fine" {
		t.Errorf("Secret mismatch in live session: got %q", good.Secret)
	}

	// Aborted rotation must leave durable state untouched: the old
	// password still authenticates and intact records still decrypt.
	fresh, err := e.Authenticate(ctx, "alice", "Secret#123")
	if err != nil {
		t.Fatalf("Old password rejected after aborted rotation: %v", err)
	}
	defer e.Logout(fresh)

	good, err = e.GetPassword(ctx, fresh, "good.com")
	if err != nil {
		t.Fatalf("GetPassword failed: %v", err)
	}
	if good.Secret != "fine" {
		t.Errorf("Secret mismatch: got %q", good.Secret)
	}
	if _, err := e.Authenticate(ctx, "alice", "NewPass#456"); !errors.Is(err, ErrAuthenticationFailed) {
		t.Errorf("New password accepted after aborted rotation: %v", err)
	}
}

func TestRotationCrashBeforeCommitKeepsOldKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	e := newTestEngineAt(t, path)
	s := mustRegister(t, e, "alice", "Secret#123")
	if err := e.AddPassword(ctx, s, "github.com", "Gh1!xyz", "", "note"); err != nil {
		t.Fatalf("AddPassword failed: %v", err)
	}
	if err := e.AddPassword(ctx, s, "mail.net", "Ml2@abc", "", ""); err != nil {
		t.Fatalf("AddPassword failed: %v", err)
	}
	e.Logout(s)
	if err := e.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	snapshot, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}

	e2 := newTestEngineAt(t, path)
	s2, err := e2.Authenticate(ctx, "alice", "Secret#123")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if err := e2.ChangeMasterPassword(ctx, s2, "Secret#123", "NewPass#456"); err != nil {
		t.Fatalf("ChangeMasterPassword failed: %v", err)
	}
	e2.Logout(s2)
	if err := e2.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// The rotation rewrites vault and user record in one transaction,
	// so a crash before that transaction commits leaves the file in its
	// pre-rotation state. Restore the snapshot to simulate it.
	if err := os.WriteFile(path, snapshot, 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	e3 := newTestEngineAt(t, path)
	if _, err := e3.Authenticate(ctx, "alice", "NewPass#456"); !errors.Is(err, ErrAuthenticationFailed) {
		t.Errorf("New password accepted without a committed rotation: %v", err)
	}

	s3, err := e3.Authenticate(ctx, "alice", "Secret#123")
	if err != nil {
		t.Fatalf("Old password rejected: %v", err)
	}
	defer e3.Logout(s3)

	for domain, want := range map[string]string{"github.com": "Gh1!xyz", "mail.net": "Ml2@abc"} {
		rec, err := e3.GetPassword(ctx, s3, domain)
		if err != nil {
			t.Fatalf("GetPassword(%s) failed: %v", domain, err)
		}
		if rec.Secret != want {
			t.Errorf("Secret mismatch for %s: got %q", domain, rec.Secret)
		}
	}
}

func TestAuditEntriesCarrySessionID(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	s := mustRegister(t, e, "alice", "Secret#123")

	sid := s.ID()
	if sid == "" {
		t.Fatal("Session has no ID")
	}

	if err := e.AddPassword(ctx, s, "github.com", "Gh1!xyz", "", ""); err != nil {
		t.Fatalf("AddPassword failed: %v", err)
	}
	e.Logout(s)

	entries, err := e.ActivityLog(ctx, 0)
	if err != nil {
		t.Fatalf("ActivityLog failed: %v", err)
	}
	// logout, add, login, register
	if len(entries) != 4 {
		t.Fatalf("Expected 4 entries, got %d", len(entries))
	}

	for _, entry := range entries {
		if entry.Op == audit.OpRegister {
			if entry.Session != "" {
				t.Errorf("Register entry carries session %q", entry.Session)
			}
			continue
		}
		if entry.Session != sid {
			t.Errorf("Entry %s: session %q, want %q", entry.Op, entry.Session, sid)
		}
	}
}

func TestStatus(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	status, err := e.Status(ctx)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if !status.Initialized {
		t.Error("Fresh database should report initialized")
	}
	if status.Users != 0 || status.Records != 0 {
		t.Errorf("Fresh database: %d users, %d records", status.Users, status.Records)
	}

	s := mustRegister(t, e, "alice", "Secret#123")
	defer e.Logout(s)
	for _, domain := range []string{"github.com", "mail.net"} {
		if err := e.AddPassword(ctx, s, domain, "pw", "", ""); err != nil {
			t.Fatalf("AddPassword failed: %v", err)
		}
	}

	status, err = e.Status(ctx)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status.Users != 1 {
		t.Errorf("Expected 1 user, got %d", status.Users)
	}
	if status.Records != 2 {
		t.Errorf("Expected 2 records, got %d", status.Records)
	}
	if status.Modified.IsZero() {
		t.Error("Modified time not set")
	}
}

func TestAuditDetailHidesStorageCause(t *testing.T) {
	wrapped := fmt.Errorf("%w: %w", ErrStorage, errors.New("open /home/alice/.passvault/passvault.db: permission denied"))
	if got := auditErrText(wrapped); got != ErrStorage.Error() {
		t.Errorf("Storage detail not trimmed: %q", got)
	}
	if got := auditErrText(ErrDomainNotFound); got != ErrDomainNotFound.Error() {
		t.Errorf("Non-storage detail altered: %q", got)
	}
}

func TestActivityLog(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	s := mustRegister(t, e, "alice", "Secret#123")

	if err := e.AddPassword(ctx, s, "github.com", "Gh1!xyz", "", ""); err != nil {
		t.Fatalf("AddPassword failed: %v", err)
	}
	_, _ = e.Authenticate(ctx, "alice", "wrong")
	e.Logout(s)

	entries, err := e.ActivityLog(ctx, 0)
	if err != nil {
		t.Fatalf("ActivityLog failed: %v", err)
	}
	// register, login, add, failed login, logout
	if len(entries) != 5 {
		t.Fatalf("Expected 5 entries, got %d", len(entries))
	}

	// Most recent first
	if entries[0].Op != audit.OpLogout {
		t.Errorf("Expected logout first, got %s", entries[0].Op)
	}
	if entries[1].Op != audit.OpLogin || entries[1].Outcome != audit.OutcomeFailure {
		t.Errorf("Expected failed login second, got %s/%s", entries[1].Op, entries[1].Outcome)
	}
	if entries[len(entries)-1].Op != audit.OpRegister {
		t.Errorf("Expected register last, got %s", entries[len(entries)-1].Op)
	}

	for _, entry := range entries {
		if entry.Actor != "alice" {
			t.Errorf("Unexpected actor %q for op %s", entry.Actor, entry.Op)
		}
		if entry.Time.IsZero() {
			t.Errorf("Entry %s has no timestamp", entry.Op)
		}
	}

	limited, err := e.ActivityLog(ctx, 2)
	if err != nil {
		t.Fatalf("ActivityLog failed: %v", err)
	}
	if len(limited) != 2 || limited[0].Op != audit.OpLogout {
		t.Errorf("Unexpected limited log: %d entries", len(limited))
	}
}
