package vault

import (
	"context"
	"errors"
	"fmt"

	"github.com/sphereryder/passvault/internal/audit"
	"github.com/sphereryder/passvault/internal/auth"
	"github.com/sphereryder/passvault/internal/crypto"
	"github.com/sphereryder/passvault/internal/storage"
)

// ChangeMasterPassword rotates the session user's master password and
// re-encrypts every record in their vault under the new key.
//
// The rotation is all-or-nothing. Every record is decrypted under the
// old key and re-sealed under the new key with a fresh nonce, entirely
// in memory; if any record fails to decrypt the rotation aborts with
// ErrRotationAborted naming the domain and durable state is untouched.
// Only then does a single storage transaction rewrite the vault and,
// last within that transaction, the new verification hash and salt.
// Either the rotation fully succeeds or the old password remains the
// sole valid credential; the user is never locked out.
//
// On success the session's key is swapped for the new one, so the
// session stays usable.
func (e *Engine) ChangeMasterPassword(ctx context.Context, s *Session, oldPassword, newPassword string) error {
	actor := actorOf(s)
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := sessionKeyOf(s); err != nil {
		e.record(audit.OpRotate, s, actor, "", err)
		return err
	}
	if newPassword == "" {
		err := errors.New("new password must not be empty")
		e.record(audit.OpRotate, s, actor, "", err)
		return err
	}

	rot, err := e.auth.PrepareRotation(s.username, oldPassword, newPassword)
	if err != nil {
		if errors.Is(err, auth.ErrAuthenticationFailed) {
			e.record(audit.OpRotate, s, actor, "", auditDetail(err))
			return ErrAuthenticationFailed
		}
		wrapped := fmt.Errorf("%w: %w", ErrStorage, err)
		e.record(audit.OpRotate, s, actor, "", wrapped)
		return wrapped
	}
	defer rot.Destroy()

	records, err := e.st.ListRecords(s.username)
	if err != nil {
		wrapped := fmt.Errorf("%w: %w", ErrStorage, err)
		e.record(audit.OpRotate, s, actor, "", wrapped)
		return wrapped
	}

	oldEnc := crypto.NewEncryptor(rot.OldKey)
	newEnc := crypto.NewEncryptor(rot.NewKey)

	resealed := make([]*storage.CredentialRecord, 0, len(records))
	for _, rec := range records {
		clone := *rec

		clone.Nonce, clone.Ciphertext, err = reseal(oldEnc, newEnc, rec.Nonce, rec.Ciphertext)
		if err != nil {
			aborted := fmt.Errorf("%w: domain %q: %w", ErrRotationAborted, rec.Domain, err)
			e.record(audit.OpRotate, s, actor, rec.Domain, aborted)
			return aborted
		}

		if len(rec.NotesCiphertext) > 0 {
			clone.NotesNonce, clone.NotesCiphertext, err = reseal(oldEnc, newEnc, rec.NotesNonce, rec.NotesCiphertext)
			if err != nil {
				aborted := fmt.Errorf("%w: domain %q: %w", ErrRotationAborted, rec.Domain, err)
				e.record(audit.OpRotate, s, actor, rec.Domain, aborted)
				return aborted
			}
		}

		resealed = append(resealed, &clone)
	}

	user := rot.User
	if err := e.st.ReplaceVault(s.username, resealed, &user); err != nil {
		wrapped := fmt.Errorf("%w: %w", ErrStorage, err)
		e.record(audit.OpRotate, s, actor, "", wrapped)
		return wrapped
	}

	s.replaceKey(rot.NewKey)
	e.record(audit.OpRotate, s, actor, "", nil)
	return nil
}

// reseal decrypts one blob under the old key and seals the same
// plaintext under the new key with a fresh nonce. The intermediate
// plaintext is scrubbed before returning.
func reseal(oldEnc, newEnc *crypto.Encryptor, nonce, ciphertext []byte) (newNonce, newCiphertext []byte, err error) {
	plaintext, err := oldEnc.Open(nonce, ciphertext)
	if err != nil {
		return nil, nil, ErrTampered
	}
	defer crypto.ClearBytes(plaintext)

	return newEnc.Seal(plaintext)
}
