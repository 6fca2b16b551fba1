package storage

import (
	"time"
)

// UserRecord holds a user's authentication metadata. The bcrypt hash
// verifies logins; the salt feeds key derivation and is distinct from
// the salt embedded in the bcrypt hash. Both are replaced together
// during master password rotation, never individually.
type UserRecord struct {
	Username     string     `json:"username"`
	PasswordHash []byte     `json:"password_hash"`
	Salt         []byte     `json:"salt"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

// CredentialRecord is one stored secret. Nonce and ciphertext are always
// written together; any change to the plaintext produces a fresh pair.
// Notes, when present, carry their own nonce and ciphertext.
type CredentialRecord struct {
	Domain          string    `json:"domain"`
	Username        string    `json:"username,omitempty"`
	Nonce           []byte    `json:"nonce"`
	Ciphertext      []byte    `json:"ciphertext"`
	NotesNonce      []byte    `json:"notes_nonce,omitempty"`
	NotesCiphertext []byte    `json:"notes_ciphertext,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// AuditRecord is one immutable audit log line. Session ties the entry
// to the authenticated session that performed the operation; it is
// empty for operations that run without one.
type AuditRecord struct {
	Time    time.Time `json:"time"`
	Session string    `json:"session,omitempty"`
	Actor   string    `json:"actor"`
	Op      string    `json:"op"`
	Target  string    `json:"target,omitempty"`
	Outcome string    `json:"outcome"`
	Detail  string    `json:"detail,omitempty"`
}
