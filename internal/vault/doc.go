// Package vault is the credential vault engine. It authenticates users,
// derives per-session encryption keys, encrypts and decrypts credential
// records, rotates master passwords with full re-encryption, and appends
// every operation to the audit log.
//
// Callers hold an explicit Session for all record operations. The session
// owns the derived key and zeroes it on Close, which runs on logout and
// on every error path. Master password rotation is all-or-nothing: the
// rewritten vault and the new authentication metadata commit in one
// storage transaction or not at all.
package vault
