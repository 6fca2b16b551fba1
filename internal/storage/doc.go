// Package storage provides BBolt-based persistence for passvault.
//
// A single database file holds four top-level buckets:
//   - users:  username -> user record (derivation salt, bcrypt hash, timestamps)
//   - vaults: one nested bucket per username, domain -> encrypted credential record
//   - audit:  append-only sequence of audit records
//   - config: database metadata (last modification time)
//
// Salts and bcrypt hashes are stored unencrypted; secret payloads are
// stored only as nonce + AES-GCM ciphertext produced by the caller.
// All multi-record writes happen inside a single BBolt transaction, so a
// reader can never observe a half-written vault.
package storage
