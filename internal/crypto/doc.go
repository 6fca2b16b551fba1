// Package crypto provides cryptographic operations for passvault.
//
// Encryption uses AES-256-GCM with:
//   - 32-byte key derived from the master password via PBKDF2
//   - 12-byte random nonce per encryption operation, stored alongside
//     the ciphertext and never reused under the same key
//   - Authenticated encryption prevents tampering
//
// Key derivation uses PBKDF2-HMAC-SHA256 with:
//   - 32-byte random salt per user (stored unencrypted)
//   - 480,000 iterations (OWASP 2023 recommendation)
//
// Memory safety:
//   - Use ClearBytes() to zero sensitive data after use
//   - Call Encryptor.Destroy() when done with encryption operations
package crypto
