// Package keyring caches master passwords in the operating system's
// keyring so vault commands can skip the password prompt.
//
// All entries live under the service name "passvault" with the vault
// username as the account, so each vault user on a machine caches their
// own master password independently. The cache is an optimization,
// never a source of truth: only a password that just passed
// authentication may be stored, and master password rotation must
// re-save the entry for that username or the cached value goes stale
// and later logins fail.
package keyring

import (
	"github.com/zalando/go-keyring"
)

const serviceName = "passvault"

// SavePassword caches the master password for a vault username,
// replacing any previous entry for that username.
func SavePassword(username string, password string) error {
	return keyring.Set(serviceName, username, password)
}

// GetPassword returns the cached master password for a vault username
func GetPassword(username string) (string, error) {
	return keyring.Get(serviceName, username)
}

// DeletePassword drops the cached master password for a vault username
func DeletePassword(username string) error {
	return keyring.Delete(serviceName, username)
}

// HasPassword reports whether a master password is cached for the
// username. Any retrieval error counts as absent; callers fall back to
// prompting.
func HasPassword(username string) bool {
	_, err := keyring.Get(serviceName, username)
	return err == nil
}
