package cmd

import (
	"context"
	"fmt"

	"github.com/sphereryder/passvault/internal/crypto"
	"github.com/sphereryder/passvault/internal/keyring"
)

// Passwd changes the master password, re-encrypting the whole vault
func Passwd(ctx context.Context, user string) {
	cfg := loadConfig()
	engine := openEngine(cfg)
	defer engine.Close()

	username := resolveUser(cfg, user)

	// The old password is prompted explicitly, never pulled from the
	// keyring: rotation should not run on a cached credential.
	oldPassword, err := ReadPassword("Current master password: ")
	if err != nil {
		HandleError(err)
	}
	defer crypto.ClearBytes(oldPassword)

	session, err := engine.Authenticate(ctx, username, string(oldPassword))
	if err != nil {
		HandleError(err)
	}
	defer engine.Logout(session)

	newPassword, err := ReadPasswordConfirm()
	if err != nil {
		HandleError(err)
	}
	defer crypto.ClearBytes(newPassword)

	if err := engine.ChangeMasterPassword(ctx, session, string(oldPassword), string(newPassword)); err != nil {
		HandleError(err)
	}

	// Keep the keyring in sync if it held the old password
	if keyring.HasPassword(username) {
		if err := keyring.SavePassword(username, string(newPassword)); err != nil {
			fmt.Printf("warning: failed to update keyring: %v\n", err)
		}
	}

	fmt.Println("✓ Master password changed, vault re-encrypted")
}
