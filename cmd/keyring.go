package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/sphereryder/passvault/internal/crypto"
	"github.com/sphereryder/passvault/internal/keyring"
)

// KeyringSet verifies the master password and stores it in the OS keyring
func KeyringSet(ctx context.Context, user string) {
	cfg := loadConfig()
	engine := openEngine(cfg)
	defer engine.Close()

	username := resolveUser(cfg, user)

	password, err := ReadPassword("Master password: ")
	if err != nil {
		HandleError(err)
	}
	defer crypto.ClearBytes(password)

	// Only a verified password goes into the keyring
	session, err := engine.Authenticate(ctx, username, string(password))
	if err != nil {
		HandleError(err)
	}
	engine.Logout(session)

	if err := keyring.SavePassword(username, string(password)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to store password in keyring: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Master password for %s stored in OS keyring\n", username)
}

// KeyringRemove removes the stored master password from the OS keyring
func KeyringRemove(user string) {
	cfg := loadConfig()
	username := resolveUser(cfg, user)

	if !keyring.HasPassword(username) {
		fmt.Printf("No password stored for %s\n", username)
		return
	}

	if err := keyring.DeletePassword(username); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to remove password from keyring: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Master password for %s removed from OS keyring\n", username)
}

// KeyringStatus reports whether a master password is stored for the user
func KeyringStatus(user string) {
	cfg := loadConfig()
	username := resolveUser(cfg, user)

	if keyring.HasPassword(username) {
		fmt.Printf("Master password for %s is stored in the OS keyring\n", username)
	} else {
		fmt.Printf("No master password stored for %s\n", username)
	}
}
