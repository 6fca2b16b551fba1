package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/sphereryder/passvault/internal/config"
	"github.com/sphereryder/passvault/internal/crypto"
	"github.com/sphereryder/passvault/internal/keyring"
	"github.com/sphereryder/passvault/internal/vault"
)

// loadConfig loads environment configuration or exits
func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		HandleError(err)
	}
	return cfg
}

// openEngine opens the vault engine or exits
func openEngine(cfg *config.Config) *vault.Engine {
	if err := cfg.EnsureDataDir(); err != nil {
		HandleError(err)
	}

	engine, err := vault.Open(cfg.VaultPath(), vault.Options{
		Iterations: cfg.Iterations,
		BcryptCost: cfg.BcryptCost,
	})
	if err != nil {
		HandleError(err)
	}
	return engine
}

// resolveUser picks the vault username: flag, then environment, then prompt
func resolveUser(cfg *config.Config, flagUser string) string {
	if flagUser != "" {
		return flagUser
	}
	if cfg.Username != "" {
		return cfg.Username
	}

	username, err := ReadLine("Username: ")
	if err != nil {
		HandleError(err)
	}
	if username == "" {
		fmt.Fprintln(os.Stderr, "Error: username required")
		os.Exit(1)
	}
	return username
}

// masterPassword retrieves the master password: environment, then OS
// keyring, then terminal prompt. The caller must clear the result.
func masterPassword(cfg *config.Config, username, prompt string) []byte {
	if cfg.Password != "" {
		result := make([]byte, len(cfg.Password))
		copy(result, cfg.Password)
		return result
	}

	if password, err := keyring.GetPassword(username); err == nil {
		return []byte(password)
	}

	password, err := ReadPassword(prompt)
	if err != nil {
		HandleError(err)
	}
	return password
}

// startSession authenticates and returns an open session or exits
func startSession(ctx context.Context, engine *vault.Engine, cfg *config.Config, username string) *vault.Session {
	password := masterPassword(cfg, username, "Master password: ")
	defer crypto.ClearBytes(password)

	session, err := engine.Authenticate(ctx, username, string(password))
	if err != nil {
		HandleError(err)
	}
	return session
}

// HandleError handles common errors consistently
func HandleError(err error) {
	switch {
	case errors.Is(err, vault.ErrAuthenticationFailed):
		fmt.Fprintln(os.Stderr, "Error: authentication failed")
	case errors.Is(err, vault.ErrDuplicateUser):
		fmt.Fprintln(os.Stderr, "Error: user already exists")
	case errors.Is(err, vault.ErrDomainNotFound):
		fmt.Fprintln(os.Stderr, "Error: domain not found")
	case errors.Is(err, vault.ErrDuplicateDomain):
		fmt.Fprintln(os.Stderr, "Error: domain already exists")
		fmt.Fprintln(os.Stderr, "Use 'passvault update' to change its password")
	case errors.Is(err, vault.ErrTampered):
		fmt.Fprintln(os.Stderr, "Error: record could not be decrypted (tampered data or wrong key)")
	case errors.Is(err, vault.ErrRotationAborted):
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		fmt.Fprintln(os.Stderr, "The vault was not modified; the old master password is still valid")
	case errors.Is(err, vault.ErrNotAuthenticated):
		fmt.Fprintln(os.Stderr, "Error: not authenticated")
	default:
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
	os.Exit(1)
}
