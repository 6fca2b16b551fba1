package cmd

import (
	"context"
	"fmt"

	"github.com/sphereryder/passvault/internal/crypto"
)

// Update replaces the stored password for a domain
func Update(ctx context.Context, user, domain string, generate bool) {
	cfg := loadConfig()
	engine := openEngine(cfg)
	defer engine.Close()

	username := resolveUser(cfg, user)
	session := startSession(ctx, engine, cfg, username)
	defer engine.Logout(session)

	var secret string
	if generate {
		var err error
		secret, err = crypto.GeneratePassword(crypto.DefaultPasswordOptions())
		if err != nil {
			HandleError(err)
		}
	} else {
		password, err := ReadPassword(fmt.Sprintf("New password for %s: ", domain))
		if err != nil {
			HandleError(err)
		}
		defer crypto.ClearBytes(password)
		secret = string(password)
	}

	if err := engine.UpdatePassword(ctx, session, domain, secret); err != nil {
		HandleError(err)
	}

	fmt.Printf("✓ Password for %s updated\n", domain)
	if generate {
		fmt.Printf("Generated password: %s\n", secret)
	}
}
