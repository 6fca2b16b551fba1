package cmd

import (
	"context"
	"fmt"

	"github.com/sphereryder/passvault/internal/crypto"
)

// Add stores a new credential record for a domain. With generate set the
// secret is generated and printed once; otherwise it is prompted for.
func Add(ctx context.Context, user, domain, login, notes string, generate bool) {
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
		password, err := ReadPassword(fmt.Sprintf("Password for %s: ", domain))
		if err != nil {
			HandleError(err)
		}
		defer crypto.ClearBytes(password)
		secret = string(password)
	}

	if err := engine.AddPassword(ctx, session, domain, secret, login, notes); err != nil {
		HandleError(err)
	}

	fmt.Printf("✓ Password for %s added\n", domain)
	if generate {
		fmt.Printf("Generated password: %s\n", secret)
	}
}
