package cmd

import (
	"context"
	"fmt"
)

// Remove deletes one credential record from the vault
func Remove(ctx context.Context, user, domain string) {
	cfg := loadConfig()
	engine := openEngine(cfg)
	defer engine.Close()

	username := resolveUser(cfg, user)
	session := startSession(ctx, engine, cfg, username)
	defer engine.Logout(session)

	if err := engine.DeletePassword(ctx, session, domain); err != nil {
		HandleError(err)
	}

	fmt.Printf("✓ Password for %s removed\n", domain)
}
