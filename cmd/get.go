package cmd

import (
	"context"
	"fmt"
)

// Get retrieves and prints one credential record
func Get(ctx context.Context, user, domain string) {
	cfg := loadConfig()
	engine := openEngine(cfg)
	defer engine.Close()

	username := resolveUser(cfg, user)
	session := startSession(ctx, engine, cfg, username)
	defer engine.Logout(session)

	rec, err := engine.GetPassword(ctx, session, domain)
	if err != nil {
		HandleError(err)
	}

	fmt.Printf("Domain:   %s\n", rec.Domain)
	if rec.Username != "" {
		fmt.Printf("Login:    %s\n", rec.Username)
	}
	fmt.Printf("Password: %s\n", rec.Secret)
	if rec.Notes != "" {
		fmt.Printf("Notes:    %s\n", rec.Notes)
	}
	fmt.Printf("Created:  %s\n", rec.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Updated:  %s\n", rec.UpdatedAt.Format("2006-01-02 15:04:05"))
}
