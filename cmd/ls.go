package cmd

import (
	"context"
	"fmt"
)

// List prints all domains in the user's vault
func List(ctx context.Context, user string) {
	cfg := loadConfig()
	engine := openEngine(cfg)
	defer engine.Close()

	username := resolveUser(cfg, user)
	session := startSession(ctx, engine, cfg, username)
	defer engine.Logout(session)

	domains, err := engine.ListDomains(ctx, session)
	if err != nil {
		HandleError(err)
	}

	if len(domains) == 0 {
		fmt.Println("Vault is empty")
		return
	}

	for _, domain := range domains {
		fmt.Println(domain)
	}
	fmt.Printf("\n%d entries\n", len(domains))
}
