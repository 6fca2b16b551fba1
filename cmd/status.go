package cmd

import (
	"context"
	"fmt"
	"os"
)

// Status prints database-level information about the vault
func Status(ctx context.Context) {
	cfg := loadConfig()

	if _, err := os.Stat(cfg.VaultPath()); err != nil {
		fmt.Printf("Vault:       %s (not created)\n", cfg.VaultPath())
		return
	}

	engine := openEngine(cfg)
	defer engine.Close()

	status, err := engine.Status(ctx)
	if err != nil {
		HandleError(err)
	}

	fmt.Printf("Vault:       %s\n", cfg.VaultPath())
	fmt.Printf("Initialized: %t\n", status.Initialized)
	if !status.Modified.IsZero() {
		fmt.Printf("Modified:    %s\n", status.Modified.Format("2006-01-02 15:04:05"))
	}
	fmt.Printf("Users:       %d\n", status.Users)
	fmt.Printf("Entries:     %d\n", status.Records)
}
