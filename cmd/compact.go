package cmd

import (
	"context"
	"fmt"
	"os"
)

// Compact reclaims unused space in the vault database
func Compact(_ context.Context) {
	cfg := loadConfig()

	if _, err := os.Stat(cfg.VaultPath()); err != nil {
		fmt.Fprintln(os.Stderr, "Error: vault database not found")
		os.Exit(1)
	}

	engine := openEngine(cfg)
	defer engine.Close()

	if err := engine.Compact(); err != nil {
		HandleError(err)
	}

	fmt.Println("✓ Vault database compacted")
}
