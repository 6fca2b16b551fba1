package cmd

import (
	"context"
	"fmt"

	"github.com/sphereryder/passvault/internal/crypto"
)

// Register provisions a new vault user
func Register(ctx context.Context, user string) {
	cfg := loadConfig()
	engine := openEngine(cfg)
	defer engine.Close()

	username := resolveUser(cfg, user)

	password, err := ReadPasswordConfirm()
	if err != nil {
		HandleError(err)
	}
	defer crypto.ClearBytes(password)

	if err := engine.Register(ctx, username, string(password)); err != nil {
		HandleError(err)
	}

	fmt.Printf("✓ User %s registered\n", username)
}
