package cmd

import (
	"fmt"

	"github.com/sphereryder/passvault/internal/crypto"
)

// Generate prints a random password without touching the vault
func Generate(length int, noUpper, noLower, noDigits, noSpecial bool) {
	opts := crypto.PasswordOptions{
		Length:    length,
		Uppercase: !noUpper,
		Lowercase: !noLower,
		Digits:    !noDigits,
		Special:   !noSpecial,
	}

	password, err := crypto.GeneratePassword(opts)
	if err != nil {
		HandleError(err)
	}

	fmt.Println(password)
}
