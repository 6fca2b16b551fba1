package crypto

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	// MinPasswordLength is the shortest password GeneratePassword will produce.
	MinPasswordLength = 12
	// DefaultPasswordLength is used when no length is requested.
	DefaultPasswordLength = 16

	upperChars   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowerChars   = "abcdefghijklmnopqrstuvwxyz"
	digitChars   = "0123456789"
	specialChars = "!@#$%^&*()_+-=[]{}|;:,.<>?"
)

// PasswordOptions selects the character classes for generated passwords.
type PasswordOptions struct {
	Length    int
	Uppercase bool
	Lowercase bool
	Digits    bool
	Special   bool
}

// DefaultPasswordOptions returns the default generation options:
// 16 characters drawn from all four character classes.
func DefaultPasswordOptions() PasswordOptions {
	return PasswordOptions{
		Length:    DefaultPasswordLength,
		Uppercase: true,
		Lowercase: true,
		Digits:    true,
		Special:   true,
	}
}

// GeneratePassword generates a cryptographically secure random password.
// Lengths below MinPasswordLength are raised to it. The result contains at
// least one character from every selected class; if no class is selected
// the full character set is used.
func GeneratePassword(opts PasswordOptions) (string, error) {
	length := opts.Length
	if length < MinPasswordLength {
		length = MinPasswordLength
	}

	var classes []string
	if opts.Uppercase {
		classes = append(classes, upperChars)
	}
	if opts.Lowercase {
		classes = append(classes, lowerChars)
	}
	if opts.Digits {
		classes = append(classes, digitChars)
	}
	if opts.Special {
		classes = append(classes, specialChars)
	}
	if len(classes) == 0 {
		classes = []string{upperChars, lowerChars, digitChars, specialChars}
	}

	var pool string
	for _, c := range classes {
		pool += c
	}

	password := make([]byte, 0, length)

	// One guaranteed character per selected class
	for _, c := range classes {
		ch, err := randomChar(c)
		if err != nil {
			return "", err
		}
		password = append(password, ch)
	}

	for len(password) < length {
		ch, err := randomChar(pool)
		if err != nil {
			return "", err
		}
		password = append(password, ch)
	}

	// Fisher-Yates shuffle so the guaranteed characters are not predictable
	for i := len(password) - 1; i > 0; i-- {
		j, err := randomInt(i + 1)
		if err != nil {
			return "", err
		}
		password[i], password[j] = password[j], password[i]
	}

	result := string(password)
	ClearBytes(password)
	return result, nil
}

func randomChar(set string) (byte, error) {
	i, err := randomInt(len(set))
	if err != nil {
		return 0, err
	}
	return set[i], nil
}

func randomInt(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("failed to generate random number: %w", err)
	}
	return int(v.Int64()), nil
}
