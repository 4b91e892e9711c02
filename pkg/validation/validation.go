package validation

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

var (
	namePattern   = regexp.MustCompile(`^[a-zA-Z0-9 ]+$`)
	symbolPattern = regexp.MustCompile(`^[A-Z0-9]+$`)
)

// ValidateTokenName checks a requested token name: 2-32 characters,
// letters, digits and spaces only.
func ValidateTokenName(name string) error {
	if len(name) < 2 || len(name) > 32 {
		return fmt.Errorf("token name must be between 2 and 32 characters")
	}
	if !namePattern.MatchString(name) {
		return fmt.Errorf("token name can only contain letters, numbers and spaces")
	}
	return nil
}

// ValidateTokenSymbol checks a requested token symbol: 2-10 characters,
// uppercase letters and digits only.
func ValidateTokenSymbol(symbol string) error {
	if len(symbol) < 2 || len(symbol) > 10 {
		return fmt.Errorf("token symbol must be between 2 and 10 characters")
	}
	if !symbolPattern.MatchString(symbol) {
		return fmt.Errorf("token symbol must be uppercase letters and numbers only")
	}
	return nil
}

// ValidateAddress validates a blockchain address format
func ValidateAddress(addr string) error {
	if addr == "" {
		return fmt.Errorf("address cannot be empty")
	}

	normalized := strings.TrimPrefix(addr, "0x")
	normalized = strings.TrimPrefix(normalized, "0X")

	// 44 hex characters = 22 bytes
	if len(normalized) != 44 {
		return fmt.Errorf("invalid address length: expected 44 characters (without 0x), got %d", len(normalized))
	}

	if _, err := hex.DecodeString(normalized); err != nil {
		return fmt.Errorf("invalid hex address: %w", err)
	}

	return nil
}

// NormalizeAddress converts an address to lowercase without 0x prefix
func NormalizeAddress(addr string) string {
	addr = strings.TrimPrefix(addr, "0x")
	addr = strings.TrimPrefix(addr, "0X")
	return strings.ToLower(addr)
}
