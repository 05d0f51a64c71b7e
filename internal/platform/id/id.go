// Package id generates opaque record identifiers.
//
// An identifier is a random (version 4) UUID rendered as 26 lowercase
// base32 characters, which keeps it URL-safe and shorter than the
// hyphenated form.
package id

import (
	"encoding/base32"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// NewID returns a fresh random identifier.
func NewID() (string, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return strings.ToLower(encoding.EncodeToString(u[:])), nil
}

// Valid reports whether value has the shape produced by NewID.
func Valid(value string) bool {
	if len(value) != 26 {
		return false
	}
	decoded, err := encoding.DecodeString(strings.ToUpper(value))
	return err == nil && len(decoded) == 16
}
