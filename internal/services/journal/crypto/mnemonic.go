package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"

	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// DefaultIterations is the PBKDF2 work factor for new key material.
	DefaultIterations = 600_000
	// SaltSize is the length of generated salts.
	SaltSize = 16

	entropyBits = 128
	checkValue  = "doosr-journal-key-check"
)

var (
	// ErrInvalidMnemonic is returned for phrases that fail BIP-39 validation.
	ErrInvalidMnemonic = errors.New("recovery phrase is invalid")
	// ErrWrongMnemonic is returned when a valid phrase derives a key that
	// does not match the stored verifier.
	ErrWrongMnemonic = errors.New("recovery phrase does not match")
)

// Generate returns a fresh 12-word recovery phrase.
func Generate() (string, error) {
	entropy, err := bip39.NewEntropy(entropyBits)
	if err != nil {
		return "", fmt.Errorf("generate entropy: %w", err)
	}
	phrase, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("generate mnemonic: %w", err)
	}
	return phrase, nil
}

// Normalize lowercases phrase and collapses whitespace to single spaces.
func Normalize(phrase string) string {
	return strings.Join(strings.Fields(strings.ToLower(phrase)), " ")
}

// Validate checks the word list and checksum of phrase.
func Validate(phrase string) error {
	if !bip39.IsMnemonicValid(Normalize(phrase)) {
		return ErrInvalidMnemonic
	}
	return nil
}

// NewSalt returns SaltSize random bytes.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	return salt, nil
}

// DeriveKey stretches phrase into a KeySize key with PBKDF2-HMAC-SHA256.
func DeriveKey(phrase string, salt []byte, iterations int) ([]byte, error) {
	if err := Validate(phrase); err != nil {
		return nil, err
	}
	if len(salt) == 0 {
		return nil, fmt.Errorf("salt is required")
	}
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	return pbkdf2.Key([]byte(Normalize(phrase)), salt, iterations, KeySize, sha256.New), nil
}

// Verifier seals a fixed check value under key.
func Verifier(key []byte) (string, error) {
	return Seal(key, []byte(checkValue), []byte("verifier"))
}

// CheckVerifier reports ErrWrongMnemonic unless verifier opens under key.
func CheckVerifier(key []byte, verifier string) error {
	plaintext, err := Open(key, verifier, []byte("verifier"))
	if err != nil {
		if errors.Is(err, ErrKeySize) {
			return err
		}
		return ErrWrongMnemonic
	}
	if string(plaintext) != checkValue {
		return ErrWrongMnemonic
	}
	return nil
}
