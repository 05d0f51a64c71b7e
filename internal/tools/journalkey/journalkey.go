// Package journalkey generates journal recovery material offline.
package journalkey

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/doosr/doosr/internal/services/journal/crypto"
	"github.com/tyler-smith/go-bip39"
)

const entropyBytes = 16

// Config holds configuration for journal key generation.
type Config struct {
	// Verifier also derives the key and prints its check value.
	Verifier   bool
	Iterations int
}

// ParseConfig parses flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{Iterations: crypto.DefaultIterations}
	fs.BoolVar(&cfg.Verifier, "verifier", cfg.Verifier, "also print the key verifier")
	fs.IntVar(&cfg.Iterations, "iterations", cfg.Iterations, "PBKDF2 iterations used for the verifier")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run generates a recovery phrase and salt and writes them to out.
func Run(cfg Config, out io.Writer, reader io.Reader) error {
	if out == nil {
		return errors.New("output is required")
	}
	if cfg.Verifier && cfg.Iterations <= 0 {
		return errors.New("iterations must be greater than zero")
	}
	if reader == nil {
		reader = rand.Reader
	}

	entropy := make([]byte, entropyBytes)
	if _, err := io.ReadFull(reader, entropy); err != nil {
		return fmt.Errorf("generate entropy: %w", err)
	}
	phrase, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return fmt.Errorf("generate mnemonic: %w", err)
	}
	salt := make([]byte, crypto.SaltSize)
	if _, err := io.ReadFull(reader, salt); err != nil {
		return fmt.Errorf("generate salt: %w", err)
	}

	if _, err := fmt.Fprintf(out, "DOOSR_JOURNAL_MNEMONIC=%q\nDOOSR_JOURNAL_SALT=%s\n", phrase, base64.StdEncoding.EncodeToString(salt)); err != nil {
		return err
	}
	if !cfg.Verifier {
		return nil
	}
	key, err := crypto.DeriveKey(phrase, salt, cfg.Iterations)
	if err != nil {
		return fmt.Errorf("derive key: %w", err)
	}
	verifier, err := crypto.Verifier(key)
	if err != nil {
		return fmt.Errorf("seal verifier: %w", err)
	}
	_, err = fmt.Fprintf(out, "DOOSR_JOURNAL_VERIFIER=%s\n", verifier)
	return err
}
