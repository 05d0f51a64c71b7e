// Package crypto seals journal content with per-user keys derived from a
// recovery mnemonic.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

// KeySize is the AES-256 key length.
const KeySize = 32

const envelopeVersion = "v1."

var (
	// ErrKeySize is returned for keys that are not KeySize bytes.
	ErrKeySize = errors.New("journal key must be 32 bytes")
	// ErrDecrypt is returned for any sealed value that fails to open.
	ErrDecrypt = errors.New("journal content could not be decrypted")
)

func newAEAD(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, ErrKeySize
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	return aead, nil
}

// Seal encrypts plaintext under key, binding aad, and returns
// "v1." + base64url(nonce || ciphertext || tag).
func Seal(key, plaintext, aad []byte) (string, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}
	payload := aead.Seal(nonce, nonce, plaintext, aad)
	return envelopeVersion + base64.RawURLEncoding.EncodeToString(payload), nil
}

// Open reverses Seal. Every failure after key validation is ErrDecrypt.
func Open(key []byte, sealed string, aad []byte) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	encoded, ok := strings.CutPrefix(sealed, envelopeVersion)
	if !ok {
		return nil, fmt.Errorf("%w: unknown envelope version", ErrDecrypt)
	}
	payload, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: decode envelope", ErrDecrypt)
	}
	if len(payload) < aead.NonceSize()+aead.Overhead() {
		return nil, fmt.Errorf("%w: envelope too short", ErrDecrypt)
	}
	nonce, ciphertext := payload[:aead.NonceSize()], payload[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, ErrDecrypt
	}
	return plaintext, nil
}

// FragmentAAD binds a sealed fragment to its owner and id so ciphertext
// cannot be moved between rows.
func FragmentAAD(userID, fragmentID string) []byte {
	return []byte("fragment:" + userID + ":" + fragmentID)
}

// Zero overwrites key in place.
func Zero(key []byte) {
	for i := range key {
		key[i] = 0
	}
}
