package crypto

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

const testPhrase = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func testKey(b byte) []byte {
	return bytes.Repeat([]byte{b}, KeySize)
}

func TestSealOpenRoundTrip(t *testing.T) {
	t.Parallel()
	key := testKey(1)
	aad := FragmentAAD("u1", "f1")

	sealed, err := Seal(key, []byte("dear diary"), aad)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if !strings.HasPrefix(sealed, "v1.") {
		t.Fatalf("sealed = %q, want v1. prefix", sealed)
	}
	again, _ := Seal(key, []byte("dear diary"), aad)
	if again == sealed {
		t.Fatal("expected a fresh nonce per seal")
	}
	opened, err := Open(key, sealed, aad)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if string(opened) != "dear diary" {
		t.Fatalf("opened = %q, want %q", opened, "dear diary")
	}
}

func TestOpenRejects(t *testing.T) {
	t.Parallel()
	key := testKey(1)
	aad := FragmentAAD("u1", "f1")
	sealed, err := Seal(key, []byte("secret"), aad)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	tampered := []byte(sealed)
	// Flip a character inside the body; the final character may only carry
	// padding bits.
	mid := len("v1.") + 10
	if tampered[mid] == 'A' {
		tampered[mid] = 'B'
	} else {
		tampered[mid] = 'A'
	}

	tests := []struct {
		name   string
		key    []byte
		sealed string
		aad    []byte
	}{
		{name: "wrong key", key: testKey(2), sealed: sealed, aad: aad},
		{name: "wrong aad", key: key, sealed: sealed, aad: FragmentAAD("u1", "f2")},
		{name: "unknown version", key: key, sealed: "v2." + strings.TrimPrefix(sealed, "v1."), aad: aad},
		{name: "short", key: key, sealed: "v1.AAAA", aad: aad},
		{name: "not base64", key: key, sealed: "v1.***", aad: aad},
		{name: "tampered", key: key, sealed: string(tampered), aad: aad},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := Open(tc.key, tc.sealed, tc.aad); !errors.Is(err, ErrDecrypt) {
				t.Fatalf("Open err = %v, want ErrDecrypt", err)
			}
		})
	}
}

func TestKeySizeEnforced(t *testing.T) {
	t.Parallel()
	if _, err := Seal([]byte("short"), []byte("x"), nil); !errors.Is(err, ErrKeySize) {
		t.Fatalf("Seal err = %v, want ErrKeySize", err)
	}
	if _, err := Open([]byte("short"), "v1.AAAA", nil); !errors.Is(err, ErrKeySize) {
		t.Fatalf("Open err = %v, want ErrKeySize", err)
	}
}

func TestGenerateProducesValidTwelveWords(t *testing.T) {
	t.Parallel()
	phrase, err := Generate()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if words := strings.Fields(phrase); len(words) != 12 {
		t.Fatalf("words = %d, want 12", len(words))
	}
	if err := Validate(phrase); err != nil {
		t.Fatalf("validate generated phrase: %v", err)
	}
}

func TestNormalizeAndValidate(t *testing.T) {
	t.Parallel()
	messy := "  ABANDON abandon\tabandon abandon abandon abandon abandon abandon abandon abandon abandon   About "
	if got := Normalize(messy); got != testPhrase {
		t.Fatalf("Normalize = %q, want %q", got, testPhrase)
	}
	if err := Validate(messy); err != nil {
		t.Fatalf("validate messy phrase: %v", err)
	}
	bad := strings.Replace(testPhrase, "about", "abandon", 1)
	if err := Validate(bad); !errors.Is(err, ErrInvalidMnemonic) {
		t.Fatalf("Validate(bad checksum) = %v, want ErrInvalidMnemonic", err)
	}
}

func TestDeriveKeyAndVerifier(t *testing.T) {
	t.Parallel()
	salt := []byte("0123456789abcdef")
	key, err := DeriveKey(testPhrase, salt, 1000)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if len(key) != KeySize {
		t.Fatalf("key length = %d, want %d", len(key), KeySize)
	}
	same, _ := DeriveKey(strings.ToUpper(testPhrase), salt, 1000)
	if !bytes.Equal(key, same) {
		t.Fatal("derivation should ignore case")
	}
	otherSalt, _ := DeriveKey(testPhrase, []byte("fedcba9876543210"), 1000)
	if bytes.Equal(key, otherSalt) {
		t.Fatal("different salts should derive different keys")
	}

	verifier, err := Verifier(key)
	if err != nil {
		t.Fatalf("verifier: %v", err)
	}
	if err := CheckVerifier(key, verifier); err != nil {
		t.Fatalf("check verifier: %v", err)
	}
	if err := CheckVerifier(otherSalt, verifier); !errors.Is(err, ErrWrongMnemonic) {
		t.Fatalf("CheckVerifier(wrong key) = %v, want ErrWrongMnemonic", err)
	}
}

func TestNewSalt(t *testing.T) {
	t.Parallel()
	a, err := NewSalt()
	if err != nil {
		t.Fatalf("salt: %v", err)
	}
	b, _ := NewSalt()
	if len(a) != SaltSize || bytes.Equal(a, b) {
		t.Fatalf("salts = %x, %x", a, b)
	}
}

func TestKeyringSlidingExpiry(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 9, 17, 12, 0, 0, 0, time.UTC)
	ring := NewKeyring(10*time.Minute, func() time.Time { return now })
	key := testKey(7)
	ring.Put("s1", "u1", key)

	now = now.Add(9 * time.Minute)
	got, ok := ring.Get("s1", "u1")
	if !ok || !bytes.Equal(got, key) {
		t.Fatalf("Get = %x, %v", got, ok)
	}
	if _, ok := ring.Get("s1", "u2"); ok {
		t.Fatal("key must not be served to another user")
	}

	now = now.Add(9 * time.Minute)
	if _, ok := ring.Get("s1", "u1"); !ok {
		t.Fatal("access should have extended the lifetime")
	}

	now = now.Add(11 * time.Minute)
	if removed := ring.Sweep(); removed != 1 {
		t.Fatalf("Sweep removed %d, want 1", removed)
	}
	if ring.Len() != 0 {
		t.Fatalf("Len = %d, want 0", ring.Len())
	}
}

func TestKeyringDeleteZeroesAndScopes(t *testing.T) {
	t.Parallel()
	ring := NewKeyring(0, nil)
	ring.Put("s1", "u1", testKey(1))
	ring.Put("s2", "u1", testKey(2))
	ring.Put("s3", "u2", testKey(3))

	ring.DeleteUser("u1", "s2")
	if _, ok := ring.Get("s1", "u1"); ok {
		t.Fatal("s1 should be removed")
	}
	if _, ok := ring.Get("s2", "u1"); !ok {
		t.Fatal("s2 should be kept")
	}
	ring.Delete("s3")
	if ring.Len() != 1 {
		t.Fatalf("Len = %d, want 1", ring.Len())
	}

	buf := testKey(9)
	Zero(buf)
	if !bytes.Equal(buf, make([]byte, KeySize)) {
		t.Fatalf("Zero left %x", buf)
	}
}
