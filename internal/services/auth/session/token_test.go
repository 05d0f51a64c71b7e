package session

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	testSecret = []byte("0123456789abcdef0123456789abcdef")
	testNow    = time.Date(2026, 9, 17, 9, 30, 15, 0, time.UTC)
)

func newTestIssuer(t *testing.T, now time.Time) *Issuer {
	t.Helper()
	issuer, err := NewIssuer(testSecret, 0, func() time.Time { return now })
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	return issuer
}

func TestIssueAndVerify(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(t, testNow)
	token, issued, err := issuer.Issue("user-1", "sess-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !issued.ExpiresAt.Equal(testNow.Add(DefaultTTL)) {
		t.Fatalf("ExpiresAt = %v, want %v", issued.ExpiresAt, testNow.Add(DefaultTTL))
	}

	verified, err := newTestIssuer(t, testNow.Add(29*24*time.Hour)).Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if verified.UserID != "user-1" || verified.SessionID != "sess-1" {
		t.Fatalf("Verify = %+v, want user-1/sess-1", verified)
	}
	if !verified.IssuedAt.Equal(testNow) || !verified.ExpiresAt.Equal(issued.ExpiresAt) {
		t.Fatalf("Verify times = %v/%v, want %v/%v", verified.IssuedAt, verified.ExpiresAt, testNow, issued.ExpiresAt)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	t.Parallel()

	token, _, err := newTestIssuer(t, testNow).Issue("user-1", "sess-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := newTestIssuer(t, testNow.Add(31*24*time.Hour)).Verify(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("Verify err = %v, want ErrTokenExpired", err)
	}
}

func TestVerifyRejectsForgedTokens(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(t, testNow)
	token, _, err := issuer.Issue("user-1", "sess-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	other, err := NewIssuer([]byte(strings.Repeat("x", 32)), 0, func() time.Time { return testNow })
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	foreign, _, err := other.Issue("user-1", "sess-1")
	if err != nil {
		t.Fatalf("issue foreign: %v", err)
	}

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{Issuer: DefaultIssuer, Subject: "user-1", ExpiresAt: jwt.NewNumericDate(testNow.Add(time.Hour))},
		SessionID:        "sess-1",
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}

	noSession, err := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{Issuer: DefaultIssuer, Subject: "user-1", ExpiresAt: jwt.NewNumericDate(testNow.Add(time.Hour))},
	}).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign without sid: %v", err)
	}

	wrongIssuer, err := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "someone-else", Subject: "user-1", ExpiresAt: jwt.NewNumericDate(testNow.Add(time.Hour))},
		SessionID:        "sess-1",
	}).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign wrong issuer: %v", err)
	}

	tests := map[string]string{
		"empty":        "",
		"garbage":      "not-a-token",
		"tampered":     token[:len(token)-2] + "xx",
		"foreign key":  foreign,
		"alg none":     unsigned,
		"no session":   noSession,
		"wrong issuer": wrongIssuer,
	}
	for name, candidate := range tests {
		if _, err := issuer.Verify(candidate); !errors.Is(err, ErrTokenInvalid) {
			t.Fatalf("%s: Verify err = %v, want ErrTokenInvalid", name, err)
		}
	}
}

func TestNewIssuerRequiresLongSecret(t *testing.T) {
	t.Parallel()

	if _, err := NewIssuer([]byte("short"), time.Hour, nil); !errors.Is(err, ErrSecretTooShort) {
		t.Fatalf("NewIssuer err = %v, want ErrSecretTooShort", err)
	}
	if _, _, err := newTestIssuer(t, testNow).Issue("", "sess-1"); err == nil {
		t.Fatal("expected missing user id error")
	}
}
