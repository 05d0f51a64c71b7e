// Package session issues and verifies signed session tokens.
package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultIssuer is the iss claim of every session token.
	DefaultIssuer = "doosr"
	// DefaultTTL is how long a session token stays valid.
	DefaultTTL = 30 * 24 * time.Hour

	minSecretLength = 32
)

var (
	// ErrTokenInvalid reports a malformed, forged or foreign token.
	ErrTokenInvalid = errors.New("session token is invalid")
	// ErrTokenExpired reports a well-formed token past its exp claim.
	ErrTokenExpired = errors.New("session token is expired")
	// ErrSecretTooShort reports an HMAC secret below 32 bytes.
	ErrSecretTooShort = fmt.Errorf("session secret must be at least %d bytes", minSecretLength)
)

// Claims are the verified contents of a session token.
type Claims struct {
	UserID    string
	SessionID string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type tokenClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
}

// Issuer signs session tokens with HS256.
type Issuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	clock  func() time.Time
}

// NewIssuer builds an issuer. A zero ttl uses DefaultTTL and a nil clock
// uses time.Now.
func NewIssuer(secret []byte, ttl time.Duration, clock func() time.Time) (*Issuer, error) {
	if len(secret) < minSecretLength {
		return nil, ErrSecretTooShort
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if clock == nil {
		clock = time.Now
	}
	return &Issuer{
		secret: append([]byte(nil), secret...),
		issuer: DefaultIssuer,
		ttl:    ttl,
		clock:  clock,
	}, nil
}

// TTL returns the lifetime of issued tokens.
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Issue signs a token for userID and sessionID.
func (i *Issuer) Issue(userID, sessionID string) (string, Claims, error) {
	userID = strings.TrimSpace(userID)
	sessionID = strings.TrimSpace(sessionID)
	if userID == "" || sessionID == "" {
		return "", Claims{}, fmt.Errorf("user id and session id are required")
	}
	now := i.clock().UTC().Truncate(time.Second)
	expires := now.Add(i.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		SessionID: sessionID,
	})
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", Claims{}, fmt.Errorf("sign session token: %w", err)
	}
	return signed, Claims{UserID: userID, SessionID: sessionID, IssuedAt: now, ExpiresAt: expires}, nil
}

// Verify checks the signature, issuer and expiry of token.
func (i *Issuer) Verify(token string) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, ErrTokenInvalid
	}
	var parsed tokenClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(*jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.clock),
	)
	if err != nil {
		return Claims{}, mapJWTError(err)
	}
	if strings.TrimSpace(parsed.Subject) == "" || strings.TrimSpace(parsed.SessionID) == "" {
		return Claims{}, ErrTokenInvalid
	}
	claims := Claims{
		UserID:    parsed.Subject,
		SessionID: parsed.SessionID,
		ExpiresAt: parsed.ExpiresAt.Time.UTC(),
	}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time.UTC()
	}
	return claims, nil
}

// mapJWTError translates jwt library errors to the package sentinels.
func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return ErrTokenExpired
	}
	return fmt.Errorf("%w: %v", ErrTokenInvalid, err)
}
