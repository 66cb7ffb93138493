package jwt

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for any token that fails signature,
// structure, or expiry checks.
var ErrInvalidToken = errors.New("invalid token")

const purposeReset = "password_reset"

type claims struct {
	jwtlib.RegisteredClaims
	Purpose string `json:"purpose,omitempty"`
}

// Issuer mints and verifies the signed credentials used by the
// service: session tokens carried in the `token` cookie and
// time-bounded password-reset tokens delivered out of band.
type Issuer struct {
	secret     []byte
	sessionTTL time.Duration
	resetTTL   time.Duration
}

func NewIssuer(secret string, sessionTTL, resetTTL time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), sessionTTL: sessionTTL, resetTTL: resetTTL}
}

// Session mints a signed session token binding the user id.
func (i *Issuer) Session(userID string) (string, time.Time, error) {
	return i.sign(userID, "", i.sessionTTL)
}

// ResetToken mints a single-purpose credential for a password reset.
// Only its hash should ever be persisted.
func (i *Issuer) ResetToken(userID string) (string, time.Time, error) {
	return i.sign(userID, purposeReset, i.resetTTL)
}

func (i *Issuer) sign(userID, purpose string, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(ttl)

	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
		},
		Purpose: purpose,
	})

	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// ParseSession verifies a session token and returns the embedded
// user id. Reset tokens are rejected here: they prove the right to
// set a password, not an identity.
func (i *Issuer) ParseSession(tokenString string) (string, error) {
	parsed, err := i.parse(tokenString)
	if err != nil {
		return "", err
	}
	if parsed.Purpose != "" {
		return "", ErrInvalidToken
	}
	return parsed.Subject, nil
}

func (i *Issuer) parse(tokenString string) (*claims, error) {
	parsed := &claims{}
	token, err := jwtlib.ParseWithClaims(tokenString, parsed, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return parsed, nil
}

// HashToken returns the hex SHA-256 digest of a raw credential. The
// store only ever sees this digest.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
