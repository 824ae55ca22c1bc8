package token

import (
	"errors"
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Purpose restricts which channel a token may authenticate.
const (
	PurposeSession  = "session"  // member join over the realtime connection
	PurposeInternal = "internal" // trusted bridge calls from the web application
)

const defaultSecret = "classpod-secret-change-me"

var secret = []byte(defaultSecret)

// ErrInvalidToken covers every refusal path: bad signature, expiry,
// malformed payload or wrong purpose. A token is never partially trusted.
var ErrInvalidToken = errors.New("invalid token")

// SetSecret configures the signing secret (call on startup).
func SetSecret(s string) {
	if s != "" {
		secret = []byte(s)
	}
}

// Claims is the JWT payload.
type Claims struct {
	UserID      string `json:"uid,omitempty"`
	ClassroomID string `json:"cid,omitempty"`
	Purpose     string `json:"purpose"`
	jwtlib.RegisteredClaims
}

// Sign creates a signed token binding a user to a classroom for the
// given purpose.
func Sign(userID, classroomID, purpose string, ttl time.Duration) (string, error) {
	claims := Claims{
		UserID:      userID,
		ClassroomID: classroomID,
		Purpose:     purpose,
		RegisteredClaims: jwtlib.RegisteredClaims{
			ExpiresAt: jwtlib.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwtlib.NewNumericDate(time.Now()),
		},
	}
	t := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return t.SignedString(secret)
}

// Parse validates a token string against the expected purpose and returns
// its claims. Expiry is enforced by the jwt library.
func Parse(tokenStr, expectPurpose string) (*Claims, error) {
	t, err := jwtlib.ParseWithClaims(tokenStr, &Claims{}, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := t.Claims.(*Claims)
	if !ok || !t.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Purpose != expectPurpose {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
