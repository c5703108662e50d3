// Package authtoken reads the claims carried by access tokens issued by the
// vocalization API. Signatures are not verified: the client holds no key and
// uses the claims only to route the session (user id, role, expiry).
package authtoken

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// ErrMalformed indicates the token could not be decoded.
var ErrMalformed = errors.New("malformed access token")

// Claims are the fields vocalize reads from an access token.
type Claims struct {
	Subject   string
	Role      string
	Email     string
	ExpiresAt time.Time
}

// Valid reports whether the token has not expired at now. A token without an
// exp claim is treated as expired.
func (c Claims) Valid(now time.Time) bool {
	if c.ExpiresAt.IsZero() {
		return false
	}
	return c.ExpiresAt.After(now)
}

// Decode parses raw without verifying its signature.
func Decode(raw string) (Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Claims{}, fmt.Errorf("%w: empty token", ErrMalformed)
	}

	token, _, err := jwtlib.NewParser().ParseUnverified(raw, jwtlib.MapClaims{})
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	mapClaims, ok := token.Claims.(jwtlib.MapClaims)
	if !ok {
		return Claims{}, fmt.Errorf("%w: unexpected claims type", ErrMalformed)
	}

	claims := Claims{
		Subject: claimString(mapClaims["sub"]),
		Role:    claimString(mapClaims["role"]),
		Email:   claimString(mapClaims["email"]),
	}
	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	return claims, nil
}

// ValidToken decodes raw and reports whether it is unexpired at now.
// Malformed tokens are reported as invalid.
func ValidToken(raw string, now time.Time) bool {
	claims, err := Decode(raw)
	if err != nil {
		return false
	}
	return claims.Valid(now)
}

// claimString accepts both string and numeric subjects; some issuers encode
// user ids as JSON numbers.
func claimString(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		if v == math.Trunc(v) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
