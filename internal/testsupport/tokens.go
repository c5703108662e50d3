package testsupport

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// TokenSecret signs tokens minted for tests. The client never verifies it.
const TokenSecret = "vocalize-test-secret"

// MintToken returns an HS256 access token for subject and role expiring
// after ttl. A negative ttl yields an already expired token.
func MintToken(t testing.TB, subject, role string, ttl time.Duration) string {
	t.Helper()

	claims := jwtlib.MapClaims{
		"sub":  subject,
		"role": role,
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(ttl).Unix(),
	}
	raw, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte(TokenSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return raw
}
