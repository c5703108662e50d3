package authtoken_test

import (
	"errors"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"vocalize/internal/authtoken"
)

func sign(t *testing.T, claims jwtlib.MapClaims) string {
	t.Helper()
	raw, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte("unknown-to-client"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return raw
}

func TestDecodeReadsClaimsWithoutKey(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	raw := sign(t, jwtlib.MapClaims{"sub": "42", "role": "user", "email": "ana@example.com", "exp": exp.Unix()})

	claims, err := authtoken.Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if claims.Subject != "42" || claims.Role != "user" || claims.Email != "ana@example.com" {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if !claims.ExpiresAt.Equal(exp) {
		t.Fatalf("expected exp %v, got %v", exp, claims.ExpiresAt)
	}
	if !claims.Valid(time.Now()) {
		t.Fatal("expected token to be valid")
	}
	if claims.Valid(exp.Add(time.Second)) {
		t.Fatal("expected token to be expired after exp")
	}
}

func TestDecodeNumericSubject(t *testing.T) {
	raw := sign(t, jwtlib.MapClaims{"sub": 7, "role": "admin"})
	claims, err := authtoken.Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if claims.Subject != "7" {
		t.Fatalf("expected subject 7, got %q", claims.Subject)
	}
	if claims.Valid(time.Now()) {
		t.Fatal("token without exp must not be valid")
	}
}

func TestDecodeMalformed(t *testing.T) {
	for _, raw := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := authtoken.Decode(raw); !errors.Is(err, authtoken.ErrMalformed) {
			t.Fatalf("%q: expected ErrMalformed, got %v", raw, err)
		}
		if authtoken.ValidToken(raw, time.Now()) {
			t.Fatalf("%q: malformed token reported valid", raw)
		}
	}
}
