package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims IdentityClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func baseClaims() IdentityClaims {
	return IdentityClaims{
		Email:     "dana@example.com",
		Name:      "Dana",
		AvatarURL: "https://example.com/dana.png",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "idp|abc123",
			Issuer:    "https://id.example.com/",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
}

func TestVerify(t *testing.T) {
	t.Run("valid token yields the identity", func(t *testing.T) {
		v := NewTokenVerifier(testSecret, "")
		identity, err := v.Verify(signToken(t, testSecret, baseClaims()))
		if err != nil {
			t.Fatalf("Verify: %v", err)
		}
		if identity.SubjectID != "idp|abc123" {
			t.Errorf("subject = %q", identity.SubjectID)
		}
		if identity.Email != "dana@example.com" || identity.DisplayName != "Dana" {
			t.Errorf("identity = %+v", identity)
		}
	})

	t.Run("wrong secret is rejected", func(t *testing.T) {
		v := NewTokenVerifier(testSecret, "")
		if _, err := v.Verify(signToken(t, "other-secret", baseClaims())); err == nil {
			t.Fatal("want error for wrong secret")
		}
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		v := NewTokenVerifier(testSecret, "")
		claims := baseClaims()
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
		if _, err := v.Verify(signToken(t, testSecret, claims)); err == nil {
			t.Fatal("want error for expired token")
		}
	})

	t.Run("empty subject is rejected", func(t *testing.T) {
		v := NewTokenVerifier(testSecret, "")
		claims := baseClaims()
		claims.Subject = ""
		if _, err := v.Verify(signToken(t, testSecret, claims)); err == nil {
			t.Fatal("want error for missing subject")
		}
	})

	t.Run("issuer is enforced when configured", func(t *testing.T) {
		v := NewTokenVerifier(testSecret, "https://id.example.com/")
		if _, err := v.Verify(signToken(t, testSecret, baseClaims())); err != nil {
			t.Fatalf("matching issuer rejected: %v", err)
		}

		claims := baseClaims()
		claims.Issuer = "https://rogue.example.com/"
		if _, err := v.Verify(signToken(t, testSecret, claims)); err == nil {
			t.Fatal("want error for issuer mismatch")
		}
	})

	t.Run("garbage is rejected", func(t *testing.T) {
		v := NewTokenVerifier(testSecret, "")
		if _, err := v.Verify("not-a-token"); err == nil {
			t.Fatal("want error for malformed token")
		}
	})
}
