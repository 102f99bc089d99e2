package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestIssueAndValidateRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer(TokenIssuerConfig{SigningSecret: []byte("secret")})

	token, expiresIn, err := issuer.IssueToken(6)
	if err != nil {
		t.Fatalf("unexpected issue error: %v", err)
	}
	if expiresIn != int64(defaultTokenTTL.Seconds()) {
		t.Fatalf("unexpected expiry seconds: %d", expiresIn)
	}

	userID, err := issuer.ValidateToken(token)
	if err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
	if userID != 6 {
		t.Fatalf("expected subject 6, got %d", userID)
	}
}

func TestIssueTokenRequiresSecret(t *testing.T) {
	issuer := NewTokenIssuer(TokenIssuerConfig{})
	if _, _, err := issuer.IssueToken(1); err == nil {
		t.Fatalf("expected missing secret to fail")
	}
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	past := time.Now().Add(-2 * time.Hour)
	issuingClock := func() time.Time { return past }
	issuer := NewTokenIssuer(TokenIssuerConfig{
		SigningSecret: []byte("secret"),
		TokenTTL:      time.Minute,
		Clock:         issuingClock,
	})
	token, _, err := issuer.IssueToken(1)
	if err != nil {
		t.Fatalf("unexpected issue error: %v", err)
	}

	validator := NewTokenIssuer(TokenIssuerConfig{SigningSecret: []byte("secret")})
	if _, err := validator.ValidateToken(token); err == nil {
		t.Fatalf("expected expired token to fail validation")
	}
}

func TestValidateTokenRejectsWrongAlgorithm(t *testing.T) {
	claims := jwt.RegisteredClaims{
		Subject:   "1",
		Issuer:    tokenIssuer,
		Audience:  []string{tokenAudience},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("unexpected signing error: %v", err)
	}

	issuer := NewTokenIssuer(TokenIssuerConfig{SigningSecret: []byte("secret")})
	if _, err := issuer.ValidateToken(token); err == nil {
		t.Fatalf("expected none-algorithm token to fail validation")
	}
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	issuer := NewTokenIssuer(TokenIssuerConfig{SigningSecret: []byte("secret")})
	token, _, err := issuer.IssueToken(1)
	if err != nil {
		t.Fatalf("unexpected issue error: %v", err)
	}

	other := NewTokenIssuer(TokenIssuerConfig{SigningSecret: []byte("different")})
	if _, err := other.ValidateToken(token); err == nil {
		t.Fatalf("expected wrong secret to fail validation")
	}
}
