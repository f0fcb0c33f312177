package auth

import (
	"testing"
	"time"
)

func TestIssueSessionTokenReportsExpiry(t *testing.T) {
	issuer := NewTokenIssuer(TokenIssuerConfig{
		SigningSecret: []byte(testSigningSecret),
		Issuer:        testIssuer,
		SessionTTL:    30 * time.Minute,
	})

	token, expiresIn, err := issuer.IssueSessionToken("guardian-1", "A Guardian", RoleGuardian)
	if err != nil {
		t.Fatalf("unexpected issue error: %v", err)
	}
	if token == "" {
		t.Fatalf("expected a signed token")
	}
	if expiresIn != int64((30 * time.Minute).Seconds()) {
		t.Fatalf("unexpected expiry: %d", expiresIn)
	}
}

func TestIssueSessionTokenValidatesInputs(t *testing.T) {
	issuer := NewTokenIssuer(TokenIssuerConfig{
		SigningSecret: []byte(testSigningSecret),
		Issuer:        testIssuer,
	})

	if _, _, err := issuer.IssueSessionToken("", "Nameless", RoleChild); err == nil {
		t.Fatalf("expected missing user id to fail")
	}
	if _, _, err := issuer.IssueSessionToken("child-7", "A Child", "superhero"); err == nil {
		t.Fatalf("expected unknown role to fail")
	}

	secretless := NewTokenIssuer(TokenIssuerConfig{Issuer: testIssuer})
	if _, _, err := secretless.IssueSessionToken("child-7", "A Child", RoleChild); err == nil {
		t.Fatalf("expected missing signing secret to fail")
	}
}
