package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const (
	testSigningSecret = "unit-test-secret"
	testIssuer        = "moodnest-auth"
	testCookieName    = "moodnest_session"
)

func mustValidator(t *testing.T, clock func() time.Time) *SessionValidator {
	t.Helper()
	validator, err := NewSessionValidator(SessionValidatorConfig{
		SigningSecret: []byte(testSigningSecret),
		Issuer:        testIssuer,
		CookieName:    testCookieName,
		Clock:         clock,
	})
	if err != nil {
		t.Fatalf("unexpected validator error: %v", err)
	}
	return validator
}

func mustToken(t *testing.T, issuer *TokenIssuer, userID, role string) string {
	t.Helper()
	token, _, err := issuer.IssueSessionToken(userID, "Test Child", role)
	if err != nil {
		t.Fatalf("unexpected issue error: %v", err)
	}
	return token
}

func TestValidateTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer(TokenIssuerConfig{
		SigningSecret: []byte(testSigningSecret),
		Issuer:        testIssuer,
	})
	validator := mustValidator(t, nil)

	claims, err := validator.ValidateToken(mustToken(t, issuer, "child-7", RoleChild))
	if err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
	if claims.UserID != "child-7" {
		t.Fatalf("unexpected user id: %q", claims.UserID)
	}
	if claims.UserRole != RoleChild {
		t.Fatalf("unexpected role: %q", claims.UserRole)
	}
}

func TestValidateTokenRejectsExpiredSession(t *testing.T) {
	issuedAt := time.Unix(1700000000, 0)
	issuer := NewTokenIssuer(TokenIssuerConfig{
		SigningSecret: []byte(testSigningSecret),
		Issuer:        testIssuer,
		SessionTTL:    time.Minute,
		Clock:         func() time.Time { return issuedAt },
	})
	validator := mustValidator(t, func() time.Time { return issuedAt.Add(2 * time.Minute) })

	_, err := validator.ValidateToken(mustToken(t, issuer, "child-7", RoleChild))
	if !errors.Is(err, ErrExpiredSessionToken) {
		t.Fatalf("expected ErrExpiredSessionToken, got %v", err)
	}
}

func TestValidateTokenRejectsWrongIssuer(t *testing.T) {
	issuer := NewTokenIssuer(TokenIssuerConfig{
		SigningSecret: []byte(testSigningSecret),
		Issuer:        "someone-else",
	})
	validator := mustValidator(t, nil)

	_, err := validator.ValidateToken(mustToken(t, issuer, "child-7", RoleChild))
	if !errors.Is(err, ErrInvalidSessionToken) {
		t.Fatalf("expected ErrInvalidSessionToken, got %v", err)
	}
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	issuer := NewTokenIssuer(TokenIssuerConfig{
		SigningSecret: []byte("a different secret"),
		Issuer:        testIssuer,
	})
	validator := mustValidator(t, nil)

	if _, err := validator.ValidateToken(mustToken(t, issuer, "child-7", RoleChild)); err == nil {
		t.Fatalf("expected validation to fail for wrong secret")
	}
}

func TestValidateRequestReadsSessionCookie(t *testing.T) {
	issuer := NewTokenIssuer(TokenIssuerConfig{
		SigningSecret: []byte(testSigningSecret),
		Issuer:        testIssuer,
	})
	validator := mustValidator(t, nil)

	request := httptest.NewRequest(http.MethodPost, "/api/checkins", nil)
	request.AddCookie(&http.Cookie{Name: testCookieName, Value: mustToken(t, issuer, "child-7", RoleChild)})

	claims, err := validator.ValidateRequest(request)
	if err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
	if claims.UserID != "child-7" {
		t.Fatalf("unexpected user id: %q", claims.UserID)
	}
}

func TestValidateRequestRequiresCookie(t *testing.T) {
	validator := mustValidator(t, nil)
	request := httptest.NewRequest(http.MethodPost, "/api/checkins", nil)

	if _, err := validator.ValidateRequest(request); !errors.Is(err, ErrMissingSessionToken) {
		t.Fatalf("expected ErrMissingSessionToken, got %v", err)
	}
}
