package auth

import (
	"errors"
	"testing"
	"time"
)

func TestJWTService_GenerateAndVerifyRoundTrips(t *testing.T) {
	svc := NewJWTService("test-secret", time.Hour)

	token, err := svc.Generate("session-1")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	sessionID, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if sessionID != "session-1" {
		t.Errorf("sessionID = %q, want session-1", sessionID)
	}
}

func TestJWTService_GenerateRejectsEmptySessionID(t *testing.T) {
	svc := NewJWTService("test-secret", time.Hour)
	if _, err := svc.Generate("   "); err == nil {
		t.Error("expected an error for a blank session id")
	}
}

func TestJWTService_NoSecretMeansDisabled(t *testing.T) {
	svc := NewJWTService("", time.Hour)

	if _, err := svc.Generate("session-1"); !errors.Is(err, ErrAuthDisabled) {
		t.Errorf("Generate err = %v, want %v", err, ErrAuthDisabled)
	}
	if _, err := svc.Verify("anything"); !errors.Is(err, ErrAuthDisabled) {
		t.Errorf("Verify err = %v, want %v", err, ErrAuthDisabled)
	}
}

func TestJWTService_NilServiceMeansDisabled(t *testing.T) {
	var svc *JWTService
	if _, err := svc.Generate("session-1"); !errors.Is(err, ErrAuthDisabled) {
		t.Errorf("Generate err = %v, want %v", err, ErrAuthDisabled)
	}
	if _, err := svc.Verify("anything"); !errors.Is(err, ErrAuthDisabled) {
		t.Errorf("Verify err = %v, want %v", err, ErrAuthDisabled)
	}
}

func TestJWTService_VerifyRejectsTokenSignedWithADifferentSecret(t *testing.T) {
	issuer := NewJWTService("secret-a", time.Hour)
	verifier := NewJWTService("secret-b", time.Hour)

	token, err := issuer.Generate("session-1")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if _, err := verifier.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify err = %v, want %v", err, ErrInvalidToken)
	}
}

func TestJWTService_VerifyRejectsExpiredToken(t *testing.T) {
	svc := NewJWTService("test-secret", -time.Hour)

	token, err := svc.Generate("session-1")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if _, err := svc.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify err = %v, want %v", err, ErrInvalidToken)
	}
}

func TestJWTService_VerifyRejectsMalformedToken(t *testing.T) {
	svc := NewJWTService("test-secret", time.Hour)
	if _, err := svc.Verify("not-a-jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want %v", err, ErrInvalidToken)
	}
}

func TestJWTService_ZeroExpiryIssuesATokenThatNeverExpires(t *testing.T) {
	svc := NewJWTService("test-secret", 0)

	token, err := svc.Generate("session-1")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	sessionID, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if sessionID != "session-1" {
		t.Errorf("sessionID = %q, want session-1", sessionID)
	}
}
