package service

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestHostTokenService_IssueAndParse(t *testing.T) {
	svc := NewHostTokenService("secret", "affection-host", time.Hour, NewMemoryTokenRevocationStore())

	tok, err := svc.Issue("host-1", "s1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if tok.Token == "" || tok.ExpiresIn != 3600 {
		t.Fatalf("unexpected token: %+v", tok)
	}

	claims, err := svc.Parse(tok.Token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.HostID != "host-1" || claims.SessionID != "s1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if !claims.AllowsSession("s1") || claims.AllowsSession("s2") {
		t.Fatalf("session binding not enforced: %+v", claims)
	}
}

func TestHostTokenService_UnboundTokenAllowsAnySession(t *testing.T) {
	svc := NewHostTokenService("secret", "", 0, nil)
	tok, err := svc.Issue("host-1", "")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := svc.Parse(tok.Token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !claims.AllowsSession("anything") {
		t.Fatalf("expected unbound token to allow any session")
	}
}

func TestHostTokenService_RejectsEmptySecret(t *testing.T) {
	svc := NewHostTokenService("", "affection-host", time.Hour, nil)
	if _, err := svc.Issue("host-1", ""); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid on empty secret, got %v", err)
	}
}

func TestHostTokenService_Revoke(t *testing.T) {
	svc := NewHostTokenService("secret", "affection-host", time.Hour, NewMemoryTokenRevocationStore())
	tok, err := svc.Issue("host-1", "")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := svc.Revoke(tok.Token); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := svc.Parse(tok.Token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected revoked token to be invalid, got %v", err)
	}
}

func TestHostTokenService_Expired(t *testing.T) {
	svc := NewHostTokenService("secret", "affection-host", time.Hour, nil)
	past := time.Now().UTC().Add(-2 * time.Hour)
	claims := HostClaims{
		HostID:    "host-1",
		TokenType: hostTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "affection-host",
			Subject:   "host-1",
			IssuedAt:  jwt.NewNumericDate(past),
			ExpiresAt: jwt.NewNumericDate(past.Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := svc.Parse(signed); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestHostTokenService_RejectsWrongIssuerAndType(t *testing.T) {
	svc := NewHostTokenService("secret", "affection-host", time.Hour, nil)
	now := time.Now().UTC()
	cases := map[string]HostClaims{
		"wrong issuer": {
			HostID:    "host-1",
			TokenType: hostTokenType,
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "other-issuer",
				Subject:   "host-1",
				ExpiresAt: jwt.NewNumericDate(now.Add(10 * time.Minute)),
			},
		},
		"wrong type": {
			HostID:    "host-1",
			TokenType: "access",
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "affection-host",
				Subject:   "host-1",
				ExpiresAt: jwt.NewNumericDate(now.Add(10 * time.Minute)),
			},
		},
		"subject mismatch": {
			HostID:    "host-1",
			TokenType: hostTokenType,
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "affection-host",
				Subject:   "host-2",
				ExpiresAt: jwt.NewNumericDate(now.Add(10 * time.Minute)),
			},
		},
	}
	for name, claims := range cases {
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
		if err != nil {
			t.Fatalf("%s: sign token: %v", name, err)
		}
		if _, err := svc.Parse(signed); !errors.Is(err, ErrTokenInvalid) {
			t.Fatalf("%s: expected ErrTokenInvalid, got %v", name, err)
		}
	}
}
