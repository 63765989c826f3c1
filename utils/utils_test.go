package utils

import (
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func TestTokenRoundTrip(t *testing.T) {
	issuer, err := NewTokenIssuer("secret", time.Hour)
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}
	token, expires, err := issuer.GenerateToken("intrasoft", RoleAdmin)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if time.Until(expires) <= 0 {
		t.Fatalf("expiry should be in the future, got %v", expires)
	}
	claims, err := issuer.VerifyToken(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Username != "intrasoft" || claims.Role != RoleAdmin {
		t.Fatalf("unexpected claims %+v", claims)
	}

	other, _ := NewTokenIssuer("other", time.Hour)
	if _, err := other.VerifyToken(token); err == nil {
		t.Fatal("token signed with another secret must be rejected")
	}
}

func TestTokenExpires(t *testing.T) {
	issuer, _ := NewTokenIssuer("secret", time.Minute)
	now := time.Now()
	issuer.now = func() time.Time { return now }
	token, _, err := issuer.GenerateToken("form30", RoleAdmin)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	issuer.now = func() time.Time { return now.Add(2 * time.Minute) }
	if _, err := issuer.VerifyToken(token); err == nil {
		t.Fatal("expired token must be rejected")
	}
}

func TestNewTokenIssuerRequiresSecret(t *testing.T) {
	if _, err := NewTokenIssuer("", time.Hour); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestCredentialsVerify(t *testing.T) {
	hash, err := HashPassword("admin")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	creds := Credentials{"intrasoft": hash}
	if !creds.Verify("intrasoft", "admin") {
		t.Fatal("valid credentials rejected")
	}
	if creds.Verify("intrasoft", "wrong") || creds.Verify("nobody", "admin") {
		t.Fatal("invalid credentials accepted")
	}
}

func TestUnknownUserStillRunsBcrypt(t *testing.T) {
	cost, err := bcrypt.Cost([]byte(dummyHash()))
	if err != nil || cost != bcrypt.DefaultCost {
		t.Fatalf("dummy hash must be a real bcrypt hash at default cost, got cost %d err %v", cost, err)
	}
	if (Credentials{}).Verify("nobody", "unknown-admin") {
		t.Fatal("unknown user accepted with the dummy password")
	}
}
