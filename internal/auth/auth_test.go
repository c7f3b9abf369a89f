package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestIssueVerifyRoundTrip(t *testing.T) {
	s, err := NewSigner("secret", time.Hour)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	tok, err := s.Issue(" Ana@Example.com ", true)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := s.Verify(tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Email != "ana@example.com" || !claims.Admin {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestVerifyRejects(t *testing.T) {
	s, _ := NewSigner("secret", time.Hour)
	other, _ := NewSigner("other", time.Hour)
	tok, _ := s.Issue("ana@example.com", false)

	expired, _ := NewSigner("secret", time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _ := expired.Issue("ana@example.com", false)

	tt := []struct {
		name  string
		token string
	}{
		{"wrong secret", mustIssue(t, other)},
		{"expired", old},
		{"garbage", "not.a.token"},
		{"empty", ""},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := s.Verify(tc.token); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
	if _, err := s.Verify(tok); err != nil {
		t.Fatalf("valid token rejected: %v", err)
	}
}

func mustIssue(t *testing.T, s *Signer) string {
	t.Helper()
	tok, err := s.Issue("ana@example.com", false)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return tok
}

func TestNewSignerRequiresSecret(t *testing.T) {
	if _, err := NewSigner("  ", 0); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestDecodeWithoutSecret(t *testing.T) {
	s, _ := NewSigner("secret", time.Hour)
	tok := mustIssue(t, s)
	claims, err := Decode(tok)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if claims.Email != "ana@example.com" || claims.ExpiresAt == nil {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestContextClaims(t *testing.T) {
	ctx := context.Background()
	if _, ok := FromContext(ctx); ok {
		t.Fatal("empty context reported claims")
	}
	ctx = WithClaims(ctx, &Claims{Email: "a@b.fr"})
	c, ok := FromContext(ctx)
	if !ok || c.Email != "a@b.fr" {
		t.Fatalf("got %+v, %v", c, ok)
	}
}
