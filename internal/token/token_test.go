package token

import (
	"testing"
	"time"
)

func TestParseLifetime(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"30s", 30 * time.Second, true},
		{"15m", 15 * time.Minute, true},
		{"12h", 12 * time.Hour, true},
		{"7d", 7 * 24 * time.Hour, true},
		{"0s", 0, true}, // non-positive durations are accepted
		{"", DefaultLifetime, true},
		{"15", 0, false},
		{"m15", 0, false},
		{"15w", 0, false},
		{"-5m", 0, false},
		{"1.5h", 0, false},
	}
	for _, c := range cases {
		got, err := ParseLifetime(c.in)
		if c.ok {
			if err != nil {
				t.Fatalf("ParseLifetime(%q) error: %v", c.in, err)
			}
			if got != c.want {
				t.Fatalf("ParseLifetime(%q) = %v, want %v", c.in, got, c.want)
			}
			continue
		}
		if err != ErrInvalidDuration {
			t.Fatalf("ParseLifetime(%q) expected ErrInvalidDuration, got %v", c.in, err)
		}
	}
}

func TestIssuePairAndVerify(t *testing.T) {
	t.Parallel()

	svc := NewService("super-secret", 15*time.Minute, 7*24*time.Hour)

	pair, err := svc.IssuePair(42, "manager@example.com", "manager")
	if err != nil {
		t.Fatalf("IssuePair error: %v", err)
	}
	if pair.JTI == "" {
		t.Fatal("expected non-empty jti")
	}
	if !pair.RefreshExpiresAt.After(pair.AccessExpiresAt) {
		t.Fatalf("refresh expiry %v must be after access expiry %v",
			pair.RefreshExpiresAt, pair.AccessExpiresAt)
	}

	for _, raw := range []string{pair.AccessToken, pair.RefreshToken} {
		claims, err := svc.Verify(raw)
		if err != nil {
			t.Fatalf("Verify error: %v", err)
		}
		uid, err := claims.UserID()
		if err != nil {
			t.Fatalf("UserID error: %v", err)
		}
		if uid != 42 {
			t.Fatalf("subject mismatch: got %d want 42", uid)
		}
		if claims.ID != pair.JTI {
			t.Fatalf("jti mismatch: got %q want %q", claims.ID, pair.JTI)
		}
		if claims.Email != "manager@example.com" || claims.Role != "manager" {
			t.Fatalf("unexpected claims: %+v", claims)
		}
	}
}

func TestIssuePair_UniqueJTI(t *testing.T) {
	t.Parallel()

	svc := NewService("k", time.Minute, time.Hour)
	a, err := svc.IssuePair(1, "a@b.c", "admin")
	if err != nil {
		t.Fatalf("IssuePair error: %v", err)
	}
	b, err := svc.IssuePair(1, "a@b.c", "admin")
	if err != nil {
		t.Fatalf("IssuePair error: %v", err)
	}
	if a.JTI == b.JTI {
		t.Fatalf("expected distinct jtis, both %q", a.JTI)
	}
}

func TestVerify_Expired(t *testing.T) {
	t.Parallel()

	svc := NewService("k", -time.Minute, -time.Minute)
	pair, err := svc.IssuePair(7, "x@y.z", "manager")
	if err != nil {
		t.Fatalf("IssuePair error: %v", err)
	}
	if _, err := svc.Verify(pair.AccessToken); err != ErrExpiredToken {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	t.Parallel()

	right := NewService("right-secret", time.Minute, time.Hour)
	wrong := NewService("wrong-secret", time.Minute, time.Hour)

	pair, err := right.IssuePair(7, "x@y.z", "manager")
	if err != nil {
		t.Fatalf("IssuePair error: %v", err)
	}
	if _, err := wrong.Verify(pair.AccessToken); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerify_Malformed(t *testing.T) {
	t.Parallel()

	svc := NewService("k", time.Minute, time.Hour)
	if _, err := svc.Verify("not.a.jwt"); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
