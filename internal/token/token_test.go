package token

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestIssueAndVerify(t *testing.T) {
	mgr := NewManager("test-secret", time.Hour)
	userID := uuid.New()

	tok, err := mgr.Issue(userID, "dev@example.com")
	if err != nil {
		t.Fatal(err)
	}

	claims, err := mgr.Verify(tok)
	if err != nil {
		t.Fatal(err)
	}
	if claims.UserID != userID.String() {
		t.Errorf("UserID = %q, want %q", claims.UserID, userID)
	}
	if claims.Email != "dev@example.com" {
		t.Errorf("Email = %q", claims.Email)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	tok, err := NewManager("secret-a", time.Hour).Issue(uuid.New(), "x@example.com")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := NewManager("secret-b", time.Hour).Verify(tok); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	mgr := NewManager("test-secret", -time.Minute)
	tok, err := mgr.Issue(uuid.New(), "x@example.com")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := mgr.Verify(tok); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	mgr := NewManager("test-secret", time.Hour)
	for _, tok := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := mgr.Verify(tok); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Verify(%q) err = %v, want ErrInvalidToken", tok, err)
		}
	}
}

func TestIssueRequiresSecret(t *testing.T) {
	mgr := NewManager("", time.Hour)
	if _, err := mgr.Issue(uuid.New(), "x@example.com"); !errors.Is(err, ErrNoSecret) {
		t.Errorf("err = %v, want ErrNoSecret", err)
	}
}

func TestTTLDefault(t *testing.T) {
	if got := NewManager("s", 0).TTL(); got != 24*time.Hour {
		t.Errorf("TTL = %v, want 24h", got)
	}
}
