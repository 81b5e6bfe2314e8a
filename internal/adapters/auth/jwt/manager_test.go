package jwt

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestManager_IssueThenVerify(t *testing.T) {
	m := NewManager("s3cret", time.Hour)

	tok, err := m.Issue("user-1", "ana@example.com")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	c, err := m.Verify(context.Background(), tok)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if c.UserID != "user-1" || c.Email != "ana@example.com" {
		t.Fatalf("unexpected claims: %+v", c)
	}
}

func TestManager_RejectsExpiredToken(t *testing.T) {
	m := NewManager("s3cret", time.Minute)
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return base }

	tok, err := m.Issue("user-1", "")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	m.now = func() time.Time { return base.Add(2 * time.Minute) }
	if _, err := m.Verify(context.Background(), tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestManager_RejectsForeignSecret(t *testing.T) {
	tok, err := NewManager("other", time.Hour).Issue("user-1", "")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if _, err := NewManager("s3cret", time.Hour).Verify(context.Background(), tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestManager_EmptyToken(t *testing.T) {
	if _, err := NewManager("s3cret", time.Hour).Verify(context.Background(), "  "); !errors.Is(err, ErrTokenEmpty) {
		t.Fatalf("expected ErrTokenEmpty, got %v", err)
	}
}
