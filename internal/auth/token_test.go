package auth

import (
	"errors"
	"testing"
	"time"
)

func TestIssueAndParse(t *testing.T) {
	m := NewTokenManager("0123456789abcdef0123456789abcdef", time.Hour)
	sid := NewSessionID()

	token, err := m.Issue(sid)
	if err != nil {
		t.Fatal(err)
	}
	got, err := m.Parse(token)
	if err != nil || got != sid {
		t.Fatalf("parse = %q, %v", got, err)
	}

	other := NewTokenManager("ffffffffffffffffffffffffffffffff", time.Hour)
	if _, err := other.Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("wrong secret must fail, got %v", err)
	}

	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := m.Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired token must fail, got %v", err)
	}

	if _, err := m.Issue(" "); !errors.Is(err, ErrInvalidToken) {
		t.Fatal("empty session id must fail")
	}
}
