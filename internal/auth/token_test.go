package auth

import (
	"testing"
	"time"
)

func TestIssueAndParseUserToken(t *testing.T) {
	token, err := IssueUserToken("secret", "user-1", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	userID, err := ParseUserToken("secret", token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if userID != "user-1" {
		t.Fatalf("expected user-1, got %q", userID)
	}
}

func TestParseUserTokenWrongSecret(t *testing.T) {
	token, err := IssueUserToken("secret", "user-1", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := ParseUserToken("other", token); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParseUserTokenExpired(t *testing.T) {
	token, err := IssueUserToken("secret", "user-1", -time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := ParseUserToken("secret", token); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestIssueUserTokenMissingInput(t *testing.T) {
	if _, err := IssueUserToken("secret", " ", time.Hour); err == nil {
		t.Fatalf("expected error for empty user id")
	}
	if _, err := IssueUserToken("", "user-1", time.Hour); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}
