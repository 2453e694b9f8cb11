package domain

import (
	"testing"
	"time"
)

func TestSessionIsExpired(t *testing.T) {
	tests := []struct {
		name      string
		expiresAt time.Time
		expected  bool
	}{
		{"expired session", time.Now().Add(-1 * time.Hour), true},
		{"valid session", time.Now().Add(1 * time.Hour), false},
		{"just expired", time.Now().Add(-1 * time.Second), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := &Session{ExpiresAt: tt.expiresAt}
			if session.IsExpired() != tt.expected {
				t.Errorf("expected IsExpired() = %v", tt.expected)
			}
		})
	}
}

func TestUserToSummary(t *testing.T) {
	now := time.Now()
	user := &User{
		ID:           "user-123",
		Email:        "owner@example.com",
		PasswordHash: "secret-hash",
		Name:         "Owner",
		Active:       true,
		LastLoginAt:  &now,
	}

	summary := user.ToSummary()

	if summary.ID != user.ID || summary.Email != user.Email || summary.Name != user.Name {
		t.Errorf("summary does not match user: %+v", summary)
	}
	if !summary.Active {
		t.Error("expected Active to be copied")
	}
	if summary.LastLoginAt == nil || !summary.LastLoginAt.Equal(now) {
		t.Error("expected LastLoginAt to be copied")
	}
}
