package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/p-n-ai/mentora/internal/platform/config"
)

func newTestManager(t *testing.T) *TokenManager {
	t.Helper()
	m, err := NewTokenManager(config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTL: 60})
	if err != nil {
		t.Fatalf("NewTokenManager() error = %v", err)
	}
	return m
}

func TestNewTokenManager_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.AuthConfig
	}{
		{"empty secret", config.AuthConfig{AccessTokenTTL: 60}},
		{"zero ttl", config.AuthConfig{JWTSecret: "s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewTokenManager(tt.cfg); err == nil {
				t.Error("NewTokenManager() should error")
			}
		})
	}
}

func TestTokenManager_RoundTrip(t *testing.T) {
	m := newTestManager(t)

	token, err := m.Generate(StaffUser{ID: "u1", Email: "admin@example.com", Role: RoleAdmin})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	claims, err := m.Validate(token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if claims.Email != "admin@example.com" || claims.Role != RoleAdmin || claims.Subject != "u1" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestTokenManager_Expired(t *testing.T) {
	m := newTestManager(t)
	issued := time.Now().Add(-2 * time.Hour)
	m.now = func() time.Time { return issued }

	token, err := m.Generate(StaffUser{Email: "a@example.com", Role: RoleStaff})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	m.now = time.Now
	if _, err := m.Validate(token); err == nil {
		t.Error("Validate() should reject an expired token")
	}
}

func TestTokenManager_RejectsForeignTokens(t *testing.T) {
	m := newTestManager(t)
	other, _ := NewTokenManager(config.AuthConfig{JWTSecret: "other-secret", AccessTokenTTL: 60})
	foreign, _ := other.Generate(StaffUser{Email: "a@example.com", Role: RoleStaff})

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{Email: "a@example.com", Role: RoleAdmin})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name  string
		token string
	}{
		{"wrong secret", foreign},
		{"alg none", unsigned},
		{"garbage", "not.a.token"},
		{"empty", ""},
		{"tampered", foreign[:len(foreign)-2] + strings.Repeat("A", 2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := m.Validate(tt.token); err == nil {
				t.Errorf("Validate(%s) should error", tt.name)
			}
		})
	}
}
