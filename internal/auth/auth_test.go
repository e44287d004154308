package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"famspese/internal/core"
	"famspese/internal/storage/memory"
)

const secret = "0123456789abcdef0123456789abcdef"

func TestJWTRoundTrip(t *testing.T) {
	m := NewJWTManager(secret, time.Hour)
	token, err := m.Generate(core.Member{ID: "m-1", Email: "anna@example.com"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	claims, err := m.Validate(token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.MemberID != "m-1" || claims.Email != "anna@example.com" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestJWTRejects(t *testing.T) {
	m := NewJWTManager(secret, time.Hour)
	token, _ := m.Generate(core.Member{ID: "m-1"})

	expired := NewJWTManager(secret, time.Hour)
	expired.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	tests := []struct {
		name  string
		mgr   *JWTManager
		token string
	}{
		{"garbage", m, "not-a-token"},
		{"wrong secret", NewJWTManager(strings.Repeat("x", 32), time.Hour), token},
		{"expired", expired, token},
		{"tampered", m, token + "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.mgr.Validate(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func newAuthenticator() *PasswordAuthenticator {
	a := NewPasswordAuthenticator(memory.New())
	a.cost = bcrypt.MinCost
	return a
}

func TestRegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	a := newAuthenticator()

	m, err := a.Register(ctx, " Anna@Example.com ", "Anna", "correct-horse")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if m.Email != "anna@example.com" || m.PasswordHash == "correct-horse" {
		t.Fatalf("unexpected member: %+v", m)
	}

	got, err := a.Authenticate(ctx, "ANNA@example.com", "correct-horse")
	if err != nil || got.ID != m.ID {
		t.Fatalf("Authenticate: %+v %v", got, err)
	}
	if _, err := a.Authenticate(ctx, "anna@example.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: %v", err)
	}
	if _, err := a.Authenticate(ctx, "nobody@example.com", "correct-horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email: %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	a := newAuthenticator()
	if _, err := a.Register(ctx, "anna@example.com", "Anna", "password1"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	tests := []struct {
		name, email, display, password string
		want                           error
	}{
		{"short password", "b@example.com", "B", "short", ErrWeakPassword},
		{"bad email", "not-an-email", "B", "password1", ErrInvalidEmail},
		{"empty name", "b@example.com", " ", "password1", core.ErrEmptyName},
		{"duplicate", "ANNA@example.com", "Anna", "password1", ErrEmailExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := a.Register(ctx, tt.email, tt.display, tt.password); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}
