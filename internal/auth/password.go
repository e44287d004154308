package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"famspese/internal/core"
)

const minPasswordLen = 8

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrEmailExists        = errors.New("email already registered")
	ErrInvalidEmail       = errors.New("invalid email")
)

// MemberStore is the slice of storage the authenticator needs.
type MemberStore interface {
	CreateMember(ctx context.Context, m *core.Member) error
	GetMemberByEmail(ctx context.Context, email string) (core.Member, error)
}

// PasswordAuthenticator registers and authenticates members with bcrypt
// password hashes.
type PasswordAuthenticator struct {
	store MemberStore
	cost  int
}

func NewPasswordAuthenticator(store MemberStore) *PasswordAuthenticator {
	return &PasswordAuthenticator{store: store, cost: bcrypt.DefaultCost}
}

func (a *PasswordAuthenticator) ValidateCredential(password string) error {
	if len(password) < minPasswordLen {
		return ErrWeakPassword
	}
	return nil
}

func (a *PasswordAuthenticator) Register(ctx context.Context, email, displayName, password string) (core.Member, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !core.ValidEmail(email) {
		return core.Member{}, ErrInvalidEmail
	}
	if strings.TrimSpace(displayName) == "" {
		return core.Member{}, core.ErrEmptyName
	}
	if err := a.ValidateCredential(password); err != nil {
		return core.Member{}, err
	}

	if _, err := a.store.GetMemberByEmail(ctx, email); err == nil {
		return core.Member{}, ErrEmailExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return core.Member{}, fmt.Errorf("hash password: %w", err)
	}

	m := core.Member{Email: email, DisplayName: strings.TrimSpace(displayName), PasswordHash: string(hash)}
	if err := a.store.CreateMember(ctx, &m); err != nil {
		return core.Member{}, fmt.Errorf("create member: %w", err)
	}
	return m, nil
}

// Authenticate returns the member when the password matches. Unknown email
// and wrong password both yield ErrInvalidCredentials.
func (a *PasswordAuthenticator) Authenticate(ctx context.Context, email, password string) (core.Member, error) {
	m, err := a.store.GetMemberByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return core.Member{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(m.PasswordHash), []byte(password)); err != nil {
		return core.Member{}, ErrInvalidCredentials
	}
	return m, nil
}
