package http

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"testing"

	"famspese/internal/auth"
	"famspese/internal/services"
	"famspese/internal/storage"
)

func TestSplitIDs(t *testing.T) {
	tests := []struct {
		raw  string
		want []string
	}{
		{"", nil},
		{" , ,", nil},
		{"a", []string{"a"}},
		{"a, b ,c", []string{"a", "b", "c"}},
		{"a,b,a", []string{"a", "b"}},
	}
	for _, tt := range tests {
		if got := splitIDs(tt.raw); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitIDs(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  Rent  ", "Rent"},
		{"Gro\x00ceries\x07", "Groceries"},
		{"line one\nline two", "line one\nline two"},
		{"tab\there", "tab\there"},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.in); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseOptionalDate(t *testing.T) {
	d, err := parseOptionalDate("due_date", "  ")
	if err != nil || !d.IsZero() {
		t.Fatalf("blank date: %v %v", d, err)
	}
	d, err = parseOptionalDate("due_date", "2026-02-28")
	if err != nil || d.String() != "2026-02-28" {
		t.Fatalf("valid date: %v %v", d, err)
	}
	if _, err := parseOptionalDate("due_date", "28/02/2026"); err == nil {
		t.Fatalf("expected error for non ISO date")
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", &services.ValidationError{Err: errors.New("bad")}, http.StatusUnprocessableEntity},
		{"validation wrapping not found", &services.ValidationError{Err: storage.ErrNotFound}, http.StatusUnprocessableEntity},
		{"forbidden", fmt.Errorf("plan p1: %w", services.ErrForbidden), http.StatusForbidden},
		{"not found", fmt.Errorf("get plan: %w", storage.ErrNotFound), http.StatusNotFound},
		{"credentials", auth.ErrInvalidCredentials, http.StatusUnauthorized},
		{"weak password", auth.ErrWeakPassword, http.StatusUnprocessableEntity},
		{"email exists", auth.ErrEmailExists, http.StatusConflict},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, msg := classifyError(tt.err)
			if status != tt.status {
				t.Fatalf("status=%d want %d", status, tt.status)
			}
			if status == http.StatusInternalServerError && msg != genericErrorMessage {
				t.Fatalf("5xx message=%q", msg)
			}
		})
	}
}
