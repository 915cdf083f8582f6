package auth

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/learnspace-ai/learnspace/internal/store"
)

func newTestGate(t *testing.T) (*Gate, store.Repository) {
	t.Helper()
	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return NewGate(repo), repo
}

func TestSignUpAndLogIn(t *testing.T) {
	t.Parallel()

	gate, repo := newTestGate(t)
	ctx := context.Background()

	record, err := gate.SignUp(ctx, "alice", "pw", "Alice")
	if err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}
	if record.Username != "alice" || record.DisplayName != "Alice" {
		t.Errorf("unexpected record: %+v", record)
	}
	if record.QuestionnaireComplete {
		t.Error("new users start with the questionnaire incomplete")
	}
	if record.CredentialSecret == "pw" || record.CredentialSecret == "" {
		t.Error("credential must be stored as a derivation, never the raw secret")
	}

	// Signup logs the user in.
	if current, _ := repo.CurrentUser(ctx); current != "alice" {
		t.Errorf("current user pointer = %q, want alice", current)
	}

	got, err := gate.LogIn(ctx, "alice", "pw")
	if err != nil {
		t.Fatalf("LogIn failed: %v", err)
	}
	if got.Username != "alice" {
		t.Errorf("LogIn returned %+v", got)
	}
}

func TestSignUpValidation(t *testing.T) {
	t.Parallel()

	gate, _ := newTestGate(t)
	ctx := context.Background()

	tests := []struct {
		name                            string
		username, password, displayName string
	}{
		{"blank username", "", "pw", "Alice"},
		{"blank password", "alice", "", "Alice"},
		{"blank display name", "alice", "pw", ""},
		{"whitespace only", "   ", "pw", "Alice"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := gate.SignUp(ctx, tt.username, tt.password, tt.displayName)
			if !errors.Is(err, ErrMissingField) {
				t.Errorf("expected ErrMissingField, got %v", err)
			}
		})
	}
}

func TestSignUpDuplicateUsername(t *testing.T) {
	t.Parallel()

	gate, _ := newTestGate(t)
	ctx := context.Background()

	if _, err := gate.SignUp(ctx, "alice", "pw", "Alice"); err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}
	if _, err := gate.SignUp(ctx, "alice", "other", "Other"); !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestLogInFailures(t *testing.T) {
	t.Parallel()

	gate, _ := newTestGate(t)
	ctx := context.Background()

	if _, err := gate.LogIn(ctx, "ghost", "pw"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}

	if _, err := gate.SignUp(ctx, "alice", "pw", "Alice"); err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}
	if _, err := gate.LogIn(ctx, "alice", "wrong"); !errors.Is(err, ErrWrongPassword) {
		t.Errorf("expected ErrWrongPassword, got %v", err)
	}
}

func TestUsernamesAreCaseSensitive(t *testing.T) {
	t.Parallel()

	gate, _ := newTestGate(t)
	ctx := context.Background()

	if _, err := gate.SignUp(ctx, "Alice", "pw", "Alice"); err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}
	if _, err := gate.LogIn(ctx, "alice", "pw"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound for different casing, got %v", err)
	}
}

func TestLogOutAndCurrent(t *testing.T) {
	t.Parallel()

	gate, _ := newTestGate(t)
	ctx := context.Background()

	// Nobody logged in yet.
	record, err := gate.Current(ctx)
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if record != nil {
		t.Errorf("expected nil record when logged out, got %+v", record)
	}

	if _, err := gate.SignUp(ctx, "alice", "pw", "Alice"); err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}

	record, err = gate.Current(ctx)
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if record == nil || record.Username != "alice" {
		t.Errorf("Current = %+v, want alice", record)
	}

	if err := gate.LogOut(ctx); err != nil {
		t.Fatalf("LogOut failed: %v", err)
	}
	record, err = gate.Current(ctx)
	if err != nil {
		t.Fatalf("Current after logout failed: %v", err)
	}
	if record != nil {
		t.Errorf("expected nil record after logout, got %+v", record)
	}
}

func TestCurrentToleratesDanglingPointer(t *testing.T) {
	t.Parallel()

	gate, repo := newTestGate(t)
	ctx := context.Background()

	// Pointer set with no matching record: treated as logged out, not fatal.
	if err := repo.SetCurrentUser(ctx, "ghost"); err != nil {
		t.Fatalf("SetCurrentUser failed: %v", err)
	}
	record, err := gate.Current(ctx)
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if record != nil {
		t.Errorf("expected nil record for dangling pointer, got %+v", record)
	}
}
