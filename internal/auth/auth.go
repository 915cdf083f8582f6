// Package auth implements the credential gate in front of the core: signup,
// login, logout, and resolution of the persisted current-user pointer.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/learnspace-ai/learnspace/internal/domain"
	"github.com/learnspace-ai/learnspace/internal/store"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrUsernameTaken rejects signup with an existing username.
	ErrUsernameTaken = errors.New("username already exists")

	// ErrUserNotFound rejects login for an unknown username.
	ErrUserNotFound = errors.New("username not found")

	// ErrWrongPassword rejects login with a bad password.
	ErrWrongPassword = errors.New("incorrect password")

	// ErrMissingField rejects signup/login with blank required fields.
	ErrMissingField = errors.New("required field is missing")
)

// Gate validates credentials against the store. Secrets are stored only as
// bcrypt derivations; raw passwords are never persisted or compared.
type Gate struct {
	repo store.Repository
}

// NewGate creates a Gate over the given repository.
func NewGate(repo store.Repository) *Gate {
	return &Gate{repo: repo}
}

// SignUp creates a new user record, sets the current-user pointer, and
// returns the record. No state changes on validation failure.
func (g *Gate) SignUp(ctx context.Context, username, password, displayName string) (*domain.UserRecord, error) {
	if strings.TrimSpace(username) == "" || strings.TrimSpace(password) == "" {
		return nil, fmt.Errorf("username and password: %w", ErrMissingField)
	}
	if strings.TrimSpace(displayName) == "" {
		return nil, fmt.Errorf("display name: %w", ErrMissingField)
	}

	_, err := g.repo.LoadUser(ctx, username)
	if err == nil {
		return nil, ErrUsernameTaken
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("check username %q: %w", username, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("derive credential: %w", err)
	}

	record := &domain.UserRecord{
		Username:         username,
		DisplayName:      displayName,
		CredentialSecret: string(hash),
		CreatedAt:        time.Now(),
		ProfileAnswers:   map[string]string{},
		Sessions:         []domain.Session{},
	}
	if err := g.repo.SaveUser(ctx, record); err != nil {
		return nil, fmt.Errorf("save new user %q: %w", username, err)
	}
	if err := g.repo.SetCurrentUser(ctx, username); err != nil {
		// The record write already committed; the pointer lagging behind is
		// tolerated, the user simply has to log in explicitly.
		slog.Warn("failed to set current user pointer after signup", "username", username, "error", err)
	}
	return record, nil
}

// LogIn checks the password against the stored derivation and sets the
// current-user pointer on success.
func (g *Gate) LogIn(ctx context.Context, username, password string) (*domain.UserRecord, error) {
	if strings.TrimSpace(username) == "" || strings.TrimSpace(password) == "" {
		return nil, fmt.Errorf("username and password: %w", ErrMissingField)
	}

	record, err := g.repo.LoadUser(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user %q: %w", username, err)
	}

	if bcrypt.CompareHashAndPassword([]byte(record.CredentialSecret), []byte(password)) != nil {
		return nil, ErrWrongPassword
	}

	if err := g.repo.SetCurrentUser(ctx, username); err != nil {
		slog.Warn("failed to set current user pointer after login", "username", username, "error", err)
	}
	return record, nil
}

// LogOut clears the current-user pointer.
func (g *Gate) LogOut(ctx context.Context) error {
	if err := g.repo.ClearCurrentUser(ctx); err != nil {
		return fmt.Errorf("log out: %w", err)
	}
	return nil
}

// Current resolves the current-user pointer to a record. Returns (nil, nil)
// when nobody is logged in. A dangling pointer (record deleted out of band)
// is treated as logged out.
func (g *Gate) Current(ctx context.Context) (*domain.UserRecord, error) {
	username, err := g.repo.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("read current user pointer: %w", err)
	}
	if username == "" {
		return nil, nil
	}

	record, err := g.repo.LoadUser(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		slog.Warn("current user pointer references missing record", "username", username)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load current user %q: %w", username, err)
	}
	return record, nil
}
