// Package session holds the process-scoped sign-in state shared by the
// console components: the bearer credentials and the category list.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/iyhunko/storefront-admin/internal/model"
	"github.com/iyhunko/storefront-admin/internal/storeapi"
)

const minUsernameLength = 2

var (
	// ErrUsernameRequired is returned when the username is blank.
	ErrUsernameRequired = &storeapi.Error{Kind: storeapi.KindInvalid, Message: "Please enter your name"}
	// ErrUsernameTooShort is returned when the trimmed username is shorter than two characters.
	ErrUsernameTooShort = &storeapi.Error{Kind: storeapi.KindInvalid, Message: "Name must be at least 2 characters long"}
	// ErrSignedOut is returned by operations that need credentials.
	ErrSignedOut = &storeapi.Error{Kind: storeapi.KindUnauthorized, Message: "please sign in"}
)

// Authenticator is the part of the remote store the session needs.
type Authenticator interface {
	Login(ctx context.Context, username string) (model.Credentials, error)
	ListCategories(ctx context.Context, token string) ([]model.Category, error)
}

// Session is initialised by Start and torn down by Clear.
type Session struct {
	mu         sync.RWMutex
	auth       Authenticator
	username   string
	creds      *model.Credentials
	categories []model.Category
	onClear    []func()
}

// New creates a signed-out Session.
func New(auth Authenticator) *Session {
	return &Session{auth: auth}
}

// Start signs in and loads the category list. A failure to load categories
// does not undo the sign-in; call LoadCategories again later.
func (s *Session) Start(ctx context.Context, username string) error {
	username = strings.TrimSpace(username)
	switch {
	case username == "":
		return ErrUsernameRequired
	case len([]rune(username)) < minUsernameLength:
		return ErrUsernameTooShort
	}

	creds, err := s.auth.Login(ctx, username)
	if err != nil {
		return fmt.Errorf("failed to sign in: %w", err)
	}

	s.mu.Lock()
	s.username = username
	s.creds = &creds
	s.categories = nil
	s.mu.Unlock()
	slog.Info("Signed in", slog.String("username", username))

	if err := s.LoadCategories(ctx); err != nil {
		slog.Warn("Failed to load categories after sign-in", slog.Any("err", err))
	}
	return nil
}

// LoadCategories fetches the category list with the current credentials.
func (s *Session) LoadCategories(ctx context.Context) error {
	token := s.Token()
	if token == "" {
		return ErrSignedOut
	}
	categories, err := s.auth.ListCategories(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to load categories: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.creds == nil || s.creds.Access != token {
		// signed out or re-signed in while the request was in flight
		return nil
	}
	s.categories = categories
	return nil
}

// OnClear registers fn to run whenever the session is cleared.
func (s *Session) OnClear(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onClear = append(s.onClear, fn)
}

// Clear signs out, dropping credentials and categories.
func (s *Session) Clear() {
	s.mu.Lock()
	wasSignedIn := s.creds != nil
	s.creds = nil
	s.username = ""
	s.categories = nil
	hooks := append([]func(){}, s.onClear...)
	s.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
	if wasSignedIn {
		slog.Info("Signed out")
	}
}

// Token returns the access token, or "" when signed out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.creds == nil {
		return ""
	}
	return s.creds.Access
}

// SignedIn reports whether credentials are present.
func (s *Session) SignedIn() bool {
	return s.Token() != ""
}

// Username returns the signed-in username.
func (s *Session) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username
}

// Categories returns a copy of the loaded categories.
func (s *Session) Categories() []model.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Category(nil), s.categories...)
}

// CategoriesLoaded reports whether a category list has been fetched.
func (s *Session) CategoriesLoaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.categories != nil
}

// IsUnauthorized reports whether err signals missing or rejected credentials.
func IsUnauthorized(err error) bool {
	return errors.Is(err, storeapi.ErrUnauthorized)
}
