// Package session gates access on the locally persisted user record.
//
// The server issues no token: holding a user record in the local store is
// what counts as being logged in.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jwulff/minutes/internal/api"
	"github.com/jwulff/minutes/internal/logger"
)

// Store keys.
const (
	KeyUser            = "user"
	KeyIsAuthenticated = "isAuthenticated"
)

const minPasswordLength = 4

// Validation errors carry the message shown to the user.
var (
	ErrNotAuthenticated    = errors.New("not logged in")
	ErrMissingFields       = errors.New("Please fill in all fields.")
	ErrInvalidEmail        = errors.New("Please enter a valid email address.")
	ErrPasswordTooShort    = errors.New("Password must be at least 4 characters long.")
	ErrNewPasswordTooShort = errors.New("New password must be at least 4 characters long.")
	ErrPasswordMismatch    = errors.New("New passwords do not match")
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// KV is the local key-value store holding the session record.
type KV interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(keys ...string) error
}

// Authenticator is the remote side of login and password changes.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (api.User, error)
	ChangePassword(ctx context.Context, req api.ChangePasswordRequest) error
}

// Gate reads and writes the session record.
type Gate struct {
	kv   KV
	auth Authenticator
	log  logger.Logger
}

// NewGate creates a Gate.
func NewGate(kv KV, auth Authenticator, log logger.Logger) *Gate {
	return &Gate{kv: kv, auth: auth, log: log}
}

// Check returns the logged-in user. A partial or corrupt record clears the
// store; both yield ErrNotAuthenticated.
func (g *Gate) Check() (api.User, error) {
	flag, okFlag, err := g.kv.Get(KeyIsAuthenticated)
	if err != nil {
		return api.User{}, err
	}
	raw, okUser, err := g.kv.Get(KeyUser)
	if err != nil {
		return api.User{}, err
	}
	if !okFlag || !okUser || flag != "true" {
		if okFlag || okUser {
			if err := g.clear(); err != nil {
				return api.User{}, err
			}
		}
		return api.User{}, ErrNotAuthenticated
	}

	var u api.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		g.log.Warn(context.Background(), "corrupt session record, clearing: %v", err)
		if err := g.clear(); err != nil {
			return api.User{}, err
		}
		return api.User{}, ErrNotAuthenticated
	}
	return u, nil
}

// ValidateLogin applies the client-side checks done before any network call.
// An address without '@' is treated as a username and passes.
func ValidateLogin(email, password string) error {
	if email == "" || password == "" {
		return ErrMissingFields
	}
	if strings.Contains(email, "@") && !emailPattern.MatchString(email) {
		return ErrInvalidEmail
	}
	if len(password) < minPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}

// Login validates, authenticates against the API and persists the record.
// Remote failures are returned as the API reported them.
func (g *Gate) Login(ctx context.Context, email, password string) (api.User, error) {
	email = strings.TrimSpace(email)
	if err := ValidateLogin(email, password); err != nil {
		return api.User{}, err
	}

	u, err := g.auth.Login(ctx, email, password)
	if err != nil {
		return api.User{}, err
	}

	raw, err := json.Marshal(u)
	if err != nil {
		return api.User{}, fmt.Errorf("encode user: %w", err)
	}
	if err := g.kv.Set(KeyUser, string(raw)); err != nil {
		return api.User{}, err
	}
	if err := g.kv.Set(KeyIsAuthenticated, "true"); err != nil {
		return api.User{}, err
	}
	g.log.Info(ctx, "logged in as %s", u.Email)
	return u, nil
}

// Logout removes the session record.
func (g *Gate) Logout() error {
	return g.clear()
}

func (g *Gate) clear() error {
	return g.kv.Delete(KeyUser, KeyIsAuthenticated)
}

// ValidatePasswordChange applies the client-side checks for a password change.
func ValidatePasswordChange(current, next, confirm string) error {
	if current == "" || next == "" || confirm == "" {
		return ErrMissingFields
	}
	if len(next) < minPasswordLength {
		return ErrNewPasswordTooShort
	}
	if next != confirm {
		return ErrPasswordMismatch
	}
	return nil
}

// ChangePassword changes the password of the logged-in user.
func (g *Gate) ChangePassword(ctx context.Context, current, next, confirm string) error {
	if err := ValidatePasswordChange(current, next, confirm); err != nil {
		return err
	}
	u, err := g.Check()
	if err != nil {
		return err
	}
	return g.auth.ChangePassword(ctx, api.ChangePasswordRequest{
		Email:           u.Email,
		CurrentPassword: current,
		NewPassword:     next,
	})
}

// PasswordChangeMessage maps a ChangePassword failure to the message shown to
// the user. Validation errors pass through; server failures are narrowed to a
// known message or a generic one.
func PasswordChangeMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingFields), errors.Is(err, ErrNewPasswordTooShort),
		errors.Is(err, ErrPasswordMismatch), errors.Is(err, ErrNotAuthenticated):
		return err.Error()
	case strings.Contains(err.Error(), "Current password is incorrect"):
		return "Current password is incorrect"
	case strings.Contains(err.Error(), "at least 4 characters"):
		return ErrNewPasswordTooShort.Error()
	}
	return "An error occurred while changing password"
}
