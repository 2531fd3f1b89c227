package services

import (
	"database/sql"
	"errors"
	"fmt"

	"shopfront/internal/domain"

	"golang.org/x/crypto/bcrypt"
)

var ErrBadCreds = errors.New("invalid email or password")

// Accounts is the operator account and session binding store (repos.UserRepo).
type Accounts interface {
	ByEmail(email string) (*domain.User, error)
	BindSession(sid, userID string) error
	SessionUser(sid string) (*domain.User, error)
	UnbindSession(sid string) error
}

// AuthService signs operators in to the admin order views. Shoppers never log in;
// their carts hang off the anonymous sid cookie.
type AuthService struct {
	Users Accounts
}

// Login binds sid to the admin account. Unknown emails, wrong passwords and non-admin
// accounts all fail with ErrBadCreds.
func (s *AuthService) Login(sid, email, password string) (*domain.User, error) {
	u, err := s.Users.ByEmail(email)
	if err != nil {
		return nil, ErrBadCreds
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte(password)) != nil || !u.IsAdmin() {
		return nil, ErrBadCreds
	}
	if err := s.Users.BindSession(sid, u.ID); err != nil {
		return nil, fmt.Errorf("bind session: %w", err)
	}
	return u, nil
}

func (s *AuthService) Logout(sid string) error {
	return s.Users.UnbindSession(sid)
}

// CurrentUser returns nil without an error for a session nobody is signed in to.
func (s *AuthService) CurrentUser(sid string) (*domain.User, error) {
	u, err := s.Users.SessionUser(sid)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session user: %w", err)
	}
	return u, nil
}
