package auth

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Session is returned by a successful login.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *User     `json:"user"`
}

// Authenticator checks credentials and issues tokens.
type Authenticator struct {
	users  UserRepository
	secret string
	ttl    time.Duration
	now    func() time.Time
}

// NewAuthenticator creates an Authenticator signing with secret.
func NewAuthenticator(users UserRepository, secret string, ttl time.Duration) *Authenticator {
	return &Authenticator{users: users, secret: secret, ttl: ttl, now: time.Now}
}

// Login verifies username and password, records the login and issues a token.
// Unknown users and wrong passwords both return ErrInvalidCredentials.
func (a *Authenticator) Login(ctx context.Context, username, password string) (*Session, error) {
	user, err := a.users.GetByUsername(ctx, username)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	ok, err := VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verifying password for %s: %w", username, err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	now := a.now().UTC()
	if err := a.users.RecordLogin(ctx, user.ID, now); err != nil {
		return nil, err
	}
	user.LastLogin = &now

	token, expires, err := IssueToken(user, a.secret, a.ttl, now)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: expires, User: user}, nil
}

// Logout records the logout time for username. Tokens stay valid until they
// expire.
func (a *Authenticator) Logout(ctx context.Context, username string) error {
	return a.users.RecordLogout(ctx, username, a.now().UTC())
}

// Verify parses a bearer token.
func (a *Authenticator) Verify(token string) (*Claims, error) {
	return ParseToken(token, a.secret)
}
