// Package session persists the logged-in user between runs.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/bytedance/sonic"
	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"

	"github.com/lvyanru/chatctl/internal/cli/config"
)

// Key is the well-known storage key of the session record
const Key = "currentUser"

// Session is the client-held record of the authenticated user plus bearer token
type Session struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Token    string `json:"token"`
	Credits  int    `json:"credits"`
}

// Clone returns a copy that can be mutated independently
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// Store loads and persists the session record.
// Load returns (nil, nil) when no usable session exists.
type Store interface {
	Load(ctx context.Context) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Clear(ctx context.Context) error
}

// Backend is a Store that holds resources until closed
type Backend interface {
	Store
	io.Closer
}

var errInvalidSession = errors.New("invalid session record")

// Open returns the backend selected by cfg
func Open(cfg config.SessionConfig, logger *zap.Logger) (Backend, error) {
	switch cfg.Backend {
	case "", "file":
		return NewFileStore(cfg.Path, logger), nil
	case "sqlite":
		return NewSQLiteStore(cfg.Path, logger)
	default:
		return nil, fmt.Errorf("unknown session backend: %s", cfg.Backend)
	}
}

// decode parses and validates a stored blob. Any error means the blob is
// unusable and should be discarded.
func decode(data []byte, now time.Time) (*Session, error) {
	var s Session
	if err := sonic.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidSession, err)
	}
	if err := validate(&s, now); err != nil {
		return nil, err
	}
	return &s, nil
}

func encode(s *Session) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil session", errInvalidSession)
	}
	data, err := sonic.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}
	return data, nil
}

func validate(s *Session, now time.Time) error {
	if s.ID == "" || s.Token == "" {
		return fmt.Errorf("%w: missing id or token", errInvalidSession)
	}
	if s.Credits < 0 {
		return fmt.Errorf("%w: negative credits", errInvalidSession)
	}
	if exp, ok := tokenExpiry(s.Token); ok && !now.Before(exp) {
		return fmt.Errorf("%w: token expired at %s", errInvalidSession, exp.Format(time.RFC3339))
	}
	return nil
}

// tokenExpiry reads the exp claim of a JWT without verifying its signature.
// Opaque (non-JWT) tokens and tokens without exp report ok=false.
func tokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	switch exp := claims["exp"].(type) {
	case float64:
		return time.Unix(int64(exp), 0), true
	case int64:
		return time.Unix(exp, 0), true
	default:
		return time.Time{}, false
	}
}
