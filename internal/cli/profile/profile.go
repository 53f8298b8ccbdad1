// Package profile edits the logged-in user's profile.
package profile

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/lvyanru/chatctl/internal/cli/notify"
	"github.com/lvyanru/chatctl/internal/cli/session"
	"github.com/lvyanru/chatctl/internal/domain"
)

// MsgNoChanges is shown when the submitted name equals the current one
const MsgNoChanges = "No changes to save"

// API updates the profile server-side
type API interface {
	UpdateProfile(ctx context.Context, token, username string) error
}

// SessionHolder owns the working session (the chat controller)
type SessionHolder interface {
	Session() *session.Session
	UpdateSession(ctx context.Context, fn func(s *session.Session)) error
}

// Notifier shows toasts
type Notifier interface {
	Notify(level notify.Level, message string)
}

// Editor applies profile changes
type Editor struct {
	api      API
	sessions SessionHolder
	notifier Notifier
	logger   *zap.Logger
}

// NewEditor creates an editor
func NewEditor(api API, sessions SessionHolder, notifier Notifier, logger *zap.Logger) *Editor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Editor{api: api, sessions: sessions, notifier: notifier, logger: logger}
}

// Update changes the username. It returns (false, nil) when nothing changed.
func (e *Editor) Update(ctx context.Context, username string) (bool, error) {
	name := strings.TrimSpace(username)
	if name == "" {
		return false, domain.NewValidationError("username must not be empty")
	}

	sess := e.sessions.Session()
	if sess == nil {
		return false, domain.ErrNotLoggedIn
	}
	if name == sess.Username {
		e.notify(notify.LevelInfo, MsgNoChanges)
		return false, nil
	}

	if err := e.api.UpdateProfile(ctx, sess.Token, name); err != nil {
		e.logger.Warn("profile update failed",
			zap.String("kind", domain.Kind(err)),
			zap.Int("status", domain.StatusOf(err)),
			zap.Error(err))
		e.notify(notify.LevelError, "Failed to update profile")
		return false, err
	}

	if err := e.sessions.UpdateSession(ctx, func(s *session.Session) {
		s.Username = name
	}); err != nil {
		return true, err
	}

	e.logger.Info("profile updated", zap.String("username", name))
	e.notify(notify.LevelSuccess, "Profile updated successfully")
	return true, nil
}

func (e *Editor) notify(level notify.Level, msg string) {
	if e.notifier != nil {
		e.notifier.Notify(level, msg)
	}
}
