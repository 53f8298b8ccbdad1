// Package notify keeps transient toasts and the unread-notification badge.
package notify

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lvyanru/chatctl/internal/cli/types"
	"github.com/lvyanru/chatctl/internal/domain"
)

// Level is the severity of a toast
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// DefaultToastDuration is how long a toast stays visible
const DefaultToastDuration = 3 * time.Second

// Toast is one transient message
type Toast struct {
	Level   Level
	Message string
	At      time.Time
}

// API is the slice of the chat service the presenter talks to
type API interface {
	Notifications(ctx context.Context, token string) ([]types.Notification, error)
	CreateNotification(ctx context.Context, token, message string) (*types.Notification, error)
	MarkNotificationsRead(ctx context.Context, token string) error
}

// Presenter holds the toast queue and the server-side notification badge
type Presenter struct {
	api    API
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time

	// OnToast, when set, is called for every new toast (console output)
	OnToast func(Toast)

	mu     sync.Mutex
	toasts []Toast
	items  []types.Notification
	unread int
}

// NewPresenter creates a presenter; api may be nil for toast-only use
func NewPresenter(api API, ttl time.Duration, logger *zap.Logger) *Presenter {
	if ttl <= 0 {
		ttl = DefaultToastDuration
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Presenter{
		api:    api,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// Notify queues a toast
func (p *Presenter) Notify(level Level, message string) {
	t := Toast{Level: level, Message: message, At: p.now()}

	p.mu.Lock()
	p.toasts = append(p.toasts, t)
	hook := p.OnToast
	p.mu.Unlock()

	if hook != nil {
		hook(t)
	}
}

// Active returns the toasts still visible at now, dropping expired ones
func (p *Presenter) Active(now time.Time) []Toast {
	p.mu.Lock()
	defer p.mu.Unlock()

	kept := p.toasts[:0]
	for _, t := range p.toasts {
		if now.Sub(t.At) < p.ttl {
			kept = append(kept, t)
		}
	}
	p.toasts = kept

	out := make([]Toast, len(kept))
	copy(out, kept)
	return out
}

// Unread returns the badge count
func (p *Presenter) Unread() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.unread
}

// Items returns the last fetched notifications, newest first as served
func (p *Presenter) Items() []types.Notification {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]types.Notification, len(p.items))
	copy(out, p.items)
	return out
}

// Sync fetches the notification list and recomputes the badge
func (p *Presenter) Sync(ctx context.Context, token string) error {
	if p.api == nil {
		return nil
	}
	items, err := p.api.Notifications(ctx, token)
	if err != nil {
		return p.fail("Could not load notifications.", err)
	}

	unread := 0
	for _, n := range items {
		if !n.Read {
			unread++
		}
	}

	p.mu.Lock()
	p.items = items
	p.unread = unread
	p.mu.Unlock()
	return nil
}

// MarkAllRead clears the badge on the server and locally
func (p *Presenter) MarkAllRead(ctx context.Context, token string) error {
	if err := p.api.MarkNotificationsRead(ctx, token); err != nil {
		return p.fail("Could not mark notifications as read.", err)
	}

	p.mu.Lock()
	for i := range p.items {
		p.items[i].Read = true
	}
	p.unread = 0
	p.mu.Unlock()
	return nil
}

// Add stores a notification on the server and shows it locally
func (p *Presenter) Add(ctx context.Context, token, message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		return domain.NewValidationError("notification message cannot be empty")
	}

	n, err := p.api.CreateNotification(ctx, token, message)
	if err != nil {
		return p.fail("Could not save notification.", err)
	}

	p.mu.Lock()
	p.items = append([]types.Notification{*n}, p.items...)
	if !n.Read {
		p.unread++
	}
	p.mu.Unlock()

	p.Notify(LevelInfo, message)
	return nil
}

func (p *Presenter) fail(toast string, err error) error {
	p.logger.Warn(toast,
		zap.String("kind", domain.Kind(err)),
		zap.Int("status", domain.StatusOf(err)),
		zap.Error(err))
	p.Notify(LevelWarning, toast)
	return err
}
