// Package chat drives one conversation: sending messages, consuming streamed
// replies and keeping the local credit counter in step with the server.
package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/lvyanru/chatctl/internal/cli/client"
	"github.com/lvyanru/chatctl/internal/cli/notify"
	"github.com/lvyanru/chatctl/internal/cli/session"
	"github.com/lvyanru/chatctl/internal/cli/types"
	"github.com/lvyanru/chatctl/internal/domain"
)

// User-facing texts
const (
	MsgThinking          = "AI is thinking..."
	MsgReplyFailed       = "Failed to get AI response. Please try again."
	MsgNoCredits         = "You don't have enough credits. Please purchase more."
	MsgSessionExpired    = "Your session has expired. Please log in again."
	msgRefreshFailed     = "Could not refresh your account details."
	msgSessionSaveFailed = "Could not save your session locally."
)

const defaultIdleTimeout = 60 * time.Second

// State is the send state machine: Idle -> Sending -> Idle
type State int

const (
	StateIdle State = iota
	StateSending
)

func (s State) String() string {
	if s == StateSending {
		return "sending"
	}
	return "idle"
}

// API is the part of the chat service the controller needs
type API interface {
	SendMessage(ctx context.Context, token, message string) (*client.ChatReply, error)
	GetUser(ctx context.Context, token, id string) (*types.UserRecord, error)
	ChatHistory(ctx context.Context, token string) ([]types.ChatRecord, error)
}

// Notifier shows transient toasts
type Notifier interface {
	Notify(level notify.Level, message string)
}

// Navigator leads the user back to the login surface after a forced logout
type Navigator interface {
	ToLogin(reason string)
}

// Options tunes a Controller. Zero values pick defaults.
type Options struct {
	IdleTimeout time.Duration
	Logger      *zap.Logger
	Observer    func(Event)
	Now         func() time.Time
	NewID       func() string
}

// View is a render-ready copy of the controller state
type View struct {
	Entries  []Entry
	Live     *StreamingTurn
	Pending  bool
	State    State
	LoggedIn bool
	Username string
	Email    string
	Credits  int
}

// Controller owns the working session copy and the transcript
type Controller struct {
	api      API
	store    session.Store
	notifier Notifier
	nav      Navigator

	idleTimeout time.Duration
	logger      *zap.Logger
	observer    func(Event)
	now         func() time.Time
	newID       func() string

	refreshGroup singleflight.Group

	mu         sync.Mutex
	sess       *session.Session
	transcript Transcript
	state      State
}

// New creates a controller for sess (nil means logged out)
func New(sess *session.Session, api API, store session.Store, notifier Notifier, nav Navigator, opts Options) *Controller {
	c := &Controller{
		api:         api,
		store:       store,
		notifier:    notifier,
		nav:         nav,
		idleTimeout: opts.IdleTimeout,
		logger:      opts.Logger,
		observer:    opts.Observer,
		now:         opts.Now,
		newID:       opts.NewID,
		sess:        sess.Clone(),
	}
	if c.idleTimeout <= 0 {
		c.idleTimeout = defaultIdleTimeout
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.newID == nil {
		c.newID = func() string { return uuid.New().String() }
	}
	return c
}

// Snapshot returns a copy of everything a renderer needs
func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		Entries: c.transcript.Entries(),
		Live:    c.transcript.Live(),
		Pending: c.transcript.pendingCount() > 0,
		State:   c.state,
	}
	if c.sess != nil {
		v.LoggedIn = true
		v.Username = c.sess.Username
		v.Email = c.sess.Email
		v.Credits = c.sess.Credits
	}
	return v
}

// Session returns a copy of the working session, nil when logged out
func (c *Controller) Session() *session.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess.Clone()
}

// Submit sends one message and settles its reply. An empty message is a no-op.
// Every failure leaves the credit counter and the stored session untouched.
func (c *Controller) Submit(ctx context.Context, message string) error {
	text := strings.TrimSpace(message)
	if text == "" {
		return nil
	}

	c.mu.Lock()
	if c.state == StateSending {
		c.mu.Unlock()
		return domain.ErrSendInFlight
	}
	if c.sess == nil {
		c.mu.Unlock()
		c.teardown(ctx, "submit without session")
		return domain.ErrNotLoggedIn
	}
	if c.sess.Credits <= 0 {
		c.mu.Unlock()
		c.toast(notify.LevelWarning, MsgNoCredits)
		return domain.ErrInsufficientCredits
	}

	token := c.sess.Token
	markerID := "thinking-" + c.newID()
	c.state = StateSending
	c.transcript.append(Entry{ID: c.newID(), Kind: KindUser, Content: text, Timestamp: c.now()})
	c.transcript.append(Entry{ID: markerID, Kind: KindPending, Content: MsgThinking, Timestamp: c.now()})
	c.mu.Unlock()

	c.emit(Event{Kind: EventState, State: StateSending})
	c.emit(Event{Kind: EventTranscript})
	defer c.settle()

	reply, err := c.api.SendMessage(ctx, token, text)

	c.mu.Lock()
	c.transcript.remove(markerID)
	c.mu.Unlock()
	c.emit(Event{Kind: EventTranscript})

	if err != nil {
		return c.fail(ctx, err)
	}
	defer reply.Close()

	if !reply.Streamed {
		return c.succeed(ctx, reply.Text, false)
	}

	content, err := c.consume(ctx, reply)
	if err != nil {
		return c.fail(ctx, err)
	}
	return c.succeed(ctx, content, true)
}

// settle returns the state machine to Idle
func (c *Controller) settle() {
	c.mu.Lock()
	c.state = StateIdle
	c.mu.Unlock()
	c.emit(Event{Kind: EventState, State: StateIdle})
}

// consume reads a streamed reply into the live turn until the stream ends.
// Chunks are decoded in delivery order; a gap longer than the idle timeout
// fails as a network error.
func (c *Controller) consume(ctx context.Context, reply *client.ChatReply) (string, error) {
	c.mu.Lock()
	c.transcript.startLive(c.newID(), c.now())
	c.mu.Unlock()
	c.emit(Event{Kind: EventTranscript})

	var dec Utf8Decoder
	var sb strings.Builder

	idle := time.NewTimer(c.idleTimeout)
	defer idle.Stop()

	for {
		select {
		case chunk, ok := <-reply.Chunks:
			if !ok {
				select {
				case err := <-reply.Errs:
					return "", err
				default:
				}
				if err := dec.Finish(); err != nil {
					return "", err
				}
				return sb.String(), nil
			}

			text, err := dec.Decode(chunk)
			if err != nil {
				return "", err
			}
			if text != "" {
				sb.WriteString(text)
				c.mu.Lock()
				c.transcript.appendLive(text)
				c.mu.Unlock()
				c.emit(Event{Kind: EventStreamDelta, Delta: text})
			}

			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(c.idleTimeout)

		case <-idle.C:
			return "", domain.NewNetworkError(fmt.Errorf("no reply data for %s", c.idleTimeout))

		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

func (c *Controller) succeed(ctx context.Context, content string, streamed bool) error {
	c.mu.Lock()
	at := c.now()
	if streamed {
		c.transcript.finalizeLive(at)
	} else {
		c.transcript.append(Entry{ID: c.newID(), Kind: KindAssistant, Content: content, Timestamp: at})
	}
	if c.sess == nil {
		// torn down while the reply was in flight
		c.mu.Unlock()
		c.emit(Event{Kind: EventTranscript})
		return nil
	}
	if c.sess.Credits > 0 {
		c.sess.Credits--
	}
	snapshot := c.sess.Clone()
	c.mu.Unlock()

	c.logger.Debug("reply settled",
		zap.Bool("streamed", streamed),
		zap.Int("length", len(content)),
		zap.Int("credits", snapshot.Credits))

	c.persist(ctx, snapshot)
	c.emit(Event{Kind: EventTranscript})
	c.emit(Event{Kind: EventCredits, Credits: snapshot.Credits})
	return nil
}

// fail drops any live turn and, unless the caller went away, records an
// error status turn. AuthExpired also ends the session.
func (c *Controller) fail(ctx context.Context, err error) error {
	c.mu.Lock()
	c.transcript.dropLive()

	if ctxErr := ctx.Err(); ctxErr != nil {
		c.mu.Unlock()
		c.logger.Debug("send abandoned", zap.Error(err))
		c.emit(Event{Kind: EventTranscript})
		return ctxErr
	}

	c.transcript.append(Entry{
		ID:        c.newID(),
		Kind:      KindStatus,
		Level:     StatusError,
		Content:   MsgReplyFailed,
		Timestamp: c.now(),
	})
	c.mu.Unlock()

	c.logger.Error("chat reply failed",
		zap.String("kind", domain.Kind(err)),
		zap.Int("status", domain.StatusOf(err)),
		zap.Error(err))
	c.emit(Event{Kind: EventTranscript})

	if domain.IsAuthExpired(err) {
		c.teardown(ctx, "send rejected with 401")
	}
	return err
}

// Refresh reconciles credits and profile fields with the server record.
// Concurrent calls share one request.
func (c *Controller) Refresh(ctx context.Context) error {
	_, err, _ := c.refreshGroup.Do("refresh", func() (any, error) {
		return nil, c.refresh(ctx)
	})
	return err
}

func (c *Controller) refresh(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateSending {
		c.mu.Unlock()
		return domain.ErrSendInFlight
	}
	if c.sess == nil {
		c.mu.Unlock()
		return domain.ErrNotLoggedIn
	}
	id, token := c.sess.ID, c.sess.Token
	c.mu.Unlock()

	user, err := c.api.GetUser(ctx, token, id)
	if err != nil {
		if domain.IsAuthExpired(err) {
			c.teardown(ctx, "refresh rejected with 401")
			return err
		}
		if ctx.Err() == nil {
			c.logger.Warn("refresh failed",
				zap.String("kind", domain.Kind(err)),
				zap.Int("status", domain.StatusOf(err)),
				zap.Error(err))
			c.toast(notify.LevelWarning, msgRefreshFailed)
		}
		return err
	}
	if *user.Credits < 0 {
		err := domain.NewMalformedResponseError(fmt.Sprintf("negative credits %d", *user.Credits))
		c.logger.Warn("refresh failed", zap.Error(err))
		c.toast(notify.LevelWarning, msgRefreshFailed)
		return err
	}

	c.mu.Lock()
	if c.sess == nil || c.sess.ID != id {
		c.mu.Unlock()
		return domain.ErrNotLoggedIn
	}
	if c.state == StateSending {
		// the send will settle the counter; this record may predate it
		c.mu.Unlock()
		return domain.ErrSendInFlight
	}
	c.sess.Credits = *user.Credits
	if user.Username != "" {
		c.sess.Username = user.Username
	}
	if user.Email != "" {
		c.sess.Email = user.Email
	}
	snapshot := c.sess.Clone()
	c.mu.Unlock()

	c.persist(ctx, snapshot)
	c.emit(Event{Kind: EventCredits, Credits: snapshot.Credits})
	return nil
}

// LoadHistory puts the server-side chat history in front of the transcript
func (c *Controller) LoadHistory(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateSending {
		c.mu.Unlock()
		return domain.ErrSendInFlight
	}
	if c.sess == nil {
		c.mu.Unlock()
		return domain.ErrNotLoggedIn
	}
	token := c.sess.Token
	c.mu.Unlock()

	records, err := c.api.ChatHistory(ctx, token)
	if err != nil {
		if domain.IsAuthExpired(err) {
			c.teardown(ctx, "history rejected with 401")
		}
		return err
	}

	entries := make([]Entry, 0, 2*len(records))
	for _, r := range records {
		entries = append(entries,
			Entry{ID: r.ID + "-q", Kind: KindUser, Content: r.Message, Timestamp: r.CreatedAt},
			Entry{ID: r.ID + "-a", Kind: KindAssistant, Content: r.Response, Timestamp: r.CreatedAt},
		)
	}

	c.mu.Lock()
	c.transcript.prepend(entries)
	c.mu.Unlock()
	c.emit(Event{Kind: EventTranscript})
	return nil
}

// UpdateSession replaces the working session after an out-of-band change
// (profile edit, purchase) and persists it
func (c *Controller) UpdateSession(ctx context.Context, fn func(s *session.Session)) error {
	c.mu.Lock()
	if c.sess == nil {
		c.mu.Unlock()
		return domain.ErrNotLoggedIn
	}
	fn(c.sess)
	snapshot := c.sess.Clone()
	c.mu.Unlock()

	if err := c.store.Save(context.WithoutCancel(ctx), snapshot); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	c.emit(Event{Kind: EventCredits, Credits: snapshot.Credits})
	return nil
}

// SessionExpired ends the session after a request made outside the
// controller was rejected with 401
func (c *Controller) SessionExpired(ctx context.Context, reason string) {
	if c.Session() == nil {
		return
	}
	c.teardown(ctx, reason)
}

// teardown forgets the session everywhere and sends the user to login
func (c *Controller) teardown(ctx context.Context, reason string) {
	c.mu.Lock()
	c.sess = nil
	c.mu.Unlock()

	if err := c.store.Clear(context.WithoutCancel(ctx)); err != nil {
		c.logger.Error("failed to clear session", zap.Error(err))
	}
	c.logger.Info("session ended", zap.String("reason", reason))

	c.toast(notify.LevelError, MsgSessionExpired)
	c.emit(Event{Kind: EventSessionEnded})
	if c.nav != nil {
		c.nav.ToLogin(reason)
	}
}

func (c *Controller) persist(ctx context.Context, s *session.Session) {
	if err := c.store.Save(context.WithoutCancel(ctx), s); err != nil {
		c.logger.Error("failed to persist session", zap.Error(err))
		c.toast(notify.LevelWarning, msgSessionSaveFailed)
	}
}

func (c *Controller) toast(level notify.Level, msg string) {
	if c.notifier != nil {
		c.notifier.Notify(level, msg)
	}
}

func (c *Controller) emit(e Event) {
	if c.observer != nil {
		c.observer(e)
	}
}
