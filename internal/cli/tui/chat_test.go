package tui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lvyanru/chatctl/internal/cli/chat"
	"github.com/lvyanru/chatctl/internal/cli/client"
	"github.com/lvyanru/chatctl/internal/cli/notify"
	"github.com/lvyanru/chatctl/internal/cli/session"
	"github.com/lvyanru/chatctl/internal/cli/types"
	"github.com/lvyanru/chatctl/internal/domain"
)

type fakeAPI struct {
	sendErr error
	reply   string
}

func (f *fakeAPI) SendMessage(context.Context, string, string) (*client.ChatReply, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	return client.NewTextReply(f.reply), nil
}

func (f *fakeAPI) GetUser(context.Context, string, string) (*types.UserRecord, error) {
	return nil, domain.NewNetworkError(context.DeadlineExceeded)
}

func (f *fakeAPI) ChatHistory(context.Context, string) ([]types.ChatRecord, error) {
	return nil, nil
}

type nopStore struct{}

func (nopStore) Load(context.Context) (*session.Session, error) { return nil, nil }
func (nopStore) Save(context.Context, *session.Session) error   { return nil }
func (nopStore) Clear(context.Context) error                    { return nil }

type expiredNotes struct{}

func (expiredNotes) Notifications(context.Context, string) ([]types.Notification, error) {
	return nil, domain.NewAuthExpiredError("")
}

func (expiredNotes) CreateNotification(context.Context, string, string) (*types.Notification, error) {
	return nil, domain.NewAuthExpiredError("")
}

func (expiredNotes) MarkNotificationsRead(context.Context, string) error {
	return domain.NewAuthExpiredError("")
}

func newModel(t *testing.T, api chat.API, credits int) chatModel {
	t.Helper()
	return newModelWithNotes(t, api, nil, credits)
}

func newModelWithNotes(t *testing.T, api chat.API, notesAPI notify.API, credits int) chatModel {
	t.Helper()
	wakeups := NewWakeups()
	notes := notify.NewPresenter(notesAPI, notify.DefaultToastDuration, nil)
	notes.OnToast = wakeups.OnToast
	sess := &session.Session{ID: "1", Username: "ann", Token: "tok", Credits: credits}
	ctrl := chat.New(sess, api, nopStore{}, notes, nil, chat.Options{Observer: wakeups.Observe})
	return initialModel(Options{
		Controller:    ctrl,
		Notifications: notes,
		Wakeups:       wakeups,
	})
}

func TestEnterSubmits(t *testing.T) {
	m := newModel(t, &fakeAPI{reply: "hi there"}, 3)
	m.input.SetValue("hello")

	cmds := m.handleKeyPress(tea.KeyMsg{Type: tea.KeyEnter})
	require.Len(t, cmds, 1)
	assert.Empty(t, m.input.Value())

	msg := cmds[0]()
	done, ok := msg.(sendDoneMsg)
	require.True(t, ok)
	require.NoError(t, done.err)

	next, _ := m.Update(done)
	m = next.(chatModel)

	view := m.View()
	assert.Contains(t, view, "hello")
	assert.Contains(t, view, "hi there")
	assert.Contains(t, view, "2 credits")
}

func TestEnterIgnoredWhileSending(t *testing.T) {
	m := newModel(t, &fakeAPI{reply: "x"}, 3)
	m.view.State = chat.StateSending
	m.input.SetValue("hello")

	assert.Empty(t, m.handleKeyPress(tea.KeyMsg{Type: tea.KeyEnter}))
	assert.Equal(t, "hello", m.input.Value())
	assert.Contains(t, m.View(), "Waiting for the reply")
}

func TestSecondEnterKeepsInputUntilSendReturns(t *testing.T) {
	m := newModel(t, &fakeAPI{reply: "first reply"}, 3)
	m.input.SetValue("first")

	cmds := m.handleKeyPress(tea.KeyMsg{Type: tea.KeyEnter})
	require.Len(t, cmds, 1)
	// the submit has not run yet, so the snapshot still says idle
	require.Equal(t, chat.StateIdle, m.view.State)

	m.input.SetValue("second")
	assert.Empty(t, m.handleKeyPress(tea.KeyMsg{Type: tea.KeyEnter}))
	assert.Equal(t, "second", m.input.Value())
	assert.Contains(t, m.View(), "Waiting for the reply")

	next, _ := m.Update(cmds[0]())
	m = next.(chatModel)
	assert.False(t, m.sending)
	assert.Equal(t, "second", m.input.Value())
	assert.Equal(t, 2, m.view.Credits)

	require.Len(t, m.handleKeyPress(tea.KeyMsg{Type: tea.KeyEnter}), 1)
	assert.Empty(t, m.input.Value())
}

func TestBlankEnterIgnored(t *testing.T) {
	m := newModel(t, &fakeAPI{reply: "x"}, 3)
	m.input.SetValue("   ")
	assert.Empty(t, m.handleKeyPress(tea.KeyMsg{Type: tea.KeyEnter}))
}

func TestFailureShowsStatusTurn(t *testing.T) {
	m := newModel(t, &fakeAPI{sendErr: domain.NewServerRejectedError(500, "boom", "")}, 3)

	msg := m.submit("hello")()
	next, _ := m.Update(msg)
	m = next.(chatModel)

	view := m.View()
	assert.Contains(t, view, chat.MsgReplyFailed)
	assert.Contains(t, view, "3 credits")
}

func TestNoCreditsToast(t *testing.T) {
	m := newModel(t, &fakeAPI{reply: "x"}, 0)

	msg := m.submit("hello")()
	next, _ := m.Update(msg)
	m = next.(chatModel)

	assert.Contains(t, m.View(), chat.MsgNoCredits)
}

func TestSessionEndQuits(t *testing.T) {
	m := newModel(t, &fakeAPI{sendErr: domain.NewAuthExpiredError("")}, 3)

	msg := m.submit("hello")()
	next, cmd := m.Update(msg)
	m = next.(chatModel)

	assert.True(t, m.sessionEnded)
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestNotificationsUnauthorizedQuits(t *testing.T) {
	m := newModelWithNotes(t, &fakeAPI{reply: "x"}, expiredNotes{}, 3)

	msg := m.syncNotifications()()
	notes, ok := msg.(notesMsg)
	require.True(t, ok)
	assert.True(t, domain.IsAuthExpired(notes.err))
	assert.Nil(t, m.ctrl.Session())

	next, cmd := m.Update(msg)
	m = next.(chatModel)
	assert.True(t, m.sessionEnded)
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestWakeupsCoalesce(t *testing.T) {
	w := NewWakeups()
	w.Observe(chat.Event{Kind: chat.EventTranscript})
	w.Observe(chat.Event{Kind: chat.EventStreamDelta})
	w.OnToast(notify.Toast{})
	assert.Len(t, w.ch, 1)

	msg := waitForWake(w.ch)()
	assert.Equal(t, wakeMsg{}, msg)
	assert.Empty(t, w.ch)
}

func TestWrapLine(t *testing.T) {
	line := strings.Repeat("你好", 10)
	wrapped := wrapLine(line, 11)
	for _, l := range strings.Split(wrapped, "\n") {
		assert.LessOrEqual(t, runewidth.StringWidth(l), 11)
	}
	assert.Equal(t, line, strings.ReplaceAll(wrapped, "\n", ""))

	assert.Equal(t, "short", wrapLine("short", 11))
}
