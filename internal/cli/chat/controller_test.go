package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/lvyanru/chatctl/internal/cli/client"
	"github.com/lvyanru/chatctl/internal/cli/notify"
	"github.com/lvyanru/chatctl/internal/cli/session"
	"github.com/lvyanru/chatctl/internal/cli/types"
	"github.com/lvyanru/chatctl/internal/domain"
)

// ============ fakes ============

type fakeAPI struct {
	sendCalls    atomic.Int32
	getUserCalls atomic.Int32

	send    func(ctx context.Context, token, message string) (*client.ChatReply, error)
	getUser func(ctx context.Context, token, id string) (*types.UserRecord, error)
	history []types.ChatRecord
}

func (f *fakeAPI) SendMessage(ctx context.Context, token, message string) (*client.ChatReply, error) {
	f.sendCalls.Add(1)
	return f.send(ctx, token, message)
}

func (f *fakeAPI) GetUser(ctx context.Context, token, id string) (*types.UserRecord, error) {
	f.getUserCalls.Add(1)
	return f.getUser(ctx, token, id)
}

func (f *fakeAPI) ChatHistory(ctx context.Context, token string) ([]types.ChatRecord, error) {
	return f.history, nil
}

type memStore struct {
	mu      sync.Mutex
	sess    *session.Session
	saves   int
	clears  int
	saveErr error
}

func (m *memStore) Load(ctx context.Context) (*session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sess.Clone(), nil
}

func (m *memStore) Save(ctx context.Context, s *session.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.sess = s.Clone()
	return nil
}

func (m *memStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clears++
	m.sess = nil
	return nil
}

type recNotifier struct {
	mu     sync.Mutex
	toasts []notify.Toast
}

func (r *recNotifier) Notify(level notify.Level, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = append(r.toasts, notify.Toast{Level: level, Message: message})
}

type recNav struct {
	calls atomic.Int32
}

func (r *recNav) ToLogin(string) { r.calls.Add(1) }

// chunkReader returns one chunk per Read
type chunkReader struct {
	chunks [][]byte
	err    error
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if len(c.chunks) == 0 {
		if c.err != nil {
			return 0, c.err
		}
		return 0, io.EOF
	}
	n := copy(p, c.chunks[0])
	c.chunks = c.chunks[1:]
	return n, nil
}

func (c *chunkReader) Close() error { return nil }

func streamOf(chunks ...string) *client.ChatReply {
	r := &chunkReader{}
	for _, c := range chunks {
		r.chunks = append(r.chunks, []byte(c))
	}
	return client.NewStreamReply(r)
}

type harness struct {
	ctrl     *Controller
	api      *fakeAPI
	store    *memStore
	notifier *recNotifier
	nav      *recNav
}

func newHarness(t *testing.T, credits int, api *fakeAPI, opts ...func(*Options)) *harness {
	t.Helper()
	sess := &session.Session{ID: "u-1", Username: "ann", Email: "ann@example.com", Token: "tok", Credits: credits}
	h := &harness{
		api:      api,
		store:    &memStore{sess: sess.Clone()},
		notifier: &recNotifier{},
		nav:      &recNav{},
	}
	var seq atomic.Int32
	o := Options{
		IdleTimeout: time.Second,
		NewID:       func() string { return fmt.Sprintf("id-%d", seq.Add(1)) },
	}
	for _, fn := range opts {
		fn(&o)
	}
	h.ctrl = New(sess, api, h.store, h.notifier, h.nav, o)
	return h
}

type turn struct {
	Kind    EntryKind
	Content string
}

func turns(v View) []turn {
	out := make([]turn, 0, len(v.Entries))
	for _, e := range v.Entries {
		out = append(out, turn{e.Kind, e.Content})
	}
	return out
}

func replyWith(text string) func(context.Context, string, string) (*client.ChatReply, error) {
	return func(context.Context, string, string) (*client.ChatReply, error) {
		return client.NewTextReply(text), nil
	}
}

// ============ Submit ============

func TestSubmitNonStreamed(t *testing.T) {
	api := &fakeAPI{send: func(_ context.Context, token, message string) (*client.ChatReply, error) {
		assert.Equal(t, "tok", token)
		assert.Equal(t, "hello", message)
		return client.NewTextReply("hi"), nil
	}}
	h := newHarness(t, 3, api)

	require.NoError(t, h.ctrl.Submit(context.Background(), "  hello \n"))

	v := h.ctrl.Snapshot()
	want := []turn{{KindUser, "hello"}, {KindAssistant, "hi"}}
	if diff := cmp.Diff(want, turns(v)); diff != "" {
		t.Errorf("transcript mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 2, v.Credits)
	assert.Equal(t, StateIdle, v.State)
	assert.False(t, v.Pending)
	assert.Nil(t, v.Live)

	assert.Equal(t, 1, h.store.saves)
	assert.Equal(t, 2, h.store.sess.Credits)
}

func TestSubmitNoCredits(t *testing.T) {
	api := &fakeAPI{send: replyWith("never")}
	h := newHarness(t, 0, api)

	err := h.ctrl.Submit(context.Background(), "hello")
	assert.ErrorIs(t, err, domain.ErrInsufficientCredits)
	assert.True(t, domain.IsValidation(err))

	assert.Zero(t, api.sendCalls.Load())
	v := h.ctrl.Snapshot()
	assert.Empty(t, v.Entries)
	assert.Equal(t, 0, v.Credits)
	assert.Zero(t, h.store.saves)

	require.Len(t, h.notifier.toasts, 1)
	assert.Equal(t, notify.LevelWarning, h.notifier.toasts[0].Level)
	assert.Equal(t, MsgNoCredits, h.notifier.toasts[0].Message)
}

func TestSubmitBlank(t *testing.T) {
	api := &fakeAPI{send: replyWith("never")}
	h := newHarness(t, 3, api)

	for _, msg := range []string{"", "  ", "\t\n"} {
		require.NoError(t, h.ctrl.Submit(context.Background(), msg))
	}
	assert.Zero(t, api.sendCalls.Load())
	assert.Empty(t, h.ctrl.Snapshot().Entries)
	assert.Empty(t, h.notifier.toasts)
}

func TestSubmitStreamed(t *testing.T) {
	tests := []struct {
		name   string
		chunks []string
		want   string
	}{
		{name: "ascii", chunks: []string{"He", "llo"}, want: "Hello"},
		{name: "split rune", chunks: []string{"caf\xc3", "\xa9 ", "\xe4\xbd", "\xa0"}, want: "café 你"},
		{name: "empty", chunks: nil, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer goleak.VerifyNone(t)

			var deltas []string
			api := &fakeAPI{send: func(context.Context, string, string) (*client.ChatReply, error) {
				return streamOf(tt.chunks...), nil
			}}
			h := newHarness(t, 3, api, func(o *Options) {
				o.Observer = func(e Event) {
					if e.Kind == EventStreamDelta {
						deltas = append(deltas, e.Delta)
					}
				}
			})

			require.NoError(t, h.ctrl.Submit(context.Background(), "hello"))

			v := h.ctrl.Snapshot()
			want := []turn{{KindUser, "hello"}, {KindAssistant, tt.want}}
			if diff := cmp.Diff(want, turns(v)); diff != "" {
				t.Errorf("transcript mismatch (-want +got):\n%s", diff)
			}
			assert.Nil(t, v.Live)
			assert.Equal(t, 2, v.Credits)
			assert.Equal(t, 2, h.store.sess.Credits)

			joined := ""
			for _, d := range deltas {
				joined += d
			}
			assert.Equal(t, tt.want, joined)
		})
	}
}

func TestSubmitLiveTurnVisibleWhileStreaming(t *testing.T) {
	pr, pw := io.Pipe()
	api := &fakeAPI{send: func(context.Context, string, string) (*client.ChatReply, error) {
		return client.NewStreamReply(pr), nil
	}}

	var h *harness
	seen := make(chan View, 4)
	h = newHarness(t, 3, api, func(o *Options) {
		o.Observer = func(e Event) {
			if e.Kind == EventStreamDelta {
				seen <- h.ctrl.Snapshot()
			}
		}
	})

	done := make(chan error, 1)
	go func() { done <- h.ctrl.Submit(context.Background(), "hello") }()

	pw.Write([]byte("par"))
	v := <-seen
	require.NotNil(t, v.Live)
	assert.Equal(t, "par", v.Live.Content)
	assert.False(t, v.Pending, "marker is gone before reply text shows")
	assert.Equal(t, StateSending, v.State)
	assert.Equal(t, 3, v.Credits, "no decrement before completion")

	pw.Write([]byte("tial"))
	<-seen
	pw.Close()

	require.NoError(t, <-done)
	final := h.ctrl.Snapshot()
	assert.Equal(t, "partial", final.Entries[len(final.Entries)-1].Content)
	assert.Equal(t, 2, final.Credits)
}

func TestSubmitMarkerLifecycle(t *testing.T) {
	var h *harness
	api := &fakeAPI{send: func(context.Context, string, string) (*client.ChatReply, error) {
		v := h.ctrl.Snapshot()
		assert.True(t, v.Pending)
		assert.Equal(t, StateSending, v.State)
		last := v.Entries[len(v.Entries)-1]
		assert.Equal(t, KindPending, last.Kind)
		assert.Equal(t, MsgThinking, last.Content)
		assert.Regexp(t, `^thinking-`, last.ID)
		return client.NewTextReply("ok"), nil
	}}
	h = newHarness(t, 3, api)

	require.NoError(t, h.ctrl.Submit(context.Background(), "hello"))
	assert.False(t, h.ctrl.Snapshot().Pending)
	assert.Zero(t, h.ctrl.transcript.pendingCount())
}

func TestSubmitFailuresKeepCredits(t *testing.T) {
	tests := []struct {
		name  string
		reply func() (*client.ChatReply, error)
	}{
		{name: "network", reply: func() (*client.ChatReply, error) {
			return nil, domain.NewNetworkError(errors.New("connection refused"))
		}},
		{name: "rejected", reply: func() (*client.ChatReply, error) {
			return nil, domain.NewServerRejectedError(500, "boom", "")
		}},
		{name: "payment required", reply: func() (*client.ChatReply, error) {
			return nil, domain.NewServerRejectedError(402, `{"detail":"Insufficient credits"}`, "Insufficient credits")
		}},
		{name: "malformed", reply: func() (*client.ChatReply, error) {
			return nil, domain.NewMalformedResponseError("chat response has no response field")
		}},
		{name: "stream read error", reply: func() (*client.ChatReply, error) {
			return client.NewStreamReply(&chunkReader{
				chunks: [][]byte{[]byte("half an ans")},
				err:    errors.New("connection reset"),
			}), nil
		}},
		{name: "invalid utf8", reply: func() (*client.ChatReply, error) {
			return streamOf("ok", "\xff"), nil
		}},
		{name: "truncated rune", reply: func() (*client.ChatReply, error) {
			return streamOf("ok", "\xe4\xbd"), nil
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer goleak.VerifyNone(t)

			api := &fakeAPI{send: func(context.Context, string, string) (*client.ChatReply, error) {
				return tt.reply()
			}}
			h := newHarness(t, 3, api)
			before := *h.store.sess

			err := h.ctrl.Submit(context.Background(), "hello")
			require.Error(t, err)

			v := h.ctrl.Snapshot()
			want := []turn{{KindUser, "hello"}, {KindStatus, MsgReplyFailed}}
			if diff := cmp.Diff(want, turns(v)); diff != "" {
				t.Errorf("transcript mismatch (-want +got):\n%s", diff)
			}
			assert.Equal(t, StatusError, v.Entries[1].Level)
			assert.Nil(t, v.Live)
			assert.False(t, v.Pending)
			assert.Equal(t, 3, v.Credits)
			assert.Equal(t, StateIdle, v.State)

			assert.Zero(t, h.store.saves)
			assert.Equal(t, before, *h.store.sess)
			assert.Zero(t, h.nav.calls.Load())
		})
	}
}

func TestSubmitUnauthorizedTearsDown(t *testing.T) {
	api := &fakeAPI{send: func(context.Context, string, string) (*client.ChatReply, error) {
		return nil, domain.NewAuthExpiredError(`{"detail":"Could not validate credentials"}`)
	}}
	var ended atomic.Bool
	h := newHarness(t, 3, api, func(o *Options) {
		o.Observer = func(e Event) {
			if e.Kind == EventSessionEnded {
				ended.Store(true)
			}
		}
	})

	err := h.ctrl.Submit(context.Background(), "hello")
	assert.True(t, domain.IsAuthExpired(err))

	assert.Nil(t, h.store.sess)
	assert.Equal(t, 1, h.store.clears)
	assert.Equal(t, int32(1), h.nav.calls.Load())
	assert.True(t, ended.Load())

	v := h.ctrl.Snapshot()
	assert.False(t, v.LoggedIn)
	assert.Zero(t, v.Credits)
	assert.Nil(t, h.ctrl.Session())

	// a logged-out controller refuses to send
	err = h.ctrl.Submit(context.Background(), "again")
	assert.True(t, domain.IsAuthExpired(err))
	assert.Equal(t, int32(1), api.sendCalls.Load())
}

func TestSubmitRejectsConcurrentSend(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	api := &fakeAPI{send: func(context.Context, string, string) (*client.ChatReply, error) {
		close(entered)
		<-release
		return client.NewTextReply("first"), nil
	}}
	h := newHarness(t, 3, api)

	done := make(chan error, 1)
	go func() { done <- h.ctrl.Submit(context.Background(), "one") }()
	<-entered

	err := h.ctrl.Submit(context.Background(), "two")
	assert.ErrorIs(t, err, domain.ErrSendInFlight)
	assert.True(t, domain.IsValidation(err))
	assert.Equal(t, int32(1), api.sendCalls.Load())

	close(release)
	require.NoError(t, <-done)

	v := h.ctrl.Snapshot()
	want := []turn{{KindUser, "one"}, {KindAssistant, "first"}}
	if diff := cmp.Diff(want, turns(v)); diff != "" {
		t.Errorf("transcript mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 2, v.Credits)
}

func TestSubmitIdleTimeout(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	api := &fakeAPI{send: func(context.Context, string, string) (*client.ChatReply, error) {
		return client.NewStreamReply(pr), nil
	}}
	h := newHarness(t, 3, api, func(o *Options) { o.IdleTimeout = 30 * time.Millisecond })

	go pw.Write([]byte("slow"))

	err := h.ctrl.Submit(context.Background(), "hello")
	assert.True(t, domain.IsNetworkFailure(err))
	assert.Equal(t, 3, h.ctrl.Snapshot().Credits)
	assert.Nil(t, h.ctrl.Snapshot().Live)
}

func TestSubmitCancelledAbandonsRead(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	api := &fakeAPI{send: func(context.Context, string, string) (*client.ChatReply, error) {
		return client.NewStreamReply(pr), nil
	}}
	ctx, cancel := context.WithCancel(context.Background())
	h := newHarness(t, 3, api, func(o *Options) {
		o.Observer = func(e Event) {
			if e.Kind == EventStreamDelta {
				cancel()
			}
		}
	})

	go pw.Write([]byte("part"))

	err := h.ctrl.Submit(ctx, "hello")
	assert.ErrorIs(t, err, context.Canceled)

	v := h.ctrl.Snapshot()
	assert.Nil(t, v.Live)
	assert.Equal(t, []turn{{KindUser, "hello"}}, turns(v))
	assert.Equal(t, 3, v.Credits)
	assert.Zero(t, h.store.saves)
	assert.Equal(t, StateIdle, v.State)
}

// stalledServer answers with an event stream that sends "He" and then hangs
// until the client drops the connection
func stalledServer(t *testing.T) *client.APIClient {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("He"))
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-time.After(10 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	api, err := client.NewAPIClient(srv.URL, client.WithPreferStream(true))
	require.NoError(t, err)
	return api
}

// submitWithin runs Submit and fails the test if it has not settled by d
func submitWithin(ctx context.Context, t *testing.T, ctrl *Controller, d time.Duration) error {
	t.Helper()
	errCh := make(chan error, 1)
	go func() { errCh <- ctrl.Submit(ctx, "hello") }()

	select {
	case err := <-errCh:
		return err
	case <-time.After(d):
		t.Fatalf("Submit still blocked after %s; state=%s", d, ctrl.Snapshot().State)
		return nil
	}
}

func TestSubmitStalledServerIdleTimeout(t *testing.T) {
	api := stalledServer(t)
	sess := &session.Session{ID: "u-1", Username: "ann", Token: "tok", Credits: 3}
	store := &memStore{sess: sess.Clone()}
	ctrl := New(sess, api, store, &recNotifier{}, &recNav{}, Options{IdleTimeout: 200 * time.Millisecond})

	err := submitWithin(context.Background(), t, ctrl, 3*time.Second)
	assert.True(t, domain.IsNetworkFailure(err), "got %v", err)

	v := ctrl.Snapshot()
	assert.Equal(t, StateIdle, v.State)
	assert.Equal(t, 3, v.Credits)
	assert.Nil(t, v.Live)
	assert.Zero(t, store.saves)

	// the controller is usable again
	err = submitWithin(context.Background(), t, ctrl, 3*time.Second)
	assert.NotErrorIs(t, err, domain.ErrSendInFlight)
}

func TestSubmitStalledServerCancelled(t *testing.T) {
	api := stalledServer(t)
	sess := &session.Session{ID: "u-1", Username: "ann", Token: "tok", Credits: 3}
	ctrl := New(sess, api, &memStore{sess: sess.Clone()}, &recNotifier{}, &recNav{}, Options{IdleTimeout: time.Minute})

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	err := submitWithin(ctx, t, ctrl, 3*time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StateIdle, ctrl.Snapshot().State)
	assert.Equal(t, 3, ctrl.Snapshot().Credits)
}

func TestSubmitSaveFailureWarns(t *testing.T) {
	api := &fakeAPI{send: replyWith("hi")}
	h := newHarness(t, 3, api)
	h.store.saveErr = errors.New("disk full")

	require.NoError(t, h.ctrl.Submit(context.Background(), "hello"))
	assert.Equal(t, 2, h.ctrl.Snapshot().Credits)

	require.Len(t, h.notifier.toasts, 1)
	assert.Equal(t, notify.LevelWarning, h.notifier.toasts[0].Level)
}

// ============ Refresh ============

func intPtr(v int) *int { return &v }

func TestRefresh(t *testing.T) {
	api := &fakeAPI{getUser: func(_ context.Context, token, id string) (*types.UserRecord, error) {
		assert.Equal(t, "tok", token)
		assert.Equal(t, "u-1", id)
		return &types.UserRecord{ID: id, Username: "ann2", Credits: intPtr(42)}, nil
	}}
	h := newHarness(t, 3, api)

	require.NoError(t, h.ctrl.Refresh(context.Background()))

	v := h.ctrl.Snapshot()
	assert.Equal(t, 42, v.Credits)
	assert.Equal(t, "ann2", v.Username)
	assert.Equal(t, "ann@example.com", v.Email, "absent fields keep their value")
	assert.Equal(t, 42, h.store.sess.Credits)
	assert.Equal(t, "ann2", h.store.sess.Username)
}

func TestRefreshUnauthorized(t *testing.T) {
	api := &fakeAPI{getUser: func(context.Context, string, string) (*types.UserRecord, error) {
		return nil, domain.NewAuthExpiredError("")
	}}
	h := newHarness(t, 3, api)

	err := h.ctrl.Refresh(context.Background())
	assert.True(t, domain.IsAuthExpired(err))

	assert.Nil(t, h.store.sess)
	assert.Equal(t, int32(1), h.nav.calls.Load())
	v := h.ctrl.Snapshot()
	assert.False(t, v.LoggedIn)
	assert.Zero(t, v.Credits)
}

func TestRefreshOtherFailuresKeepState(t *testing.T) {
	tests := []struct {
		name string
		rec  *types.UserRecord
		err  error
	}{
		{name: "network", err: domain.NewNetworkError(errors.New("refused"))},
		{name: "server error", err: domain.NewServerRejectedError(503, "", "")},
		{name: "missing credits", err: domain.NewMalformedResponseError("user record has no credits")},
		{name: "negative credits", rec: &types.UserRecord{Credits: intPtr(-4)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{getUser: func(context.Context, string, string) (*types.UserRecord, error) {
				return tt.rec, tt.err
			}}
			h := newHarness(t, 3, api)

			require.Error(t, h.ctrl.Refresh(context.Background()))

			v := h.ctrl.Snapshot()
			assert.True(t, v.LoggedIn)
			assert.Equal(t, 3, v.Credits)
			assert.Zero(t, h.store.saves)
			assert.Zero(t, h.store.clears)
			require.Len(t, h.notifier.toasts, 1)
			assert.Equal(t, notify.LevelWarning, h.notifier.toasts[0].Level)
		})
	}
}

func TestRefreshDuringSend(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	api := &fakeAPI{
		send: func(context.Context, string, string) (*client.ChatReply, error) {
			close(entered)
			<-release
			return client.NewTextReply("ok"), nil
		},
		getUser: func(context.Context, string, string) (*types.UserRecord, error) {
			return &types.UserRecord{Credits: intPtr(99)}, nil
		},
	}
	h := newHarness(t, 3, api)

	done := make(chan error, 1)
	go func() { done <- h.ctrl.Submit(context.Background(), "hi") }()
	<-entered

	assert.ErrorIs(t, h.ctrl.Refresh(context.Background()), domain.ErrSendInFlight)
	assert.Zero(t, api.getUserCalls.Load())

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, 2, h.ctrl.Snapshot().Credits)
}

func TestRefreshCollapsesConcurrentCalls(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{}, 2)
	api := &fakeAPI{getUser: func(context.Context, string, string) (*types.UserRecord, error) {
		entered <- struct{}{}
		<-release
		return &types.UserRecord{Credits: intPtr(7)}, nil
	}}
	h := newHarness(t, 3, api)

	var wg sync.WaitGroup
	errs := make([]error, 3)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = h.ctrl.Refresh(context.Background())
		}(i)
		if i == 0 {
			<-entered
		}
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), api.getUserCalls.Load())
	assert.Equal(t, 7, h.ctrl.Snapshot().Credits)
}

// ============ misc ============

func TestLoadHistory(t *testing.T) {
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	api := &fakeAPI{
		send:    replyWith("now"),
		history: []types.ChatRecord{{ID: "c1", Message: "q1", Response: "a1", CreatedAt: at}},
	}
	h := newHarness(t, 3, api)

	require.NoError(t, h.ctrl.Submit(context.Background(), "live"))
	require.NoError(t, h.ctrl.LoadHistory(context.Background()))

	want := []turn{
		{KindUser, "q1"}, {KindAssistant, "a1"},
		{KindUser, "live"}, {KindAssistant, "now"},
	}
	if diff := cmp.Diff(want, turns(h.ctrl.Snapshot())); diff != "" {
		t.Errorf("transcript mismatch (-want +got):\n%s", diff)
	}

	got := h.ctrl.Snapshot().Entries[0]
	want0 := Entry{ID: "c1-q", Kind: KindUser, Content: "q1", Timestamp: at}
	if diff := cmp.Diff(want0, got, cmpopts.EquateApproxTime(0)); diff != "" {
		t.Errorf("entry mismatch (-want +got):\n%s", diff)
	}
}

func TestUpdateSession(t *testing.T) {
	h := newHarness(t, 3, &fakeAPI{})

	require.NoError(t, h.ctrl.UpdateSession(context.Background(), func(s *session.Session) {
		s.Credits += 100
	}))
	assert.Equal(t, 103, h.ctrl.Snapshot().Credits)
	assert.Equal(t, 103, h.store.sess.Credits)

	h.ctrl.teardown(context.Background(), "test")
	assert.ErrorIs(t, h.ctrl.UpdateSession(context.Background(), func(*session.Session) {}), domain.ErrNotLoggedIn)
}

func TestSessionExpired(t *testing.T) {
	h := newHarness(t, 3, &fakeAPI{})

	h.ctrl.SessionExpired(context.Background(), "notifications rejected with 401")
	assert.Nil(t, h.ctrl.Session())
	assert.False(t, h.ctrl.Snapshot().LoggedIn)
	assert.Equal(t, 1, h.store.clears)
	assert.Equal(t, int32(1), h.nav.calls.Load())

	// already logged out
	h.ctrl.SessionExpired(context.Background(), "again")
	assert.Equal(t, 1, h.store.clears)
	assert.Equal(t, int32(1), h.nav.calls.Load())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "sending", StateSending.String())
}
