package usecase

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/lvyanru/chatctl/internal/domain"
	"github.com/lvyanru/chatctl/internal/domain/entity"
)

type chatFixture struct {
	users *memUserRepository
	chats *memChatRepository
	user  *entity.User
}

func newChatFixture(t *testing.T, credits int) *chatFixture {
	t.Helper()
	users := newMemUserRepository()
	user, err := users.Create(context.Background(), &entity.User{Username: "ann", Email: "ann@example.com", Credits: credits})
	require.NoError(t, err)
	return &chatFixture{users: users, chats: &memChatRepository{}, user: user}
}

func (f *chatFixture) usecase(r domain.Responder) domain.ChatUsecase {
	return NewChatUsecase(r, f.chats, f.users, zap.NewNop())
}

func chunks(parts ...string) []entity.StreamChunk {
	out := make([]entity.StreamChunk, 0, len(parts)+1)
	for _, p := range parts {
		out = append(out, entity.StreamChunk{Text: p})
	}
	return append(out, entity.StreamChunk{IsEnd: true})
}

func TestChat(t *testing.T) {
	tests := []struct {
		name        string
		credits     int
		message     string
		responder   *scriptedResponder
		wantReply   string
		wantCredits int
		wantStored  int
		check       func(*testing.T, error)
	}{
		{
			name:        "success charges one credit",
			credits:     2,
			message:     " hello ",
			responder:   &scriptedResponder{chunks: chunks("hi ", "there")},
			wantReply:   "hi there",
			wantCredits: 1,
			wantStored:  1,
		},
		{
			name:        "no credits",
			credits:     0,
			message:     "hello",
			responder:   &scriptedResponder{chunks: chunks("x")},
			wantCredits: 0,
			check: func(t *testing.T, err error) {
				assert.True(t, domain.IsPaymentRequired(err))
			},
		},
		{
			name:        "empty message",
			credits:     2,
			message:     "   ",
			responder:   &scriptedResponder{},
			wantCredits: 2,
			check: func(t *testing.T, err error) {
				assert.True(t, domain.IsValidation(err))
			},
		},
		{
			name:        "responder fails to start refunds",
			credits:     2,
			message:     "hello",
			responder:   &scriptedResponder{err: errBoom},
			wantCredits: 2,
			check: func(t *testing.T, err error) {
				require.True(t, domain.IsUpstream(err))
				assert.Contains(t, err.Error(), "Failed to generate AI response: boom")
			},
		},
		{
			name:    "error chunk refunds",
			credits: 2,
			message: "hello",
			responder: &scriptedResponder{chunks: []entity.StreamChunk{
				{Text: "partial"}, {Error: "model crashed"},
			}},
			wantCredits: 2,
			check: func(t *testing.T, err error) {
				assert.True(t, domain.IsUpstream(err))
			},
		},
		{
			name:        "stream without end refunds",
			credits:     1,
			message:     "hello",
			responder:   &scriptedResponder{chunks: []entity.StreamChunk{{Text: "cut"}}},
			wantCredits: 1,
			check: func(t *testing.T, err error) {
				assert.True(t, domain.IsUpstream(err))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newChatFixture(t, tt.credits)
			chat, err := f.usecase(tt.responder).Chat(context.Background(), f.user.ID, tt.message)

			if tt.check != nil {
				require.Error(t, err)
				tt.check(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantReply, chat.Response)
				assert.Equal(t, strings.TrimSpace(tt.message), chat.Message)
			}
			assert.Equal(t, tt.wantCredits, f.users.credits(f.user.ID))
			assert.Equal(t, tt.wantStored, f.chats.count())
		})
	}
}

func TestChatStoreFailureKeepsCharge(t *testing.T) {
	f := newChatFixture(t, 1)
	f.chats.err = errBoom

	chat, err := f.usecase(&scriptedResponder{chunks: chunks("ok")}).Chat(context.Background(), f.user.ID, "hi")
	require.NoError(t, err)
	assert.Equal(t, "ok", chat.Response)
	assert.Equal(t, 0, f.users.credits(f.user.ID))
}

func drain(ch <-chan entity.StreamChunk) []entity.StreamChunk {
	var out []entity.StreamChunk
	for c := range ch {
		out = append(out, c)
	}
	return out
}

func TestChatStreaming(t *testing.T) {
	defer goleak.VerifyNone(t)

	t.Run("success stores once the stream ends", func(t *testing.T) {
		f := newChatFixture(t, 1)
		ch, err := f.usecase(&scriptedResponder{chunks: chunks("a", "b")}).ChatStreaming(context.Background(), f.user.ID, "q")
		require.NoError(t, err)

		got := drain(ch)
		require.Len(t, got, 3)
		assert.True(t, got[2].IsEnd)
		assert.Equal(t, 0, f.users.credits(f.user.ID))
		require.Equal(t, 1, f.chats.count())
		assert.Equal(t, "ab", f.chats.chats[0].Response)
	})

	t.Run("error chunk is forwarded and refunded", func(t *testing.T) {
		f := newChatFixture(t, 1)
		r := &scriptedResponder{chunks: []entity.StreamChunk{{Text: "a"}, {Error: "down"}}}
		ch, err := f.usecase(r).ChatStreaming(context.Background(), f.user.ID, "q")
		require.NoError(t, err)

		got := drain(ch)
		require.Len(t, got, 2)
		assert.Equal(t, "down", got[1].Error)
		assert.Equal(t, 1, f.users.credits(f.user.ID))
		assert.Zero(t, f.chats.count())
	})

	t.Run("cancelled consumer is refunded", func(t *testing.T) {
		f := newChatFixture(t, 1)
		ctx, cancel := context.WithCancel(context.Background())
		r := &scriptedResponder{chunks: chunks(strings.Split(strings.Repeat("x", 64), "")...)}
		ch, err := f.usecase(r).ChatStreaming(ctx, f.user.ID, "q")
		require.NoError(t, err)

		<-ch
		cancel()
		drain(ch)

		assert.Eventually(t, func() bool { return f.users.credits(f.user.ID) == 1 }, time.Second, 5*time.Millisecond)
		assert.Zero(t, f.chats.count())
	})

	t.Run("no credits fails before streaming", func(t *testing.T) {
		f := newChatFixture(t, 0)
		_, err := f.usecase(&scriptedResponder{}).ChatStreaming(context.Background(), f.user.ID, "q")
		assert.True(t, domain.IsPaymentRequired(err))
	})
}

func TestHistoryNewestFirst(t *testing.T) {
	f := newChatFixture(t, 25)
	uc := f.usecase(&scriptedResponder{chunks: chunks("r")})
	ctx := context.Background()

	for i := 0; i < HistoryLimit+2; i++ {
		_, err := uc.Chat(ctx, f.user.ID, strings.Repeat("m", i+1))
		require.NoError(t, err)
	}

	history, err := uc.History(ctx, f.user.ID)
	require.NoError(t, err)
	require.Len(t, history, HistoryLimit)
	assert.Equal(t, strings.Repeat("m", HistoryLimit+2), history[0].Message)
}
