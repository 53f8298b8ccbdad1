package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/lvyanru/chatctl/internal/domain"
	"github.com/lvyanru/chatctl/internal/domain/entity"
)

// memUserRepository keeps users in a map
type memUserRepository struct {
	mu    sync.Mutex
	users map[string]*entity.User
	// creditErr, when set, fails AddCredits
	creditErr error
}

func newMemUserRepository() *memUserRepository {
	return &memUserRepository{users: make(map[string]*entity.User)}
}

func (r *memUserRepository) Create(_ context.Context, user *entity.User) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email || u.Username == user.Username {
			return nil, domain.NewAlreadyExistsError("User", user.Username)
		}
	}
	created := *user
	created.ID = uuid.NewString()
	r.users[created.ID] = &created
	out := created
	return &out, nil
}

func (r *memUserRepository) find(match func(*entity.User) bool, key string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if match(u) {
			out := *u
			return &out, nil
		}
	}
	return nil, domain.NewNotFoundError("User", key)
}

func (r *memUserRepository) GetByID(_ context.Context, id string) (*entity.User, error) {
	return r.find(func(u *entity.User) bool { return u.ID == id }, id)
}

func (r *memUserRepository) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	return r.find(func(u *entity.User) bool { return u.Email == email }, email)
}

func (r *memUserRepository) GetByUsername(_ context.Context, name string) (*entity.User, error) {
	return r.find(func(u *entity.User) bool { return u.Username == name }, name)
}

func (r *memUserRepository) UpdateUsername(_ context.Context, id, name string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.NewNotFoundError("User", id)
	}
	u.Username = name
	out := *u
	return &out, nil
}

func (r *memUserRepository) AddCredits(_ context.Context, id string, delta int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.creditErr != nil {
		return 0, r.creditErr
	}
	u, ok := r.users[id]
	if !ok {
		return 0, domain.NewNotFoundError("User", id)
	}
	if u.Credits+delta < 0 {
		return 0, domain.NewPaymentRequiredError()
	}
	u.Credits += delta
	return u.Credits, nil
}

func (r *memUserRepository) credits(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[id].Credits
}

// memChatRepository records created chats
type memChatRepository struct {
	mu    sync.Mutex
	chats []*entity.Chat
	err   error
}

func (r *memChatRepository) Create(_ context.Context, chat *entity.Chat) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	chat.ID = uuid.NewString()
	r.chats = append(r.chats, chat)
	return nil
}

func (r *memChatRepository) ListByUser(_ context.Context, userID string, limit int) ([]*entity.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Chat
	for i := len(r.chats) - 1; i >= 0 && len(out) < limit; i-- {
		if r.chats[i].UserID == userID {
			out = append(out, r.chats[i])
		}
	}
	return out, nil
}

func (r *memChatRepository) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.chats)
}

// memNotificationRepository records notifications
type memNotificationRepository struct {
	mu    sync.Mutex
	notes []*entity.Notification
	err   error
}

func (r *memNotificationRepository) Create(_ context.Context, n *entity.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	n.ID = uuid.NewString()
	r.notes = append(r.notes, n)
	return nil
}

func (r *memNotificationRepository) ListByUser(_ context.Context, userID string, limit int) ([]*entity.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Notification
	for i := len(r.notes) - 1; i >= 0 && len(out) < limit; i-- {
		if r.notes[i].UserID == userID {
			out = append(out, r.notes[i])
		}
	}
	return out, nil
}

func (r *memNotificationRepository) MarkAllRead(_ context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	changed := 0
	for _, n := range r.notes {
		if n.UserID == userID && !n.Read {
			n.Read = true
			changed++
		}
	}
	return changed, nil
}

func (r *memNotificationRepository) messages(userID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, n := range r.notes {
		if n.UserID == userID {
			out = append(out, n.Message)
		}
	}
	return out
}

// memPaymentRepository grants credits through the user repository
type memPaymentRepository struct {
	mu       sync.Mutex
	users    *memUserRepository
	payments map[string]*entity.Payment
}

func newMemPaymentRepository(users *memUserRepository) *memPaymentRepository {
	return &memPaymentRepository{users: users, payments: make(map[string]*entity.Payment)}
}

func (r *memPaymentRepository) Create(_ context.Context, p *entity.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = uuid.NewString()
	r.payments[p.ID] = p
	return nil
}

func (r *memPaymentRepository) GetBySessionID(_ context.Context, sessionID string) (*entity.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.SessionID == sessionID {
			out := *p
			return &out, nil
		}
	}
	return nil, domain.NewNotFoundError("Payment", sessionID)
}

func (r *memPaymentRepository) Complete(ctx context.Context, id string) (int, bool, error) {
	r.mu.Lock()
	p, ok := r.payments[id]
	if !ok {
		r.mu.Unlock()
		return 0, false, domain.NewNotFoundError("Payment", id)
	}
	granted := !p.Completed()
	p.Status = entity.PaymentSucceeded
	r.mu.Unlock()

	delta := 0
	if granted {
		delta = p.Credits
	}
	balance, err := r.users.AddCredits(ctx, p.UserID, delta)
	return balance, granted, err
}

func (r *memPaymentRepository) ListByUser(_ context.Context, userID string) ([]*entity.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Payment
	for _, p := range r.payments {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionID < out[j].SessionID })
	return out, nil
}

// scriptedResponder replays chunks, or fails to start with err
type scriptedResponder struct {
	chunks []entity.StreamChunk
	err    error
}

func (s *scriptedResponder) Reply(ctx context.Context, _ string) (<-chan entity.StreamChunk, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make(chan entity.StreamChunk)
	go func() {
		defer close(out)
		for _, c := range s.chunks {
			select {
			case out <- c:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

var errBoom = errors.New("boom")
