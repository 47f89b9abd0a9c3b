package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"campuslink/internal/domain/entity"
	"campuslink/internal/domain/repository"
	"campuslink/pkg/errors"
)

type fakeChatSub struct {
	ch chan []*entity.Chat

	mu      sync.Mutex
	stopped bool
}

func (s *fakeChatSub) Updates() <-chan []*entity.Chat { return s.ch }

func (s *fakeChatSub) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stopped {
		s.stopped = true
		close(s.ch)
	}
}

func (s *fakeChatSub) deliver(chats []*entity.Chat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stopped {
		s.ch <- chats
	}
}

func (s *fakeChatSub) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

type fakeMessageSub struct {
	chatID string
	ch     chan []*entity.Message

	mu      sync.Mutex
	stopped bool
}

func (s *fakeMessageSub) Updates() <-chan []*entity.Message { return s.ch }

func (s *fakeMessageSub) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stopped {
		s.stopped = true
		close(s.ch)
	}
}

func (s *fakeMessageSub) deliver(messages []*entity.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stopped {
		s.ch <- messages
	}
}

func (s *fakeMessageSub) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// fakeChatRepo is an in-memory stand-in for the document store with the same
// snapshot-redelivery semantics as the Firestore adapter.
type fakeChatRepo struct {
	mu       sync.Mutex
	seq      int
	chats    map[string]*entity.Chat
	messages map[string][]*entity.Message

	chatSubs      []*fakeChatSub
	chatSubUsers  []string
	messageSubs   []*fakeMessageSub
	markReadCalls map[string]int
}

func newFakeChatRepo() *fakeChatRepo {
	return &fakeChatRepo{
		chats:         make(map[string]*entity.Chat),
		messages:      make(map[string][]*entity.Message),
		markReadCalls: make(map[string]int),
	}
}

func (r *fakeChatRepo) Create(ctx context.Context, chat *entity.Chat) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if chat.ID == "" {
		r.seq++
		chat.ID = fmt.Sprintf("chat-%d", r.seq)
	}
	chat.LastMessageAt = time.Now()
	r.chats[chat.ID] = chat

	r.notifyChatSubsLocked()
	return nil
}

func (r *fakeChatRepo) GetByID(ctx context.Context, id string) (*entity.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	chat, ok := r.chats[id]
	if !ok {
		return nil, errors.NotFound("Chat", nil)
	}
	return chat, nil
}

func (r *fakeChatRepo) ListByUserID(ctx context.Context, userID string) ([]*entity.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.userChatsLocked(userID), nil
}

func (r *fakeChatRepo) FindByParticipants(ctx context.Context, userID, peerID string) (*entity.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, chat := range r.chats {
		if chat.HasParticipant(userID) && chat.HasParticipant(peerID) {
			return chat, nil
		}
	}
	return nil, errors.NotFound("Chat", nil)
}

func (r *fakeChatRepo) SubscribeUserChats(ctx context.Context, userID string) (repository.ChatSubscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub := &fakeChatSub{ch: make(chan []*entity.Chat, 16)}
	r.chatSubs = append(r.chatSubs, sub)
	r.chatSubUsers = append(r.chatSubUsers, userID)
	sub.deliver(r.userChatsLocked(userID))
	return sub, nil
}

func (r *fakeChatRepo) SubscribeMessages(ctx context.Context, chatID string) (repository.MessageSubscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub := &fakeMessageSub{chatID: chatID, ch: make(chan []*entity.Message, 16)}
	r.messageSubs = append(r.messageSubs, sub)
	sub.deliver(append([]*entity.Message(nil), r.messages[chatID]...))
	return sub, nil
}

func (r *fakeChatRepo) SendMessage(ctx context.Context, chatID, senderID, peerID, text string) (*entity.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	chat, ok := r.chats[chatID]
	if !ok {
		return nil, errors.NotFound("Chat", nil)
	}

	r.seq++
	msg := &entity.Message{
		ID:        fmt.Sprintf("msg-%d", r.seq),
		SenderID:  senderID,
		Text:      text,
		Timestamp: time.Now(),
	}
	r.messages[chatID] = append(r.messages[chatID], msg)

	chat.LastMessage = text
	chat.LastMessageAt = msg.Timestamp
	chat.LastMessageSenderID = senderID
	chat.ReadBy = map[string]bool{senderID: true, peerID: false}

	r.notifyChatSubsLocked()
	r.notifyMessageSubsLocked(chatID)
	return msg, nil
}

func (r *fakeChatRepo) MarkChatRead(ctx context.Context, chatID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	chat, ok := r.chats[chatID]
	if !ok {
		return errors.NotFound("Chat", nil)
	}

	r.markReadCalls[chatID]++
	if chat.ReadBy == nil {
		chat.ReadBy = make(map[string]bool)
	}
	chat.ReadBy[userID] = true

	r.notifyChatSubsLocked()
	return nil
}

func (r *fakeChatRepo) GetMessages(ctx context.Context, chatID string, limit, offset int) ([]*entity.Message, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	msgs := r.messages[chatID]
	total := int64(len(msgs))

	if offset > len(msgs) {
		offset = len(msgs)
	}
	msgs = msgs[offset:]
	if limit > 0 && limit < len(msgs) {
		msgs = msgs[:limit]
	}
	return append([]*entity.Message(nil), msgs...), total, nil
}

func (r *fakeChatRepo) userChatsLocked(userID string) []*entity.Chat {
	var chats []*entity.Chat
	for _, chat := range r.chats {
		if chat.HasParticipant(userID) {
			chats = append(chats, chat)
		}
	}
	sort.Slice(chats, func(i, j int) bool {
		return chats[i].LastMessageAt.After(chats[j].LastMessageAt)
	})
	return chats
}

func (r *fakeChatRepo) notifyChatSubsLocked() {
	for i, sub := range r.chatSubs {
		sub.deliver(r.userChatsLocked(r.chatSubUsers[i]))
	}
}

func (r *fakeChatRepo) notifyMessageSubsLocked(chatID string) {
	for _, sub := range r.messageSubs {
		if sub.chatID != chatID {
			continue
		}
		sub.deliver(append([]*entity.Message(nil), r.messages[chatID]...))
	}
}

func (r *fakeChatRepo) liveMessageSubs() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	live := 0
	for _, sub := range r.messageSubs {
		if !sub.isStopped() {
			live++
		}
	}
	return live
}

func (r *fakeChatRepo) stoppedMessageSubs() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	stopped := 0
	for _, sub := range r.messageSubs {
		if sub.isStopped() {
			stopped++
		}
	}
	return stopped
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*entity.UserProfile
}

func newFakeUserRepo(users ...*entity.UserProfile) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[string]*entity.UserProfile)}
	for _, u := range users {
		r.users[u.UID] = u
	}
	return r
}

func (r *fakeUserRepo) Create(ctx context.Context, user *entity.UserProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.UID] = user
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*entity.UserProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return nil, errors.NotFound("User", nil)
	}
	return user, nil
}

func (r *fakeUserRepo) ListExcept(ctx context.Context, userID string) ([]*entity.UserProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var users []*entity.UserProfile
	for _, u := range r.users {
		if u.UID != userID {
			users = append(users, u)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].UID < users[j].UID })
	return users, nil
}

// recv reads one value from ch or fails the test after a timeout.
func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for update")
		panic("unreachable")
	}
}
