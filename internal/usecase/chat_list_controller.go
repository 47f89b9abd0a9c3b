package usecase

import (
	"context"
	"sync"
	"time"

	"campuslink/internal/domain/entity"
	"campuslink/internal/domain/repository"
	"campuslink/pkg/utils"
)

// SummarizeChats derives the viewer-facing chat list from a snapshot, in
// snapshot order (most recent first).
func SummarizeChats(chats []*entity.Chat, viewerID string, now time.Time) []ChatSummary {
	summaries := make([]ChatSummary, 0, len(chats))
	for _, chat := range chats {
		peerID := chat.PeerID(viewerID)
		summary := ChatSummary{
			Chat:     chat,
			PeerID:   peerID,
			PeerName: chat.PeerName(viewerID),
			Unread:   chat.UnreadFor(viewerID),
		}
		if peerID != "" {
			summary.PeerRole = chat.ParticipantRoles[peerID]
		}
		if !chat.LastMessageAt.IsZero() {
			summary.LastMessageLabel = utils.TimeSince(chat.LastMessageAt, now)
		}
		summaries = append(summaries, summary)
	}
	return summaries
}

// ChatListController maintains the live, ordered chat list for one
// authenticated session. It owns at most one chat subscription; Stop releases
// it. Consumers must drain Updates until it closes.
type ChatListController struct {
	chatRepo repository.ChatRepository
	userID   string

	updates chan []ChatSummary
	sub     repository.ChatSubscription

	mu    sync.Mutex
	chats []*entity.Chat

	now func() time.Time
}

// NewListController builds a chat-list controller for one session.
func (uc *ChatUseCase) NewListController(userID string) *ChatListController {
	return NewChatListController(uc.chatRepo, userID)
}

func NewChatListController(chatRepo repository.ChatRepository, userID string) *ChatListController {
	return &ChatListController{
		chatRepo: chatRepo,
		userID:   userID,
		updates:  make(chan []ChatSummary, 1),
		now:      time.Now,
	}
}

// Start establishes the chat subscription and begins pushing derived
// snapshots. It may be called once per controller.
func (c *ChatListController) Start(ctx context.Context) error {
	sub, err := c.chatRepo.SubscribeUserChats(ctx, c.userID)
	if err != nil {
		return err
	}
	c.sub = sub

	go func() {
		defer close(c.updates)
		for chats := range sub.Updates() {
			c.mu.Lock()
			c.chats = chats
			c.mu.Unlock()
			c.updates <- SummarizeChats(chats, c.userID, c.now())
		}
	}()

	return nil
}

// Updates delivers the full derived chat list on every underlying change.
func (c *ChatListController) Updates() <-chan []ChatSummary {
	return c.updates
}

// Chats returns the latest raw snapshot, used by the new-chat flow's
// exclusion filter and the window-open path.
func (c *ChatListController) Chats() []*entity.Chat {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.chats
}

func (c *ChatListController) Stop() {
	if c.sub != nil {
		c.sub.Stop()
	}
	// Free a blocked push so the forwarding goroutine can observe the closed
	// subscription and exit.
	select {
	case <-c.updates:
	default:
	}
}
