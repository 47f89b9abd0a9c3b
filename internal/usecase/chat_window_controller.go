package usecase

import (
	"context"
	"strings"
	"sync"

	"campuslink/internal/domain/entity"
	"campuslink/internal/domain/repository"
	"campuslink/pkg/errors"
	"campuslink/pkg/logger"
)

// Window states. A window is Loading from Open until the first snapshot
// arrives, then Synced. Errors surface to the consumer, they are not a state.
const (
	WindowStateLoading = "loading"
	WindowStateSynced  = "synced"
)

// MessageSnapshot tags a full message list with the chat it belongs to, so
// consumers can discard stragglers from a torn-down subscription.
type MessageSnapshot struct {
	ChatID   string            `json:"chat_id"`
	Messages []*entity.Message `json:"messages"`
}

// ChatWindowController manages the one open conversation of a session. At
// most one message subscription is live at any time; opening another chat
// tears down the previous subscription first. The controller outlives
// individual opens. Updates is never closed; consumers stop reading when
// their session ends.
type ChatWindowController struct {
	chatRepo repository.ChatRepository
	userID   string

	updates chan MessageSnapshot

	mu     sync.Mutex
	chat   *entity.Chat
	sub    repository.MessageSubscription
	state  string
	closed bool
}

// NewWindowController builds a chat-window controller for one session.
func (uc *ChatUseCase) NewWindowController(userID string) *ChatWindowController {
	return NewChatWindowController(uc.chatRepo, userID)
}

func NewChatWindowController(chatRepo repository.ChatRepository, userID string) *ChatWindowController {
	return &ChatWindowController{
		chatRepo: chatRepo,
		userID:   userID,
		updates:  make(chan MessageSnapshot, 1),
	}
}

// Open switches the window to the given chat. If the chat is unread for the
// viewer it is marked read once, here, not again on later message arrivals.
func (c *ChatWindowController) Open(ctx context.Context, chat *entity.Chat) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errors.BadRequest("Chat window is closed", nil)
	}
	if c.sub != nil {
		c.sub.Stop()
		c.sub = nil
	}
	c.chat = chat
	c.state = WindowStateLoading
	c.mu.Unlock()

	if chat.UnreadFor(c.userID) {
		if err := c.chatRepo.MarkChatRead(ctx, chat.ID, c.userID); err != nil {
			// Read-state is cosmetic; the window still opens.
			logger.Warn("ChatWindow: failed to mark chat %s read for %s: %v", chat.ID, c.userID, err)
		}
	}

	sub, err := c.chatRepo.SubscribeMessages(ctx, chat.ID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed || c.chat == nil || c.chat.ID != chat.ID {
		// The window moved on while we were subscribing.
		c.mu.Unlock()
		sub.Stop()
		return nil
	}
	c.sub = sub
	c.mu.Unlock()

	go c.forward(chat.ID, sub)

	return nil
}

func (c *ChatWindowController) forward(chatID string, sub repository.MessageSubscription) {
	for messages := range sub.Updates() {
		c.mu.Lock()
		stale := c.closed || c.chat == nil || c.chat.ID != chatID
		if !stale {
			c.state = WindowStateSynced
		}
		c.mu.Unlock()
		if stale {
			return
		}
		c.updates <- MessageSnapshot{ChatID: chatID, Messages: messages}
	}
}

// drainStale discards a buffered snapshot so a fresh one can take its place.
func (c *ChatWindowController) drainStale() {
	select {
	case <-c.updates:
	default:
	}
}

// Send appends a message to the open chat. Empty input after trimming is a
// no-op. The sent message is not echoed locally; it becomes visible when the
// subscription delivers it back.
func (c *ChatWindowController) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	c.mu.Lock()
	chat := c.chat
	c.mu.Unlock()

	if chat == nil {
		return errors.BadRequest("No chat is open", nil)
	}

	peerID := chat.PeerID(c.userID)
	if peerID == "" {
		return errors.BadRequest("Chat has no peer to send to", nil)
	}

	_, err := c.chatRepo.SendMessage(ctx, chat.ID, c.userID, peerID, text)
	return err
}

// Updates delivers the full ordered message list of the open chat on every
// change.
func (c *ChatWindowController) Updates() <-chan MessageSnapshot {
	return c.updates
}

func (c *ChatWindowController) State() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *ChatWindowController) ChatID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.chat == nil {
		return ""
	}
	return c.chat.ID
}

// CloseChat tears down the current message subscription without closing the
// window, for when the user navigates back to the list.
func (c *ChatWindowController) CloseChat() {
	c.mu.Lock()
	if c.sub != nil {
		c.sub.Stop()
		c.sub = nil
	}
	c.chat = nil
	c.state = ""
	c.mu.Unlock()

	c.drainStale()
}

// Close releases the subscription for good. The controller cannot be reused
// afterwards.
func (c *ChatWindowController) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.sub != nil {
		c.sub.Stop()
		c.sub = nil
	}
	c.chat = nil
	c.mu.Unlock()

	c.drainStale()
}
