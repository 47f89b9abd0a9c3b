package usecase

import (
	"context"
	"strings"
	"time"

	"campuslink/internal/domain/entity"
	"campuslink/internal/domain/repository"
	"campuslink/internal/infrastructure/ratelimit"
	"campuslink/pkg/errors"
	"campuslink/pkg/logger"
)

type ChatUseCase struct {
	chatRepo    repository.ChatRepository
	userRepo    repository.UserRepository
	rateLimiter *ratelimit.RateLimiter
}

func NewChatUseCase(
	chatRepo repository.ChatRepository,
	userRepo repository.UserRepository,
) *ChatUseCase {
	rateLimiter := ratelimit.NewRateLimiter()
	rateLimiter.StartCleanupRoutine()

	return &ChatUseCase{
		chatRepo:    chatRepo,
		userRepo:    userRepo,
		rateLimiter: rateLimiter,
	}
}

// ChatSummary is the derived chat-list view for one viewer.
type ChatSummary struct {
	*entity.Chat
	PeerID           string `json:"peer_id"`
	PeerName         string `json:"peer_name"`
	PeerRole         string `json:"peer_role,omitempty"`
	Unread           bool   `json:"unread"`
	LastMessageLabel string `json:"last_message_label"`
}

type StartChatResult struct {
	Chat     *entity.Chat `json:"chat"`
	Existing bool         `json:"existing"`
}

// StartChat creates a 1:1 chat with the peer, or returns the existing one if
// the pair already has a chat. Participant names and roles are copied into
// the chat document at this point and never re-synced afterwards.
func (uc *ChatUseCase) StartChat(ctx context.Context, userID, peerID string) (*StartChatResult, error) {
	if allowed, _ := uc.rateLimiter.Allow(userID, "start_chat"); !allowed {
		logger.Warn("StartChat rate limited for user %s", userID)
		return nil, errors.TooManyRequests("Please wait before starting another chat")
	}

	if userID == peerID {
		return nil, errors.BadRequest("You cannot start a chat with yourself", nil)
	}

	// Creation-time uniqueness check. The store does not enforce this, so two
	// racing creates can still produce a duplicate pair.
	existing, err := uc.chatRepo.FindByParticipants(ctx, userID, peerID)
	if err == nil && existing != nil {
		return &StartChatResult{Chat: existing, Existing: true}, nil
	}
	if err != nil && !errors.Is(err, "NOT_FOUND") {
		logger.Error("StartChat: failed to search for existing chat between %s and %s: %v", userID, peerID, err)
		return nil, err
	}

	self, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	peer, err := uc.userRepo.GetByID(ctx, peerID)
	if err != nil {
		return nil, err
	}

	chat := &entity.Chat{
		Participants: []string{self.UID, peer.UID},
		ParticipantNames: map[string]string{
			self.UID: self.Name,
			peer.UID: peer.Name,
		},
		ParticipantRoles: map[string]string{
			self.UID: self.Role,
			peer.UID: peer.Role,
		},
		ReadBy: map[string]bool{
			self.UID: true,
			peer.UID: true,
		},
	}

	if err := uc.chatRepo.Create(ctx, chat); err != nil {
		logger.Error("StartChat: failed to create chat for %s with %s: %v", userID, peerID, err)
		return nil, err
	}

	return &StartChatResult{Chat: chat}, nil
}

// SendMessage appends a message to the chat and updates its summary fields.
// The sender must be a participant and the chat must have a resolvable peer.
func (uc *ChatUseCase) SendMessage(ctx context.Context, userID, chatID, text string) (*entity.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.BadRequest("Message text is empty", nil)
	}

	if allowed, _ := uc.rateLimiter.Allow(userID, "send_message"); !allowed {
		logger.Warn("SendMessage rate limited for user %s in chat %s", userID, chatID)
		return nil, errors.TooManyRequests("Please wait before sending another message")
	}

	chat, err := uc.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(userID) {
		return nil, errors.Forbidden("You are not a participant of this chat", nil)
	}

	peerID := chat.PeerID(userID)
	if peerID == "" {
		return nil, errors.BadRequest("Chat has no peer to send to", nil)
	}

	return uc.chatRepo.SendMessage(ctx, chatID, userID, peerID, text)
}

// MarkChatRead flips the viewer's read flag. It is a no-op when the chat is
// not unread for the viewer, including when the viewer sent the last message.
func (uc *ChatUseCase) MarkChatRead(ctx context.Context, userID, chatID string) error {
	chat, err := uc.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return err
	}
	if !chat.HasParticipant(userID) {
		return errors.Forbidden("You are not a participant of this chat", nil)
	}

	if !chat.UnreadFor(userID) {
		return nil
	}

	return uc.chatRepo.MarkChatRead(ctx, chatID, userID)
}

func (uc *ChatUseCase) GetChatByID(ctx context.Context, userID, chatID string) (*entity.Chat, error) {
	chat, err := uc.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(userID) {
		return nil, errors.Forbidden("You are not a participant of this chat", nil)
	}
	return chat, nil
}

// GetUserChats is the one-shot variant of the live chat list, with the same
// derived view.
func (uc *ChatUseCase) GetUserChats(ctx context.Context, userID string) ([]ChatSummary, error) {
	chats, err := uc.chatRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return SummarizeChats(chats, userID, time.Now()), nil
}

func (uc *ChatUseCase) GetChatMessages(ctx context.Context, userID, chatID string, limit, offset int) ([]*entity.Message, int64, error) {
	chat, err := uc.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return nil, 0, err
	}
	if !chat.HasParticipant(userID) {
		return nil, 0, errors.Forbidden("You are not a participant of this chat", nil)
	}

	return uc.chatRepo.GetMessages(ctx, chatID, limit, offset)
}
