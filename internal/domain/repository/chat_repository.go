package repository

import (
	"context"

	"campuslink/internal/domain/entity"
)

// ChatSubscription is a live view over a user's chats. Every relevant change
// in the store redelivers the full ordered snapshot on Updates. The channel is
// closed after Stop, or when the underlying listener fails; callers must call
// Stop to release store resources.
type ChatSubscription interface {
	Updates() <-chan []*entity.Chat
	Stop()
}

// MessageSubscription is a live view over one chat's messages, ordered by
// timestamp ascending. Same delivery and cancellation semantics as
// ChatSubscription.
type MessageSubscription interface {
	Updates() <-chan []*entity.Message
	Stop()
}

type ChatRepository interface {
	Create(ctx context.Context, chat *entity.Chat) error
	GetByID(ctx context.Context, id string) (*entity.Chat, error)
	ListByUserID(ctx context.Context, userID string) ([]*entity.Chat, error)
	FindByParticipants(ctx context.Context, userID, peerID string) (*entity.Chat, error)

	SubscribeUserChats(ctx context.Context, userID string) (ChatSubscription, error)
	SubscribeMessages(ctx context.Context, chatID string) (MessageSubscription, error)

	SendMessage(ctx context.Context, chatID, senderID, peerID, text string) (*entity.Message, error)
	MarkChatRead(ctx context.Context, chatID, userID string) error
	GetMessages(ctx context.Context, chatID string, limit, offset int) ([]*entity.Message, int64, error)
}
