package repository

import (
	"context"
	"log"
	"sync"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"campuslink/internal/domain/entity"
	"campuslink/internal/domain/repository"
	"campuslink/pkg/errors"
)

type firestoreChatRepository struct {
	client *firestore.Client
}

func NewFirestoreChatRepository(client *firestore.Client) repository.ChatRepository {
	return &firestoreChatRepository{
		client: client,
	}
}

func (r *firestoreChatRepository) Create(ctx context.Context, chat *entity.Chat) error {
	if chat.ID == "" {
		chat.ID = uuid.New().String()
	}

	_, err := r.client.Collection("chats").Doc(chat.ID).Set(ctx, chat)
	if err != nil {
		return errors.WriteFailed("Failed to create chat", err)
	}

	return nil
}

func (r *firestoreChatRepository) GetByID(ctx context.Context, id string) (*entity.Chat, error) {
	doc, err := r.client.Collection("chats").Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Chat", err)
		}
		return nil, errors.QueryFailed("Failed to get chat", err)
	}

	return docToChat(doc)
}

func (r *firestoreChatRepository) ListByUserID(ctx context.Context, userID string) ([]*entity.Chat, error) {
	query := r.userChatsQuery(userID)

	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		log.Printf("Firestore error while fetching chats for user %s: %v", userID, err)
		return nil, errors.QueryFailed("Failed to fetch chats", err)
	}

	var chats []*entity.Chat
	for _, doc := range docs {
		chat, err := docToChat(doc)
		if err != nil {
			log.Printf("Error parsing chat data for user %s: %v", userID, err)
			continue // Skip bad data instead of failing
		}
		chats = append(chats, chat)
	}

	return chats, nil
}

// FindByParticipants returns the chat connecting userID and peerID, if one
// exists. The store cannot filter on two array members at once, so the
// user's chats are scanned client-side.
func (r *firestoreChatRepository) FindByParticipants(ctx context.Context, userID, peerID string) (*entity.Chat, error) {
	query := r.client.Collection("chats").Where("participants", "array-contains", userID)

	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, errors.QueryFailed("Failed to query chats by participants", err)
	}

	for _, doc := range docs {
		chat, err := docToChat(doc)
		if err != nil {
			continue
		}
		if chat.HasParticipant(peerID) {
			return chat, nil
		}
	}

	return nil, errors.NotFound("Chat", nil)
}

func (r *firestoreChatRepository) SubscribeUserChats(ctx context.Context, userID string) (repository.ChatSubscription, error) {
	streamCtx, cancel := context.WithCancel(ctx)
	it := r.userChatsQuery(userID).Snapshots(streamCtx)

	stream := &chatSnapshotStream{
		updates: make(chan []*entity.Chat, 1),
		cancel:  cancel,
	}

	go func() {
		defer it.Stop()
		defer close(stream.updates)

		for {
			snap, err := it.Next()
			if err != nil {
				if status.Code(err) != codes.Canceled {
					log.Printf("Chat listener for user %s ended: %v", userID, err)
				}
				return
			}

			docs, err := snap.Documents.GetAll()
			if err != nil {
				log.Printf("Chat listener for user %s failed to read snapshot: %v", userID, err)
				return
			}

			var chats []*entity.Chat
			for _, doc := range docs {
				chat, err := docToChat(doc)
				if err != nil {
					log.Printf("Chat listener for user %s: skipping malformed document %s: %v", userID, doc.Ref.ID, err)
					continue
				}
				chats = append(chats, chat)
			}

			select {
			case stream.updates <- chats:
			case <-streamCtx.Done():
				return
			}
		}
	}()

	return stream, nil
}

func (r *firestoreChatRepository) SubscribeMessages(ctx context.Context, chatID string) (repository.MessageSubscription, error) {
	streamCtx, cancel := context.WithCancel(ctx)
	query := r.client.Collection("chats").Doc(chatID).Collection("messages").OrderBy("timestamp", firestore.Asc)
	it := query.Snapshots(streamCtx)

	stream := &messageSnapshotStream{
		updates: make(chan []*entity.Message, 1),
		cancel:  cancel,
	}

	go func() {
		defer it.Stop()
		defer close(stream.updates)

		for {
			snap, err := it.Next()
			if err != nil {
				if status.Code(err) != codes.Canceled {
					log.Printf("Message listener for chat %s ended: %v", chatID, err)
				}
				return
			}

			docs, err := snap.Documents.GetAll()
			if err != nil {
				log.Printf("Message listener for chat %s failed to read snapshot: %v", chatID, err)
				return
			}

			var messages []*entity.Message
			for _, doc := range docs {
				msg, err := docToMessage(doc)
				if err != nil {
					log.Printf("Message listener for chat %s: skipping malformed document %s: %v", chatID, doc.Ref.ID, err)
					continue
				}
				messages = append(messages, msg)
			}

			select {
			case stream.updates <- messages:
			case <-streamCtx.Done():
				return
			}
		}
	}()

	return stream, nil
}

// SendMessage appends the message and updates the parent chat's summary
// fields in a single batch, so a reader never observes a summary referencing
// a message that does not exist yet.
func (r *firestoreChatRepository) SendMessage(ctx context.Context, chatID, senderID, peerID, text string) (*entity.Message, error) {
	messageID := uuid.New().String()
	chatRef := r.client.Collection("chats").Doc(chatID)
	messageRef := chatRef.Collection("messages").Doc(messageID)

	batch := r.client.Batch()
	batch.Set(messageRef, map[string]interface{}{
		"id":        messageID,
		"senderId":  senderID,
		"text":      text,
		"timestamp": firestore.ServerTimestamp,
	})
	batch.Update(chatRef, []firestore.Update{
		{Path: "lastMessage", Value: text},
		{Path: "lastMessageTimestamp", Value: firestore.ServerTimestamp},
		{Path: "lastMessageSenderId", Value: senderID},
		{Path: "readBy", Value: map[string]bool{senderID: true, peerID: false}},
	})

	if _, err := batch.Commit(ctx); err != nil {
		log.Printf("Firestore error while sending message to chat %s: %v", chatID, err)
		return nil, errors.WriteFailed("Failed to send message", err)
	}

	// The timestamp is assigned server-side; subscribers receive it with the
	// next snapshot.
	return &entity.Message{
		ID:       messageID,
		SenderID: senderID,
		Text:     text,
	}, nil
}

func (r *firestoreChatRepository) MarkChatRead(ctx context.Context, chatID, userID string) error {
	chatRef := r.client.Collection("chats").Doc(chatID)

	_, err := chatRef.Update(ctx, []firestore.Update{
		{FieldPath: firestore.FieldPath{"readBy", userID}, Value: true},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return errors.NotFound("Chat", err)
		}
		return errors.WriteFailed("Failed to mark chat as read", err)
	}

	return nil
}

func (r *firestoreChatRepository) GetMessages(ctx context.Context, chatID string, limit, offset int) ([]*entity.Message, int64, error) {
	query := r.client.Collection("chats").Doc(chatID).Collection("messages").OrderBy("timestamp", firestore.Asc)

	countDocs, err := query.Documents(ctx).GetAll()
	if err != nil {
		log.Printf("Firestore error while counting messages for chat %s: %v", chatID, err)
		return nil, 0, errors.QueryFailed("Failed to count messages for chat", err)
	}
	total := int64(len(countDocs))

	if offset > 0 {
		query = query.Offset(offset)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	iter := query.Documents(ctx)
	var messages []*entity.Message

	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			log.Printf("Firestore error while iterating messages for chat %s: %v", chatID, err)
			return nil, 0, errors.QueryFailed("Failed to iterate messages", err)
		}

		msg, err := docToMessage(doc)
		if err != nil {
			log.Printf("Error parsing message data for chat %s: %v", chatID, err)
			return nil, 0, errors.QueryFailed("Failed to parse message data", err)
		}

		messages = append(messages, msg)
	}

	return messages, total, nil
}

func (r *firestoreChatRepository) userChatsQuery(userID string) firestore.Query {
	return r.client.Collection("chats").
		Where("participants", "array-contains", userID).
		OrderBy("lastMessageTimestamp", firestore.Desc)
}

func docToChat(doc *firestore.DocumentSnapshot) (*entity.Chat, error) {
	var chat entity.Chat
	if err := doc.DataTo(&chat); err != nil {
		return nil, err
	}
	chat.ID = doc.Ref.ID
	return &chat, nil
}

func docToMessage(doc *firestore.DocumentSnapshot) (*entity.Message, error) {
	var msg entity.Message
	if err := doc.DataTo(&msg); err != nil {
		return nil, err
	}
	msg.ID = doc.Ref.ID
	return &msg, nil
}

type chatSnapshotStream struct {
	updates chan []*entity.Chat
	cancel  context.CancelFunc
	once    sync.Once
}

func (s *chatSnapshotStream) Updates() <-chan []*entity.Chat { return s.updates }

func (s *chatSnapshotStream) Stop() {
	s.once.Do(s.cancel)
}

type messageSnapshotStream struct {
	updates chan []*entity.Message
	cancel  context.CancelFunc
	once    sync.Once
}

func (s *messageSnapshotStream) Updates() <-chan []*entity.Message { return s.updates }

func (s *messageSnapshotStream) Stop() {
	s.once.Do(s.cancel)
}
