package websocket

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"campuslink/internal/usecase"
)

// WebSocket frame types
const (
	FrameTypePing        = "ping"
	FrameTypePong        = "pong"
	FrameTypeOpenChat    = "open_chat"
	FrameTypeCloseChat   = "close_chat"
	FrameTypeSendMessage = "send_message"
	FrameTypeMarkRead    = "mark_read"
	FrameTypeStartChat   = "start_chat"
	FrameTypeChatList    = "chat_list"
	FrameTypeMessageList = "message_list"
	FrameTypeChatStarted = "chat_started"
	FrameTypeError       = "error"
)

// Frame is the envelope for every message in either direction.
type Frame struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp string      `json:"timestamp"`
}

type OpenChatData struct {
	ChatID string `json:"chat_id"`
}

type SendMessageData struct {
	Text string `json:"text"`
}

type MarkReadData struct {
	ChatID string `json:"chat_id"`
}

type StartChatData struct {
	PeerID string `json:"peer_id"`
}

type ChatListData struct {
	Chats []usecase.ChatSummary `json:"chats"`
}

type MessageListData struct {
	ChatID   string      `json:"chat_id"`
	Messages interface{} `json:"messages"`
	State    string      `json:"state"`
}

// Session is the server-side counterpart of one signed-in messaging view. It
// owns one chat-list controller and one chat-window controller; both are torn
// down when the connection ends.
type Session struct {
	client *Client
	chatUC *usecase.ChatUseCase
	list   *usecase.ChatListController
	window *usecase.ChatWindowController

	ctx    context.Context
	cancel context.CancelFunc
}

func NewSession(client *Client, chatUC *usecase.ChatUseCase) *Session {
	return &Session{
		client: client,
		chatUC: chatUC,
	}
}

// Start establishes the chat-list subscription and begins pushing snapshots.
func (s *Session) Start(parent context.Context) error {
	ctx, cancel := context.WithCancel(parent)
	s.ctx = ctx
	s.cancel = cancel

	s.list = s.chatUC.NewListController(s.client.UserID)
	s.window = s.chatUC.NewWindowController(s.client.UserID)

	if err := s.list.Start(ctx); err != nil {
		cancel()
		return err
	}

	go s.pushChatList()
	go s.pushMessages()

	return nil
}

// Close tears down both controllers and their subscriptions.
func (s *Session) Close() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.list != nil {
		s.list.Stop()
	}
	if s.window != nil {
		s.window.Close()
	}
}

func (s *Session) pushChatList() {
	for summaries := range s.list.Updates() {
		s.push(Frame{
			Type: FrameTypeChatList,
			Data: ChatListData{Chats: summaries},
		})
	}
}

func (s *Session) pushMessages() {
	for {
		select {
		case snap := <-s.window.Updates():
			if snap.ChatID != s.window.ChatID() {
				continue // Straggler from a chat switched away from
			}
			s.push(Frame{
				Type: FrameTypeMessageList,
				Data: MessageListData{
					ChatID:   snap.ChatID,
					Messages: snap.Messages,
					State:    s.window.State(),
				},
			})
		case <-s.ctx.Done():
			return
		}
	}
}

// HandleFrame processes one inbound frame from the client.
func (s *Session) HandleFrame(message []byte) {
	var frame Frame
	if err := json.Unmarshal(message, &frame); err != nil {
		log.Printf("WebSocket: failed to unmarshal frame from %s: %v", s.client.UserID, err)
		s.pushError("Invalid frame format")
		return
	}

	switch frame.Type {
	case FrameTypePing:
		s.push(Frame{Type: FrameTypePong})

	case FrameTypeOpenChat:
		var data OpenChatData
		if !s.decodeData(frame.Data, &data) || data.ChatID == "" {
			s.pushError("Missing chat_id")
			return
		}
		s.handleOpenChat(data.ChatID)

	case FrameTypeCloseChat:
		s.window.CloseChat()

	case FrameTypeSendMessage:
		var data SendMessageData
		if !s.decodeData(frame.Data, &data) {
			s.pushError("Invalid send_message data")
			return
		}
		if err := s.window.Send(s.ctx, data.Text); err != nil {
			log.Printf("WebSocket: send failed for %s: %v", s.client.UserID, err)
			s.pushError("Failed to send message")
		}

	case FrameTypeMarkRead:
		var data MarkReadData
		if !s.decodeData(frame.Data, &data) || data.ChatID == "" {
			s.pushError("Missing chat_id")
			return
		}
		if err := s.chatUC.MarkChatRead(s.ctx, s.client.UserID, data.ChatID); err != nil {
			log.Printf("WebSocket: mark read failed for %s on chat %s: %v", s.client.UserID, data.ChatID, err)
		}

	case FrameTypeStartChat:
		var data StartChatData
		if !s.decodeData(frame.Data, &data) || data.PeerID == "" {
			s.pushError("Missing peer_id")
			return
		}
		s.handleStartChat(data.PeerID)

	default:
		log.Printf("WebSocket: unknown frame type '%s' from %s", frame.Type, s.client.UserID)
		s.pushError("Unknown frame type")
	}
}

func (s *Session) handleOpenChat(chatID string) {
	chat, err := s.chatUC.GetChatByID(s.ctx, s.client.UserID, chatID)
	if err != nil {
		log.Printf("WebSocket: open chat %s failed for %s: %v", chatID, s.client.UserID, err)
		s.pushError("Failed to open chat")
		return
	}

	if err := s.window.Open(s.ctx, chat); err != nil {
		log.Printf("WebSocket: subscribe to chat %s failed for %s: %v", chatID, s.client.UserID, err)
		s.pushError("Failed to open chat")
	}
}

func (s *Session) handleStartChat(peerID string) {
	result, err := s.chatUC.StartChat(s.ctx, s.client.UserID, peerID)
	if err != nil {
		log.Printf("WebSocket: start chat with %s failed for %s: %v", peerID, s.client.UserID, err)
		s.pushError("Failed to start chat")
		return
	}

	s.push(Frame{Type: FrameTypeChatStarted, Data: result})

	// Navigate straight into the conversation, new or found.
	if err := s.window.Open(s.ctx, result.Chat); err != nil {
		log.Printf("WebSocket: subscribe to chat %s failed for %s: %v", result.Chat.ID, s.client.UserID, err)
		s.pushError("Failed to open chat")
	}
}

// decodeData re-marshals the loosely-typed frame payload into a typed struct.
func (s *Session) decodeData(data interface{}, out interface{}) bool {
	raw, err := json.Marshal(data)
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, out) == nil
}

func (s *Session) push(frame Frame) {
	frame.Timestamp = time.Now().UTC().Format(time.RFC3339)

	raw, err := json.Marshal(frame)
	if err != nil {
		log.Printf("WebSocket: failed to marshal %s frame for %s: %v", frame.Type, s.client.UserID, err)
		return
	}

	select {
	case s.client.Send <- raw:
	default:
		log.Printf("WebSocket: send channel full for %s, dropping %s frame", s.client.UserID, frame.Type)
	}
}

func (s *Session) pushError(message string) {
	s.push(Frame{
		Type: FrameTypeError,
		Data: map[string]string{"error": message},
	})
}
