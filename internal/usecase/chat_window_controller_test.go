package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campuslink/internal/domain/entity"
	"campuslink/pkg/errors"
)

// recvSnapshot reads updates until one for chatID arrives, skipping stragglers
// from a torn-down subscription.
func recvSnapshot(t *testing.T, w *ChatWindowController, chatID string) MessageSnapshot {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap := <-w.Updates():
			if snap.ChatID == chatID {
				return snap
			}
		case <-deadline:
			t.Fatalf("timed out waiting for snapshot of chat %s", chatID)
		}
	}
}

func TestWindowOpenMarksReadOnce(t *testing.T) {
	alice, bob := testUsers()
	chatRepo := newFakeChatRepo()
	uc := NewChatUseCase(chatRepo, newFakeUserRepo(alice, bob))
	ctx := context.Background()

	result, err := uc.StartChat(ctx, "alice", "bob")
	require.NoError(t, err)
	chatID := result.Chat.ID

	_, err = uc.SendMessage(ctx, "alice", chatID, "Hi Bob")
	require.NoError(t, err)

	window := uc.NewWindowController("bob")
	defer window.Close()

	chat, err := chatRepo.GetByID(ctx, chatID)
	require.NoError(t, err)
	require.NoError(t, window.Open(ctx, chat))
	assert.Equal(t, 1, chatRepo.markReadCalls[chatID])

	snap := recvSnapshot(t, window, chatID)
	require.Len(t, snap.Messages, 1)
	assert.Equal(t, WindowStateSynced, window.State())

	// More incoming messages refresh the window but never re-mark.
	_, err = uc.SendMessage(ctx, "alice", chatID, "You there?")
	require.NoError(t, err)

	snap = recvSnapshot(t, window, chatID)
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, "You there?", snap.Messages[1].Text)
	assert.Equal(t, 1, chatRepo.markReadCalls[chatID])
}

func TestWindowOpenSkipsMarkReadWhenNotUnread(t *testing.T) {
	alice, bob := testUsers()
	chatRepo := newFakeChatRepo()
	uc := NewChatUseCase(chatRepo, newFakeUserRepo(alice, bob))
	ctx := context.Background()

	result, err := uc.StartChat(ctx, "alice", "bob")
	require.NoError(t, err)

	window := uc.NewWindowController("bob")
	defer window.Close()

	// No messages yet, nothing to mark.
	require.NoError(t, window.Open(ctx, result.Chat))
	assert.Equal(t, 0, chatRepo.markReadCalls[result.Chat.ID])
}

func TestWindowSwitchChatSwapsSubscription(t *testing.T) {
	alice, bob := testUsers()
	carol := &entity.UserProfile{UID: "carol", Name: "Carol Wu", Role: entity.RoleStudent}
	chatRepo := newFakeChatRepo()
	uc := NewChatUseCase(chatRepo, newFakeUserRepo(alice, bob, carol))
	ctx := context.Background()

	withBob, err := uc.StartChat(ctx, "alice", "bob")
	require.NoError(t, err)
	withCarol, err := uc.StartChat(ctx, "alice", "carol")
	require.NoError(t, err)

	window := uc.NewWindowController("alice")
	defer window.Close()

	require.NoError(t, window.Open(ctx, withBob.Chat))
	recvSnapshot(t, window, withBob.Chat.ID)
	assert.Equal(t, 1, chatRepo.liveMessageSubs())

	require.NoError(t, window.Open(ctx, withCarol.Chat))
	assert.Equal(t, withCarol.Chat.ID, window.ChatID())

	// Exactly one subscription stays live across the switch.
	assert.Equal(t, 1, chatRepo.liveMessageSubs())
	assert.Equal(t, 1, chatRepo.stoppedMessageSubs())

	recvSnapshot(t, window, withCarol.Chat.ID)
	assert.Equal(t, WindowStateSynced, window.State())
}

func TestWindowSend(t *testing.T) {
	alice, bob := testUsers()
	chatRepo := newFakeChatRepo()
	uc := NewChatUseCase(chatRepo, newFakeUserRepo(alice, bob))
	ctx := context.Background()

	result, err := uc.StartChat(ctx, "alice", "bob")
	require.NoError(t, err)

	window := uc.NewWindowController("alice")
	defer window.Close()

	require.NoError(t, window.Open(ctx, result.Chat))
	recvSnapshot(t, window, result.Chat.ID)

	require.NoError(t, window.Send(ctx, "  Hi Bob  "))

	// The sent message arrives through the subscription, not a local echo.
	snap := recvSnapshot(t, window, result.Chat.ID)
	require.Len(t, snap.Messages, 1)
	assert.Equal(t, "Hi Bob", snap.Messages[0].Text)
	assert.Equal(t, "alice", snap.Messages[0].SenderID)
}

func TestWindowSendBlankIsNoOp(t *testing.T) {
	alice, bob := testUsers()
	chatRepo := newFakeChatRepo()
	uc := NewChatUseCase(chatRepo, newFakeUserRepo(alice, bob))
	ctx := context.Background()

	result, err := uc.StartChat(ctx, "alice", "bob")
	require.NoError(t, err)

	window := uc.NewWindowController("alice")
	defer window.Close()

	require.NoError(t, window.Open(ctx, result.Chat))
	require.NoError(t, window.Send(ctx, "   "))

	_, total, err := chatRepo.GetMessages(ctx, result.Chat.ID, 50, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 0, total)
}

func TestWindowSendWithoutOpenChat(t *testing.T) {
	alice, bob := testUsers()
	uc := NewChatUseCase(newFakeChatRepo(), newFakeUserRepo(alice, bob))

	window := uc.NewWindowController("alice")
	defer window.Close()

	err := window.Send(context.Background(), "hello?")
	require.Error(t, err)
	assert.True(t, errors.Is(err, "BAD_REQUEST"))
}

func TestWindowCloseChatReleasesSubscription(t *testing.T) {
	alice, bob := testUsers()
	chatRepo := newFakeChatRepo()
	uc := NewChatUseCase(chatRepo, newFakeUserRepo(alice, bob))
	ctx := context.Background()

	result, err := uc.StartChat(ctx, "alice", "bob")
	require.NoError(t, err)

	window := uc.NewWindowController("alice")
	defer window.Close()

	require.NoError(t, window.Open(ctx, result.Chat))
	recvSnapshot(t, window, result.Chat.ID)

	window.CloseChat()
	assert.Equal(t, "", window.ChatID())
	assert.Equal(t, 0, chatRepo.liveMessageSubs())

	// The window survives CloseChat and can open again.
	chat, err := chatRepo.GetByID(ctx, result.Chat.ID)
	require.NoError(t, err)
	require.NoError(t, window.Open(ctx, chat))
	recvSnapshot(t, window, chat.ID)
}

func TestWindowCloseIsFinal(t *testing.T) {
	alice, bob := testUsers()
	chatRepo := newFakeChatRepo()
	uc := NewChatUseCase(chatRepo, newFakeUserRepo(alice, bob))
	ctx := context.Background()

	result, err := uc.StartChat(ctx, "alice", "bob")
	require.NoError(t, err)

	window := uc.NewWindowController("alice")
	require.NoError(t, window.Open(ctx, result.Chat))
	recvSnapshot(t, window, result.Chat.ID)

	window.Close()
	assert.Equal(t, 0, chatRepo.liveMessageSubs())

	err = window.Open(ctx, result.Chat)
	require.Error(t, err)
	assert.True(t, errors.Is(err, "BAD_REQUEST"))
}
