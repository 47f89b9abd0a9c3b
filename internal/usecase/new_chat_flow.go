package usecase

import (
	"context"
	"strings"

	"campuslink/internal/domain/entity"
)

// FilterChatCandidates computes the selectable peers for starting a new chat:
// the directory minus everyone already sharing a chat with the viewer, with a
// case-insensitive substring filter on name. Runs client-side per keystroke,
// no store round-trip.
func FilterChatCandidates(allUsers []*entity.UserProfile, existingChats []*entity.Chat, viewerID, search string) []*entity.UserProfile {
	inChat := make(map[string]bool)
	for _, chat := range existingChats {
		for _, p := range chat.Participants {
			if p != viewerID {
				inChat[p] = true
			}
		}
	}

	search = strings.ToLower(search)

	candidates := make([]*entity.UserProfile, 0, len(allUsers))
	for _, user := range allUsers {
		if user.UID == viewerID || inChat[user.UID] {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(user.Name), search) {
			continue
		}
		candidates = append(candidates, user)
	}
	return candidates
}

// ListContacts is the one-shot directory fetch feeding the new-chat flow.
func (uc *ChatUseCase) ListContacts(ctx context.Context, userID string) ([]*entity.UserProfile, error) {
	return uc.userRepo.ListExcept(ctx, userID)
}

// ListChatCandidates fetches the directory and the viewer's chats and applies
// the candidate filter in one call, for the REST surface.
func (uc *ChatUseCase) ListChatCandidates(ctx context.Context, userID, search string) ([]*entity.UserProfile, error) {
	users, err := uc.userRepo.ListExcept(ctx, userID)
	if err != nil {
		return nil, err
	}

	chats, err := uc.chatRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	return FilterChatCandidates(users, chats, userID, search), nil
}
