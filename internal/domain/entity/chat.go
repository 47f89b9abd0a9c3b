package entity

import "time"

// UnknownUserName is the display fallback when a participant id is missing
// from the denormalized name map.
const UnknownUserName = "Unknown User"

// Chat is a 1:1 conversation container. Participant names and roles are a
// point-in-time snapshot taken at creation, not kept in sync with later
// profile changes. ReadBy tracks only whether each participant has seen the
// most recent message; there are no per-message receipts.
type Chat struct {
	ID                  string            `json:"id" firestore:"id"`
	Participants        []string          `json:"participants" firestore:"participants"`
	ParticipantNames    map[string]string `json:"participant_names" firestore:"participantNames"`
	ParticipantRoles    map[string]string `json:"participant_roles" firestore:"participantRoles"`
	LastMessage         string            `json:"last_message,omitempty" firestore:"lastMessage,omitempty"`
	LastMessageAt       time.Time         `json:"last_message_at" firestore:"lastMessageTimestamp,serverTimestamp"`
	LastMessageSenderID string            `json:"last_message_sender_id,omitempty" firestore:"lastMessageSenderId,omitempty"`
	ReadBy              map[string]bool   `json:"read_by" firestore:"readBy"`
}

// PeerID returns the participant id that is not the viewer, or "" when the
// participant set is malformed.
func (c *Chat) PeerID(viewerID string) string {
	for _, p := range c.Participants {
		if p != viewerID {
			return p
		}
	}
	return ""
}

// PeerName resolves the peer's denormalized display name for the viewer.
func (c *Chat) PeerName(viewerID string) string {
	peerID := c.PeerID(viewerID)
	if peerID == "" {
		return UnknownUserName
	}
	if name, ok := c.ParticipantNames[peerID]; ok && name != "" {
		return name
	}
	return UnknownUserName
}

// UnreadFor reports whether the viewer has not seen the most recent message.
// A chat where the viewer is the last sender is never unread for them.
func (c *Chat) UnreadFor(viewerID string) bool {
	if c.LastMessageSenderID == "" || c.LastMessageSenderID == viewerID {
		return false
	}
	return !c.ReadBy[viewerID]
}

// HasParticipant reports whether userID is one of the chat's participants.
func (c *Chat) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}
