package entity

import "time"

// Message belongs to exactly one chat and is immutable once created. The
// timestamp is assigned by the store on write.
type Message struct {
	ID        string    `json:"id" firestore:"id"`
	SenderID  string    `json:"sender_id" firestore:"senderId"`
	Text      string    `json:"text" firestore:"text"`
	Timestamp time.Time `json:"timestamp" firestore:"timestamp,serverTimestamp"`
}
