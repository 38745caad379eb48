package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ConversationKey is the canonical form of an unordered pair of participants.
// A is always lower or equal to B, so {alice, bob} and {bob, alice} share a key.
type ConversationKey struct {
	A UserID
	B UserID
}

func NewConversationKey(first, second UserID) ConversationKey {
	if second < first {
		first, second = second, first
	}
	return ConversationKey{A: first, B: second}
}

// Has reports whether the user is one of the two participants.
func (k ConversationKey) Has(userID UserID) bool {
	return k.A == userID || k.B == userID
}

func (k ConversationKey) String() string {
	return fmt.Sprintf("%s|%s", k.A, k.B)
}

// Conversation holds the ordered history between two participants.
// It is created lazily on the first message and never deleted.
type Conversation struct {
	ID        uuid.UUID
	Key       ConversationKey
	CreatedAt time.Time
}

func NewConversation(key ConversationKey, at time.Time) Conversation {
	return Conversation{
		ID:        uuid.New(),
		Key:       key,
		CreatedAt: at,
	}
}
