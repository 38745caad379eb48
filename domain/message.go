// Package domain contains core concepts of the direct messaging system.
// This file defines Message events and related rules.
// Messages are immutable and validated by the domain.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message is a single entry of a conversation.
// Once appended, only Seen may change and only from false to true.
type Message struct {
	ID         uuid.UUID
	SenderID   UserID
	ReceiverID UserID
	Timestamp  time.Time
	Seen       bool
	Text       string
	File       *Attachment
}

// Attachment is the binary payload of a file message.
type Attachment struct {
	Name string
	Type string
	Data []byte
}

func NewTextMessage(senderID, receiverID UserID, text string, at time.Time) Message {
	return Message{
		ID:         uuid.New(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Timestamp:  at,
		Text:       text,
	}
}

func NewFileMessage(senderID, receiverID UserID, file Attachment, at time.Time) Message {
	return Message{
		ID:         uuid.New(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Timestamp:  at,
		File:       &file,
	}
}

func (m Message) IsFile() bool {
	return m.File != nil
}

// Key returns the conversation this message belongs to.
func (m Message) Key() ConversationKey {
	return NewConversationKey(m.SenderID, m.ReceiverID)
}
