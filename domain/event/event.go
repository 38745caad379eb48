package event

import (
	"direct-chat/domain"
	"time"
)

type Name string

const (
	UserOnlineName     Name = "userOnline"
	UserOfflineName    Name = "userOffline"
	OnlineUsersName    Name = "onlineUsers"
	TypingName         Name = "typing"
	StopTypingName     Name = "stopTyping"
	ReceiveFileName    Name = "receiveFile"
	ReceiveMessageName Name = "receiveMessage"
	MessageSeenName    Name = "messageSeen"
	ErrorName          Name = "error"
)

// DomainEvent is an event pushed by the server to bound connections.
// The struct tags are the wire payload.
type DomainEvent interface {
	EventName() Name
}

type UserOnline struct {
	UserID domain.UserID `json:"userId"`
}

type UserOffline struct {
	UserID domain.UserID `json:"userId"`
}

// OnlineUsers is the presence snapshot sent once to a newly bound connection.
type OnlineUsers struct {
	Users []domain.UserID `json:"users"`
}

type Typing struct {
	SenderID   domain.UserID `json:"senderId"`
	ReceiverID domain.UserID `json:"receiverId"`
}

type StopTyping struct {
	SenderID   domain.UserID `json:"senderId"`
	ReceiverID domain.UserID `json:"receiverId"`
}

type ReceiveFile struct {
	ID         string        `json:"id"`
	SenderID   domain.UserID `json:"senderId"`
	ReceiverID domain.UserID `json:"receiverId"`
	FileData   []byte        `json:"fileData"`
	FileName   string        `json:"fileName"`
	FileType   string        `json:"fileType"`
	IsFile     bool          `json:"isFile"`
	Timestamp  time.Time     `json:"timestamp"`
	Seen       bool          `json:"seen"`
}

type ReceiveMessage struct {
	ID         string        `json:"id"`
	SenderID   domain.UserID `json:"senderId"`
	ReceiverID domain.UserID `json:"receiverId"`
	Text       string        `json:"text"`
	Timestamp  time.Time     `json:"timestamp"`
	Seen       bool          `json:"seen"`
}

// MessageSeen tells the original sender that ReceiverID read its messages.
type MessageSeen struct {
	SenderID   domain.UserID `json:"senderId"`
	ReceiverID domain.UserID `json:"receiverId"`
}

// Error is returned to the originating connection only, when one of its events was rejected.
type Error struct {
	Event   string `json:"event,omitempty"`
	Message string `json:"message"`
}

func (UserOnline) EventName() Name { return UserOnlineName }
func (UserOffline) EventName() Name { return UserOfflineName }
func (OnlineUsers) EventName() Name { return OnlineUsersName }
func (Typing) EventName() Name { return TypingName }
func (StopTyping) EventName() Name { return StopTypingName }
func (ReceiveFile) EventName() Name { return ReceiveFileName }
func (ReceiveMessage) EventName() Name { return ReceiveMessageName }
func (MessageSeen) EventName() Name { return MessageSeenName }
func (Error) EventName() Name { return ErrorName }

// FromMessage builds the delivery event of a freshly stored message.
func FromMessage(m domain.Message) DomainEvent {
	if m.IsFile() {
		return ReceiveFile{
			ID:         m.ID.String(),
			SenderID:   m.SenderID,
			ReceiverID: m.ReceiverID,
			FileData:   m.File.Data,
			FileName:   m.File.Name,
			FileType:   m.File.Type,
			IsFile:     true,
			Timestamp:  m.Timestamp,
			Seen:       m.Seen,
		}
	}
	return ReceiveMessage{
		ID:         m.ID.String(),
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Text:       m.Text,
		Timestamp:  m.Timestamp,
		Seen:       m.Seen,
	}
}
