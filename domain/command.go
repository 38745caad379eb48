package domain

import (
	"direct-chat/errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type CommandName string

const (
	CommandTyping      CommandName = "typing"
	CommandStopTyping  CommandName = "stopTyping"
	CommandSendFile    CommandName = "sendFile"
	CommandSendMessage CommandName = "sendMessage"
	CommandMarkAsSeen  CommandName = "markAsSeen"
	CommandDisconnect  CommandName = "disconnect"
)

// Command is an event sent by a bound client.
// The set is closed: only the types of this file implement it.
type Command interface {
	Name() CommandName
	command()
}

type TypingCommand struct {
	ReceiverID UserID `json:"receiverId" validate:"required"`
}

type StopTypingCommand struct {
	ReceiverID UserID `json:"receiverId" validate:"required"`
}

type SendFileCommand struct {
	ReceiverID UserID `json:"receiverId" validate:"required"`
	FileData   []byte `json:"fileData" validate:"required,min=1"`
	FileName   string `json:"fileName" validate:"required,max=255"`
	FileType   string `json:"fileType" validate:"required,max=255"`
}

type SendMessageCommand struct {
	ReceiverID UserID `json:"receiverId" validate:"required"`
	Text       string `json:"text" validate:"required"`
}

// MarkAsSeenCommand is sent by the receiver of the messages.
// SenderID names the author whose messages have been read.
type MarkAsSeenCommand struct {
	SenderID UserID `json:"senderId" validate:"required"`
}

type DisconnectCommand struct{}

func (TypingCommand) Name() CommandName { return CommandTyping }
func (StopTypingCommand) Name() CommandName { return CommandStopTyping }
func (SendFileCommand) Name() CommandName { return CommandSendFile }
func (SendMessageCommand) Name() CommandName { return CommandSendMessage }
func (MarkAsSeenCommand) Name() CommandName { return CommandMarkAsSeen }
func (DisconnectCommand) Name() CommandName { return CommandDisconnect }

func (TypingCommand) command() {}
func (StopTypingCommand) command() {}
func (SendFileCommand) command() {}
func (SendMessageCommand) command() {}
func (MarkAsSeenCommand) command() {}
func (DisconnectCommand) command() {}

// Validate checks the required fields of a command.
// The returned error always wraps errors.ErrValidation.
func Validate(cmd Command) error {
	if cmd == nil {
		return fmt.Errorf("%w: nil command", errors.ErrValidation)
	}
	if err := validate.Struct(cmd); err != nil {
		return fmt.Errorf("%w: %s: %v", errors.ErrValidation, cmd.Name(), err)
	}
	return nil
}
