// Package runtime holds the real-time session layer: who is connected, who is online,
// and how client events turn into stored messages and server events.
package runtime

import (
	"context"
	"direct-chat/contract"
	"direct-chat/domain"
	"direct-chat/domain/event"
	"direct-chat/errors"
	"direct-chat/repositories"
	"fmt"
	"log/slog"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// Censor masks forbidden words of a text and reports the words found.
type Censor interface {
	Censor(text string) (string, []string)
}

// Orchestrator handles the commands of bound connections.
// Commands of one connection are handled sequentially by its read loop,
// different connections run concurrently.
type Orchestrator struct {
	log             *slog.Logger
	conversations   repositories.IConversationRepository
	router          contract.IRouter
	connections     contract.IConnectionManager
	censor          Censor
	strictFileTypes bool
	now             func() time.Time
}

type OrchestratorOption func(*Orchestrator)

// WithStrictFileTypes rejects files whose content does not match the declared type.
func WithStrictFileTypes(strict bool) OrchestratorOption {
	return func(o *Orchestrator) { o.strictFileTypes = strict }
}

func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) { o.now = now }
}

func NewOrchestrator(
	log *slog.Logger,
	conversations repositories.IConversationRepository,
	router contract.IRouter,
	connections contract.IConnectionManager,
	censor Censor,
	opts ...OrchestratorOption,
) *Orchestrator {
	o := &Orchestrator{
		log:           log,
		conversations: conversations,
		router:        router,
		connections:   connections,
		censor:        censor,
		now:           func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Handle validates and executes one command of a bound connection.
// A returned error means nothing was stored nor emitted for this command.
func (o *Orchestrator) Handle(ctx context.Context, conn domain.Connection, cmd domain.Command) error {
	if err := domain.Validate(cmd); err != nil {
		o.log.Debug("Command rejected", "user_id", conn.UserID, "error", err)
		return err
	}

	switch c := cmd.(type) {
	case domain.TypingCommand:
		o.router.DeliverTo(ctx, c.ReceiverID, event.Typing{SenderID: conn.UserID, ReceiverID: c.ReceiverID})
		return nil
	case domain.StopTypingCommand:
		o.router.DeliverTo(ctx, c.ReceiverID, event.StopTyping{SenderID: conn.UserID, ReceiverID: c.ReceiverID})
		return nil
	case domain.SendFileCommand:
		return o.sendFile(ctx, conn, c)
	case domain.SendMessageCommand:
		return o.sendMessage(ctx, conn, c)
	case domain.MarkAsSeenCommand:
		return o.markAsSeen(ctx, conn, c)
	case domain.DisconnectCommand:
		o.connections.Unbind(ctx, conn)
		return nil
	default:
		return fmt.Errorf("%w: %T", errors.ErrUnknownEvent, cmd)
	}
}

func (o *Orchestrator) sendFile(ctx context.Context, conn domain.Connection, cmd domain.SendFileCommand) error {
	if err := o.checkFileType(cmd); err != nil {
		return err
	}
	message := domain.NewFileMessage(conn.UserID, cmd.ReceiverID, domain.Attachment{
		Name: cmd.FileName,
		Type: cmd.FileType,
		Data: cmd.FileData,
	}, o.now())
	return o.store(ctx, message)
}

func (o *Orchestrator) sendMessage(ctx context.Context, conn domain.Connection, cmd domain.SendMessageCommand) error {
	text := cmd.Text
	if o.censor != nil {
		var words []string
		text, words = o.censor.Censor(cmd.Text)
		if len(words) > 0 {
			o.log.Info("Message censored", "user_id", conn.UserID, "words", len(words))
		}
	}
	return o.store(ctx, domain.NewTextMessage(conn.UserID, cmd.ReceiverID, text, o.now()))
}

// store persists the message, then delivers it to the receiver and echoes it to the sender.
// Nothing is emitted when persistence fails.
func (o *Orchestrator) store(ctx context.Context, message domain.Message) error {
	conversation, err := o.conversations.FindOrCreate(message.SenderID, message.ReceiverID)
	if err != nil {
		o.log.Error("Conversation lookup failed", "user_id", message.SenderID, "error", err)
		return err
	}
	if err := o.conversations.Append(conversation, message); err != nil {
		o.log.Error("Message not stored", "user_id", message.SenderID, "message_id", message.ID, "error", err)
		return err
	}

	delivery := event.FromMessage(message)
	o.router.DeliverTo(ctx, message.ReceiverID, delivery)
	if message.ReceiverID != message.SenderID {
		o.router.DeliverToSelf(ctx, message.SenderID, delivery)
	}
	return nil
}

func (o *Orchestrator) markAsSeen(ctx context.Context, conn domain.Connection, cmd domain.MarkAsSeenCommand) error {
	receiverID := conn.UserID
	conversation, found, err := o.conversations.Find(cmd.SenderID, receiverID)
	if err != nil {
		o.log.Error("Conversation lookup failed", "user_id", receiverID, "sender_id", cmd.SenderID, "error", err)
		return err
	}
	if !found {
		return nil
	}

	updated, err := o.conversations.MarkSeen(conversation, cmd.SenderID, receiverID)
	if err != nil {
		o.log.Error("Seen receipt not stored", "user_id", receiverID, "error", err)
		return err
	}
	if updated == 0 {
		return nil
	}
	o.log.Debug("Messages seen", "sender_id", cmd.SenderID, "receiver_id", receiverID, "count", updated)
	o.router.DeliverTo(ctx, cmd.SenderID, event.MessageSeen{SenderID: cmd.SenderID, ReceiverID: receiverID})
	return nil
}

// checkFileType compares the declared type with the sniffed one.
// A mismatch is only an error in strict mode.
func (o *Orchestrator) checkFileType(cmd domain.SendFileCommand) error {
	detected := mimetype.Detect(cmd.FileData)
	for m := detected; m != nil; m = m.Parent() {
		if m.Is(cmd.FileType) {
			return nil
		}
	}
	if o.strictFileTypes {
		return fmt.Errorf("%w: %w: declared %s, detected %s",
			errors.ErrValidation, errors.ErrFileTypeMismatch, cmd.FileType, detected.String())
	}
	o.log.Debug("Declared file type differs from content", "declared", cmd.FileType, "detected", detected.String())
	return nil
}

var _ contract.ISessionHandler = (*Orchestrator)(nil)
