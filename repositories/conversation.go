//go:generate go run go.uber.org/mock/mockgen -source=conversation.go -destination=../mocks/mock_conversation_repository.go -package=mocks
package repositories

import (
	"bytes"
	"direct-chat/domain"
	chaterrors "direct-chat/errors"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// lastSequence sorts after every padded sequence number of a conversation.
const lastSequence = "9999999999999999999"

// DefaultLimitMessages bounds a history page when no limit is configured.
const DefaultLimitMessages = 50

type IConversationRepository interface {
	FindOrCreate(first, second domain.UserID) (domain.Conversation, error)
	Find(first, second domain.UserID) (domain.Conversation, bool, error)
	Append(conversation domain.Conversation, message domain.Message) error
	MarkSeen(conversation domain.Conversation, senderID, receiverID domain.UserID) (int, error)
	GetMessages(key domain.ConversationKey, cursor *string) ([]domain.Message, *string, error)
}

// ConversationRepository stores conversations and their messages in BadgerDB.
//
// Keys:
//
//	conv:{len(A)}:{len(B)}:{A}{B}           -> DiskConversation
//	msg:{len(A)}:{len(B)}:{A}{B}:{seq:019}  -> DiskMessage
//
// Length prefixes keep the pair unambiguous whatever the identities contain.
// Every write on a pair runs under the pair lock, so sequence numbers follow append order.
//
// Message records are written once. Read receipts live on the conversation record as a
// per-sender watermark: a message is seen when its sequence is at or below the watermark
// of its sender.
type ConversationRepository struct {
	db            *badger.DB
	log           *slog.Logger
	locks         *KeyedMutex
	limitMessages *int
}

func NewConversationRepository(db *badger.DB, log *slog.Logger, limitMessages *int) *ConversationRepository {
	if limitMessages == nil {
		limitMessages = lo.ToPtr(DefaultLimitMessages)
	}
	return &ConversationRepository{
		db:            db,
		log:           log,
		locks:         NewKeyedMutex(),
		limitMessages: limitMessages,
	}
}

type DiskConversation struct {
	ID        string `cbor:"id"`
	A         string `cbor:"a"`
	B         string `cbor:"b"`
	CreatedAt int64  `cbor:"created_at"`
	LastSeq   uint64 `cbor:"last_seq"`
	// SeenUpTo holds, per sender, the last sequence read by the other participant.
	SeenUpTo map[string]uint64 `cbor:"seen_up_to,omitempty"`
	// Unseen counts, per sender, the messages appended after SeenUpTo.
	Unseen map[string]uint64 `cbor:"unseen,omitempty"`
}

func (d DiskConversation) seen(m DiskMessage) bool {
	return m.Seq <= d.SeenUpTo[m.SenderID]
}

type DiskMessage struct {
	ID         string `cbor:"id"`
	Seq        uint64 `cbor:"seq"`
	SenderID   string `cbor:"sender_id"`
	ReceiverID string `cbor:"receiver_id"`
	At         int64  `cbor:"at"`
	Text       string `cbor:"text,omitempty"`
	IsFile     bool   `cbor:"is_file,omitempty"`
	FileName   string `cbor:"file_name,omitempty"`
	FileType   string `cbor:"file_type,omitempty"`
	FileData   []byte `cbor:"file_data,omitempty"`
}

// FindOrCreate returns the conversation of the pair, creating it on first use.
// Two concurrent first messages of the same pair always end up in the same conversation.
func (r *ConversationRepository) FindOrCreate(first, second domain.UserID) (domain.Conversation, error) {
	key := domain.NewConversationKey(first, second)
	unlock := r.locks.Lock(pairKey(key))
	defer unlock()

	var conversation domain.Conversation
	err := r.db.Update(func(txn *badger.Txn) error {
		disk, err := getConversation(txn, key)
		switch {
		case err == nil:
			conversation, err = toConversation(disk)
			return err
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		conversation = domain.NewConversation(key, time.Now().UTC())
		r.log.Debug("Creating conversation", "conversation", key.String(), "id", conversation.ID)
		return putConversation(txn, fromConversation(conversation))
	})
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("%w: find or create %s: %v", chaterrors.ErrPersistence, key, err)
	}
	return conversation, nil
}

// Find looks the conversation up without creating it.
func (r *ConversationRepository) Find(first, second domain.UserID) (domain.Conversation, bool, error) {
	key := domain.NewConversationKey(first, second)
	var conversation domain.Conversation
	var found bool
	err := r.db.View(func(txn *badger.Txn) error {
		disk, err := getConversation(txn, key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		conversation, err = toConversation(disk)
		found = err == nil
		return err
	})
	if err != nil {
		return domain.Conversation{}, false, fmt.Errorf("%w: find %s: %v", chaterrors.ErrPersistence, key, err)
	}
	return conversation, found, nil
}

// Append persists the message at the end of the conversation.
// The write is committed before Append returns.
func (r *ConversationRepository) Append(conversation domain.Conversation, message domain.Message) error {
	key := conversation.Key
	if message.Key() != key {
		return fmt.Errorf("%w: message %s does not belong to %s", chaterrors.ErrValidation, message.ID, key)
	}
	unlock := r.locks.Lock(pairKey(key))
	defer unlock()

	err := r.db.Update(func(txn *badger.Txn) error {
		disk, err := getConversation(txn, key)
		if err != nil {
			return err
		}
		disk.LastSeq++
		if disk.Unseen == nil {
			disk.Unseen = make(map[string]uint64)
		}
		disk.Unseen[string(message.SenderID)]++
		value, err := cbor.Marshal(fromMessage(message, disk.LastSeq))
		if err != nil {
			return err
		}
		if err = txn.Set(messageKey(key, disk.LastSeq), value); err != nil {
			return err
		}
		return putConversation(txn, disk)
	})
	if err != nil {
		return fmt.Errorf("%w: append to %s: %v", chaterrors.ErrPersistence, key, err)
	}
	return nil
}

// MarkSeen flips every unseen message written by senderID to receiverID.
// It returns how many messages changed, zero when everything was already seen.
// Only the conversation record is rewritten, whatever the number or size of the messages.
func (r *ConversationRepository) MarkSeen(conversation domain.Conversation, senderID, receiverID domain.UserID) (int, error) {
	key := conversation.Key
	if domain.NewConversationKey(senderID, receiverID) != key {
		return 0, fmt.Errorf("%w: %s and %s are not the participants of %s", chaterrors.ErrValidation, senderID, receiverID, key)
	}
	unlock := r.locks.Lock(pairKey(key))
	defer unlock()

	var updated int
	err := r.db.Update(func(txn *badger.Txn) error {
		disk, err := getConversation(txn, key)
		if err != nil {
			return err
		}
		sender := string(senderID)
		unseen := disk.Unseen[sender]
		if unseen == 0 {
			return nil
		}
		if disk.SeenUpTo == nil {
			disk.SeenUpTo = make(map[string]uint64)
		}
		disk.SeenUpTo[sender] = disk.LastSeq
		delete(disk.Unseen, sender)
		updated = int(unseen)
		return putConversation(txn, disk)
	})
	if err != nil {
		return 0, fmt.Errorf("%w: mark seen in %s: %v", chaterrors.ErrPersistence, key, err)
	}
	return updated, nil
}

// GetMessages returns a page of the conversation, newest first.
// The returned cursor points to the last message of the page and is nil once the
// oldest message has been returned. Passing it back yields the next, older page.
func (r *ConversationRepository) GetMessages(key domain.ConversationKey, cursor *string) ([]domain.Message, *string, error) {
	prefix := messagePrefix(key)
	seekKey := append(bytes.Clone(prefix), lastSequence...)
	if cursor != nil {
		seq, err := strconv.ParseUint(*cursor, 10, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: cursor %q", chaterrors.ErrValidation, *cursor)
		}
		seekKey = messageKey(key, seq)
	}

	var messages []domain.Message
	var next *string
	var lastSeq uint64
	err := r.db.View(func(txn *badger.Txn) error {
		conversation, err := getConversation(txn, key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		it.Seek(seekKey)
		if cursor != nil && it.ValidForPrefix(prefix) && bytes.Equal(it.Item().Key(), seekKey) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if len(messages) == *r.limitMessages {
				r.log.Debug(fmt.Sprintf("Maximum of %d message reached", *r.limitMessages))
				next = lo.ToPtr(formatSequence(lastSeq))
				break
			}
			disk, err := decodeMessage(it.Item())
			if err != nil {
				return err
			}
			message, err := toMessage(disk, conversation.seen(disk))
			if err != nil {
				return err
			}
			messages = append(messages, message)
			lastSeq = disk.Seq
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: read %s: %v", chaterrors.ErrPersistence, key, err)
	}
	return messages, next, nil
}

func pairKey(key domain.ConversationKey) string {
	return fmt.Sprintf("%d:%d:%s%s", len(key.A), len(key.B), key.A, key.B)
}

func conversationKey(key domain.ConversationKey) []byte {
	return []byte("conv:" + pairKey(key))
}

func messagePrefix(key domain.ConversationKey) []byte {
	return []byte("msg:" + pairKey(key) + ":")
}

func messageKey(key domain.ConversationKey, seq uint64) []byte {
	return append(messagePrefix(key), formatSequence(seq)...)
}

func formatSequence(seq uint64) string {
	return fmt.Sprintf("%019d", seq)
}

func getConversation(txn *badger.Txn, key domain.ConversationKey) (DiskConversation, error) {
	item, err := txn.Get(conversationKey(key))
	if err != nil {
		return DiskConversation{}, err
	}
	value, err := item.ValueCopy(nil)
	if err != nil {
		return DiskConversation{}, err
	}
	var disk DiskConversation
	if err = cbor.Unmarshal(value, &disk); err != nil {
		return DiskConversation{}, err
	}
	return disk, nil
}

func putConversation(txn *badger.Txn, disk DiskConversation) error {
	value, err := cbor.Marshal(disk)
	if err != nil {
		return err
	}
	return txn.Set(conversationKey(domain.ConversationKey{
		A: domain.UserID(disk.A),
		B: domain.UserID(disk.B),
	}), value)
}

func decodeMessage(item *badger.Item) (DiskMessage, error) {
	value, err := item.ValueCopy(nil)
	if err != nil {
		return DiskMessage{}, err
	}
	var disk DiskMessage
	if err = cbor.Unmarshal(value, &disk); err != nil {
		return DiskMessage{}, err
	}
	return disk, nil
}

func fromConversation(c domain.Conversation) DiskConversation {
	return DiskConversation{
		ID:        c.ID.String(),
		A:         string(c.Key.A),
		B:         string(c.Key.B),
		CreatedAt: c.CreatedAt.UnixNano(),
	}
}

func toConversation(disk DiskConversation) (domain.Conversation, error) {
	id, err := uuid.Parse(disk.ID)
	if err != nil {
		return domain.Conversation{}, err
	}
	return domain.Conversation{
		ID:        id,
		Key:       domain.NewConversationKey(domain.UserID(disk.A), domain.UserID(disk.B)),
		CreatedAt: time.Unix(0, disk.CreatedAt).UTC(),
	}, nil
}

func fromMessage(m domain.Message, seq uint64) DiskMessage {
	disk := DiskMessage{
		ID:         m.ID.String(),
		Seq:        seq,
		SenderID:   string(m.SenderID),
		ReceiverID: string(m.ReceiverID),
		At:         m.Timestamp.UnixNano(),
		Text:       m.Text,
	}
	if m.IsFile() {
		disk.IsFile = true
		disk.FileName = m.File.Name
		disk.FileType = m.File.Type
		disk.FileData = m.File.Data
	}
	return disk
}

func toMessage(disk DiskMessage, seen bool) (domain.Message, error) {
	id, err := uuid.Parse(disk.ID)
	if err != nil {
		return domain.Message{}, err
	}
	message := domain.Message{
		ID:         id,
		SenderID:   domain.UserID(disk.SenderID),
		ReceiverID: domain.UserID(disk.ReceiverID),
		Timestamp:  time.Unix(0, disk.At).UTC(),
		Seen:       seen,
		Text:       disk.Text,
	}
	if disk.IsFile {
		message.File = &domain.Attachment{
			Name: disk.FileName,
			Type: disk.FileType,
			Data: disk.FileData,
		}
	}
	return message, nil
}
