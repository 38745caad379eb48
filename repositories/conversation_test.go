package repositories

import (
	"direct-chat/domain"
	chaterrors "direct-chat/errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func openBadger(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).
		WithLoggingLevel(badger.ERROR).
		WithValueLogFileSize(16 << 20))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func Test_FindOrCreate_Is_Pair_Order_Independent(t *testing.T) {
	req := require.New(t)
	repository := NewConversationRepository(openBadger(t), slog.Default(), nil)

	// When the same pair is looked up in both orders
	first, err := repository.FindOrCreate("alice", "bob")
	req.NoError(err)
	second, err := repository.FindOrCreate("bob", "alice")
	req.NoError(err)

	// Then the same conversation is returned
	req.Equal(first.ID, second.ID)
	req.Equal(domain.ConversationKey{A: "alice", B: "bob"}, second.Key)
}

func Test_FindOrCreate_Concurrent_First_Messages_Create_One_Conversation(t *testing.T) {
	req := require.New(t)
	repository := NewConversationRepository(openBadger(t), slog.Default(), nil)

	var wg sync.WaitGroup
	results := make(chan domain.Conversation, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, b := domain.UserID("alice"), domain.UserID("bob")
			if i%2 == 0 {
				a, b = b, a
			}
			conversation, err := repository.FindOrCreate(a, b)
			if err == nil {
				results <- conversation
			}
		}(i)
	}
	wg.Wait()
	close(results)

	ids := lo.Uniq(lo.Map(lo.ChannelToSlice(results), func(c domain.Conversation, _ int) string {
		return c.ID.String()
	}))
	req.Len(ids, 1)
	req.Zero(repository.locks.Len())
}

func Test_Find_Does_Not_Create(t *testing.T) {
	req := require.New(t)
	repository := NewConversationRepository(openBadger(t), slog.Default(), nil)

	_, found, err := repository.Find("alice", "bob")
	req.NoError(err)
	req.False(found)

	created, err := repository.FindOrCreate("alice", "bob")
	req.NoError(err)

	found1, found, err := repository.Find("bob", "alice")
	req.NoError(err)
	req.True(found)
	req.Equal(created.ID, found1.ID)
}

func Test_Append_Keeps_Order_And_Payload(t *testing.T) {
	req := require.New(t)
	repository := NewConversationRepository(openBadger(t), slog.Default(), nil)
	conversation, err := repository.FindOrCreate("alice", "bob")
	req.NoError(err)

	at := time.Now().UTC()
	text := domain.NewTextMessage("alice", "bob", "hello", at)
	file := domain.NewFileMessage("bob", "alice", domain.Attachment{
		Name: "cat.png",
		Type: "image/png",
		Data: []byte{0x89, 0x50, 0x4e, 0x47},
	}, at.Add(-time.Minute)) // an older clock must not reorder appends

	req.NoError(repository.Append(conversation, text))
	req.NoError(repository.Append(conversation, file))

	// When fetching messages
	messages, cursor, err := repository.GetMessages(conversation.Key, nil)
	req.NoError(err)
	req.Nil(cursor)

	// Then they come back newest append first, untouched
	req.Len(messages, 2)
	req.Equal(file.ID, messages[0].ID)
	req.True(messages[0].IsFile())
	req.Equal(file.File.Data, messages[0].File.Data)
	req.Equal("image/png", messages[0].File.Type)
	req.False(messages[0].Seen)
	req.Equal(text.ID, messages[1].ID)
	req.Equal("hello", messages[1].Text)
	req.Equal(at.UnixNano(), messages[1].Timestamp.UnixNano())
}

func Test_Append_Rejects_Message_Of_Another_Pair(t *testing.T) {
	req := require.New(t)
	repository := NewConversationRepository(openBadger(t), slog.Default(), nil)
	conversation, err := repository.FindOrCreate("alice", "bob")
	req.NoError(err)

	err = repository.Append(conversation, domain.NewTextMessage("alice", "clara", "hi", time.Now()))
	req.ErrorIs(err, chaterrors.ErrValidation)
}

func Test_Append_Fails_When_Database_Closed(t *testing.T) {
	req := require.New(t)
	db := openBadger(t)
	repository := NewConversationRepository(db, slog.Default(), nil)
	conversation, err := repository.FindOrCreate("alice", "bob")
	req.NoError(err)
	req.NoError(db.Close())

	err = repository.Append(conversation, domain.NewTextMessage("alice", "bob", "hi", time.Now()))
	req.ErrorIs(err, chaterrors.ErrPersistence)
}

func Test_MarkSeen_Only_Flips_Unseen_Messages_Of_Sender(t *testing.T) {
	req := require.New(t)
	repository := NewConversationRepository(openBadger(t), slog.Default(), nil)
	conversation, err := repository.FindOrCreate("alice", "bob")
	req.NoError(err)

	at := time.Now().UTC()
	fromAlice1 := domain.NewTextMessage("alice", "bob", "one", at)
	fromBob := domain.NewTextMessage("bob", "alice", "two", at.Add(time.Second))
	fromAlice2 := domain.NewTextMessage("alice", "bob", "three", at.Add(2*time.Second))
	for _, m := range []domain.Message{fromAlice1, fromBob, fromAlice2} {
		req.NoError(repository.Append(conversation, m))
	}

	// When bob reads alice's messages
	updated, err := repository.MarkSeen(conversation, "alice", "bob")
	req.NoError(err)
	req.Equal(2, updated)

	// Then only alice's messages are seen
	messages, _, err := repository.GetMessages(conversation.Key, nil)
	req.NoError(err)
	seen := lo.SliceToMap(messages, func(m domain.Message) (string, bool) {
		return m.Text, m.Seen
	})
	req.Equal(map[string]bool{"one": true, "two": false, "three": true}, seen)

	// And marking again changes nothing
	updated, err = repository.MarkSeen(conversation, "alice", "bob")
	req.NoError(err)
	req.Zero(updated)
	again, _, err := repository.GetMessages(conversation.Key, nil)
	req.NoError(err)
	req.Equal(messages, again)
}

func Test_GetMessages_Pagination(t *testing.T) {
	req := require.New(t)
	limit := 2
	repository := NewConversationRepository(openBadger(t), slog.Default(), &limit)
	conversation, err := repository.FindOrCreate("alice", "bob")
	req.NoError(err)

	at := time.Now().UTC()
	for i := 0; i < 5; i++ {
		m := domain.NewTextMessage("alice", "bob", fmt.Sprintf("message %d", i), at.Add(time.Duration(i)*time.Second))
		req.NoError(repository.Append(conversation, m))
	}

	var texts []string
	var cursor *string
	for page := 0; page < 10; page++ {
		messages, next, err := repository.GetMessages(conversation.Key, cursor)
		req.NoError(err)
		req.LessOrEqual(len(messages), limit)
		for _, m := range messages {
			texts = append(texts, m.Text)
		}
		if next == nil {
			break
		}
		cursor = next
	}

	req.Equal([]string{"message 4", "message 3", "message 2", "message 1", "message 0"}, texts)
}

func Test_GetMessages_Invalid_Cursor(t *testing.T) {
	req := require.New(t)
	repository := NewConversationRepository(openBadger(t), slog.Default(), nil)

	_, _, err := repository.GetMessages(domain.NewConversationKey("alice", "bob"), lo.ToPtr("not-a-cursor"))
	req.ErrorIs(err, chaterrors.ErrValidation)
}

func Test_Pair_Keys_Do_Not_Collide(t *testing.T) {
	req := require.New(t)
	repository := NewConversationRepository(openBadger(t), slog.Default(), nil)

	// "a:b" + "c" and "a" + "b:c" must stay different conversations
	first, err := repository.FindOrCreate("a:b", "c")
	req.NoError(err)
	second, err := repository.FindOrCreate("a", "b:c")
	req.NoError(err)
	req.NotEqual(first.ID, second.ID)

	req.NoError(repository.Append(first, domain.NewTextMessage("a:b", "c", "first", time.Now())))
	messages, _, err := repository.GetMessages(second.Key, nil)
	req.NoError(err)
	req.Empty(messages)
}

func Test_MarkSeen_Many_Large_Files(t *testing.T) {
	req := require.New(t)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	t.Cleanup(func() { _ = db.Close() })
	repository := NewConversationRepository(db, slog.Default(), nil)
	conversation, err := repository.FindOrCreate("alice", "bob")
	req.NoError(err)

	// Given more unseen file bytes than a single badger transaction accepts
	at := time.Now().UTC()
	for i := 0; i < 12; i++ {
		file := domain.NewFileMessage("alice", "bob", domain.Attachment{
			Name: fmt.Sprintf("scan-%d.bin", i),
			Type: "application/octet-stream",
			Data: make([]byte, 900<<10),
		}, at.Add(time.Duration(i)*time.Second))
		req.NoError(repository.Append(conversation, file))
	}

	// When bob reads them
	updated, err := repository.MarkSeen(conversation, "alice", "bob")
	req.NoError(err)
	req.Equal(12, updated)

	// Then every file is seen and nothing is left to flip
	messages, _, err := repository.GetMessages(conversation.Key, nil)
	req.NoError(err)
	req.Len(messages, 12)
	for _, m := range messages {
		req.True(m.Seen, m.File.Name)
		req.Len(m.File.Data, 900<<10)
	}
	updated, err = repository.MarkSeen(conversation, "alice", "bob")
	req.NoError(err)
	req.Zero(updated)
}

func Test_MarkSeen_Does_Not_Cover_Later_Messages(t *testing.T) {
	req := require.New(t)
	repository := NewConversationRepository(openBadger(t), slog.Default(), nil)
	conversation, err := repository.FindOrCreate("alice", "bob")
	req.NoError(err)

	at := time.Now().UTC()
	req.NoError(repository.Append(conversation, domain.NewTextMessage("alice", "bob", "before", at)))
	updated, err := repository.MarkSeen(conversation, "alice", "bob")
	req.NoError(err)
	req.Equal(1, updated)

	// When alice writes again after the receipt
	req.NoError(repository.Append(conversation, domain.NewTextMessage("alice", "bob", "after", at.Add(time.Second))))

	// Then only the new message is unseen
	messages, _, err := repository.GetMessages(conversation.Key, nil)
	req.NoError(err)
	seen := lo.SliceToMap(messages, func(m domain.Message) (string, bool) {
		return m.Text, m.Seen
	})
	req.Equal(map[string]bool{"before": true, "after": false}, seen)

	updated, err = repository.MarkSeen(conversation, "alice", "bob")
	req.NoError(err)
	req.Equal(1, updated)
}

func Test_MarkSeen_Rejects_Outsiders(t *testing.T) {
	req := require.New(t)
	repository := NewConversationRepository(openBadger(t), slog.Default(), nil)
	conversation, err := repository.FindOrCreate("alice", "bob")
	req.NoError(err)

	_, err = repository.MarkSeen(conversation, "alice", "clara")
	req.ErrorIs(err, chaterrors.ErrValidation)
}

func Test_Append_And_MarkSeen_Concurrently(t *testing.T) {
	req := require.New(t)
	db := openBadger(t)
	repository := NewConversationRepository(db, slog.Default(), nil)
	conversation, err := repository.FindOrCreate("alice", "bob")
	req.NoError(err)

	const messages = 40
	var flipped atomic.Int64
	var wg sync.WaitGroup
	at := time.Now().UTC()
	for i := 0; i < messages; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m := domain.NewTextMessage("alice", "bob", fmt.Sprintf("message %d", i), at.Add(time.Duration(i)*time.Millisecond))
			if err := repository.Append(conversation, m); err != nil {
				t.Errorf("append %d: %v", i, err)
			}
		}(i)
	}
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			updated, err := repository.MarkSeen(conversation, "alice", "bob")
			if err != nil {
				t.Errorf("mark seen: %v", err)
				return
			}
			flipped.Add(int64(updated))
		}()
	}
	wg.Wait()

	// When a last receipt is stored
	updated, err := repository.MarkSeen(conversation, "alice", "bob")
	req.NoError(err)
	flipped.Add(int64(updated))

	// Then every message was flipped exactly once
	req.Equal(int64(messages), flipped.Load())

	// And the sequence numbers are contiguous
	var sequences []uint64
	req.NoError(db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := messagePrefix(conversation.Key)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			disk, err := decodeMessage(it.Item())
			if err != nil {
				return err
			}
			sequences = append(sequences, disk.Seq)
		}
		return nil
	}))
	req.Equal(lo.Map(lo.Range(messages), func(i int, _ int) uint64 { return uint64(i + 1) }), sequences)

	// And every stored message is seen
	stored, cursor, err := repository.GetMessages(conversation.Key, nil)
	req.NoError(err)
	req.Nil(cursor)
	req.Len(stored, messages)
	req.True(lo.EveryBy(stored, func(m domain.Message) bool { return m.Seen }))
	req.Zero(repository.locks.Len())
}

func Test_GetMessages_Default_Page_Size(t *testing.T) {
	req := require.New(t)
	repository := NewConversationRepository(openBadger(t), slog.Default(), nil)
	conversation, err := repository.FindOrCreate("alice", "bob")
	req.NoError(err)

	at := time.Now().UTC()
	for i := 0; i < DefaultLimitMessages+5; i++ {
		req.NoError(repository.Append(conversation, domain.NewTextMessage("alice", "bob", fmt.Sprintf("message %d", i), at)))
	}

	// When no limit is configured, pages are still bounded
	messages, cursor, err := repository.GetMessages(conversation.Key, nil)
	req.NoError(err)
	req.Len(messages, DefaultLimitMessages)
	req.NotNil(cursor)

	messages, cursor, err = repository.GetMessages(conversation.Key, cursor)
	req.NoError(err)
	req.Len(messages, 5)
	req.Nil(cursor)
}
