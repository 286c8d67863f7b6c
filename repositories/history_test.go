package repositories

import (
	"fmt"
	"log/slog"
	"testing"
	"time"

	"chathub/domain"
	"chathub/internal"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T, limit int) *HistoryRepository {
	t.Helper()
	db, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewHistoryRepository(db, internal.GetLoggerFromLevel(slog.LevelWarn), limit)
}

func newMessage(room, from, text string, at time.Time) domain.Message {
	return domain.Message{ID: uuid.New(), Room: room, From: from, Text: text, At: at}
}

func TestHistoryRepository_ChronologicalOrder(t *testing.T) {
	req := require.New(t)
	repo := newTestRepository(t, 100)
	base := time.Now().UTC()

	// Given three messages appended out of insertion order
	m1 := newMessage("general", "alice", "first", base)
	m2 := newMessage("general", "bob", "second", base.Add(time.Second))
	m3 := newMessage("general", "alice", "third", base.Add(2*time.Second))
	for _, m := range []domain.Message{m2, m1, m3} {
		req.NoError(repo.Append("general", m))
	}

	// Then the replay comes back oldest first
	messages, err := repo.Messages("general")
	req.NoError(err)
	req.Len(messages, 3)
	req.Equal("first", messages[0].Text)
	req.Equal("second", messages[1].Text)
	req.Equal("third", messages[2].Text)
}

func TestHistoryRepository_BoundEvictsOldest(t *testing.T) {
	req := require.New(t)
	limit := 5
	repo := newTestRepository(t, limit)
	base := time.Now().UTC()

	// Given more messages than the bound
	for i := 0; i < limit+3; i++ {
		m := newMessage("general", "alice", fmt.Sprintf("msg-%d", i), base.Add(time.Duration(i)*time.Millisecond))
		req.NoError(repo.Append("general", m))
	}

	// Then only the newest `limit` remain, oldest evicted first
	messages, err := repo.Messages("general")
	req.NoError(err)
	req.Len(messages, limit)
	req.Equal("msg-3", messages[0].Text)
	req.Equal(fmt.Sprintf("msg-%d", limit+2), messages[limit-1].Text)
}

func TestHistoryRepository_RoomsAreIsolated(t *testing.T) {
	req := require.New(t)
	repo := newTestRepository(t, 100)
	now := time.Now().UTC()

	req.NoError(repo.Append("general", newMessage("general", "alice", "here", now)))
	req.NoError(repo.Append("random", newMessage("random", "bob", "there", now)))

	messages, err := repo.Messages("general")
	req.NoError(err)
	req.Len(messages, 1)
	req.Equal("here", messages[0].Text)
}

func TestHistoryRepository_FindAndMarkDeleted(t *testing.T) {
	req := require.New(t)
	repo := newTestRepository(t, 100)
	msg := newMessage("general", "alice", "delete me", time.Now().UTC())
	req.NoError(repo.Append("general", msg))

	// Given the message is findable
	found, ok, err := repo.Find("general", msg.ID)
	req.NoError(err)
	req.True(ok)
	req.Equal("delete me", found.Text)
	req.False(found.Deleted)

	// When it is tombstoned
	ok, err = repo.MarkDeleted("general", msg.ID)
	req.NoError(err)
	req.True(ok)

	// Then the stored copy keeps its text but carries the flag
	found, ok, err = repo.Find("general", msg.ID)
	req.NoError(err)
	req.True(ok)
	req.True(found.Deleted)
	req.Equal("delete me", found.Text)

	// And an unknown id reports absence, not an error
	ok, err = repo.MarkDeleted("general", uuid.New())
	req.NoError(err)
	req.False(ok)
	_, ok, err = repo.Find("general", uuid.New())
	req.NoError(err)
	req.False(ok)
}
