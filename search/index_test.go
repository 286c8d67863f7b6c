package search

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"chathub/domain"
	"chathub/internal"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newMessage(room, text string) domain.Message {
	return domain.Message{ID: uuid.New(), Room: room, From: "alice", Text: text, At: time.Now().UTC()}
}

func TestIndex_SearchScopedToRoom(t *testing.T) {
	req := require.New(t)
	index, err := NewInMemory(internal.GetLoggerFromLevel(slog.LevelWarn))
	req.NoError(err)
	t.Cleanup(func() { _ = index.Close() })

	fox := newMessage("general", "the quick brown fox")
	other := newMessage("general", "a completely different topic")
	elsewhere := newMessage("random", "another fox somewhere else")
	for _, m := range []domain.Message{fox, other, elsewhere} {
		req.NoError(index.Add(m))
	}

	// A match stays inside the requested room
	ids, err := index.Search(context.Background(), "general", "fox", 10)
	req.NoError(err)
	req.Equal([]uuid.UUID{fox.ID}, ids)

	// The same query in the other room finds the other message
	ids, err = index.Search(context.Background(), "random", "fox", 10)
	req.NoError(err)
	req.Equal([]uuid.UUID{elsewhere.ID}, ids)

	// No hits is an empty result, not an error
	ids, err = index.Search(context.Background(), "general", "zebra", 10)
	req.NoError(err)
	req.Empty(ids)
}

func TestIndex_LimitCapsResults(t *testing.T) {
	req := require.New(t)
	index, err := NewInMemory(internal.GetLoggerFromLevel(slog.LevelWarn))
	req.NoError(err)
	t.Cleanup(func() { _ = index.Close() })

	for i := 0; i < 5; i++ {
		req.NoError(index.Add(newMessage("general", "repeated subject line")))
	}

	ids, err := index.Search(context.Background(), "general", "subject", 3)
	req.NoError(err)
	req.Len(ids, 3)
}
