// Package search maintains a full-text index over public room history.
package search

import (
	"context"
	"log/slog"

	"chathub/domain"

	"github.com/blugelabs/bluge"
	"github.com/google/uuid"
)

// Index is a Bluge index over public messages, one document per message,
// scoped per room with a keyword field. It runs fully in memory: retained
// search state shares the process lifetime, like the history it mirrors.
type Index struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewInMemory(log *slog.Logger) (*Index, error) {
	writer, err := bluge.OpenWriter(bluge.InMemoryOnlyConfig())
	if err != nil {
		return nil, err
	}
	return &Index{writer: writer, log: log}, nil
}

func (i *Index) Close() error { return i.writer.Close() }

// Add indexes one public message. Private messages never reach the index,
// mirroring their absence from history.
func (i *Index) Add(msg domain.Message) error {
	doc := bluge.NewDocument(msg.ID.String()).
		AddField(bluge.NewTextField("text", msg.Text)).
		AddField(bluge.NewKeywordField("room", msg.Room)).
		AddField(bluge.NewKeywordField("from", msg.From))
	return i.writer.Update(doc.ID(), doc)
}

// Search returns ids of the room's messages matching the query, best score
// first. The caller resolves ids against history, which also filters out
// anything already evicted or tombstoned.
func (i *Index) Search(ctx context.Context, room, query string, limit int) ([]uuid.UUID, error) {
	reader, err := i.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := reader.Close(); err != nil {
			i.log.Warn("Search reader close failed", "error", err)
		}
	}()

	q := bluge.NewBooleanQuery().
		AddMust(bluge.NewMatchQuery(query).SetField("text")).
		AddMust(bluge.NewTermQuery(room).SetField("room"))

	iterator, err := reader.Search(ctx, bluge.NewTopNSearch(limit, q))
	if err != nil {
		return nil, err
	}

	var ids []uuid.UUID
	for {
		match, err := iterator.Next()
		if err != nil {
			return nil, err
		}
		if match == nil {
			break
		}
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			if field == "_id" {
				if id, parseErr := uuid.Parse(string(value)); parseErr == nil {
					ids = append(ids, id)
				}
			}
			return true
		})
		if err != nil {
			return nil, err
		}
	}
	return ids, nil
}
