package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"chathub/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// IHistoryRepository is the bounded per-room message store. Ordering is
// chronological; the bound evicts oldest-first.
type IHistoryRepository interface {
	Append(room string, msg domain.Message) error
	Messages(room string) ([]domain.Message, error)
	Find(room string, id uuid.UUID) (domain.Message, bool, error)
	MarkDeleted(room string, id uuid.UUID) (bool, error)
}

// HistoryRepository keeps room history in BadgerDB. The database runs in
// in-memory mode, so retained history shares the process lifetime.
//
// The key is formatted as "msg:{room}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding
//     (lexicographical order).
//  2. Prevent data loss by using UUID as a collision disconnector if two
//     messages arrive at the same nanosecond.
type HistoryRepository struct {
	db    *badger.DB
	log   *slog.Logger
	limit int
}

func NewHistoryRepository(db *badger.DB, log *slog.Logger, limit int) *HistoryRepository {
	return &HistoryRepository{db: db, log: log, limit: limit}
}

// OpenInMemory opens a BadgerDB instance that never touches disk. State is
// lost on restart, which is the intended lifetime of room history.
func OpenInMemory() (*badger.DB, error) {
	options := badger.DefaultOptions("").
		WithInMemory(true).
		WithLoggingLevel(badger.WARNING)
	return badger.Open(options)
}

func historyKey(room string, msg domain.Message) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d:%s", room, msg.At.UnixNano(), msg.ID))
}

func roomPrefix(room string) []byte {
	return []byte(fmt.Sprintf("msg:%s:", room))
}

// Append stores the message, then drops oldest entries while the room holds
// more than the configured limit. Both steps commit in one transaction so a
// reader never observes an over-full room.
func (r *HistoryRepository) Append(room string, msg domain.Message) error {
	value, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(historyKey(room, msg), value); err != nil {
			return err
		}

		prefix := roomPrefix(room)
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		var keys [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		for len(keys) > r.limit {
			if err := txn.Delete(keys[0]); err != nil {
				return err
			}
			r.log.Debug("History bound reached, oldest message evicted", "room", room)
			keys = keys[1:]
		}
		return nil
	})
}

// Messages returns the room's retained history, oldest first. Thanks to the
// padded timestamp in the key, messages are naturally sorted by time.
func (r *HistoryRepository) Messages(room string) ([]domain.Message, error) {
	var messages []domain.Message
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := roomPrefix(room)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				var msg domain.Message
				if err := json.Unmarshal(value, &msg); err != nil {
					return err
				}
				messages = append(messages, msg)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return messages, err
}

// Find looks one message up by id within a room. History is bounded, so a
// suffix scan over at most `limit` keys is cheap.
func (r *HistoryRepository) Find(room string, id uuid.UUID) (domain.Message, bool, error) {
	var found domain.Message
	var ok bool
	err := r.db.View(func(txn *badger.Txn) error {
		key, value, err := r.seek(txn, room, id)
		if err != nil || key == nil {
			return err
		}
		ok = true
		return json.Unmarshal(value, &found)
	})
	return found, ok, err
}

// MarkDeleted flips the tombstone flag on the stored copy. The text is kept
// verbatim; only the flag changes, so history replay and live viewers agree
// on what is deleted.
func (r *HistoryRepository) MarkDeleted(room string, id uuid.UUID) (bool, error) {
	var ok bool
	err := r.db.Update(func(txn *badger.Txn) error {
		key, value, err := r.seek(txn, room, id)
		if err != nil || key == nil {
			return err
		}
		var msg domain.Message
		if err := json.Unmarshal(value, &msg); err != nil {
			return err
		}
		msg.Deleted = true
		updated, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		ok = true
		return txn.Set(key, updated)
	})
	return ok, err
}

// seek scans the room prefix for the key carrying the given message id and
// returns a copy of the key and value, or nils when absent.
func (r *HistoryRepository) seek(txn *badger.Txn, room string, id uuid.UUID) ([]byte, []byte, error) {
	prefix := roomPrefix(room)
	suffix := ":" + id.String()
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		key := it.Item().KeyCopy(nil)
		if hasSuffix(key, suffix) {
			value, err := it.Item().ValueCopy(nil)
			if err != nil {
				return nil, nil, err
			}
			return key, value, nil
		}
	}
	return nil, nil, nil
}

func hasSuffix(key []byte, suffix string) bool {
	if len(key) < len(suffix) {
		return false
	}
	return string(key[len(key)-len(suffix):]) == suffix
}
