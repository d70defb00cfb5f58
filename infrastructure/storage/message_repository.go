package storage

import (
	"chat-gateway/domain"
	"chat-gateway/errors"
	"chat-gateway/internal/keylock"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// MessageRepository is the append-only message log of every group.
type MessageRepository struct {
	db       *badger.DB
	log      *slog.Logger
	locks    *keylock.Striped
	pageSize int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, pageSize int) *MessageRepository {
	if pageSize <= 0 {
		pageSize = domain.DefaultPageSize
	}
	return &MessageRepository{db: db, log: log, locks: keylock.New(keylock.DefaultStripes), pageSize: pageSize}
}

// WithLockStripes resizes the per-group append locks. Call it before use.
func (m *MessageRepository) WithLockStripes(stripes int) *MessageRepository {
	m.locks = keylock.New(stripes)
	return m
}

// Append persists a message at the end of its group's log.
// Appends to one group are serialized; the message gets seq = previous count + 1
// and a timestamp never older than the previous message, so that the key order
// (timestamp, seq) is always the append order even if the clock steps back.
// The message and the group head are written in the same transaction.
func (m *MessageRepository) Append(ctx context.Context, groupID domain.GroupID, authorID domain.UserID,
	text string, at time.Time) (domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return domain.Message{}, err
	}
	unlock := m.locks.Lock(string(groupID))
	defer unlock()

	var message domain.Message
	err := m.db.Update(func(txn *badger.Txn) error {
		if err := ensureGroup(txn, groupID); err != nil {
			return err
		}
		h, err := readHead(txn, groupID)
		if err != nil {
			return err
		}

		createdAt := at.UnixNano()
		if createdAt < h.LastAt {
			createdAt = h.LastAt
		}
		message = domain.Message{
			ID:        uuid.New(),
			GroupID:   groupID,
			AuthorID:  authorID,
			Text:      text,
			CreatedAt: time.Unix(0, createdAt).UTC(),
			Seq:       h.Count + 1,
		}
		if err := txn.Set(messageKey(message), EncodeMessage(message)); err != nil {
			return err
		}
		return txn.Set(headKey(groupID), encodeHead(head{Count: message.Seq, LastAt: createdAt}))
	})
	if err != nil {
		return domain.Message{}, wrapStorageError(groupID, err)
	}
	return message, nil
}

// Page returns one page of the group's history, newest first.
// Count and items are read in the same read transaction, so a page never mixes
// two states of the log.
func (m *MessageRepository) Page(ctx context.Context, groupID domain.GroupID, page, limit int) (domain.MessagePage, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = m.pageSize
	}
	if page > domain.MaxPage(limit) {
		return domain.MessagePage{}, fmt.Errorf("%w: page %d is out of range", errors.ErrValidation, page)
	}

	var docs []domain.Message
	var total int
	err := m.db.View(func(txn *badger.Txn) error {
		if err := ensureGroup(txn, groupID); err != nil {
			return err
		}
		h, err := readHead(txn, groupID)
		if err != nil {
			return err
		}
		total = int(h.Count)
		if page-1 > total/limit {
			return nil
		}
		docs, err = scanNewestFirst(ctx, txn, groupID, (page-1)*limit, limit)
		return err
	})
	if err != nil {
		return domain.MessagePage{}, wrapStorageError(groupID, err)
	}
	return domain.NewMessagePage(docs, total, page, limit), nil
}

// Recent returns up to limit of the latest messages of the group, newest first.
func (m *MessageRepository) Recent(ctx context.Context, groupID domain.GroupID, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = m.pageSize
	}
	var messages []domain.Message
	err := m.db.View(func(txn *badger.Txn) error {
		if err := ensureGroup(txn, groupID); err != nil {
			return err
		}
		var err error
		messages, err = scanNewestFirst(ctx, txn, groupID, 0, limit)
		return err
	})
	if err != nil {
		return nil, wrapStorageError(groupID, err)
	}
	return messages, nil
}

// scanNewestFirst walks the group's keys backwards, skipping the first skip
// entries without reading their values.
func scanNewestFirst(ctx context.Context, txn *badger.Txn, groupID domain.GroupID, skip, limit int) ([]domain.Message, error) {
	prefix := MessagePrefix(groupID)
	options := badger.DefaultIteratorOptions
	options.Reverse = true
	options.Prefix = prefix
	options.PrefetchValues = false
	it := txn.NewIterator(options)
	defer it.Close()

	messages := make([]domain.Message, 0, limit)
	for it.Seek(lastKeyFor(groupID)); it.ValidForPrefix(prefix) && len(messages) < limit; it.Next() {
		if skip > 0 {
			skip--
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var message domain.Message
		err := it.Item().Value(func(val []byte) error {
			var err error
			message, err = DecodeMessage(val)
			return err
		})
		if err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}
	return messages, nil
}

func ensureGroup(txn *badger.Txn, groupID domain.GroupID) error {
	_, err := txn.Get(groupKey(groupID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return errors.ErrUnknownGroup
	}
	return err
}

func readHead(txn *badger.Txn, groupID domain.GroupID) (head, error) {
	item, err := txn.Get(headKey(groupID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return head{}, nil
	}
	if err != nil {
		return head{}, err
	}
	var h head
	err = item.Value(func(val []byte) error {
		h, err = decodeHead(val)
		return err
	})
	return h, err
}

func wrapStorageError(groupID domain.GroupID, err error) error {
	switch {
	case errors.Is(err, errors.ErrUnknownGroup):
		return fmt.Errorf("%w: %s", errors.ErrUnknownGroup, groupID)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
}
