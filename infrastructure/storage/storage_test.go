package storage

import (
	"chat-gateway/domain"
	"log/slog"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestLogger() *slog.Logger {
	return logs.GetLoggerFromLevel(slog.LevelDebug)
}

func newRepositories(t *testing.T) (*GroupRepository, *MessageRepository) {
	t.Helper()
	db := newTestDB(t)
	log := newTestLogger()
	return NewGroupRepository(db, log), NewMessageRepository(db, log, domain.DefaultPageSize)
}
