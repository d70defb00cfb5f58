package client

import (
	"chat-gateway/auth"
	"chat-gateway/domain"
	"chat-gateway/errors"
	"chat-gateway/gateway"
	"chat-gateway/infrastructure/storage"
	"chat-gateway/infrastructure/ws"
	"chat-gateway/runtime"
	"context"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

var secret = []byte("client-test-secret")

func startGateway(t *testing.T) (string, *storage.GroupRepository, auth.Issuer) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)

	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	groups := storage.NewGroupRepository(db, log)
	messages := storage.NewMessageRepository(db, log, domain.DefaultPageSize)
	gw := gateway.NewGateway(log, auth.NewJWTVerifier(secret, auth.DefaultIssuer),
		groups, messages, runtime.NewRegistry(), nil, gateway.Config{})
	server := httptest.NewServer(ws.NewHandler(log, gw, ws.Config{}))
	t.Cleanup(func() {
		gw.Shutdown()
		server.Close()
		_ = db.Close()
	})
	return "ws" + strings.TrimPrefix(server.URL, "http"), groups, auth.NewIssuer(secret, auth.DefaultIssuer)
}

func dial(t *testing.T, address string, issuer auth.Issuer, user domain.UserID) *Client {
	token, err := issuer.Issue(user, "member", time.Hour)
	require.NoError(t, err)
	c, err := Dial(context.Background(), address, token)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestClient_Exchange(t *testing.T) {
	req := require.New(t)
	address, groups, issuer := startGateway(t)
	group, err := groups.CreatePrivate(context.Background(), []domain.UserID{"alice", "bob"})
	req.NoError(err)

	alice := dial(t, address, issuer, "alice")
	bob := dial(t, address, issuer, "bob")
	for _, c := range []*Client{alice, bob} {
		history, err := c.History(2 * time.Second)
		req.NoError(err)
		req.Empty(history)
	}

	req.NoError(alice.Send(group.ID, "hello bob"))

	for _, c := range []*Client{alice, bob} {
		msg, err := c.NextMessage(2 * time.Second)
		req.NoError(err)
		req.Equal("hello bob", msg.Text)
		req.Equal(domain.UserID("alice"), msg.AuthorID)
		req.Equal(group.ID, msg.GroupID)
	}
}

func TestClient_ErrorFrame(t *testing.T) {
	req := require.New(t)
	address, _, issuer := startGateway(t)

	carol := dial(t, address, issuer, "carol")
	_, err := carol.History(2 * time.Second)
	req.NoError(err)

	req.NoError(carol.Send("not-my-group", "hi"))
	_, err = carol.NextMessage(2 * time.Second)

	var event ErrorEvent
	req.True(errors.As(err, &event))
	req.Equal(errors.CodeAuthorization, event.Code)
}

func TestDial_RejectedCredential(t *testing.T) {
	req := require.New(t)
	address, _, _ := startGateway(t)

	_, err := Dial(context.Background(), address, "not-a-jwt")
	req.Error(err)
	req.Contains(err.Error(), "401")
}
