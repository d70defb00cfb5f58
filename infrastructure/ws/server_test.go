package ws

import (
	"chat-gateway/auth"
	"chat-gateway/domain"
	"chat-gateway/gateway"
	"chat-gateway/infrastructure/storage"
	"chat-gateway/runtime"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/suite"
)

var testSecret = []byte("websocket-suite-secret")

type websocketSuite struct {
	suite.Suite
	db      *badger.DB
	groups  *storage.GroupRepository
	gateway *gateway.Gateway
	issuer  auth.Issuer
	server  *httptest.Server
}

func TestWebsocketSuite(t *testing.T) {
	suite.Run(t, &websocketSuite{})
}

func (s *websocketSuite) SetupTest() {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLoggingLevel(badger.ERROR))
	s.Require().NoError(err)
	s.db = db

	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	s.groups = storage.NewGroupRepository(db, log)
	messages := storage.NewMessageRepository(db, log, domain.DefaultPageSize)
	verifier := auth.NewJWTVerifier(testSecret, auth.DefaultIssuer)
	s.issuer = auth.NewIssuer(testSecret, auth.DefaultIssuer)
	s.gateway = gateway.NewGateway(log, verifier, s.groups, messages, runtime.NewRegistry(), nil, gateway.Config{})
	s.server = httptest.NewServer(NewHandler(log, s.gateway, Config{MaxMessageSize: 1024}))
}

func (s *websocketSuite) TearDownTest() {
	s.gateway.Shutdown()
	s.server.Close()
	s.Require().NoError(s.db.Close())
}

func (s *websocketSuite) token(user domain.UserID) string {
	token, err := s.issuer.Issue(user, "patient", time.Hour)
	s.Require().NoError(err)
	return token
}

func (s *websocketSuite) wsURL() string {
	return "ws" + strings.TrimPrefix(s.server.URL, "http")
}

// dial connects as user and consumes the replay.
func (s *websocketSuite) dial(user domain.UserID) (*websocket.Conn, []domain.Message) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+s.token(user))
	socket, resp, err := websocket.DefaultDialer.Dial(s.wsURL(), header)
	s.Require().NoError(err)
	s.Require().Equal(http.StatusSwitchingProtocols, resp.StatusCode)
	s.T().Cleanup(func() { _ = socket.Close() })

	frame := s.read(socket)
	s.Require().Equal(domain.EventPreviousMessages, frame.Event)
	var previous domain.PreviousMessages
	s.Require().NoError(json.Unmarshal(frame.Data, &previous))
	return socket, previous.Messages
}

func (s *websocketSuite) read(socket *websocket.Conn) gateway.Frame {
	s.Require().NoError(socket.SetReadDeadline(time.Now().Add(2 * time.Second)))
	_, raw, err := socket.ReadMessage()
	s.Require().NoError(err)
	var frame gateway.Frame
	s.Require().NoError(json.Unmarshal(raw, &frame))
	return frame
}

func (s *websocketSuite) send(socket *websocket.Conn, groupID domain.GroupID, text string) {
	frame := fmt.Sprintf(`{"event":"send_message","data":{"text":%q,"group_id":%q}}`, text, groupID)
	s.Require().NoError(socket.WriteMessage(websocket.TextMessage, []byte(frame)))
}

func (s *websocketSuite) TestRejectsMissingAndInvalidCredentials() {
	for name, url := range map[string]string{
		"missing": s.wsURL(),
		"invalid": s.wsURL() + "?token=not-a-jwt",
	} {
		s.Run(name, func() {
			_, resp, err := websocket.DefaultDialer.Dial(url, nil)
			s.Require().ErrorIs(err, websocket.ErrBadHandshake)
			s.Require().Equal(http.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func (s *websocketSuite) TestAcceptsTokenInQueryParameter() {
	socket, _, err := websocket.DefaultDialer.Dial(s.wsURL()+"?token="+s.token("alice"), nil)
	s.Require().NoError(err)
	defer socket.Close()
	s.Require().Equal(domain.EventPreviousMessages, s.read(socket).Event)
}

func (s *websocketSuite) TestMessageReachesEveryMemberInOrder() {
	group, err := s.groups.CreatePrivate(context.Background(), []domain.UserID{"alice", "bob"})
	s.Require().NoError(err)
	alice, _ := s.dial("alice")
	bob, _ := s.dial("bob")

	for _, text := range []string{"one", "two", "three"} {
		s.send(alice, group.ID, text)
	}

	for _, socket := range []*websocket.Conn{alice, bob} {
		for _, text := range []string{"one", "two", "three"} {
			frame := s.read(socket)
			s.Require().Equal(domain.EventNewMessage, frame.Event)
			var payload domain.NewMessage
			s.Require().NoError(json.Unmarshal(frame.Data, &payload))
			s.Require().Equal(text, payload.Message.Text)
			s.Require().Equal(group.ID, payload.Message.GroupID)
			s.Require().Equal(domain.UserID("alice"), payload.Message.AuthorID)
		}
	}
}

func (s *websocketSuite) TestReconnectReplaysHistory() {
	group, err := s.groups.CreatePrivate(context.Background(), []domain.UserID{"alice", "bob"})
	s.Require().NoError(err)
	alice, _ := s.dial("alice")
	s.send(alice, group.ID, "remember me")
	s.Require().Equal(domain.EventNewMessage, s.read(alice).Event)

	_, history := s.dial("bob")
	s.Require().Len(history, 1)
	s.Require().Equal("remember me", history[0].Text)
}

func (s *websocketSuite) TestErrorsGoToTheSenderOnly() {
	group, err := s.groups.CreatePrivate(context.Background(), []domain.UserID{"alice", "bob"})
	s.Require().NoError(err)
	alice, _ := s.dial("alice")
	mallory, _ := s.dial("mallory")

	s.Require().NoError(mallory.WriteMessage(websocket.TextMessage, []byte(`{"event":`)))
	s.send(mallory, group.ID, "let me in")

	for _, code := range []string{"validation_error", "authorization_error"} {
		frame := s.read(mallory)
		s.Require().Equal(domain.EventError, frame.Event)
		var payload domain.ErrorPayload
		s.Require().NoError(json.Unmarshal(frame.Data, &payload))
		s.Require().Equal(code, payload.Code)
	}

	// The connection is still usable and alice heard nothing
	s.Require().NoError(alice.SetReadDeadline(time.Now().Add(100 * time.Millisecond)))
	_, _, err = alice.ReadMessage()
	s.Require().Error(err)
}

func (s *websocketSuite) TestOversizedFrameClosesTheConnection() {
	alice, _ := s.dial("alice")
	s.Require().NoError(alice.WriteMessage(websocket.TextMessage, []byte(strings.Repeat("x", 2048))))

	s.Require().NoError(alice.SetReadDeadline(time.Now().Add(2 * time.Second)))
	_, _, err := alice.ReadMessage()
	s.Require().Error(err)
}

func (s *websocketSuite) TestShutdownSendsGoingAway() {
	alice, _ := s.dial("alice")

	s.gateway.Shutdown()

	s.Require().NoError(alice.SetReadDeadline(time.Now().Add(2 * time.Second)))
	_, _, err := alice.ReadMessage()
	s.Require().True(websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}

func TestOriginPolicy(t *testing.T) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	request := func(host, origin string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "http://"+host+"/ws", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return r
	}

	cases := []struct {
		name    string
		origins []string
		request *http.Request
		allowed bool
	}{
		{"no origin header", []string{"https://app.example"}, request("api.example", ""), true},
		{"configured origin", []string{"https://APP.example/"}, request("api.example", "https://app.example"), true},
		{"unknown origin", []string{"https://app.example"}, request("api.example", "https://evil.example"), false},
		{"wildcard", []string{"*"}, request("api.example", "https://evil.example"), true},
		{"same host by default", nil, request("api.example", "https://api.example"), true},
		{"cross host by default", nil, request("api.example", "https://evil.example"), false},
		{"garbage origin", []string{"https://app.example"}, request("api.example", "::"), false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			policy := newOriginPolicy(log, c.origins)
			if got := policy.check(c.request); got != c.allowed {
				t.Fatalf("check() = %v, want %v", got, c.allowed)
			}
		})
	}
}
