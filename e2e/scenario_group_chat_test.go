package e2e

import (
	"chat-gateway/domain"
	"chat-gateway/infrastructure/grpc/server"
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"google.golang.org/grpc/health/grpc_health_v1"
)

type testGroupChatSuite struct {
	BaseGatewaySuite
}

func TestGroupChatSuite(t *testing.T) {
	suite.Run(t, &testGroupChatSuite{})
}

func (s *testGroupChatSuite) TestFullGroupChatFlow() {
	// fresh users so reruns against the same store start clean
	run := uuid.NewString()[:8]
	alice := domain.UserID("alice-" + run)
	bob := domain.UserID("bob-" + run)
	carol := domain.UserID("carol-" + run)
	var group domain.Group

	s.Run("Step 0: Gateway reports serving", func() {
		s.WithHealth("Checking gateway health", func(ctx context.Context, client grpc_health_v1.HealthClient) {
			resp, err := client.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: server.ServiceName})
			s.Require().NoError(err)
			s.Require().Equal(grpc_health_v1.HealthCheckResponse_SERVING, resp.GetStatus())
		})
	})

	s.Run("Step 1: Create a private group", func() {
		code := s.PostJSON(alice, "/groups/private", map[string]any{"participant_ids": []domain.UserID{bob}}, &group)
		s.Require().Equal(http.StatusCreated, code)
		s.Require().ElementsMatch([]domain.UserID{alice, bob}, group.Members)
	})

	s.Run("Step 2: Members receive messages in order", func() {
		aliceConn, history := s.Connect("Alice connects", alice)
		s.Require().Empty(history)
		bobConn, _ := s.Connect("Bob connects", bob)

		for i := range 3 {
			s.Require().NoError(aliceConn.Send(group.ID, fmt.Sprintf("message %d", i)))
		}
		for i := range 3 {
			msg, err := bobConn.NextMessage(5 * time.Second)
			s.Require().NoError(err)
			s.Require().Equal(fmt.Sprintf("message %d", i), msg.Text)
			s.Require().Equal(alice, msg.AuthorID)
		}
	})

	s.Run("Step 3: Reconnecting replays history newest first", func() {
		_, history := s.Connect("Bob reconnects", bob)
		s.Require().Len(history, 3)
		s.Require().Equal("message 2", history[0].Text)
		s.Require().Equal("message 0", history[2].Text)
	})

	s.Run("Step 4: Outsiders cannot post", func() {
		carolConn, history := s.Connect("Carol connects", carol)
		s.Require().Empty(history)
		s.Require().NoError(carolConn.Send(group.ID, "let me in"))
		_, err := carolConn.NextMessage(5 * time.Second)
		s.Require().Error(err)
	})
}
