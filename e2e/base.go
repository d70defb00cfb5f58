package e2e

import (
	"bytes"
	"chat-gateway/auth"
	"chat-gateway/client"
	"chat-gateway/domain"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gookit/color"
	"github.com/stretchr/testify/suite"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

type BaseGatewaySuite struct {
	suite.Suite
	Config Config
	issuer auth.Issuer
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseGatewaySuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.GatewayAddr == "" || s.Config.JWTSecret == "" {
		s.T().Skip("E2E_GATEWAY_ADDR and E2E_JWT_SECRET are required for end-to-end tests")
	}
	s.issuer = auth.NewIssuer([]byte(s.Config.JWTSecret), s.Config.JWTIssuer)
}

func (s *BaseGatewaySuite) step(t *testing.T, name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	t.Log(header)
}

func (s *BaseGatewaySuite) Token(user domain.UserID) string {
	token, err := s.issuer.Issue(user, "e2e", 10*time.Minute)
	s.Require().NoError(err)
	return token
}

// Connect opens a websocket as user and returns the replayed history.
func (s *BaseGatewaySuite) Connect(name string, user domain.UserID) (*client.Client, []domain.Message) {
	s.step(s.T(), name)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c, err := client.Dial(ctx, "ws://"+s.Config.GatewayAddr+"/ws", s.Token(user))
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = c.Close() })

	history, err := c.History(10 * time.Second)
	s.Require().NoError(err)
	return c, history
}

// PostJSON calls an authenticated route of the gateway and decodes the answer into out.
func (s *BaseGatewaySuite) PostJSON(user domain.UserID, path string, body, out any) int {
	payload, err := json.Marshal(body)
	s.Require().NoError(err)

	request, err := http.NewRequest(http.MethodPost, "http://"+s.Config.GatewayAddr+path, bytes.NewReader(payload))
	s.Require().NoError(err)
	request.Header.Set("Authorization", "Bearer "+s.Token(user))
	request.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(request)
	s.Require().NoError(err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		s.Require().NoError(json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

// GrpcConn initializes a gRPC connection with logging, colors, and JSON debugging
func (s *BaseGatewaySuite) GrpcConn(t *testing.T, name string, addr string) *grpc.ClientConn {
	s.step(t, name)

	marshaler := protojson.MarshalOptions{
		UseProtoNames:   true,
		Multiline:       true,
		EmitUnpopulated: true,
	}

	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
			start := time.Now()
			err := invoker(ctx, method, req, reply, cc, opts...)

			logBuilder := strings.Builder{}
			fmt.Fprintf(&logBuilder, "GRPC %s [%s] in %v", method, status.Code(err), time.Since(start))
			if s.Config.DebugJSON {
				fmt.Fprintln(&logBuilder, "\nREQUEST:")
				fmt.Fprintln(&logBuilder, marshaler.Format(req.(proto.Message)))
				if err != nil {
					fmt.Fprintln(&logBuilder, "ERROR:", err)
				} else {
					fmt.Fprintln(&logBuilder, "RESPONSE:")
					fmt.Fprintln(&logBuilder, marshaler.Format(reply.(proto.Message)))
				}
			}
			t.Log(logBuilder.String())
			return err
		}),
	)
	s.Require().NoError(err, "Failed to connect to gRPC server at "+addr)
	return conn
}

// WithHealth provides a health client within a contextual test step
func (s *BaseGatewaySuite) WithHealth(name string, fn func(ctx context.Context, client grpc_health_v1.HealthClient)) {
	if s.Config.HealthAddr == "" {
		s.T().Skip("E2E_HEALTH_ADDR is not set")
	}
	conn := s.GrpcConn(s.T(), name, s.Config.HealthAddr)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	fn(ctx, grpc_health_v1.NewHealthClient(conn))
}
