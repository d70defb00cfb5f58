package gateway

import (
	"chat-gateway/contract"
	"chat-gateway/domain"
	"chat-gateway/errors"
	"chat-gateway/internal/keylock"
	"chat-gateway/metrics"
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

const (
	DefaultAuthTimeout   = 5 * time.Second
	DefaultReplayLimit   = 50
	DefaultBufferSize    = 256
	DefaultMaxTextLength = 4096
)

type Config struct {
	AuthTimeout   time.Duration
	ReplayLimit   int
	BufferSize    int
	MaxTextLength int
	// LockStripes sizes the per-group send locks. Groups sharing a stripe
	// serialize their sends.
	LockStripes   int
}

func (c Config) withDefaults() Config {
	if c.AuthTimeout <= 0 {
		c.AuthTimeout = DefaultAuthTimeout
	}
	if c.ReplayLimit <= 0 {
		c.ReplayLimit = DefaultReplayLimit
	}
	if c.BufferSize <= 0 {
		c.BufferSize = DefaultBufferSize
	}
	if c.MaxTextLength <= 0 {
		c.MaxTextLength = DefaultMaxTextLength
	}
	if c.LockStripes <= 0 {
		c.LockStripes = keylock.DefaultStripes
	}
	return c
}

// Gateway owns every live connection: it authenticates them, subscribes them
// to their groups, replays history and routes what they send.
type Gateway struct {
	log       *slog.Logger
	verifier  contract.Verifier
	directory contract.GroupDirectory
	store     contract.MessageStore
	registry  contract.IRegistry
	censor    contract.Censor
	config    Config
	validate  *validator.Validate
	locks     *keylock.Striped
	now       func() time.Time

	connections sync.Map // connection id -> *Connection
	closing     atomic.Bool
}

// NewGateway builds a gateway. censor may be nil to store texts untouched.
func NewGateway(
	log *slog.Logger,
	verifier contract.Verifier,
	directory contract.GroupDirectory,
	store contract.MessageStore,
	registry contract.IRegistry,
	censor contract.Censor,
	config Config,
) *Gateway {
	config = config.withDefaults()
	return &Gateway{
		log:       log,
		verifier:  verifier,
		directory: directory,
		store:     store,
		registry:  registry,
		censor:    censor,
		config:    config,
		validate:  validator.New(),
		locks:     keylock.New(config.LockStripes),
		now:       time.Now,
	}
}

// Connect authenticates the credential and subscribes the caller to every
// group they belong to. Either all groups are joined or none.
func (g *Gateway) Connect(ctx context.Context, credential string) (*Connection, error) {
	if g.closing.Load() {
		return nil, errors.ErrShuttingDown
	}

	identity, err := g.authenticate(ctx, credential)
	if err != nil {
		metrics.AuthenticationFailures.Inc()
		g.log.Debug("Connection rejected", "error", err)
		return nil, err
	}
	conn := newConnection(g, identity, g.config.BufferSize)
	conn.moveTo(domain.Authenticated)

	groups, err := g.authorizedGroups(ctx, identity.UserID)
	if err != nil {
		conn.close(err)
		return nil, err
	}
	conn.groups = groups

	for _, groupID := range groups {
		g.registry.Join(groupID, conn)
	}
	conn.moveTo(domain.Joined)
	g.connections.Store(conn.id, conn)
	metrics.ActiveConnections.Inc()

	if g.closing.Load() {
		g.Disconnect(conn, errors.ErrShuttingDown)
		return nil, errors.ErrShuttingDown
	}
	g.log.Info("Connection joined", "conn_id", conn.id, "user_id", identity.UserID, "groups", len(groups))
	return conn, nil
}

// authenticate runs the verifier within the auth timeout.
func (g *Gateway) authenticate(ctx context.Context, credential string) (domain.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, g.config.AuthTimeout)
	defer cancel()

	type result struct {
		identity domain.Identity
		err      error
	}
	done := make(chan result, 1)
	go func() {
		identity, err := g.verifier.Verify(ctx, credential)
		done <- result{identity: identity, err: err}
	}()

	select {
	case <-ctx.Done():
		return domain.Identity{}, fmt.Errorf("%w: verification did not complete: %v", errors.ErrAuthentication, ctx.Err())
	case r := <-done:
		if r.err != nil {
			if errors.Is(r.err, errors.ErrAuthentication) {
				return domain.Identity{}, r.err
			}
			return domain.Identity{}, fmt.Errorf("%w: %v", errors.ErrAuthentication, r.err)
		}
		if r.identity.UserID == "" {
			return domain.Identity{}, fmt.Errorf("%w: credential carries no user", errors.ErrAuthentication)
		}
		if r.identity.ExpiredAt(g.now()) {
			return domain.Identity{}, fmt.Errorf("%w: credential expired", errors.ErrAuthentication)
		}
		return r.identity, nil
	}
}

// authorizedGroups lists the user's groups and confirms each membership.
// A listed group the user is not a member of means the directory is stale,
// and the whole connection is refused.
func (g *Gateway) authorizedGroups(ctx context.Context, userID domain.UserID) ([]domain.GroupID, error) {
	groups, err := g.directory.ListGroupIDsForUser(ctx, userID)
	if err != nil {
		return nil, storageError(err)
	}
	for _, groupID := range groups {
		member, err := g.directory.IsMember(ctx, userID, groupID)
		if err != nil {
			return nil, storageError(err)
		}
		if !member {
			g.log.Warn("Stale group directory, refusing connection", "user_id", userID, "group_id", groupID)
			return nil, fmt.Errorf("%w: %s", errors.ErrAuthorization, groupID)
		}
	}
	return groups, nil
}

// Replay sends the recent history of every joined group to conn, once.
// Groups whose history cannot be read are reported with an error event and
// the others are still replayed. Nothing is sent if conn closes meanwhile.
func (g *Gateway) Replay(conn *Connection) {
	start := time.Now()
	ctx := conn.Context()

	var messages []domain.Message
	for _, groupID := range conn.groups {
		recent, err := g.store.Recent(ctx, groupID, g.config.ReplayLimit)
		if ctx.Err() != nil {
			g.log.Debug("Replay abandoned", "conn_id", conn.id)
			return
		}
		if err != nil {
			g.log.Error("Replay failed for group", "conn_id", conn.id, "group_id", groupID, "error", err)
			g.deliverError(conn, storageError(err), groupID)
			continue
		}
		messages = append(messages, recent...)
	}
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].NewerThan(messages[j])
	})

	if !conn.completeReplay(messages) {
		if conn.State() != domain.Closed {
			g.evict(conn, errors.ErrSlowConsumer)
		}
		return
	}
	metrics.ReplayDuration.Observe(time.Since(start).Seconds())
	g.log.Debug("Replay delivered", "conn_id", conn.id, "messages", len(messages))
}

// Send validates, persists and broadcasts one message. Failures are reported
// to the sender only, as an error event, and are also returned.
func (g *Gateway) Send(ctx context.Context, conn *Connection, payload domain.SendMessage) (domain.Message, error) {
	if conn.State() != domain.Joined {
		return domain.Message{}, errors.ErrConnectionClosed
	}
	message, err := g.send(ctx, conn, payload)
	if err != nil {
		metrics.MessagesRejected.WithLabelValues(errors.Code(err)).Inc()
		g.log.Debug("Message rejected", "conn_id", conn.id, "group_id", payload.GroupID, "error", err)
		g.deliverError(conn, err, payload.GroupID)
		return domain.Message{}, err
	}
	return message, nil
}

func (g *Gateway) send(ctx context.Context, conn *Connection, payload domain.SendMessage) (domain.Message, error) {
	payload.Text = strings.TrimSpace(payload.Text)
	if err := g.validate.Struct(payload); err != nil {
		return domain.Message{}, fmt.Errorf("%w: text and group_id are required", errors.ErrValidation)
	}
	if length := utf8.RuneCountInString(payload.Text); length > g.config.MaxTextLength {
		return domain.Message{}, fmt.Errorf("%w: text is %d characters long, at most %d allowed",
			errors.ErrValidation, length, g.config.MaxTextLength)
	}

	member, err := g.directory.IsMember(ctx, conn.UserID(), payload.GroupID)
	if err != nil {
		return domain.Message{}, storageError(err)
	}
	if !member {
		return domain.Message{}, fmt.Errorf("%w: %s", errors.ErrAuthorization, payload.GroupID)
	}

	text := payload.Text
	if g.censor != nil {
		text = g.censor.Censor(text)
	}

	// Persist and broadcast under the group's lock: broadcast order is persisted order.
	unlock := g.locks.Lock(string(payload.GroupID))
	defer unlock()

	message, err := g.store.Append(ctx, payload.GroupID, conn.UserID(), text, g.now())
	if err != nil {
		if errors.Is(err, errors.ErrUnknownGroup) {
			return domain.Message{}, err
		}
		return domain.Message{}, storageError(err)
	}
	metrics.MessagesPersisted.Inc()

	delivered := g.registry.Broadcast(payload.GroupID, domain.Event{
		Name:    domain.EventNewMessage,
		Payload: domain.NewMessage{Message: message},
	})
	metrics.Broadcasts.Add(float64(delivered))
	return message, nil
}

// Handle processes one inbound frame. Only an authentication error is fatal:
// the connection is closed before it is returned.
func (g *Gateway) Handle(conn *Connection, raw []byte) error {
	if conn.State() != domain.Joined {
		return errors.ErrConnectionClosed
	}
	if conn.identity.ExpiredAt(g.now()) {
		err := fmt.Errorf("%w: credential expired", errors.ErrAuthentication)
		metrics.AuthenticationFailures.Inc()
		g.deliverError(conn, err, "")
		g.Disconnect(conn, err)
		return err
	}

	frame, err := DecodeFrame(raw)
	if err != nil {
		g.deliverError(conn, err, "")
		return err
	}

	switch frame.Event {
	case domain.EventSendMessage:
		payload, err := decodeSendMessage(frame.Data)
		if err != nil {
			g.deliverError(conn, err, "")
			return err
		}
		_, err = g.Send(conn.Context(), conn, payload)
		return err
	default:
		err := fmt.Errorf("%w: unknown event %q", errors.ErrValidation, frame.Event)
		g.deliverError(conn, err, "")
		return err
	}
}

// Disconnect is the only teardown path. It is safe to call more than once.
func (g *Gateway) Disconnect(conn *Connection, reason error) {
	previous, closed := conn.close(reason)
	if !closed {
		return
	}
	for _, groupID := range conn.groups {
		g.registry.Leave(groupID, conn)
	}
	if previous == domain.Joined {
		g.connections.Delete(conn.id)
		metrics.ActiveConnections.Dec()
	}
	g.log.Info("Connection closed", "conn_id", conn.id, "user_id", conn.UserID(), "reason", reason)
}

// Shutdown refuses new connections and disconnects the live ones.
func (g *Gateway) Shutdown() {
	g.closing.Store(true)
	g.connections.Range(func(_, value any) bool {
		g.Disconnect(value.(*Connection), errors.ErrShuttingDown)
		return true
	})
}

// Connections returns the number of live connections.
func (g *Gateway) Connections() int {
	count := 0
	g.connections.Range(func(_, _ any) bool {
		count++
		return true
	})
	return count
}

func (g *Gateway) evict(conn *Connection, reason error) {
	if errors.Is(reason, errors.ErrSlowConsumer) {
		metrics.SlowConsumersEvicted.Inc()
		g.log.Warn("Evicting slow consumer", "conn_id", conn.id, "user_id", conn.UserID())
	}
	g.Disconnect(conn, reason)
}

// deliverError reports err to conn only. A connection too slow to take it is evicted.
func (g *Gateway) deliverError(conn *Connection, err error, groupID domain.GroupID) {
	if conn.send(errorEvent(err, groupID)) {
		return
	}
	if conn.State() != domain.Closed {
		g.evict(conn, errors.ErrSlowConsumer)
	}
}

func storageError(err error) error {
	if errors.Is(err, errors.ErrStorage) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", errors.ErrStorage, err)
}
