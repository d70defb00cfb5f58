package gateway

import (
	"chat-gateway/domain"
	"context"
	"sync"

	"github.com/google/uuid"
)

// Connection is the gateway's side of one live client.
// Outbound events are queued without blocking; the transport drains Outbound
// until it is closed.
type Connection struct {
	id       string
	identity domain.Identity
	groups   []domain.GroupID
	gateway  *Gateway
	ctx      context.Context
	cancel   context.CancelFunc
	outbound chan domain.Event

	mu       sync.Mutex
	state    domain.ConnectionState
	replayed bool
	// held keeps live messages that arrive before the replay was delivered.
	held   []domain.Event
	reason error
}

func newConnection(g *Gateway, identity domain.Identity, bufferSize int) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	return &Connection{
		id:       uuid.NewString(),
		identity: identity,
		gateway:  g,
		ctx:      ctx,
		cancel:   cancel,
		outbound: make(chan domain.Event, bufferSize),
		state:    domain.Connecting,
	}
}

func (c *Connection) ID() string { return c.id }

func (c *Connection) UserID() domain.UserID { return c.identity.UserID }

func (c *Connection) Identity() domain.Identity { return c.identity }

// Groups returns the groups joined at connect time.
func (c *Connection) Groups() []domain.GroupID {
	return append([]domain.GroupID(nil), c.groups...)
}

// Context is cancelled when the connection is torn down.
func (c *Connection) Context() context.Context { return c.ctx }

func (c *Connection) Outbound() <-chan domain.Event { return c.outbound }

func (c *Connection) State() domain.ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// CloseReason is the error passed to the Disconnect that closed the connection.
func (c *Connection) CloseReason() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reason
}

// Deliver queues a broadcast event. Live messages are held back until the
// replay has been delivered. It never blocks.
func (c *Connection) Deliver(evt domain.Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == domain.Closed {
		return false
	}
	if !c.replayed && evt.Name == domain.EventNewMessage {
		// one slot stays free for previous_messages
		if len(c.held) >= cap(c.outbound)-1 {
			return false
		}
		c.held = append(c.held, evt)
		return true
	}
	return c.enqueueLocked(evt)
}

// Evict is called by the registry when the connection cannot keep up.
func (c *Connection) Evict(reason error) {
	c.gateway.evict(c, reason)
}

// send queues an event for this connection only, bypassing the replay hold.
func (c *Connection) send(evt domain.Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == domain.Closed {
		return false
	}
	return c.enqueueLocked(evt)
}

func (c *Connection) enqueueLocked(evt domain.Event) bool {
	select {
	case c.outbound <- evt:
		return true
	default:
		return false
	}
}

// completeReplay queues the previous messages, then the live messages held
// meanwhile that the replay does not already contain.
func (c *Connection) completeReplay(messages []domain.Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == domain.Closed || c.replayed {
		return false
	}
	c.replayed = true
	held := c.held
	c.held = nil

	if messages == nil {
		messages = []domain.Message{}
	}
	if !c.enqueueLocked(domain.Event{Name: domain.EventPreviousMessages, Payload: domain.PreviousMessages{Messages: messages}}) {
		return false
	}
	replayed := make(map[uuid.UUID]struct{}, len(messages))
	for _, m := range messages {
		replayed[m.ID] = struct{}{}
	}
	for _, evt := range held {
		if payload, ok := evt.Payload.(domain.NewMessage); ok {
			if _, seen := replayed[payload.Message.ID]; seen {
				continue
			}
		}
		if !c.enqueueLocked(evt) {
			return false
		}
	}
	return true
}

func (c *Connection) moveTo(next domain.ConnectionState) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.CanMoveTo(next) {
		return false
	}
	c.state = next
	return true
}

// close moves the connection to CLOSED and reports the state it left.
// Only the first call does anything.
func (c *Connection) close(reason error) (domain.ConnectionState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == domain.Closed {
		return c.state, false
	}
	previous := c.state
	c.state = domain.Closed
	c.reason = reason
	c.held = nil
	c.cancel()
	close(c.outbound)
	return previous, true
}
