// Package client speaks the gateway's websocket protocol.
// It is used by the terminal client and the end-to-end suite.
package client

import (
	"chat-gateway/domain"
	"chat-gateway/gateway"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrorEvent is an error frame received from the gateway.
type ErrorEvent struct {
	domain.ErrorPayload
}

func (e ErrorEvent) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

type Client struct {
	socket *websocket.Conn
	// gorilla allows one concurrent writer
	writeMu sync.Mutex
}

// Dial opens a websocket on address (ws://host:port/ws) with token as bearer credential.
// A rejected credential surfaces as an error carrying the HTTP status.
func Dial(ctx context.Context, address, token string) (*Client, error) {
	u, err := url.Parse(address)
	if err != nil {
		return nil, fmt.Errorf("invalid gateway address %q: %w", address, err)
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	socket, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("gateway refused connection (%s): %w", resp.Status, err)
		}
		return nil, fmt.Errorf("could not connect to %s: %w", address, err)
	}
	return &Client{socket: socket}, nil
}

func (c *Client) Send(groupID domain.GroupID, text string) error {
	data, err := json.Marshal(domain.SendMessage{GroupID: groupID, Text: text})
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.socket.WriteJSON(gateway.Frame{Event: domain.EventSendMessage, Data: data})
}

// Next blocks until the next frame arrives or the deadline passes.
func (c *Client) Next(deadline time.Time) (gateway.Frame, error) {
	if err := c.socket.SetReadDeadline(deadline); err != nil {
		return gateway.Frame{}, err
	}
	_, raw, err := c.socket.ReadMessage()
	if err != nil {
		return gateway.Frame{}, err
	}
	return gateway.DecodeFrame(raw)
}

// History waits for the previous_messages frame sent right after connecting.
func (c *Client) History(timeout time.Duration) ([]domain.Message, error) {
	frame, err := c.Next(time.Now().Add(timeout))
	if err != nil {
		return nil, err
	}
	if frame.Event != domain.EventPreviousMessages {
		return nil, fmt.Errorf("expected %s, got %s", domain.EventPreviousMessages, frame.Event)
	}
	var payload domain.PreviousMessages
	if err := json.Unmarshal(frame.Data, &payload); err != nil {
		return nil, err
	}
	return payload.Messages, nil
}

// NextMessage skips nothing: an error frame is returned as an ErrorEvent.
func (c *Client) NextMessage(timeout time.Duration) (domain.Message, error) {
	frame, err := c.Next(time.Now().Add(timeout))
	if err != nil {
		return domain.Message{}, err
	}
	return DecodeMessage(frame)
}

// DecodeMessage reads a new_message frame.
func DecodeMessage(frame gateway.Frame) (domain.Message, error) {
	switch frame.Event {
	case domain.EventNewMessage:
		var payload domain.NewMessage
		if err := json.Unmarshal(frame.Data, &payload); err != nil {
			return domain.Message{}, err
		}
		return payload.Message, nil
	case domain.EventError:
		var payload domain.ErrorPayload
		if err := json.Unmarshal(frame.Data, &payload); err != nil {
			return domain.Message{}, err
		}
		return domain.Message{}, ErrorEvent{payload}
	default:
		return domain.Message{}, fmt.Errorf("unexpected event %s", frame.Event)
	}
}

// Close sends a normal close frame before dropping the socket.
func (c *Client) Close() error {
	c.writeMu.Lock()
	_ = c.socket.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()
	return c.socket.Close()
}
