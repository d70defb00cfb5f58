package domain

type EventName string

const (
	EventSendMessage      EventName = "send_message"
	EventPreviousMessages EventName = "previous_messages"
	EventNewMessage       EventName = "new_message"
	EventError            EventName = "error"
)

// Event is one outbound frame queued for a connection.
type Event struct {
	Name    EventName
	Payload any
}

// SendMessage is the payload of an inbound send_message event.
type SendMessage struct {
	Text    string  `json:"text" validate:"required"`
	GroupID GroupID `json:"group_id" validate:"required"`
}

type PreviousMessages struct {
	Messages []Message `json:"messages"`
}

type NewMessage struct {
	Message Message `json:"message"`
}

type ErrorPayload struct {
	Code    string  `json:"code"`
	Message string  `json:"message"`
	GroupID GroupID `json:"group_id,omitempty"`
}
