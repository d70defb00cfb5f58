package gateway

import (
	"chat-gateway/domain"
	"chat-gateway/errors"
	"encoding/json"
	"fmt"
)

// Frame is the JSON envelope of every websocket message, in both directions.
type Frame struct {
	Event domain.EventName `json:"event"`
	Data  json.RawMessage  `json:"data,omitempty"`
}

type outboundFrame struct {
	Event domain.EventName `json:"event"`
	Data  any              `json:"data"`
}

// EncodeEvent renders an outbound event as a frame.
func EncodeEvent(evt domain.Event) ([]byte, error) {
	return json.Marshal(outboundFrame{Event: evt.Name, Data: evt.Payload})
}

func DecodeFrame(raw []byte) (Frame, error) {
	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return Frame{}, fmt.Errorf("%w: malformed frame: %v", errors.ErrValidation, err)
	}
	if frame.Event == "" {
		return Frame{}, fmt.Errorf("%w: frame without event", errors.ErrValidation)
	}
	return frame, nil
}

func decodeSendMessage(data json.RawMessage) (domain.SendMessage, error) {
	var payload domain.SendMessage
	if len(data) == 0 {
		return payload, fmt.Errorf("%w: send_message without data", errors.ErrValidation)
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return payload, fmt.Errorf("%w: malformed send_message: %v", errors.ErrValidation, err)
	}
	return payload, nil
}

func errorEvent(err error, groupID domain.GroupID) domain.Event {
	return domain.Event{
		Name: domain.EventError,
		Payload: domain.ErrorPayload{
			Code:    errors.Code(err),
			Message: errors.Message(err),
			GroupID: groupID,
		},
	}
}
