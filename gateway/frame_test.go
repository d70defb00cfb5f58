package gateway

import (
	"chat-gateway/domain"
	"chat-gateway/errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestEncodeEvent(t *testing.T) {
	t.Run("a new message is wrapped in an event envelope", func(t *testing.T) {
		req := require.New(t)
		id := uuid.MustParse("5b1f8a3e-0f7e-4a51-9a7b-1f2c3d4e5f60")
		raw, err := EncodeEvent(domain.Event{
			Name: domain.EventNewMessage,
			Payload: domain.NewMessage{Message: domain.Message{
				ID:        id,
				GroupID:   "g1",
				AuthorID:  "alice",
				Text:      "hi",
				CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
				Seq:       3,
			}},
		})
		req.NoError(err)
		req.JSONEq(`{"event":"new_message","data":{"message":{
			"id":"5b1f8a3e-0f7e-4a51-9a7b-1f2c3d4e5f60","group_id":"g1","author_id":"alice",
			"text":"hi","created_at":"2024-01-02T03:04:05Z","seq":3}}}`, string(raw))
	})

	t.Run("an error without group omits it", func(t *testing.T) {
		req := require.New(t)
		raw, err := EncodeEvent(errorEvent(errors.ErrValidation, ""))
		req.NoError(err)
		req.JSONEq(`{"event":"error","data":{"code":"validation_error","message":"invalid payload"}}`, string(raw))
	})
}

func TestDecodeFrame(t *testing.T) {
	req := require.New(t)

	frame, err := DecodeFrame([]byte(`{"event":"send_message","data":{"text":"hi","group_id":"g1"}}`))
	req.NoError(err)
	req.Equal(domain.EventSendMessage, frame.Event)

	payload, err := decodeSendMessage(frame.Data)
	req.NoError(err)
	req.Equal(domain.SendMessage{Text: "hi", GroupID: "g1"}, payload)

	_, err = DecodeFrame([]byte(`{"event":`))
	req.ErrorIs(err, errors.ErrValidation)
}
